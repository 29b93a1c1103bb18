package capture

import (
	"fmt"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// FieldKind identifies the type of a FieldValue.
type FieldKind uint8

const (
	KindString FieldKind = iota
	KindInt
	KindFloat
	KindBool
	KindGroup
)

func (k FieldKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindGroup:
		return "group"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// FieldValue is the typed value of an event field: a string, integer,
// float, boolean, or a nested group of fields.
//
// Construct values with StringValue, IntValue, FloatValue, BoolValue,
// or GroupValue. The zero value is an empty string.
type FieldValue struct {
	kind  FieldKind
	str   string
	num   int64
	float float64
	yes   bool
	group Fields
}

func StringValue(v string) FieldValue  { return FieldValue{kind: KindString, str: v} }
func IntValue(v int64) FieldValue      { return FieldValue{kind: KindInt, num: v} }
func FloatValue(v float64) FieldValue  { return FieldValue{kind: KindFloat, float: v} }
func BoolValue(v bool) FieldValue      { return FieldValue{kind: KindBool, yes: v} }
func GroupValue(fields Fields) FieldValue {
	return FieldValue{kind: KindGroup, group: fields}
}

func (v FieldValue) Kind() FieldKind { return v.kind }

// Str returns the string value, or "" if the value is not a string.
func (v FieldValue) Str() string { return v.str }

// Int returns the integer value, or 0 if the value is not an integer.
func (v FieldValue) Int() int64 { return v.num }

// Float returns the float value, or 0 if the value is not a float.
func (v FieldValue) Float() float64 { return v.float }

// Bool returns the boolean value, or false if the value is not a boolean.
func (v FieldValue) Bool() bool { return v.yes }

// Group returns the nested fields, or nil if the value is not a group.
func (v FieldValue) Group() Fields { return v.group }

// String renders the value for display, whatever its kind.
func (v FieldValue) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindInt:
		return strconv.FormatInt(v.num, 10)
	case KindFloat:
		return strconv.FormatFloat(v.float, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.yes)
	case KindGroup:
		parts := make([]string, 0, len(v.group))
		for _, f := range v.group {
			parts = append(parts, f.Key+"="+f.Value.String())
		}
		return "{" + strings.Join(parts, " ") + "}"
	default:
		return ""
	}
}

// Equal reports whether two values have the same kind and content.
func (v FieldValue) Equal(other FieldValue) bool {
	if v.kind != other.kind {
		return false
	}

	switch v.kind {
	case KindString:
		return v.str == other.str
	case KindInt:
		return v.num == other.num
	case KindFloat:
		return v.float == other.float
	case KindBool:
		return v.yes == other.yes
	case KindGroup:
		return v.group.Equal(other.group)
	default:
		return false
	}
}

// Field is one named event field.
type Field struct {
	Key   string
	Value FieldValue
}

// Fields is an ordered collection of event fields. Insertion order is
// preserved for display; Get performs lookup by key.
type Fields []Field

// Get returns the value of the first field with the given key.
func (fs Fields) Get(key string) (FieldValue, bool) {
	for _, f := range fs {
		if f.Key == key {
			return f.Value, true
		}
	}

	return FieldValue{}, false
}

// Has reports whether a field with the given key exists.
func (fs Fields) Has(key string) bool {
	_, ok := fs.Get(key)
	return ok
}

// Equal reports whether two field collections are equal including order.
func (fs Fields) Equal(other Fields) bool {
	if len(fs) != len(other) {
		return false
	}

	for i := range fs {
		if fs[i].Key != other[i].Key || !fs[i].Value.Equal(other[i].Value) {
			return false
		}
	}

	return true
}

// fieldWire is the JSON wire form of a Field. The value type depends on
// the kind so that readers keep native types across a round trip.
type fieldWire struct {
	Key   string              `json:"key"`
	Kind  string              `json:"kind"`
	Value jsoniter.RawMessage `json:"value"`
}

// MarshalJSON encodes the field as {"key":...,"kind":...,"value":...}.
func (f Field) MarshalJSON() ([]byte, error) {
	var value any

	switch f.Value.kind {
	case KindString:
		value = f.Value.str
	case KindInt:
		value = f.Value.num
	case KindFloat:
		value = f.Value.float
	case KindBool:
		value = f.Value.yes
	case KindGroup:
		value = f.Value.group
	}

	raw, err := jsonAPI.Marshal(value)
	if err != nil {
		return nil, err
	}

	return jsonAPI.Marshal(fieldWire{Key: f.Key, Kind: f.Value.kind.String(), Value: raw})
}

// UnmarshalJSON decodes a field from its wire form. A kind written by a
// newer format revision is preserved as the raw JSON text in a string
// value so older readers do not choke on it.
func (f *Field) UnmarshalJSON(data []byte) error {
	var wire fieldWire
	if err := jsonAPI.Unmarshal(data, &wire); err != nil {
		return err
	}

	f.Key = wire.Key

	switch wire.Kind {
	case "string":
		var v string
		if err := jsonAPI.Unmarshal(wire.Value, &v); err != nil {
			return err
		}
		f.Value = StringValue(v)
	case "int":
		var v int64
		if err := jsonAPI.Unmarshal(wire.Value, &v); err != nil {
			return err
		}
		f.Value = IntValue(v)
	case "float":
		var v float64
		if err := jsonAPI.Unmarshal(wire.Value, &v); err != nil {
			return err
		}
		f.Value = FloatValue(v)
	case "bool":
		var v bool
		if err := jsonAPI.Unmarshal(wire.Value, &v); err != nil {
			return err
		}
		f.Value = BoolValue(v)
	case "group":
		var v Fields
		if err := jsonAPI.Unmarshal(wire.Value, &v); err != nil {
			return err
		}
		f.Value = GroupValue(v)
	default:
		f.Value = StringValue(string(wire.Value))
	}

	return nil
}
