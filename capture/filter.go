package capture

import (
	"strings"
	"time"
)

// QueryFilter defines criteria for querying captured events. All supplied
// predicates must match (logical AND); an absent predicate imposes no
// constraint, so the zero value matches every event.
//
// The level predicate is a severity floor: events at or above the given
// severity match, per the total order ERROR > WARN > INFO > DEBUG > TRACE.
// For an exact-match level lookup use Manager.GetByLevel instead.
//
// Build filters with BuildQueryFilter:
//
//	filter := capture.BuildQueryFilter().
//		WithLevelAtLeast(capture.LevelWarn).
//		WithTargetContaining("payments").
//		OccurredFrom(since).
//		Finalize()
type QueryFilter struct {
	levelFloor *Level
	target     string
	message    string
	spanName   string
	from       time.Time
	until      time.Time
}

// LevelFloor returns the severity floor, if one was set.
func (f QueryFilter) LevelFloor() (Level, bool) {
	if f.levelFloor == nil {
		return LevelError, false
	}

	return *f.levelFloor, true
}

// TargetContains returns the target substring predicate ("" if unset).
func (f QueryFilter) TargetContains() string { return f.target }

// MessageContains returns the message substring predicate ("" if unset).
func (f QueryFilter) MessageContains() string { return f.message }

// SpanNameContains returns the span name substring predicate ("" if unset).
func (f QueryFilter) SpanNameContains() string { return f.spanName }

// OccurredFrom returns the inclusive lower time bound (zero if unset).
func (f QueryFilter) OccurredFrom() time.Time { return f.from }

// OccurredUntil returns the inclusive upper time bound (zero if unset).
func (f QueryFilter) OccurredUntil() time.Time { return f.until }

// IsEmpty reports whether the filter has no predicates at all.
func (f QueryFilter) IsEmpty() bool {
	return f.levelFloor == nil &&
		f.target == "" &&
		f.message == "" &&
		f.spanName == "" &&
		f.from.IsZero() &&
		f.until.IsZero()
}

// Matches reports whether the event satisfies every supplied predicate.
func (f QueryFilter) Matches(e Event) bool {
	if f.levelFloor != nil && !e.Level.AtLeast(*f.levelFloor) {
		return false
	}

	if f.target != "" && !strings.Contains(e.Target, f.target) {
		return false
	}

	if f.message != "" && !strings.Contains(e.Message, f.message) {
		return false
	}

	if f.spanName != "" && !e.InSpan(f.spanName) {
		return false
	}

	if !f.from.IsZero() && e.Timestamp.Before(f.from) {
		return false
	}

	if !f.until.IsZero() && e.Timestamp.After(f.until) {
		return false
	}

	return true
}

// QueryFilterBuilder accumulates predicates for a QueryFilter.
type QueryFilterBuilder struct {
	filter QueryFilter
}

// BuildQueryFilter starts a new filter which must be completed with
// Finalize.
func BuildQueryFilter() QueryFilterBuilder {
	return QueryFilterBuilder{}
}

// MatchingAnyEvent directly creates an empty filter.
func MatchingAnyEvent() QueryFilter {
	return QueryFilter{}
}

// WithLevelAtLeast restricts matches to events at or above the given
// severity.
func (b QueryFilterBuilder) WithLevelAtLeast(l Level) QueryFilterBuilder {
	b.filter.levelFloor = &l
	return b
}

// WithTargetContaining restricts matches to events whose target contains
// the given substring. An empty string is ignored.
func (b QueryFilterBuilder) WithTargetContaining(s string) QueryFilterBuilder {
	b.filter.target = s
	return b
}

// WithMessageContaining restricts matches to events whose message contains
// the given substring. An empty string is ignored.
func (b QueryFilterBuilder) WithMessageContaining(s string) QueryFilterBuilder {
	b.filter.message = s
	return b
}

// WithSpanNameContaining restricts matches to events with an active span
// whose name contains the given substring. An empty string is ignored.
func (b QueryFilterBuilder) WithSpanNameContaining(s string) QueryFilterBuilder {
	b.filter.spanName = s
	return b
}

// OccurredFrom restricts matches to events captured at or after t.
func (b QueryFilterBuilder) OccurredFrom(t time.Time) QueryFilterBuilder {
	b.filter.from = t
	return b
}

// OccurredUntil restricts matches to events captured at or before t.
func (b QueryFilterBuilder) OccurredUntil(t time.Time) QueryFilterBuilder {
	b.filter.until = t
	return b
}

// Finalize returns the accumulated QueryFilter.
func (b QueryFilterBuilder) Finalize() QueryFilter {
	return b.filter
}

// queryFilterWire is the JSON form used when a filter is recorded in an
// export manifest for provenance.
type queryFilterWire struct {
	LevelAtLeast     *Level     `json:"level_at_least,omitempty"`
	TargetContains   string     `json:"target_contains,omitempty"`
	MessageContains  string     `json:"message_contains,omitempty"`
	SpanNameContains string     `json:"span_name_contains,omitempty"`
	OccurredFrom     *time.Time `json:"occurred_from,omitempty"`
	OccurredUntil    *time.Time `json:"occurred_until,omitempty"`
}

// MarshalJSON encodes the filter criteria for manifest provenance.
func (f QueryFilter) MarshalJSON() ([]byte, error) {
	wire := queryFilterWire{
		LevelAtLeast:     f.levelFloor,
		TargetContains:   f.target,
		MessageContains:  f.message,
		SpanNameContains: f.spanName,
	}

	if !f.from.IsZero() {
		wire.OccurredFrom = &f.from
	}

	if !f.until.IsZero() {
		wire.OccurredUntil = &f.until
	}

	return jsonAPI.Marshal(wire)
}

// UnmarshalJSON decodes filter criteria recorded in an export manifest.
func (f *QueryFilter) UnmarshalJSON(data []byte) error {
	var wire queryFilterWire
	if err := jsonAPI.Unmarshal(data, &wire); err != nil {
		return err
	}

	*f = QueryFilter{
		levelFloor: wire.LevelAtLeast,
		target:     wire.TargetContains,
		message:    wire.MessageContains,
		spanName:   wire.SpanNameContains,
	}

	if wire.OccurredFrom != nil {
		f.from = *wire.OccurredFrom
	}

	if wire.OccurredUntil != nil {
		f.until = *wire.OccurredUntil
	}

	return nil
}
