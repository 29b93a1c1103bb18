package exportfile

import (
	"errors"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/tascord/spanner/capture"
)

const (
	// FormatName identifies the export stream in its header record.
	FormatName = "spanner-events"

	// FormatVersion is the highest format revision this package can read
	// and the one it writes.
	FormatVersion = 1
)

var (
	// ErrMalformedHeader is returned when the header record is missing,
	// not valid JSON, or names a different format.
	ErrMalformedHeader = errors.New("export header is malformed")

	// ErrUnsupportedVersion is returned when the header declares a format
	// version this reader does not support.
	ErrUnsupportedVersion = errors.New("export format version is not supported")

	// ErrEventCountMismatch is returned when the declared event count does
	// not match the number of records actually present.
	ErrEventCountMismatch = errors.New("declared event count does not match records present")

	// ErrMalformedRecord is returned when an event record is not valid
	// JSON or lacks a required field.
	ErrMalformedRecord = errors.New("export record is malformed")
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// header is the first record of an export stream.
type header struct {
	Format     string                  `json:"format"`
	Version    int                     `json:"version"`
	ExportedAt time.Time               `json:"exported_at"`
	EventCount *int                    `json:"event_count"`
	Manifest   *capture.ExportManifest `json:"manifest,omitempty"`
}

// eventRecord mirrors capture.Event on the wire with pointer fields for
// everything a valid record must carry, so absence is detectable.
type eventRecord struct {
	SequenceNumber *uint64            `json:"sequence_number"`
	Timestamp      *time.Time         `json:"timestamp"`
	Level          *capture.Level     `json:"level"`
	Target         *string            `json:"target"`
	Message        *string            `json:"message"`
	Fields         capture.Fields     `json:"fields"`
	CurrentSpan    *capture.SpanRef   `json:"current_span"`
	SpanStack      []capture.SpanRef  `json:"span_stack"`
	File           string             `json:"file"`
	Line           int                `json:"line"`
	ProcessID      int                `json:"process_id"`
	CorrelationID  string             `json:"correlation_id"`
	Metadata       map[string]string  `json:"metadata"`
}

func (r eventRecord) validate() bool {
	return r.SequenceNumber != nil &&
		r.Timestamp != nil &&
		r.Level != nil &&
		r.Target != nil &&
		r.Message != nil
}

func (r eventRecord) toEvent() capture.Event {
	return capture.Event{
		SequenceNumber: *r.SequenceNumber,
		Timestamp:      *r.Timestamp,
		Level:          *r.Level,
		Target:         *r.Target,
		Message:        *r.Message,
		Fields:         r.Fields,
		CurrentSpan:    r.CurrentSpan,
		SpanStack:      r.SpanStack,
		File:           r.File,
		Line:           r.Line,
		ProcessID:      r.ProcessID,
		CorrelationID:  r.CorrelationID,
		Metadata:       r.Metadata,
	}
}
