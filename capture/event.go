package capture

import (
	"strings"
	"time"
)

// Events is an alias type for a slice of Event.
type Events = []Event

// SpanRef identifies one span in the host tracing pipeline at the moment an
// event was captured. It carries identifiers only, copied out of the live
// span registry at capture time, so holding an Event never keeps host
// framework state alive.
type SpanRef struct {
	ID       string `json:"id"`
	TraceID  string `json:"trace_id,omitempty"`
	Name     string `json:"name,omitempty"`
	ParentID string `json:"parent_id,omitempty"`
}

// Event is one captured occurrence: a log record or span lifecycle marker
// translated into the canonical capture representation.
//
// Once appended to a Store an Event is immutable. SequenceNumber is the
// primary ordering key, strictly increasing across the lifetime of one
// Store; Timestamp is non-decreasing with ties broken by sequence number.
type Event struct {
	SequenceNumber uint64    `json:"sequence_number"`
	Timestamp      time.Time `json:"timestamp"`
	Level          Level     `json:"level"`
	Target         string    `json:"target"`
	Message        string    `json:"message"`
	Fields         Fields    `json:"fields,omitempty"`

	// CurrentSpan is the innermost active span at capture time, if any.
	// SpanStack is the full active chain, outermost first, with
	// CurrentSpan as its last element.
	CurrentSpan *SpanRef  `json:"current_span,omitempty"`
	SpanStack   []SpanRef `json:"span_stack,omitempty"`

	File          string            `json:"file,omitempty"`
	Line          int               `json:"line,omitempty"`
	ProcessID     int               `json:"process_id,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// NewEvent creates an Event with the capture-time essentials. The sequence
// number and final timestamp are assigned by Store.Append.
func NewEvent(level Level, target string, message string, fields Fields) Event {
	return Event{
		Timestamp: time.Now(),
		Level:     level,
		Target:    target,
		Message:   message,
		Fields:    fields,
	}
}

// WithSpans attaches the resolved span chain. The chain is ordered
// outermost first; the last element becomes the current span.
func (e Event) WithSpans(chain []SpanRef) Event {
	if len(chain) == 0 {
		return e
	}

	e.SpanStack = chain
	e.CurrentSpan = &chain[len(chain)-1]

	return e
}

// WithLocation attaches the source location of the emitting call site.
func (e Event) WithLocation(file string, line int) Event {
	e.File = file
	e.Line = line

	return e
}

// WithProcessID attaches the emitting process id.
func (e Event) WithProcessID(pid int) Event {
	e.ProcessID = pid
	return e
}

// WithCorrelationID attaches a correlation id for cross-event grouping.
func (e Event) WithCorrelationID(id string) Event {
	e.CorrelationID = id
	return e
}

// WithMetadata adds one free-form metadata entry.
func (e Event) WithMetadata(key, value string) Event {
	meta := make(map[string]string, len(e.Metadata)+1)
	for k, v := range e.Metadata {
		meta[k] = v
	}
	meta[key] = value
	e.Metadata = meta

	return e
}

// InSpan reports whether any span in the active chain has a name
// containing the given substring.
func (e Event) InSpan(nameSubstring string) bool {
	for _, s := range e.SpanStack {
		if strings.Contains(s.Name, nameSubstring) {
			return true
		}
	}

	if e.CurrentSpan != nil && strings.Contains(e.CurrentSpan.Name, nameSubstring) {
		return true
	}

	return false
}
