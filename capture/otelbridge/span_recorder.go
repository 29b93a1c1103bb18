// Package otelbridge connects the capture layer to the OpenTelemetry span
// model. SpanRecorder is an SDK span processor that keeps a registry of
// live spans so the capture layer can copy the active span chain, as
// identifiers only, into each captured event.
package otelbridge

import (
	"context"
	"sync"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/tascord/spanner/capture"
)

// maxChainDepth bounds the ancestor walk in case the registry ever holds
// a parent cycle from id reuse.
const maxChainDepth = 128

// SpanRecorder tracks the name and parent of every live span started
// through a tracer provider it is registered on:
//
//	recorder := otelbridge.NewSpanRecorder()
//	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
//
// It implements slogbridge.SpanResolver: ResolveChain walks from the span
// in the context up through its recorded ancestors. Spans are dropped from
// the registry when they end, so only the currently active chain is ever
// resolved. Safe for concurrent use.
type SpanRecorder struct {
	mu    sync.RWMutex
	spans map[trace.SpanID]spanEntry
}

type spanEntry struct {
	name      string
	parent    trace.SpanID
	hasParent bool
}

// NewSpanRecorder creates an empty span registry.
func NewSpanRecorder() *SpanRecorder {
	return &SpanRecorder{
		spans: make(map[trace.SpanID]spanEntry),
	}
}

// OnStart records the span's name and parent id.
func (r *SpanRecorder) OnStart(_ context.Context, s sdktrace.ReadWriteSpan) {
	entry := spanEntry{name: s.Name()}

	if parent := s.Parent(); parent.IsValid() && parent.SpanID().IsValid() {
		entry.parent = parent.SpanID()
		entry.hasParent = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.spans[s.SpanContext().SpanID()] = entry
}

// OnEnd removes the span from the registry; events captured afterwards no
// longer resolve it.
func (r *SpanRecorder) OnEnd(s sdktrace.ReadOnlySpan) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.spans, s.SpanContext().SpanID())
}

// Shutdown drops all registered spans.
func (r *SpanRecorder) Shutdown(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.spans = make(map[trace.SpanID]spanEntry)

	return nil
}

// ForceFlush is a no-op; the registry holds nothing to flush.
func (r *SpanRecorder) ForceFlush(context.Context) error {
	return nil
}

// ActiveSpans returns the number of live spans currently registered.
func (r *SpanRecorder) ActiveSpans() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.spans)
}

// ResolveChain returns the active span chain for the context, outermost
// first. A span the registry does not know, such as a remote parent, ends
// the walk but is still included with its identifiers alone.
func (r *SpanRecorder) ResolveChain(ctx context.Context) []capture.SpanRef {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return nil
	}

	traceID := sc.TraceID().String()

	var chain []capture.SpanRef
	id := sc.SpanID()

	for depth := 0; depth < maxChainDepth; depth++ {
		r.mu.RLock()
		entry, known := r.spans[id]
		r.mu.RUnlock()

		ref := capture.SpanRef{ID: id.String(), TraceID: traceID}
		if known {
			ref.Name = entry.name
			if entry.hasParent {
				ref.ParentID = entry.parent.String()
			}
		}

		chain = append(chain, ref)

		if !known || !entry.hasParent {
			break
		}

		id = entry.parent
	}

	// The walk collects leaf to root; callers want outermost first.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}

	return chain
}

// Ensure SpanRecorder implements the SDK span processor interface.
var _ sdktrace.SpanProcessor = (*SpanRecorder)(nil)
