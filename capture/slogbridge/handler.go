package slogbridge

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tascord/spanner/capture"
)

const (
	logMsgCaptureRecovered = "event capture recovered from panic, record dropped"

	// targetFieldKey is the conventional record attribute naming the
	// emitting component, overriding the call-site package.
	targetFieldKey = "target"

	unknownTarget = "unknown"
)

// SpanResolver provides the currently active span chain for a capture
// context. The returned chain is ordered outermost first; the last element
// is the innermost active span. Implementations copy identifiers only and
// must be safe for concurrent use.
type SpanResolver interface {
	ResolveChain(ctx context.Context) []capture.SpanRef
}

// Handler is an slog.Handler that captures every record into a Store and
// then delegates to a wrapped inner handler. The zero value is not usable;
// construct it with NewHandler.
type Handler struct {
	inner    slog.Handler
	store    *capture.Store
	resolver SpanResolver
	logger   capture.Logger

	target string
	groups []string
	fields capture.Fields
}

// HandlerOption defines a functional option for configuring a Handler.
type HandlerOption func(*Handler)

// WithInner sets the handler records are delegated to after capture.
// Without an inner handler the Handler is capture-only.
func WithInner(inner slog.Handler) HandlerOption {
	return func(h *Handler) {
		h.inner = inner
	}
}

// WithStore captures into the given store instead of the process-wide one.
func WithStore(store *capture.Store) HandlerOption {
	return func(h *Handler) {
		h.store = store
	}
}

// WithSpanResolver sets the resolver used to copy the active span chain
// into captured events.
func WithSpanResolver(resolver SpanResolver) HandlerOption {
	return func(h *Handler) {
		h.resolver = resolver
	}
}

// WithTarget forces the target of every event captured through this
// handler, instead of deriving it per record.
func WithTarget(target string) HandlerOption {
	return func(h *Handler) {
		h.target = target
	}
}

// WithLogger sets the logger for capture-internal diagnostics. It must not
// log through a handler wrapped by this Handler, or capture would recurse.
func WithLogger(logger capture.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// NewHandler creates a capture Handler.
func NewHandler(options ...HandlerOption) *Handler {
	h := &Handler{
		logger: slog.New(slog.DiscardHandler),
	}

	for _, option := range options {
		option(h)
	}

	return h
}

// Enabled always reports true: the capture layer records every level,
// including levels below the inner handler's threshold. Delegation to the
// inner handler still honors the inner handler's own Enabled.
func (h *Handler) Enabled(context.Context, slog.Level) bool {
	return true
}

// Handle captures the record into the store and then delegates it to the
// inner handler. Capture faults are recovered and logged; only the inner
// handler's error, if any, is returned to the host.
func (h *Handler) Handle(ctx context.Context, rec slog.Record) error {
	h.capture(ctx, rec)

	if h.inner != nil && h.inner.Enabled(ctx, rec.Level) {
		return h.inner.Handle(ctx, rec)
	}

	return nil
}

// WithAttrs returns a Handler whose captured events carry the given
// attributes in addition to per-record ones. Attribute keys are qualified
// with the currently open group path.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := h.clone()

	for _, attr := range attrs {
		if field, ok := h.fieldFromAttr(attr, h.groups); ok {
			clone.fields = append(clone.fields, field)
		}
	}

	if h.inner != nil {
		clone.inner = h.inner.WithAttrs(attrs)
	}

	return clone
}

// WithGroup returns a Handler that qualifies subsequent attribute keys
// with the given group name.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	clone := h.clone()
	clone.groups = append(clone.groups, name)

	if h.inner != nil {
		clone.inner = h.inner.WithGroup(name)
	}

	return clone
}

func (h *Handler) clone() *Handler {
	clone := *h
	clone.groups = append([]string(nil), h.groups...)
	clone.fields = append(capture.Fields(nil), h.fields...)

	return &clone
}

// capture translates the record and appends it. It must never fail visibly
// to the host, whatever the record contains.
func (h *Handler) capture(ctx context.Context, rec slog.Record) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error(logMsgCaptureRecovered, "panic", fmt.Sprint(r))
		}
	}()

	h.storeFor().Append(h.buildEvent(ctx, rec))
}

func (h *Handler) storeFor() *capture.Store {
	if h.store != nil {
		return h.store
	}

	return capture.GlobalStore()
}

func (h *Handler) buildEvent(ctx context.Context, rec slog.Record) capture.Event {
	fields := append(capture.Fields(nil), h.fields...)

	rec.Attrs(func(attr slog.Attr) bool {
		if field, ok := h.fieldFromAttr(attr, h.groups); ok {
			fields = append(fields, field)
		}

		return true
	})

	event := capture.Event{
		Timestamp: rec.Time,
		Level:     capture.LevelFromSlog(rec.Level),
		Target:    h.resolveTarget(rec, fields),
		Message:   rec.Message,
		Fields:    fields,
	}

	if file, line := location(rec.PC); file != "" {
		event = event.WithLocation(file, line)
	}

	event = event.
		WithProcessID(os.Getpid()).
		WithCorrelationID(uuid.NewString())

	if h.resolver != nil {
		event = event.WithSpans(h.resolver.ResolveChain(ctx))
	}

	return event
}

// resolveTarget picks the emitting component name: the handler-level
// override wins, then an explicit "target" record attribute, then the
// package of the call site.
func (h *Handler) resolveTarget(rec slog.Record, fields capture.Fields) string {
	if h.target != "" {
		return h.target
	}

	if v, ok := fields.Get(targetFieldKey); ok && v.Kind() == capture.KindString && v.Str() != "" {
		return v.Str()
	}

	if pkg := callerPackage(rec.PC); pkg != "" {
		return pkg
	}

	return unknownTarget
}

// fieldFromAttr converts one slog attribute into a capture field,
// qualifying the key with the open group path. The second return value is
// false for empty attributes, which slog defines as droppable.
func (h *Handler) fieldFromAttr(attr slog.Attr, groups []string) (capture.Field, bool) {
	value := h.safeResolve(attr.Value)

	if attr.Key == "" && value.Kind() != slog.KindGroup {
		return capture.Field{}, false
	}

	key := attr.Key
	if len(groups) > 0 {
		key = strings.Join(groups, ".") + "." + key
	}

	if value.Kind() == slog.KindGroup {
		members := value.Group()
		if len(members) == 0 {
			return capture.Field{}, false
		}

		group := make(capture.Fields, 0, len(members))
		for _, member := range members {
			if field, ok := h.fieldFromAttr(member, nil); ok {
				group = append(group, field)
			}
		}

		return capture.Field{Key: key, Value: capture.GroupValue(group)}, true
	}

	return capture.Field{Key: key, Value: h.fieldValue(value)}, true
}

// fieldValue maps a resolved slog value onto the capture value types.
// Anything outside the canonical set becomes a best-effort string, so a
// hostile or broken value can degrade a field but never break capture.
func (h *Handler) fieldValue(value slog.Value) capture.FieldValue {
	switch value.Kind() {
	case slog.KindString:
		return capture.StringValue(value.String())
	case slog.KindInt64:
		return capture.IntValue(value.Int64())
	case slog.KindUint64:
		if value.Uint64() <= math.MaxInt64 {
			return capture.IntValue(int64(value.Uint64()))
		}
		return capture.StringValue(value.String())
	case slog.KindFloat64:
		return capture.FloatValue(value.Float64())
	case slog.KindBool:
		return capture.BoolValue(value.Bool())
	case slog.KindDuration:
		return capture.StringValue(value.Duration().String())
	case slog.KindTime:
		return capture.StringValue(value.Time().Format(time.RFC3339Nano))
	default:
		return capture.StringValue(h.safeString(value))
	}
}

// safeResolve resolves a LogValuer chain, degrading to a string when the
// valuer panics.
func (h *Handler) safeResolve(value slog.Value) (resolved slog.Value) {
	defer func() {
		if r := recover(); r != nil {
			resolved = slog.StringValue(fmt.Sprintf("!PANIC resolving value: %v", r))
		}
	}()

	return value.Resolve()
}

// safeString formats an arbitrary value, degrading to a placeholder when
// its String or Format method panics.
func (h *Handler) safeString(value slog.Value) (s string) {
	defer func() {
		if r := recover(); r != nil {
			s = fmt.Sprintf("!PANIC formatting value: %v", r)
		}
	}()

	return fmt.Sprintf("%+v", value.Any())
}

func location(pc uintptr) (string, int) {
	if pc == 0 {
		return "", 0
	}

	frame, _ := runtime.CallersFrames([]uintptr{pc}).Next()

	return frame.File, frame.Line
}

// callerPackage derives the import path of the emitting call site from
// the record's program counter.
func callerPackage(pc uintptr) string {
	if pc == 0 {
		return ""
	}

	frame, _ := runtime.CallersFrames([]uintptr{pc}).Next()
	fn := frame.Function
	if fn == "" {
		return ""
	}

	// Function is like "github.com/acme/app/pkg.(*T).Method"; the package
	// path ends at the first dot after the final slash.
	slash := strings.LastIndexByte(fn, '/')
	dot := strings.IndexByte(fn[slash+1:], '.')
	if dot < 0 {
		return fn
	}

	return fn[:slash+1+dot]
}

// Ensure Handler implements slog.Handler.
var _ slog.Handler = (*Handler)(nil)
