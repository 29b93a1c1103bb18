package capture

// Logger is the interface for internal diagnostics of the capture
// subsystem: dropped callback panics, eviction notices, and similar
// conditions that must never surface to the instrumented program.
//
// The signature is slog-compatible, so *slog.Logger satisfies it directly.
// The default is a no-op; routing diagnostics back through a handler that
// itself captures would recurse, so callers who want them should plug a
// logger whose handler is not wrapped by the capture layer.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
