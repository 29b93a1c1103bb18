// Package slogbridge is the capture layer binding the capture store to
// log/slog, the host structured logging framework.
//
// Handler implements slog.Handler. Every record passing through it is
// translated into a capture.Event and appended to the store, then the
// record is handed to the wrapped inner handler so console output and any
// other downstream handling stay untouched. Translation never fails
// visibly to the host: a field value that cannot be represented is
// degraded to a best-effort string, and any internal panic is recovered
// before it can unwind through the logging call site.
//
// Three composition entry points cover the usual setups, differing only in
// how much surrounding handler configuration they own:
//
//	// take over the process default logger
//	err := slogbridge.Init()
//
//	// install a caller-supplied handler, with capture attached, as default
//	err := slogbridge.InitWithHandler(myHandler)
//
//	// wrap a handler without touching the process default
//	logger := slog.New(slogbridge.AddToHandler(myHandler))
//
// Span context is resolved through a SpanResolver, typically the
// otelbridge subpackage's SpanRecorder:
//
//	recorder := otelbridge.NewSpanRecorder()
//	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
//	err := slogbridge.Init(slogbridge.WithSpanResolver(recorder))
package slogbridge
