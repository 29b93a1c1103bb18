package slogbridge

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/tascord/spanner/capture"
)

// ErrAlreadyInstalled is returned when Init or InitWithHandler is called
// after a capture handler was already installed as the process default.
// The process continues with the existing installation.
var ErrAlreadyInstalled = errors.New("capture handler already installed as process default")

var (
	installMu sync.Mutex
	installed bool
)

// Init installs capture on the process default logger: the current default
// handler keeps doing its work and every record is additionally captured
// into the global store. Returns ErrAlreadyInstalled on a second call.
func Init(options ...HandlerOption) error {
	return install(slog.Default().Handler(), options)
}

// InitWithHandler installs the caller-supplied handler, with capture
// attached, as the process default logger. Returns ErrAlreadyInstalled if
// capture already owns the default.
func InitWithHandler(inner slog.Handler, options ...HandlerOption) error {
	return install(inner, options)
}

// AddToHandler attaches capture to the given handler and returns the
// combined handler, leaving the process default logger alone. The global
// store is created if capture has not started yet.
func AddToHandler(inner slog.Handler, options ...HandlerOption) slog.Handler {
	capture.GlobalStore()

	return NewHandler(append([]HandlerOption{WithInner(inner)}, options...)...)
}

func install(inner slog.Handler, options []HandlerOption) error {
	installMu.Lock()
	defer installMu.Unlock()

	if installed {
		return ErrAlreadyInstalled
	}

	capture.GlobalStore()

	handler := NewHandler(append([]HandlerOption{WithInner(inner)}, options...)...)
	slog.SetDefault(slog.New(handler))
	installed = true

	slog.Info("event capture installed")

	return nil
}
