// Package capture provides an in-process store for events emitted through a
// structured logging pipeline, together with query, filtering, and reactive
// observation of newly captured events.
//
// Events flow into the store through a pluggable capture layer (see the
// slogbridge subpackage, which implements slog.Handler) and are assigned a
// strictly increasing sequence number at append time. Consumers read them
// back through point-in-time snapshots, level- and criteria-based queries,
// or synchronous subscriptions.
//
// The package holds a single process-wide Store reachable without threading
// a handle through every instrumented call site. It is created lazily on
// first capture or explicitly via InitGlobalStore, and can be cleared for
// test isolation:
//
//	capture.InitGlobalStore()
//	defer capture.ClearGlobalEvents()
//
//	sub := capture.OnEvent(func(e capture.Event) {
//		// invoked synchronously for every appended event
//	})
//	defer sub.Cancel()
//
//	events, ok := capture.GlobalEvents()
//	if ok {
//		errors := capture.NewManager(events, nil).GetByLevel(capture.LevelError)
//		_ = errors
//	}
//
// Key types:
//   - Event: one captured occurrence, immutable once appended
//   - Store: the concurrency-safe, append-ordered event collection
//   - Manager: an immutable, queryable wrapper around an event sequence
//   - QueryFilter: criteria for Search, built with BuildQueryFilter
//   - Subscription: a handle for a registered event callback
package capture
