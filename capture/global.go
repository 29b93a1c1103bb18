package capture

import (
	"fmt"
	"strings"
	"sync"
)

// The process-wide store behind the package-level functions. It is created
// lazily on first capture or explicitly via InitGlobalStore and lives for
// the process lifetime; it holds no external resources, so no teardown is
// needed. ClearGlobalEvents resets it for test isolation.
var (
	globalMu    sync.RWMutex
	globalStore *Store
)

// InitGlobalStore creates a fresh global store with the given options and
// installs it, replacing any previous one. Subscriptions registered on a
// replaced store stop receiving events.
func InitGlobalStore(options ...StoreOption) (*Store, error) {
	store, err := NewStore(options...)
	if err != nil {
		return nil, err
	}

	globalMu.Lock()
	defer globalMu.Unlock()

	globalStore = store

	return store, nil
}

// GlobalStore returns the process-wide store, creating it with default
// options on first use.
func GlobalStore() *Store {
	globalMu.RLock()
	store := globalStore
	globalMu.RUnlock()

	if store != nil {
		return store
	}

	globalMu.Lock()
	defer globalMu.Unlock()

	if globalStore == nil {
		// NewStore without options cannot fail.
		globalStore, _ = NewStore()
	}

	return globalStore
}

// GlobalEvents returns a snapshot of the global store. The second return
// value is false if capture was never started, which is distinguishable
// from an initialized but empty store.
func GlobalEvents() (Events, bool) {
	globalMu.RLock()
	store := globalStore
	globalMu.RUnlock()

	if store == nil {
		return nil, false
	}

	return store.Snapshot(), true
}

// GlobalEventCount returns the number of events in the global store, or
// zero if capture was never started.
func GlobalEventCount() int {
	globalMu.RLock()
	store := globalStore
	globalMu.RUnlock()

	if store == nil {
		return 0
	}

	return store.Len()
}

// ClearGlobalEvents empties the global store. The sequence counter keeps
// running; use the store's ClearAndResetSequence when a test needs
// sequence numbers to restart.
func ClearGlobalEvents() {
	globalMu.RLock()
	store := globalStore
	globalMu.RUnlock()

	if store != nil {
		store.Clear()
	}
}

// OnEvent registers a callback on the global store, creating the store if
// capture has not started yet. The callback is invoked synchronously with
// each newly appended event, in append order.
func OnEvent(callback func(Event)) *Subscription {
	return GlobalStore().OnEvent(callback)
}

// EventSummary returns a human-readable per-level breakdown of the events
// captured so far, for debugging.
func EventSummary() string {
	events, ok := GlobalEvents()
	if !ok {
		return "No events captured"
	}

	counts := make(map[Level]int)
	for _, e := range events {
		counts[e.Level]++
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Event Summary: %d total events\n", len(events))

	for _, level := range []Level{LevelError, LevelWarn, LevelInfo, LevelDebug, LevelTrace} {
		if counts[level] > 0 {
			fmt.Fprintf(&b, "  %s: %d\n", level, counts[level])
		}
	}

	return b.String()
}
