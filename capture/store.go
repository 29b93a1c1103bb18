package capture

import (
	"errors"
	"sync"
	"time"
)

// ErrInvalidMaxEvents is returned when a negative capacity is configured.
var ErrInvalidMaxEvents = errors.New("max events must not be negative")

const logMsgOldestEventEvicted = "oldest event evicted, store at capacity"

// Store is a concurrency-safe, append-ordered collection of captured
// events. Any number of goroutines may append concurrently; sequence
// number assignment is atomic and append order is preserved in iteration
// order. Reads proceed concurrently with appends and always see a
// consistent point-in-time view.
//
// Subscribers registered with OnEvent are notified synchronously on the
// appending goroutine, in strict append order across events. A slow
// callback therefore directly throttles the goroutine that emitted the
// event.
type Store struct {
	// appendMu serializes the append-and-notify sequence so subscribers
	// observe events in exactly the order sequence numbers were assigned.
	appendMu sync.Mutex

	// stateMu guards the event slice and counters. Snapshot readers and
	// subscriber callbacks take it without touching appendMu, so a
	// callback may safely read the store it is subscribed to.
	stateMu sync.RWMutex

	events    Events
	seq       uint64
	lastStamp time.Time

	maxEvents int
	target    *Target
	logger    Logger
}

// StoreOption defines a functional option for configuring a Store.
type StoreOption func(*Store) error

// WithMaxEvents bounds the store to the given number of events; once full,
// appending evicts the oldest event. Zero (the default) keeps the store
// unbounded, which preserves the guarantee that no event is ever removed
// except by an explicit clear.
func WithMaxEvents(n int) StoreOption {
	return func(s *Store) error {
		if n < 0 {
			return ErrInvalidMaxEvents
		}

		s.maxEvents = n

		return nil
	}
}

// WithLogger sets the logger for internal diagnostics. *slog.Logger
// satisfies the Logger interface directly.
func WithLogger(logger Logger) StoreOption {
	return func(s *Store) error {
		s.logger = logger
		return nil
	}
}

// NewStore creates a Store with optional configuration.
func NewStore(options ...StoreOption) (*Store, error) {
	s := &Store{
		logger: noopLogger{},
	}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	s.target = newTarget(s.logger)

	return s, nil
}

// Append assigns the next sequence number, stores the event, and notifies
// all subscribers before returning. It returns the stored event with its
// sequence number and final timestamp filled in.
//
// The event's timestamp is kept if set; a zero timestamp is replaced with
// the current time. Either way it is raised to the previous event's
// timestamp when needed, so timestamps never decrease in append order.
func (s *Store) Append(e Event) Event {
	return s.append(e, false)
}

// Merge appends previously exported events into the store, assigning fresh
// sequence numbers but preserving their original timestamps. Subscribers
// are notified for each merged event as for any other append. Returns the
// number of events merged.
func (s *Store) Merge(events Events) int {
	for _, e := range events {
		s.append(e, true)
	}

	return len(events)
}

func (s *Store) append(e Event, preserveStamp bool) Event {
	s.appendMu.Lock()
	defer s.appendMu.Unlock()

	s.stateMu.Lock()

	s.seq++
	e.SequenceNumber = s.seq

	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if !preserveStamp && e.Timestamp.Before(s.lastStamp) {
		e.Timestamp = s.lastStamp
	}
	if e.Timestamp.After(s.lastStamp) {
		s.lastStamp = e.Timestamp
	}

	s.events = append(s.events, e)

	evicted := false
	if s.maxEvents > 0 && len(s.events) > s.maxEvents {
		s.events = s.events[1:]
		evicted = true
	}

	s.stateMu.Unlock()

	if evicted {
		s.logger.Debug(logMsgOldestEventEvicted, "max_events", s.maxEvents)
	}

	s.target.emit(e)

	return e
}

// Snapshot returns an ordered copy of all events currently stored,
// consistent at a single point in logical time.
func (s *Store) Snapshot() Events {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()

	snapshot := make(Events, len(s.events))
	copy(snapshot, s.events)

	return snapshot
}

// SnapshotManager returns a queryable Manager over a snapshot of the
// store, independent of further appends.
func (s *Store) SnapshotManager() *Manager {
	return NewManager(s.Snapshot(), nil)
}

// Len returns the number of events currently stored.
func (s *Store) Len() int {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()

	return len(s.events)
}

// LastSequence returns the sequence number assigned to the most recent
// append, or zero if nothing was appended yet.
func (s *Store) LastSequence() uint64 {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()

	return s.seq
}

// Clear empties the store. The sequence counter keeps running so sequence
// numbers stay strictly increasing across the store's lifetime.
func (s *Store) Clear() {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	s.events = nil
}

// ClearAndResetSequence empties the store and restarts sequence numbering
// from one. Meant for test isolation only.
func (s *Store) ClearAndResetSequence() {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	s.events = nil
	s.seq = 0
	s.lastStamp = time.Time{}
}

// OnEvent registers a callback invoked synchronously with each newly
// appended event, in append order. Events appended before registration are
// not replayed.
func (s *Store) OnEvent(callback func(Event)) *Subscription {
	return s.target.on(callback)
}
