package capture

import (
	"strings"
)

// Manager is an immutable, queryable wrapper around an ordered sequence of
// events plus an optional export manifest. It owns its event sequence
// independently of the live store: it is created by taking a snapshot of a
// Store or by importing an export file, and later appends are not visible
// through it.
type Manager struct {
	events   Events
	manifest *ExportManifest
}

// NewManager creates a Manager over a copy of the given events.
func NewManager(events Events, manifest *ExportManifest) *Manager {
	owned := make(Events, len(events))
	copy(owned, events)

	return &Manager{
		events:   owned,
		manifest: manifest,
	}
}

// Events returns a copy of the managed event sequence in append order.
func (m *Manager) Events() Events {
	events := make(Events, len(m.events))
	copy(events, m.events)

	return events
}

// Len returns the number of managed events.
func (m *Manager) Len() int {
	return len(m.events)
}

// IsEmpty reports whether the manager holds no events.
func (m *Manager) IsEmpty() bool {
	return len(m.events) == 0
}

// Manifest returns the export manifest this collection was imported with,
// or nil for a snapshot of the live store.
func (m *Manager) Manifest() *ExportManifest {
	return m.manifest
}

// GetByLevel returns all events whose level equals exactly the given
// level. This is an exact match, not a threshold; use Search with
// WithLevelAtLeast for a severity floor.
func (m *Manager) GetByLevel(level Level) Events {
	var matched Events
	for _, e := range m.events {
		if e.Level == level {
			matched = append(matched, e)
		}
	}

	return matched
}

// GetByTarget returns all events whose target contains the given
// substring.
func (m *Manager) GetByTarget(substring string) Events {
	var matched Events
	for _, e := range m.events {
		if strings.Contains(e.Target, substring) {
			matched = append(matched, e)
		}
	}

	return matched
}

// GetBySpan returns all events captured inside a span whose name contains
// the given substring, anywhere in the active span chain.
func (m *Manager) GetBySpan(nameSubstring string) Events {
	var matched Events
	for _, e := range m.events {
		if e.InSpan(nameSubstring) {
			matched = append(matched, e)
		}
	}

	return matched
}

// GetByCorrelationID returns all events carrying exactly the given
// correlation id.
func (m *Manager) GetByCorrelationID(id string) Events {
	var matched Events
	for _, e := range m.events {
		if e.CorrelationID == id {
			matched = append(matched, e)
		}
	}

	return matched
}

// Search returns all events satisfying every predicate of the filter, in
// append order.
func (m *Manager) Search(filter QueryFilter) Events {
	var matched Events
	for _, e := range m.events {
		if filter.Matches(e) {
			matched = append(matched, e)
		}
	}

	return matched
}

// Recent returns the most recent n events, newest first. Fewer are
// returned when the manager holds fewer than n events.
func (m *Manager) Recent(n int) Events {
	if n < 0 {
		n = 0
	}
	if n > len(m.events) {
		n = len(m.events)
	}

	recent := make(Events, 0, n)
	for i := len(m.events) - 1; i >= len(m.events)-n; i-- {
		recent = append(recent, m.events[i])
	}

	return recent
}
