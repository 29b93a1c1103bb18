package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetGlobalStore returns the package to its never-started state so each
// test observes the lazy-initialization path from scratch.
func resetGlobalStore(t *testing.T) {
	t.Helper()

	globalMu.Lock()
	globalStore = nil
	globalMu.Unlock()

	t.Cleanup(func() {
		globalMu.Lock()
		globalStore = nil
		globalMu.Unlock()
	})
}

func Test_GlobalEvents_DistinguishesNeverStartedFromEmpty(t *testing.T) {
	resetGlobalStore(t)

	events, ok := GlobalEvents()
	assert.False(t, ok)
	assert.Nil(t, events)

	_, err := InitGlobalStore()
	require.NoError(t, err)

	events, ok = GlobalEvents()
	assert.True(t, ok)
	assert.Empty(t, events)
}

func Test_GlobalStore_IsCreatedLazilyAndReused(t *testing.T) {
	resetGlobalStore(t)

	first := GlobalStore()
	require.NotNil(t, first)

	second := GlobalStore()
	assert.Same(t, first, second)
}

func Test_InitGlobalStore_ReplacesThePreviousStore(t *testing.T) {
	resetGlobalStore(t)

	first := GlobalStore()
	first.Append(NewEvent(LevelInfo, "test", "old", nil))

	second, err := InitGlobalStore()
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, 0, GlobalEventCount())
}

func Test_InitGlobalStore_PropagatesOptionErrors(t *testing.T) {
	resetGlobalStore(t)

	store, err := InitGlobalStore(WithMaxEvents(-1))
	assert.ErrorIs(t, err, ErrInvalidMaxEvents)
	assert.Nil(t, store)

	// A failed init must not install anything.
	_, ok := GlobalEvents()
	assert.False(t, ok)
}

func Test_GlobalEventCount_TracksAppendsAndClear(t *testing.T) {
	resetGlobalStore(t)

	assert.Equal(t, 0, GlobalEventCount())

	store := GlobalStore()
	store.Append(NewEvent(LevelInfo, "test", "one", nil))
	store.Append(NewEvent(LevelWarn, "test", "two", nil))
	assert.Equal(t, 2, GlobalEventCount())

	ClearGlobalEvents()
	assert.Equal(t, 0, GlobalEventCount())

	// Clearing keeps the sequence counter running.
	appended := store.Append(NewEvent(LevelInfo, "test", "three", nil))
	assert.Equal(t, uint64(3), appended.SequenceNumber)
}

func Test_OnEvent_CreatesTheGlobalStoreWhenNeeded(t *testing.T) {
	resetGlobalStore(t)

	var received []string
	sub := OnEvent(func(e Event) {
		received = append(received, e.Message)
	})
	defer sub.Cancel()

	_, ok := GlobalEvents()
	require.True(t, ok)

	GlobalStore().Append(NewEvent(LevelInfo, "test", "msg", nil))
	assert.Equal(t, []string{"msg"}, received)
}

func Test_EventSummary_ReportsPerLevelCounts(t *testing.T) {
	resetGlobalStore(t)

	assert.Equal(t, "No events captured", EventSummary())

	store := GlobalStore()
	store.Append(NewEvent(LevelInfo, "test", "a", nil))
	store.Append(NewEvent(LevelError, "test", "b", nil))
	store.Append(NewEvent(LevelError, "test", "c", nil))

	summary := EventSummary()
	assert.Contains(t, summary, "3 total events")
	assert.Contains(t, summary, "ERROR: 2")
	assert.Contains(t, summary, "INFO: 1")
	assert.NotContains(t, summary, "DEBUG")
}
