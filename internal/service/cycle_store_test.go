package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"straddlebot/internal/domain"
)

func TestCycleStoreMarkPositionOpenedOnce(t *testing.T) {
	store := NewCycleStore()
	store.Put(domain.CycleState{Symbol: "LINKUSDT", LongOrderID: "long-1", ShortOrderID: "short-1"})

	assert.True(t, store.MarkPositionOpened("LINKUSDT"))
	assert.False(t, store.MarkPositionOpened("LINKUSDT"), "second claim must lose")

	state, exists := store.Get("LINKUSDT")
	require.True(t, exists)
	assert.True(t, state.HasPosition)
}

func TestCycleStoreMarkPositionOpenedUnknownSymbol(t *testing.T) {
	store := NewCycleStore()
	assert.False(t, store.MarkPositionOpened("BTCUSDT"))
}

func TestCycleStoreDistanceDefaultsToNarrow(t *testing.T) {
	store := NewCycleStore()
	assert.Equal(t, domain.CycleDistanceNarrow, store.Distance("LINKUSDT"))
}

func TestCycleStoreToggleDistanceAlternates(t *testing.T) {
	store := NewCycleStore()

	assert.Equal(t, domain.CycleDistanceWide, store.ToggleDistance("LINKUSDT"))
	assert.Equal(t, domain.CycleDistanceNarrow, store.ToggleDistance("LINKUSDT"))
	assert.Equal(t, domain.CycleDistanceWide, store.ToggleDistance("LINKUSDT"))
}

func TestCycleStoreToggleIndependentOfCycleLifetime(t *testing.T) {
	store := NewCycleStore()
	store.Put(domain.CycleState{Symbol: "LINKUSDT"})
	store.Delete("LINKUSDT")

	// The selector survives cycle teardown.
	assert.Equal(t, domain.CycleDistanceWide, store.ToggleDistance("LINKUSDT"))
	assert.Equal(t, domain.CycleDistanceWide, store.Distance("LINKUSDT"))
}

func TestCycleStorePendingAndOpenSymbols(t *testing.T) {
	store := NewCycleStore()
	store.Put(domain.CycleState{Symbol: "LINKUSDT"})
	store.Put(domain.CycleState{Symbol: "BTCUSDT", HasPosition: true})

	assert.Equal(t, []string{"LINKUSDT"}, store.PendingSymbols())
	assert.Equal(t, []string{"BTCUSDT"}, store.OpenSymbols())
	assert.Equal(t, 2, store.ActiveCount())

	store.Delete("BTCUSDT")
	assert.Empty(t, store.OpenSymbols())
	assert.Equal(t, 1, store.ActiveCount())
}

func TestCycleStoreGetReturnsCopy(t *testing.T) {
	store := NewCycleStore()
	store.Put(domain.CycleState{Symbol: "LINKUSDT", LongOrderID: "long-1"})

	state, _ := store.Get("LINKUSDT")
	state.LongOrderID = "mutated"

	fresh, _ := store.Get("LINKUSDT")
	assert.Equal(t, "long-1", fresh.LongOrderID)
}

func TestCycleStoreSnapshot(t *testing.T) {
	store := NewCycleStore()
	store.Put(domain.CycleState{Symbol: "LINKUSDT"})
	store.ToggleDistance("LINKUSDT")

	states := store.Snapshot()
	require.Len(t, states, 1)
	assert.Equal(t, "LINKUSDT", states[0].Symbol)

	distances := store.DistanceSnapshot()
	assert.Equal(t, domain.CycleDistanceWide, distances["LINKUSDT"])
}
