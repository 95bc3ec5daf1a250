package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/njoerd114/possync/internal/model"
)

func TestStatusTracker_Guard(t *testing.T) {
	st := NewStatusTracker()
	assert.False(t, st.AnyBusy())

	assert.True(t, st.Begin(model.EntityCategories, "run-1"))
	assert.False(t, st.Begin(model.EntityCategories, "run-2"), "second begin must be rejected")
	assert.True(t, st.Busy(model.EntityCategories))
	assert.True(t, st.AnyBusy())
	assert.True(t, st.Begin(model.EntityCustomers, "run-3"), "other entity types are independent")

	st.End(model.EntityCategories)
	assert.False(t, st.Busy(model.EntityCategories))
	assert.True(t, st.Begin(model.EntityCategories, "run-4"))
}

func TestStatusTracker_StockSharesItemsCollection(t *testing.T) {
	st := NewStatusTracker()
	assert.True(t, st.Begin(model.EntityItems, "a"))
	assert.False(t, st.Begin(model.EntityStock, "b"))
	st.End(model.EntityItems)

	assert.True(t, st.Begin(model.EntityStock, "c"))
	assert.False(t, st.Begin(model.EntityItems, "d"))
	assert.True(t, st.Blocked(model.EntityItems))
	assert.False(t, st.Busy(model.EntityItems), "items itself is idle")
	assert.False(t, st.Blocked(model.EntityCustomers))
}

func TestStatusTracker_PhaseAndProgress(t *testing.T) {
	st := NewStatusTracker()
	st.Begin(model.EntityItems, "run-1")
	st.FetchProgress("items", 250)

	snap := st.Snapshot()
	assert.Len(t, snap, len(model.AllEntities))
	assert.Equal(t, model.EntityCategories, snap[0].Entity)

	items := snap[1]
	assert.Equal(t, PhaseFetching, items.Phase)
	assert.Equal(t, "run-1", items.RunID)
	assert.Equal(t, Progress{Current: 250}, items.Progress)

	st.SetPhase(model.EntityItems, PhaseWriting)
	st.Report(model.EntityItems, 50, 200)
	items = st.Snapshot()[1]
	assert.Equal(t, PhaseWriting, items.Phase)
	assert.InDelta(t, 25.0, items.Progress.Percent, 0.001)

	st.End(model.EntityItems)
	items = st.Snapshot()[1]
	assert.Equal(t, PhaseIdle, items.Phase)
	assert.Empty(t, items.RunID)
}

func TestStatusTracker_FetchProgressInventory(t *testing.T) {
	st := NewStatusTracker()
	st.Begin(model.EntityStock, "run-1")
	st.FetchProgress("inventory", 10)
	assert.Equal(t, 10, st.Snapshot()[4].Progress.Current)
}
