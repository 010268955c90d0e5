package worldtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	world "thegrind.cafe/internal/sim/world"
)

func TestFreshGame_OneSettlementPerThousandTicks(t *testing.T) {
	h := NewHarness(t, 7)
	start := h.State().Tick

	h.StepN(h.Tun.DayTicks - 1)
	require.Equal(t, 0, h.Count(world.SignalDayEnded))
	assert.False(t, h.State().ShowEndOfDay)

	h.Step()
	st := h.State()
	assert.Equal(t, start+uint64(h.Tun.DayTicks), st.Tick)
	assert.Equal(t, 1, h.Count(world.SignalDayEnded))
	assert.True(t, st.ShowEndOfDay)
	assert.Empty(t, st.Orders)
	for _, e := range st.Staff {
		assert.Empty(t, e.CurrentOrder)
		assert.Empty(t, e.DailyMenuItemsMade)
	}

	// The summary gates further ticks until dismissed.
	h.StepN(5)
	assert.Equal(t, st.Tick, h.State().Tick)
	assert.Equal(t, 1, h.Count(world.SignalDayEnded))
}

func TestFreshGame_FirstAdvanceOnlyBootstraps(t *testing.T) {
	h := NewHarness(t, 1)
	sigs := h.Step()
	st := h.State()

	require.Len(t, st.Staff, 1)
	require.Len(t, st.Menu, 1)
	assert.Equal(t, "Drip coffee", st.Menu[0].Name)
	assert.Empty(t, st.Orders)
	require.Len(t, sigs, 1)
	assert.Equal(t, world.SignalGameStarted, sigs[0].Kind)
}
