package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thegrind.cafe/internal/sim/catalogs"
	"thegrind.cafe/internal/sim/rng"
	"thegrind.cafe/internal/sim/tuning"
	"thegrind.cafe/internal/sim/world"
)

func newSimWorld() *world.World {
	e := world.NewEngine(catalogs.Default(), tuning.Defaults(), rng.New(7, 8))
	return world.New(world.Config{TickInterval: time.Millisecond}, e, e.NewState(), nil)
}

func TestSimulate_SettlesRequestedDays(t *testing.T) {
	w := newSimWorld()

	got := simulate(w, 3, 1000)

	require.Len(t, got, 3)
	for i := 1; i < len(got); i++ {
		assert.Equal(t, got[i-1].Day+1, got[i].Day)
	}
	assert.False(t, w.Snapshot().ShowEndOfDay)
}

func TestPrintOutputs(t *testing.T) {
	days := []world.DaySummary{{Day: 1, Orders: 12, Revenue: 36, Profit: -50, Cash: 450}}

	var buf bytes.Buffer
	printTable(&buf, days)
	assert.Contains(t, strings.ToLower(buf.String()), "popularity")

	buf.Reset()
	require.NoError(t, printJSON(&buf, days))
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
	assert.Contains(t, buf.String(), `"orders":12`)
}
