package log

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thegrind.cafe/internal/sim/world"
)

func TestJSONLZstdWriter_RotatesHourly(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONLZstdWriter(dir, "signals")
	now := time.Date(2024, 5, 1, 9, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	require.NoError(t, w.Write(map[string]int{"n": 1}))
	require.NoError(t, w.Write(map[string]int{"n": 2}))
	now = now.Add(2 * time.Minute)
	require.NoError(t, w.Write(map[string]int{"n": 3}))
	require.NoError(t, w.Close())

	files, err := Files(dir, "signals")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "signals-2024-05-01-09.jsonl.zst", filepath.Base(files[0]))

	var ns []int
	for _, p := range files {
		require.NoError(t, EachLine(p, func(line []byte) error {
			var v map[string]int
			if err := json.Unmarshal(line, &v); err != nil {
				return err
			}
			ns = append(ns, v["n"])
			return nil
		}))
	}
	assert.Equal(t, []int{1, 2, 3}, ns)
}

func TestFanout_SplitsDaySummaries(t *testing.T) {
	dir := t.TempDir()
	f := Fanout{Signals: NewSignalLogger(dir), Days: NewDayLogger(dir)}

	require.NoError(t, f.WriteSignal(world.Signal{Kind: world.SignalOrderPlaced, Tick: 1001, OrderID: "a"}))
	require.NoError(t, f.WriteSignal(world.Signal{Kind: world.SignalDayEnded, Tick: 2000, Day: &world.DaySummary{Day: 1, Tick: 2000, Profit: -10}}))
	require.NoError(t, f.Close())

	days, err := ReadDays(dir)
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, 1, days[0].Day)
	assert.Equal(t, -10.0, days[0].Profit)

	files, err := Files(filepath.Join(dir, "signals"), "signals")
	require.NoError(t, err)
	n := 0
	for _, p := range files {
		require.NoError(t, EachLine(p, func([]byte) error { n++; return nil }))
	}
	assert.Equal(t, 2, n)
}
