package archive

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thegrind.cafe/internal/persistence/snapshot"
)

func TestWeekOf(t *testing.T) {
	cases := []struct {
		h    snapshot.Header
		week int
		ok   bool
	}{
		{snapshot.Header{Day: 8, DayEnd: true}, 1, true},
		{snapshot.Header{Day: 15, DayEnd: true}, 2, true},
		{snapshot.Header{Day: 8, DayEnd: false}, 0, false},
		{snapshot.Header{Day: 9, DayEnd: true}, 0, false},
		{snapshot.Header{Day: 1, DayEnd: true}, 0, false},
	}
	for _, c := range cases {
		week, ok := WeekOf(c.h, 7)
		assert.Equal(t, c.ok, ok, "day %d", c.h.Day)
		assert.Equal(t, c.week, week, "day %d", c.h.Day)
	}
}

func TestArchiveWeekSnapshot_CopiesWeekEndSnapshot(t *testing.T) {
	saveDir := filepath.Join(t.TempDir(), "saves", "cafe")
	src := filepath.Join(saveDir, "snapshots", "8000.snap.zst")
	require.NoError(t, os.MkdirAll(filepath.Dir(src), 0o755))
	require.NoError(t, os.WriteFile(src, []byte("dummy"), 0o644))

	h := snapshot.Header{SaveID: "cafe", Tick: 8000, Day: 8, DayEnd: true}
	week, dst, ok, err := ArchiveWeekSnapshot(saveDir, src, h, 7)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, week)
	assert.Equal(t, filepath.Join(saveDir, "archives", "week_0001", "8000.snap.zst"), dst)

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "dummy", string(got))

	raw, err := os.ReadFile(filepath.Join(filepath.Dir(dst), "meta.json"))
	require.NoError(t, err)
	var meta WeekArchiveMeta
	require.NoError(t, json.Unmarshal(raw, &meta))
	assert.Equal(t, 7, meta.LastDay)
	assert.Equal(t, uint64(8000), meta.EndTick)

	_, _, ok, err = ArchiveWeekSnapshot(saveDir, src, snapshot.Header{Day: 3, DayEnd: true}, 7)
	require.NoError(t, err)
	assert.False(t, ok)
}
