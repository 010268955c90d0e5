package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thegrind.cafe/internal/persistence/indexdb"
	"thegrind.cafe/internal/persistence/savegame"
	"thegrind.cafe/internal/persistence/snapshot"
	"thegrind.cafe/internal/sim/catalogs"
	"thegrind.cafe/internal/sim/rng"
	"thegrind.cafe/internal/sim/tuning"
	"thegrind.cafe/internal/sim/world"
)

func testEngine() *world.Engine {
	return world.NewEngine(catalogs.Default(), tuning.Defaults(), rng.New(3, 4))
}

func TestPersister_WritesSnapshotSaveAndArchive(t *testing.T) {
	dir := t.TempDir()
	repo, err := savegame.NewFileRepo(filepath.Join(dir, "saves"))
	require.NoError(t, err)
	idx, err := indexdb.OpenSQLite(filepath.Join(dir, "index.sqlite"))
	require.NoError(t, err)
	defer idx.Close()

	saveDir := filepath.Join(dir, "saves", "cafe")
	p := &persister{
		saveDir:      saveDir,
		repo:         repo,
		idx:          idx,
		archiveEvery: 7,
		log:          log.New(io.Discard),
		now:          func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) },
	}

	st := testEngine().NewState()
	st.Tick = 8000
	cp := world.Checkpoint{SaveID: "cafe", Tick: 8000, Day: 8, DayEnd: true, State: st}

	path, err := p.write(context.Background(), cp)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(saveDir, "snapshots", "8000.snap.zst"), path)

	h, err := snapshot.ReadHeader(path)
	require.NoError(t, err)
	assert.Equal(t, "cafe", h.SaveID)
	assert.Equal(t, 8, h.Day)
	assert.True(t, h.DayEnd)

	raw, err := repo.Load(context.Background(), "cafe")
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"tick":8000`)

	_, err = os.Stat(filepath.Join(saveDir, "archives", "week_0001", "8000.snap.zst"))
	assert.NoError(t, err)
}

func TestPersister_MidDayCheckpointIsNotArchived(t *testing.T) {
	dir := t.TempDir()
	repo := savegame.NewMemoryRepo()
	p := &persister{saveDir: dir, repo: repo, archiveEvery: 7, log: log.New(io.Discard)}

	st := testEngine().NewState()
	_, err := p.write(context.Background(), world.Checkpoint{SaveID: "cafe", Tick: 8500, Day: 8, State: st})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "archives"))
	assert.True(t, os.IsNotExist(err))
}

func TestCafeCollector_Gathers(t *testing.T) {
	e := testEngine()
	w := world.New(world.Config{SaveID: "cafe", TickInterval: time.Second}, e, e.NewState(), nil)
	w.StepOnce()

	reg := prometheus.NewRegistry()
	reg.MustRegister(newCafeCollector("cafe", w, nil, nil))
	mfs, err := reg.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	assert.True(t, names["grind_tick"])
	assert.True(t, names["grind_cash"])
	assert.True(t, names["grind_queue_depth"])
	assert.False(t, names["grind_index_dropped_total"])
}
