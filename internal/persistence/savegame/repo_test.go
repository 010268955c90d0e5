package savegame

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thegrind.cafe/internal/persistence/indexdb"
	"thegrind.cafe/internal/sim/catalogs"
	"thegrind.cafe/internal/sim/rng"
	"thegrind.cafe/internal/sim/tuning"
	"thegrind.cafe/internal/sim/world"
)

func testEngine() *world.Engine {
	return world.NewEngine(catalogs.Default(), tuning.Defaults(), rng.Fixed{F: 0.99})
}

func repos(t *testing.T) map[string]Repo {
	t.Helper()
	file, err := NewFileRepo(filepath.Join(t.TempDir(), "saves"))
	require.NoError(t, err)
	idx, err := indexdb.OpenSQLite(filepath.Join(t.TempDir(), "index.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return map[string]Repo{
		"memory": NewMemoryRepo(),
		"file":   file,
		"sqlite": NewSQLiteRepo(idx),
	}
}

func TestRepos_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	e := testEngine()
	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			_, err := repo.Load(ctx, "cafe")
			require.ErrorIs(t, err, ErrNotFound)

			st, _ := e.Advance(e.NewState())
			st.Cash = 321
			require.NoError(t, repo.Save(ctx, "cafe", st))

			got, err := Load(ctx, repo, e, "cafe", nil)
			require.NoError(t, err)
			assert.Equal(t, 321.0, got.Cash)
			assert.Equal(t, st.Tick, got.Tick)
			require.Len(t, got.Staff, 1)
		})
	}
}

func TestLoad_MissingSaveStartsFresh(t *testing.T) {
	e := testEngine()
	st, err := Load(context.Background(), NewMemoryRepo(), e, "nobody", nil)
	require.NoError(t, err)
	assert.False(t, st.Started())
	assert.Equal(t, 500.0, st.Cash)
}

func TestLoad_CorruptSaveFallsBack(t *testing.T) {
	e := testEngine()
	repo := NewMemoryRepo()
	repo.Put("cafe", []byte("{definitely not json"))

	st, err := Load(context.Background(), repo, e, "cafe", nil)
	require.NoError(t, err)
	assert.Equal(t, e.NewState().Tick, st.Tick)
	assert.False(t, st.Started())
}

func TestLoad_LegacySaveIsMigrated(t *testing.T) {
	e := testEngine()
	repo := NewMemoryRepo()
	repo.Put("cafe", []byte(`{"cash": 99.6, "menu": [{"name": "Drip coffee", "price": 3, "demand": 100, "complexity": 2}]}`))

	st, err := Load(context.Background(), repo, e, "cafe", nil)
	require.NoError(t, err)
	assert.Equal(t, 100.0, st.Cash)
	assert.Equal(t, 3.0, st.Menu[0].MarketPrice)
	assert.Equal(t, world.CurrentVersion, st.Version)
}

func TestFileRepo_RejectsPathIDs(t *testing.T) {
	repo, err := NewFileRepo(t.TempDir())
	require.NoError(t, err)
	assert.Error(t, repo.Save(context.Background(), "../escape", world.State{}))
	_, err = repo.Load(context.Background(), "a/b")
	assert.Error(t, err)
}

func TestFileRepo_NoTempLeftBehind(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewFileRepo(dir)
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), "cafe", testEngine().NewState()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "cafe.json", entries[0].Name())
}
