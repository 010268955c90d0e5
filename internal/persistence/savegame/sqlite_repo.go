package savegame

import (
	"context"
	"errors"

	"thegrind.cafe/internal/persistence/indexdb"
	"thegrind.cafe/internal/sim/world"
)

// SQLiteRepo keeps saves in the index database's saves table.
type SQLiteRepo struct {
	idx *indexdb.SQLiteIndex
}

func NewSQLiteRepo(idx *indexdb.SQLiteIndex) *SQLiteRepo {
	return &SQLiteRepo{idx: idx}
}

func (r *SQLiteRepo) Load(ctx context.Context, saveID string) ([]byte, error) {
	raw, err := r.idx.GetSave(ctx, saveID)
	if errors.Is(err, indexdb.ErrNotFound) {
		return nil, ErrNotFound
	}
	return raw, err
}

func (r *SQLiteRepo) Save(ctx context.Context, saveID string, st world.State) error {
	return r.idx.PutSave(ctx, saveID, st)
}
