package savegame

import (
	"context"
	"errors"
	"io"

	"github.com/charmbracelet/log"

	"thegrind.cafe/internal/sim/world"
)

var ErrNotFound = errors.New("save not found")

// Repo persists one state blob per save id. Load returns the raw JSON as
// stored so it can be migrated; Save always writes the current schema.
type Repo interface {
	Load(ctx context.Context, saveID string) ([]byte, error)
	Save(ctx context.Context, saveID string, st world.State) error
}

// Load reads and migrates a save. A missing save starts a fresh cafe. A save
// that cannot be migrated is logged and replaced by a fresh cafe as well;
// only repository failures are returned.
func Load(ctx context.Context, repo Repo, e *world.Engine, saveID string, logger *log.Logger) (world.State, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	raw, err := repo.Load(ctx, saveID)
	if errors.Is(err, ErrNotFound) {
		logger.Info("new save", "save", saveID)
		return e.NewState(), nil
	}
	if err != nil {
		return world.State{}, err
	}
	st, err := e.Migrate(raw)
	if err != nil {
		logger.Warn("save unreadable, starting fresh", "save", saveID, "err", err)
		return e.NewState(), nil
	}
	return st, nil
}
