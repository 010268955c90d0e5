package savegame

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"thegrind.cafe/internal/sim/world"
)

// FileRepo stores each save as <dataDir>/<id>.json.
type FileRepo struct {
	mu      sync.Mutex
	dataDir string
}

func NewFileRepo(dataDir string) (*FileRepo, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	return &FileRepo{dataDir: dataDir}, nil
}

func (r *FileRepo) filePath(saveID string) (string, error) {
	if saveID == "" || strings.ContainsAny(saveID, `/\`) || saveID == "." || saveID == ".." {
		return "", errors.New("invalid save id")
	}
	return filepath.Join(r.dataDir, saveID+".json"), nil
}

func (r *FileRepo) Load(_ context.Context, saveID string) ([]byte, error) {
	path, err := r.filePath(saveID)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return raw, err
}

// Save writes to a temp file and renames it, so a crash never leaves a
// truncated save.
func (r *FileRepo) Save(_ context.Context, saveID string, st world.State) error {
	path, err := r.filePath(saveID)
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
