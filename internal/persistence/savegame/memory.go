package savegame

import (
	"context"
	"encoding/json"
	"sync"

	"thegrind.cafe/internal/sim/world"
)

// MemoryRepo keeps saves in process; used by tests and the headless sim.
type MemoryRepo struct {
	mu    sync.RWMutex
	saves map[string][]byte
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{saves: make(map[string][]byte)}
}

func (r *MemoryRepo) Load(_ context.Context, saveID string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	raw, ok := r.saves[saveID]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), raw...), nil
}

func (r *MemoryRepo) Save(_ context.Context, saveID string, st world.State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves[saveID] = raw
	return nil
}

// Put stores a raw blob as is, for seeding legacy saves.
func (r *MemoryRepo) Put(saveID string, raw []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves[saveID] = append([]byte(nil), raw...)
}
