package main

import (
	"context"
	"encoding/json"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"thegrind.cafe/internal/persistence/archive"
	"thegrind.cafe/internal/persistence/indexdb"
	"thegrind.cafe/internal/persistence/savegame"
	"thegrind.cafe/internal/persistence/snapshot"
	"thegrind.cafe/internal/sim/world"
)

// persister turns world checkpoints into snapshot files, save rows and
// weekly archives. idx may be nil.
type persister struct {
	saveDir      string
	repo         savegame.Repo
	idx          *indexdb.SQLiteIndex
	archiveEvery int
	log          *log.Logger

	now func() time.Time
}

func (p *persister) run(ctx context.Context, in <-chan world.Checkpoint) {
	for {
		select {
		case <-ctx.Done():
			return
		case cp := <-in:
			if _, err := p.write(ctx, cp); err != nil {
				p.log.Error("checkpoint failed", "tick", cp.Tick, "err", err)
			}
		}
	}
}

func (p *persister) write(ctx context.Context, cp world.Checkpoint) (string, error) {
	raw, err := json.Marshal(cp.State)
	if err != nil {
		return "", err
	}
	now := time.Now
	if p.now != nil {
		now = p.now
	}
	h := snapshot.Header{
		Version:   snapshot.FormatVersion,
		SaveID:    cp.SaveID,
		Tick:      cp.Tick,
		Day:       cp.Day,
		DayEnd:    cp.DayEnd,
		CreatedAt: now().UTC(),
	}
	path := filepath.Join(p.saveDir, "snapshots", snapshot.FileName(cp.Tick))
	if err := snapshot.WriteSnapshot(path, snapshot.Snapshot{Header: h, State: raw}); err != nil {
		return "", err
	}
	if err := p.repo.Save(ctx, cp.SaveID, cp.State); err != nil {
		return path, err
	}
	if p.idx != nil {
		p.idx.RecordSnapshot(path, h, cp.State)
	}

	week, archived, ok, err := archive.ArchiveWeekSnapshot(p.saveDir, path, h, p.archiveEvery)
	if err != nil {
		return path, err
	}
	if ok {
		p.log.Info("week archived", "week", week, "path", archived)
		if p.idx != nil {
			p.idx.RecordArchive(cp.SaveID, week, cp.Tick, archived)
		}
	}
	p.log.Debug("checkpoint", "tick", cp.Tick, "day_end", cp.DayEnd)
	return path, nil
}
