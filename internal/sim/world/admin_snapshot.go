package world

import (
	"context"
	"errors"
)

type adminSnapshotReq struct {
	Resp chan adminSnapshotResp
}

type adminSnapshotResp struct {
	Tick uint64
	Err  string
}

// RequestSnapshot asks the world loop goroutine to enqueue a checkpoint.
// It is safe to call from other goroutines (e.g. HTTP handlers, shutdown).
func (w *World) RequestSnapshot(ctx context.Context) (tick uint64, err error) {
	if w == nil || w.admin == nil {
		return 0, errors.New("admin snapshot not available")
	}
	resp := make(chan adminSnapshotResp, 1)
	req := adminSnapshotReq{Resp: resp}

	select {
	case w.admin <- req:
	case <-ctx.Done():
		return 0, ctx.Err()
	}

	select {
	case r := <-resp:
		if r.Err != "" {
			return r.Tick, errors.New(r.Err)
		}
		return r.Tick, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (w *World) handleAdminSnapshotRequest(req adminSnapshotReq) {
	errStr := ""
	if w.snapshotSink == nil {
		errStr = "snapshot sink not configured"
	} else if !w.checkpoint(false) {
		errStr = "snapshot sink backpressure"
	}
	if req.Resp == nil {
		return
	}
	select {
	case req.Resp <- adminSnapshotResp{Tick: w.state.Tick, Err: errStr}:
	default:
		// Client timed out; don't block the sim loop.
	}
}
