package world

import (
	"context"
	"time"
)

// Run drives the world until ctx is done or Stop is called. On return the
// world is stopped, so pending Apply and Subscribe calls fail with ErrStopped.
func (w *World) Run(ctx context.Context) error {
	defer w.Stop()
	ticker := time.NewTicker(w.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.ops:
			w.handleOp(req)
		case d := <-w.interval:
			// Reset replaces the pending schedule; ticks never stack.
			ticker.Reset(d)
			w.cfg.TickInterval = d
			w.state.Settings.TickIntervalMS = int(d / time.Millisecond)
			w.publish()
			w.updateMetrics()
		case req := <-w.subJoin:
			w.handleSubscribe(req)
		case id := <-w.subLeave:
			if ch, ok := w.subs[id]; ok {
				delete(w.subs, id)
				close(ch)
			}
		case req := <-w.admin:
			w.handleAdminSnapshotRequest(req)
		case <-ticker.C:
			w.step()
		}
	}
}

// StepOnce advances one tick on the caller's goroutine. It must not be used
// while Run is active; it exists for tests and headless drivers.
func (w *World) StepOnce() []Signal {
	return w.step()
}

// ApplyNow runs op on the caller's goroutine. Same restriction as StepOnce.
func (w *World) ApplyNow(op Op) bool {
	ok := op(w.engine, &w.state)
	if ok {
		Normalize(&w.state)
		w.publish()
		w.updateMetrics()
	}
	return ok
}

func (w *World) step() []Signal {
	start := time.Now()
	prevTick := w.state.Tick
	next, sigs := w.engine.Advance(w.state)
	w.state = next
	w.stepNS.Store(time.Since(start).Nanoseconds())

	if w.state.Tick == prevTick {
		return nil
	}

	dayEnd := false
	for _, sig := range sigs {
		if sig.Kind == SignalDayEnded {
			dayEnd = true
			w.log.Info("day ended", "day", sig.Day.Day, "profit", sig.Day.Profit, "orders", sig.Day.Orders, "cash", sig.Day.Cash)
		}
		if w.signalLogger != nil {
			if err := w.signalLogger.WriteSignal(sig); err != nil {
				w.log.Warn("signal log write failed", "err", err)
			}
		}
	}

	w.publish()
	every := uint64(w.cfg.SnapshotEveryTicks)
	if dayEnd || (every > 0 && w.state.Tick%every == 0) {
		w.checkpoint(dayEnd)
	}
	w.updateMetrics()
	return sigs
}

func (w *World) handleOp(req opReq) {
	ok := req.op(w.engine, &w.state)
	if ok {
		Normalize(&w.state)
		w.publish()
		w.updateMetrics()
	}
	if req.resp != nil {
		select {
		case req.resp <- ok:
		default:
		}
	}
}

func (w *World) handleSubscribe(req subReq) {
	w.nextSub++
	id := w.nextSub
	w.subs[id] = req.ch
	sendLatest(req.ch, w.Snapshot())
	select {
	case req.resp <- id:
	default:
	}
}

// publish makes a settled copy visible to readers and subscribers.
func (w *World) publish() {
	snap := w.state.Clone()
	w.current.Store(&snap)
	for _, ch := range w.subs {
		sendLatest(ch, snap)
	}
}

func (w *World) checkpoint(dayEnd bool) bool {
	if w.snapshotSink == nil {
		return false
	}
	cp := Checkpoint{
		SaveID: w.cfg.SaveID,
		Tick:   w.state.Tick,
		Day:    w.state.Day(w.engine.tun.DayTicks),
		DayEnd: dayEnd,
		State:  w.state.Clone(),
	}
	select {
	case w.snapshotSink <- cp:
		return true
	default:
		w.log.Warn("snapshot sink backpressure", "tick", cp.Tick)
		return false
	}
}

func sendLatest[T any](ch chan T, v T) {
	select {
	case ch <- v:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}
