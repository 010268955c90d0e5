package world

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

type Config struct {
	// SaveID keys checkpoints and ledger rows for this cafe.
	SaveID             string
	TickInterval       time.Duration
	SnapshotEveryTicks int
}

// Op is a player operation applied by the world loop between ticks.
type Op func(e *Engine, st *State) bool

// Checkpoint is a settled copy of the state handed to the snapshot sink.
type Checkpoint struct {
	SaveID string
	Tick   uint64
	Day    int
	DayEnd bool
	State  State
}

type SignalLogger interface {
	WriteSignal(sig Signal) error
}

type opReq struct {
	op   Op
	resp chan bool
}

type subReq struct {
	ch   chan State
	resp chan int
}

// World runs one cafe on a fixed tick. All State access happens on the loop
// goroutine started by Run; other goroutines read published copies.
type World struct {
	cfg    Config
	engine *Engine
	log    *log.Logger

	state State

	current atomic.Pointer[State]
	metrics atomic.Value
	stepNS  atomic.Int64

	ops      chan opReq
	interval chan time.Duration
	subJoin  chan subReq
	subLeave chan int
	admin    chan adminSnapshotReq
	stop     chan struct{}
	stopOnce sync.Once

	subs    map[int]chan State
	nextSub int

	// Optional (may be nil).
	signalLogger SignalLogger
	snapshotSink chan<- Checkpoint
}

var ErrStopped = errors.New("world stopped")

func New(cfg Config, engine *Engine, initial State, logger *log.Logger) *World {
	if cfg.TickInterval <= 0 {
		ms := engine.Tuning().TickIntervalMS
		if initial.Settings.TickIntervalMS > 0 {
			ms = initial.Settings.TickIntervalMS
		}
		cfg.TickInterval = time.Duration(ms) * time.Millisecond
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	w := &World{
		cfg:      cfg,
		engine:   engine,
		log:      logger,
		state:    initial.Clone(),
		ops:      make(chan opReq, 64),
		interval: make(chan time.Duration, 1),
		subJoin:  make(chan subReq, 16),
		subLeave: make(chan int, 16),
		admin:    make(chan adminSnapshotReq, 8),
		stop:     make(chan struct{}),
		subs:     map[int]chan State{},
	}
	w.state.Settings.TickIntervalMS = int(cfg.TickInterval / time.Millisecond)
	w.publish()
	w.updateMetrics()
	return w
}

func (w *World) SetSignalLogger(l SignalLogger)       { w.signalLogger = l }
func (w *World) SetSnapshotSink(ch chan<- Checkpoint) { w.snapshotSink = ch }
func (w *World) Engine() *Engine                      { return w.engine }
func (w *World) SaveID() string                       { return w.cfg.SaveID }
func (w *World) Stop()                                { w.stopOnce.Do(func() { close(w.stop) }) }
func (w *World) TickInterval() time.Duration          { return time.Duration(w.Snapshot().Settings.TickIntervalMS) * time.Millisecond }
func (w *World) CurrentTick() uint64                  { return w.Snapshot().Tick }

// Snapshot returns the latest settled state. Treat it as read-only; it is
// shared with other readers.
func (w *World) Snapshot() State {
	if p := w.current.Load(); p != nil {
		return *p
	}
	return State{}
}

// Apply runs op on the loop goroutine between ticks and returns its result.
func (w *World) Apply(ctx context.Context, op Op) (bool, error) {
	resp := make(chan bool, 1)
	select {
	case w.ops <- opReq{op: op, resp: resp}:
	case <-w.stop:
		return false, ErrStopped
	case <-ctx.Done():
		return false, ctx.Err()
	}
	select {
	case ok := <-resp:
		return ok, nil
	case <-w.stop:
		return false, ErrStopped
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// SetTickInterval changes wall-clock pacing only. The latest request wins.
func (w *World) SetTickInterval(d time.Duration) error {
	if d <= 0 {
		return errors.New("tick interval must be > 0")
	}
	sendLatest(w.interval, d)
	return nil
}

// Subscribe delivers every published state to the returned channel. Slow
// readers only ever see the latest one. Call cancel to stop.
func (w *World) Subscribe(ctx context.Context) (<-chan State, func(), error) {
	ch := make(chan State, 1)
	resp := make(chan int, 1)
	select {
	case w.subJoin <- subReq{ch: ch, resp: resp}:
	case <-w.stop:
		return nil, nil, ErrStopped
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
	var id int
	select {
	case id = <-resp:
	case <-w.stop:
		return nil, nil, ErrStopped
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			select {
			case w.subLeave <- id:
			case <-w.stop:
			}
		})
	}
	return ch, cancel, nil
}
