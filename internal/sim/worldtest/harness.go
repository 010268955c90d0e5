package worldtest

import (
	"fmt"
	"testing"
	"time"

	"thegrind.cafe/internal/sim/catalogs"
	"thegrind.cafe/internal/sim/rng"
	"thegrind.cafe/internal/sim/tuning"
	world "thegrind.cafe/internal/sim/world"
)

// Harness is a small black-box test helper for driving a cafe via exported
// APIs only:
// - Step()/StepN() advance through World.StepOnce
// - Do() applies player operations the way the server does
// - every signal raised is kept in Signals
//
// Order ids are sequential so two harnesses with the same seed produce
// identical states.
type Harness struct {
	T    *testing.T
	Cats *catalogs.Catalogs
	Tun  tuning.Tuning
	E    *world.Engine
	W    *world.World

	Signals []world.Signal
}

func NewHarness(t *testing.T, seed uint64) *Harness {
	t.Helper()
	return NewHarnessWithTuning(t, seed, tuning.Defaults())
}

func NewHarnessWithTuning(t *testing.T, seed uint64, tun tuning.Tuning) *Harness {
	t.Helper()
	if err := tun.Validate(); err != nil {
		t.Fatalf("tuning: %v", err)
	}
	cats := catalogs.Default()
	n := 0
	ids := func() string {
		n++
		return fmt.Sprintf("order-%06d", n)
	}
	e := world.NewEngine(cats, tun, rng.New(seed, seed^0x9e3779b97f4a7c15), world.WithOrderIDs(ids))
	w := world.New(world.Config{SaveID: "test", TickInterval: time.Millisecond}, e, e.NewState(), nil)
	return &Harness{T: t, Cats: cats, Tun: tun, E: e, W: w}
}

func (h *Harness) State() world.State { return h.W.Snapshot() }

func (h *Harness) Step() []world.Signal {
	sigs := h.W.StepOnce()
	h.Signals = append(h.Signals, sigs...)
	return sigs
}

func (h *Harness) StepN(n int) {
	for i := 0; i < n; i++ {
		h.Step()
	}
}

func (h *Harness) Do(op world.Op) bool {
	return h.W.ApplyNow(op)
}

// RunDays advances until n day summaries have been shown, dismissing each one.
// check runs after every tick when non-nil.
func (h *Harness) RunDays(n int, check func(st world.State)) {
	h.T.Helper()
	days := 0
	for guard := 0; days < n; guard++ {
		if guard > n*h.Tun.DayTicks*2 {
			h.T.Fatalf("RunDays(%d): stuck after %d days at tick %d", n, days, h.State().Tick)
		}
		h.Step()
		st := h.State()
		if check != nil {
			check(st)
		}
		if st.ShowEndOfDay {
			days++
			h.Do(func(e *world.Engine, st *world.State) bool { return e.DismissEndOfDay(st) })
		}
	}
}

func (h *Harness) Count(kind world.SignalKind) int {
	n := 0
	for _, s := range h.Signals {
		if s.Kind == kind {
			n++
		}
	}
	return n
}
