package world

import (
	"strings"

	"github.com/google/uuid"

	"thegrind.cafe/internal/sim/catalogs"
	"thegrind.cafe/internal/sim/rng"
	"thegrind.cafe/internal/sim/tuning"
)

// Engine advances a State one tick at a time. It holds no simulation state of
// its own; everything that changes lives in the State passed to Advance.
type Engine struct {
	cats  *catalogs.Catalogs
	tun   tuning.Tuning
	rng   rng.Source
	newID func() string
}

type EngineOption func(*Engine)

// WithOrderIDs replaces the UUIDv7 order id generator.
func WithOrderIDs(fn func() string) EngineOption {
	return func(e *Engine) { e.newID = fn }
}

func NewEngine(cats *catalogs.Catalogs, tun tuning.Tuning, src rng.Source, opts ...EngineOption) *Engine {
	if src == nil {
		src = rng.Unseeded()
	}
	e := &Engine{cats: cats, tun: tun, rng: src, newID: newOrderID}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Catalogs() *catalogs.Catalogs { return e.cats }
func (e *Engine) Tuning() tuning.Tuning        { return e.tun }

// NewState is NewState with the engine's catalogs and tuning.
func (e *Engine) NewState() State { return NewState(e.cats, e.tun) }

func newOrderID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Advance runs one tick on a copy of st and returns it with the signals the
// tick raised. A paused cafe, or one showing the end-of-day summary, is
// returned unchanged.
func (e *Engine) Advance(st State) (State, []Signal) {
	if st.Paused || st.ShowEndOfDay {
		return st, nil
	}
	st = st.Clone()
	var out signals

	st.Tick++

	if !st.Started() {
		e.bootstrap(&st, &out)
		return st, out
	}

	st.TotalDemand = TotalDemand(st.Menu)

	e.arrive(&st, &out)
	matchStaff(&st)
	ageUnassigned(&st)
	e.autoRestock(&st, &out)

	for i := range st.Staff {
		if st.Staff[i].CurrentOrder != "" {
			e.work(&st, i, &out)
		}
		if st.Staff[i].DailyWage > 0 {
			e.checkWageHealth(&st, i, &out)
		}
	}

	if e.dayBoundary(st.Tick) {
		e.settleDay(&st, &out)
	}

	e.evaluateQuests(&st, &out)

	st.Stats.ProfitToday = st.Stats.RevenueToday - st.Stats.ExpensesToday
	Normalize(&st)
	return st, out
}

func (e *Engine) dayBoundary(tick uint64) bool {
	return e.tun.DayTicks > 0 && tick%uint64(e.tun.DayTicks) == 0
}

// bootstrap hires the founder and opens the default menu.
func (e *Engine) bootstrap(st *State, out *signals) {
	name := strings.TrimSpace(st.PlayerName)
	if name == "" {
		name = e.tun.FounderName
	}
	st.Staff = append(st.Staff, Employee{
		Name:                name,
		DailyWage:           0,
		Experience:          float64(250 + e.rng.IntN(250)),
		MenuItemProficiency: map[string]int{},
		Happiness:           1,
		DailyMenuItemsMade:  []string{},
	})
	for _, def := range e.cats.DefaultMenu() {
		if st.menuIndex(def.Name) < 0 {
			st.Menu = append(st.Menu, menuItemFromDef(def))
		}
	}
	st.TotalDemand = TotalDemand(st.Menu)

	st.Stats.ProfitToday = 0
	st.Stats.ProfitYesterday = 0
	st.Stats.PopularityYesterday = st.Popularity
	st.Stats.PopularityChange = 0
	st.Stats.OrdersChange = 0
	st.StartingCash = st.Cash
	st.Quests = questsFromCatalog(e.cats)

	out.add(Signal{Kind: SignalGameStarted, Tick: st.Tick, Employee: name})
}
