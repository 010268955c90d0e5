package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thegrind.cafe/internal/sim/catalogs"
	"thegrind.cafe/internal/sim/rng"
	"thegrind.cafe/internal/sim/tuning"
)

// quietEngine never lets a customer in and never fails a machine roll.
func quietEngine(t *testing.T) *Engine {
	t.Helper()
	return NewEngine(catalogs.Default(), tuning.Defaults(), rng.Fixed{F: 0.99})
}

// openCafe is a started cafe with one expert and a zero-complexity tea.
func openCafe(e *Engine) State {
	st := e.NewState()
	st.Staff = []Employee{{
		Name:                "Sam",
		Experience:          1000,
		Happiness:           1,
		MenuItemProficiency: map[string]int{},
		DailyMenuItemsMade:  []string{},
	}}
	st.Menu = []MenuItem{tea()}
	st.Inventory = append(st.Inventory, InventoryItem{Name: "Black tea", Quantity: 5})
	st.TotalDemand = TotalDemand(st.Menu)
	return st
}

func tea() MenuItem {
	return MenuItem{
		Name:        "Tea",
		Ingredients: map[string]int{"Black tea": 1},
		Price:       2,
		MarketPrice: 2,
		Complexity:  0,
		Demand:      40,
	}
}

func heldOrder(st *State, id string, items ...MenuItem) {
	st.Orders = append(st.Orders, Order{
		ID:               id,
		Customer:         "Alex",
		Items:            cloneMenuItems(items),
		OriginalItems:    cloneMenuItems(items),
		CustomerPatience: 600,
	})
	st.Staff[0].CurrentOrder = id
}

func TestAdvance_FirstTickBootstraps(t *testing.T) {
	e := NewEngine(catalogs.Default(), tuning.Defaults(), rng.Fixed{F: 0.99, I: 0})
	in := e.NewState()

	out, sigs := e.Advance(in)

	assert.Empty(t, in.Staff, "input state must not be mutated")
	assert.Equal(t, in.Tick+1, out.Tick)
	require.Len(t, out.Staff, 1)
	assert.Equal(t, "Owner", out.Staff[0].Name)
	assert.Equal(t, 250.0, out.Staff[0].Experience)
	assert.Zero(t, out.Staff[0].DailyWage)
	require.Len(t, out.Menu, 1)
	assert.Equal(t, "Drip coffee", out.Menu[0].Name)
	assert.Equal(t, 100.0, out.TotalDemand)
	assert.Equal(t, out.Popularity, out.Stats.PopularityYesterday)
	require.Len(t, sigs, 1)
	assert.Equal(t, SignalGameStarted, sigs[0].Kind)
}

func TestAdvance_PausedAndEndOfDayAreNoOps(t *testing.T) {
	e := quietEngine(t)
	st := openCafe(e)

	st.Paused = true
	out, sigs := e.Advance(st)
	assert.Equal(t, st.Tick, out.Tick)
	assert.Nil(t, sigs)

	st.Paused = false
	st.ShowEndOfDay = true
	out, _ = e.Advance(st)
	assert.Equal(t, st.Tick, out.Tick)
}

func TestWork_ExpertFinishesSimpleItemInFourTicks(t *testing.T) {
	e := quietEngine(t)
	st := openCafe(e)
	heldOrder(&st, "o1", tea())
	cash := st.Cash

	st, _ = e.Advance(st)
	require.Len(t, st.Orders, 1)
	assert.InDelta(t, 28.6, st.Orders[0].Completion, 1e-9)

	var sigs []Signal
	for i := 0; i < 3; i++ {
		st, sigs = e.Advance(st)
	}
	o := st.Orders[0]
	assert.Equal(t, 100.0, o.Completion)
	assert.Empty(t, o.Items)
	assert.Equal(t, 4, o.TicksToComplete)
	assert.Empty(t, st.Staff[0].CurrentOrder)
	assert.Equal(t, 1, st.Staff[0].MenuItemProficiency["Tea"])
	assert.Equal(t, 4, st.quantity("Black tea"))
	assert.Equal(t, cash+2, st.Cash)
	assert.Equal(t, 1, st.Stats.OrdersToday)

	var kinds []SignalKind
	for _, s := range sigs {
		kinds = append(kinds, s.Kind)
	}
	assert.Contains(t, kinds, SignalOrderCompleted)
}

func TestWork_CompletionResetsOnlyWhenFrontItemChanges(t *testing.T) {
	e := quietEngine(t)
	st := openCafe(e)
	heldOrder(&st, "o1", tea(), tea())

	for i := 0; i < 3; i++ {
		st, _ = e.Advance(st)
	}
	assert.InDelta(t, 85.8, st.Orders[0].Completion, 1e-9)
	assert.Len(t, st.Orders[0].Items, 2)

	st, _ = e.Advance(st)
	assert.Zero(t, st.Orders[0].Completion)
	assert.Len(t, st.Orders[0].Items, 1)
	assert.Equal(t, "o1", st.Staff[0].CurrentOrder)
}

func TestWork_UnmetGatesStallTheOrder(t *testing.T) {
	e := quietEngine(t)

	t.Run("missing equipment", func(t *testing.T) {
		st := openCafe(e)
		item := tea()
		item.Requires = []string{"Espresso machine"}
		heldOrder(&st, "o1", item)
		st, _ = e.Advance(st)
		assert.Zero(t, st.Orders[0].Completion)
		assert.Equal(t, 1, st.Orders[0].TicksToComplete)
	})

	t.Run("missing ingredients", func(t *testing.T) {
		st := openCafe(e)
		st.Inventory = []InventoryItem{}
		heldOrder(&st, "o1", tea())
		st, _ = e.Advance(st)
		assert.Zero(t, st.Orders[0].Completion)
		assert.Equal(t, "o1", st.Staff[0].CurrentOrder)
	})

	t.Run("machine failure", func(t *testing.T) {
		fail := NewEngine(catalogs.Default(), tuning.Defaults(), rng.Fixed{F: 0})
		st := openCafe(fail)
		item := tea()
		item.Requires = []string{"Drip coffee machine"}
		heldOrder(&st, "o1", item)
		fail.work(&st, 0, new(signals))
		assert.Zero(t, st.Orders[0].Completion)
		assert.Equal(t, 1, st.Orders[0].TicksToComplete)
	})
}

func TestWork_StaleHeldOrderIsReleased(t *testing.T) {
	e := quietEngine(t)
	st := openCafe(e)
	st.Staff[0].CurrentOrder = "gone"

	e.work(&st, 0, new(signals))
	assert.Empty(t, st.Staff[0].CurrentOrder)
}

func TestMatchStaff_FIFOAndUnique(t *testing.T) {
	e := quietEngine(t)
	st := openCafe(e)
	st.Staff = append(st.Staff, Employee{Name: "Kim", Happiness: 1})
	for _, id := range []string{"a", "b", "c"} {
		st.Orders = append(st.Orders, Order{ID: id, Items: []MenuItem{tea()}})
	}

	matchStaff(&st)
	ageUnassigned(&st)

	assert.Equal(t, "a", st.Staff[0].CurrentOrder)
	assert.Equal(t, "b", st.Staff[1].CurrentOrder)
	assert.Zero(t, st.Orders[0].TicksToComplete)
	assert.Equal(t, 1, st.Orders[2].TicksToComplete)

	matchStaff(&st)
	assert.Equal(t, "a", st.Staff[0].CurrentOrder)
	assert.Equal(t, "b", st.Staff[1].CurrentOrder)
}

func TestOrderChance(t *testing.T) {
	e := quietEngine(t)
	st := openCafe(e)
	assert.Equal(t, e.Tuning().Arrival.LullOrderChance, e.OrderChance(&st))

	for _, id := range []string{"a", "b", "c"} {
		st.Orders = append(st.Orders, Order{ID: id, Items: []MenuItem{tea()}})
	}
	st.Popularity = 50
	st.TotalDemand = 100
	st.Vibe = 1
	assert.InDelta(t, 0.05, e.OrderChance(&st), 1e-12)

	st.TotalDemand = 1000
	assert.InDelta(t, 0.15, e.OrderChance(&st), 1e-12)
}

func TestGenerateOrder_OnlyMakeableItems(t *testing.T) {
	e := NewEngine(catalogs.Default(), tuning.Defaults(), rng.Fixed{F: 0.99, I: 0})
	st := openCafe(e)
	espresso, _ := e.Catalogs().MenuItem("Espresso (single)")
	st.Menu = append(st.Menu, menuItemFromDef(espresso))

	o, ok := e.generateOrder(&st)
	require.True(t, ok)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "Tea", o.Items[0].Name)
	assert.GreaterOrEqual(t, o.CustomerPatience, 400+int((50-st.Popularity)*8))

	st.Inventory = []InventoryItem{}
	_, ok = e.generateOrder(&st)
	assert.False(t, ok)
}

func TestGenerateOrder_MultiItemReservesScarceStock(t *testing.T) {
	// F=0 always takes the multi-item branch; I=1 asks for three items.
	e := NewEngine(catalogs.Default(), tuning.Defaults(), rng.Fixed{F: 0, I: 1})
	st := openCafe(e)
	st.Popularity = 100
	st.Inventory = []InventoryItem{{Name: "Black tea", Quantity: 2}}

	o, ok := e.generateOrder(&st)
	require.True(t, ok)
	require.Len(t, o.Items, 2)
	for _, it := range o.Items {
		assert.Equal(t, "Tea", it.Name)
	}
	assert.Equal(t, o.Items, o.OriginalItems)
	assert.Equal(t, 2, st.quantity("Black tea"), "reservation works on a copy")
}

func TestAutoRestock_BuysUpToFloor(t *testing.T) {
	e := NewEngine(catalogs.Default(), tuning.Defaults(), rng.Fixed{F: 0, I: 0})
	st := openCafe(e)
	st.Managers = []Manager{{Name: "Ivy", Experience: 500, Happiness: 1, Trait: TraitInventory}}
	st.Inventory = []InventoryItem{{Name: "Coffee grounds", Quantity: 3}}

	var out signals
	e.autoRestock(&st, &out)

	assert.Equal(t, 103, st.quantity("Coffee grounds"))
	assert.Equal(t, 425.0, st.Cash)
	assert.Equal(t, 75.0, st.Stats.ExpensesToday)
	require.Len(t, out, 1)
	assert.Equal(t, SignalRestocked, out[0].Kind)
}

func TestEvaluateQuests_DetectThenPayOut(t *testing.T) {
	e := quietEngine(t)
	st := openCafe(e)
	st.Staff = append(st.Staff, Employee{Name: "Kim", Happiness: 1, MenuItemProficiency: map[string]int{}})
	pop := st.Popularity
	cash := st.Cash

	st, sigs := e.Advance(st)
	detected := st.Tick
	require.Contains(t, sigs, Signal{Kind: SignalQuestDetected, Tick: detected, QuestID: "hire"})

	for st.Tick < detected+e.Tuning().QuestDelayTicks-1 {
		st, _ = e.Advance(st)
	}
	assert.Equal(t, cash, st.Cash)

	st, sigs = e.Advance(st)
	assert.Equal(t, detected+30, st.Tick)
	require.Contains(t, sigs, Signal{Kind: SignalQuestCompleted, Tick: st.Tick, QuestID: "hire"})
	assert.Equal(t, cash+1000, st.Cash)
	assert.Equal(t, pop+5, st.Popularity)
	for _, q := range st.Quests {
		if q.ID == "hire" {
			assert.True(t, q.Completed)
			assert.False(t, q.ShowingCompletion)
		}
	}
}

func TestSettleDay_BillsAndSpoils(t *testing.T) {
	e := quietEngine(t)
	st := openCafe(e)
	st.Tick = 5999
	st.Staff = append(st.Staff, Employee{Name: "Kim", DailyWage: 100, Happiness: 1, MenuItemProficiency: map[string]int{}})
	st.Amenities = []OwnedAmenity{{Name: "Potted plants", WeeklyCost: 14, Vibe: 0.03}}
	st.Inventory = []InventoryItem{{Name: "Coffee grounds", Quantity: 20}}

	st, sigs := e.Advance(st)

	assert.Equal(t, uint64(6000), st.Tick)
	assert.Equal(t, 18, st.quantity("Coffee grounds"))
	assert.Equal(t, 398.0, st.Cash)
	assert.Equal(t, -102.0, st.Stats.ProfitYesterday)
	assert.True(t, st.ShowEndOfDay)
	assert.InDelta(t, 1.01, st.Staff[1].Happiness, 1e-9)

	var day *DaySummary
	for _, s := range sigs {
		if s.Kind == SignalDayEnded {
			day = s.Day
		}
	}
	require.NotNil(t, day)
	assert.Equal(t, 5, day.Day)
	assert.Equal(t, 100.0, day.Wages)
	assert.Equal(t, 2.0, day.CafeCosts)
}

func TestSettleDay_UnderChallengedStaffLoseHappiness(t *testing.T) {
	e := quietEngine(t)
	st := openCafe(e)
	st.Tick = 1999
	st.Staff = append(st.Staff, Employee{Name: "Kim", DailyWage: 100, Experience: 300, Happiness: 1, MenuItemProficiency: map[string]int{}})

	st, _ = e.Advance(st)

	assert.InDelta(t, 0.985, st.Staff[1].Happiness, 1e-9)
	assert.Equal(t, []string{"Kim: I am feeling under-challenged."}, st.EndOfDayMessages)
}

func TestSpoilage(t *testing.T) {
	assert.Equal(t, 2, Spoilage(20, 0.1))
	assert.Equal(t, 0, Spoilage(9, 0.1))
	assert.Equal(t, 10, Spoilage(100, 0.1))
}

func TestNormalize_Idempotent(t *testing.T) {
	e := quietEngine(t)
	st := openCafe(e)
	st.Popularity = 140
	st.Cash = 12.6
	st.Vibe = -1
	st.Staff[0].Experience = 1200.4
	st.Staff[0].Happiness = 0
	st.Managers = []Manager{
		{Name: "Ana", Experience: -3, Happiness: 0, Trait: TraitGeneral},
		{Name: "Bo", Experience: 10, Happiness: 5, Trait: TraitFinancial},
	}

	Normalize(&st)
	once := st.Clone()
	Normalize(&st)

	assert.Equal(t, once, st)
	assert.Equal(t, 100.0, st.Popularity)
	assert.Equal(t, 13.0, st.Cash)
	assert.Equal(t, 1000.0, st.Staff[0].Experience)
	assert.Equal(t, 0.1, st.Staff[0].Happiness)
	assert.Zero(t, st.Managers[0].Experience)
	assert.Equal(t, 0.1, st.Managers[0].Happiness)
	assert.Equal(t, 2.0, st.Managers[1].Happiness)
	assert.Zero(t, st.Vibe)
}

func TestWageAdvisory_OncePerDay(t *testing.T) {
	e := quietEngine(t)
	st := openCafe(e)
	st.Staff[0].DailyWage = 50
	st.Staff[0].Happiness = 0.5

	var out signals
	e.checkWageHealth(&st, 0, &out)
	e.checkWageHealth(&st, 0, &out)

	require.Len(t, out, 1)
	assert.Equal(t, SignalWageAdvisory, out[0].Kind)
	assert.Equal(t, "Sam wants a raise of $265", st.Tip)
}
