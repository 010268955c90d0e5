package world

import (
	"fmt"
	"math"

	"thegrind.cafe/internal/sim/world/feature/work/progress"
	"thegrind.cafe/internal/sim/world/feature/work/satisfaction"
	"thegrind.cafe/internal/sim/world/logic/mathx"
)

// work advances the order held by employee ei by one tick. Any unmet gate
// (missing equipment, a failure roll, missing ingredients) stalls the order
// for this tick without changing anything else.
func (e *Engine) work(st *State, ei int, out *signals) {
	emp := &st.Staff[ei]
	oi := st.orderIndex(emp.CurrentOrder)
	if oi < 0 {
		// Held order no longer exists.
		emp.CurrentOrder = ""
		return
	}
	o := &st.Orders[oi]
	if o.Completion >= 100 && len(o.Items) == 0 {
		emp.CurrentOrder = ""
		return
	}
	o.TicksToComplete++
	if len(o.Items) == 0 {
		return
	}
	item := o.Items[0]

	speed := 1.0
	used := make([]int, 0, len(item.Requires))
	for _, req := range item.Requires {
		qi := st.equipmentIndex(req)
		if qi < 0 {
			return
		}
		eq := &st.OwnedEquipment[qi]
		failMult := 1.0
		for _, up := range eq.Upgrades {
			if !up.Purchased {
				continue
			}
			if up.SpeedMultiplier > 0 {
				speed *= up.SpeedMultiplier
			}
			if up.FailureMultiplier > 0 {
				failMult *= up.FailureMultiplier
			}
		}
		if e.rng.Float64() < eq.FailureChance*failMult {
			return
		}
		used = append(used, qi)
	}
	if !st.hasIngredients(item.Ingredients) {
		return
	}
	if mi := st.managerIndex(TraitGeneral); mi >= 0 {
		speed *= progress.ManagerSpeed(st.Managers[mi].Experience)
	}

	gain := progress.Step(progress.Inputs{
		Experience: emp.Experience,
		Complexity: item.Complexity,
		TimesMade:  emp.MenuItemProficiency[item.Name],
		Happiness:  emp.Happiness,
		Speed:      speed,
	})
	o.Completion = mathx.Round1(math.Min(100, o.Completion+gain))
	if o.Completion < 100 {
		return
	}
	e.finishItem(st, ei, oi, used, out)
}

// finishItem settles the front item of an order that just reached 100.
func (e *Engine) finishItem(st *State, ei, oi int, used []int, out *signals) {
	emp := &st.Staff[ei]
	o := &st.Orders[oi]
	item := o.Items[0]

	for name, qty := range item.Ingredients {
		if i := st.inventoryIndex(name); i >= 0 {
			st.Inventory[i].Quantity -= qty
		}
	}
	st.Cash += item.Price
	st.Stats.RevenueToday += item.Price

	if e.rng.Float64() < 0.2 {
		emp.Experience += item.Complexity * 0.5
	}
	if emp.MenuItemProficiency == nil {
		emp.MenuItemProficiency = map[string]int{}
	}
	emp.MenuItemProficiency[item.Name]++
	emp.DailyMenuItemsMade = append(emp.DailyMenuItemsMade, item.Name)

	for _, qi := range used {
		eq := &st.OwnedEquipment[qi]
		if eq.Quality > 0 && e.rng.Float64() < eq.Durability {
			eq.Quality = math.Max(0, eq.Quality-1)
		}
	}

	o.Items = o.Items[1:]
	if len(o.Items) > 0 {
		o.Completion = 0
		return
	}

	e.scoreOrder(st, emp, o, item, out)
	emp.CurrentOrder = ""
	st.Stats.TotalOrders++
	st.Stats.OrdersToday++
	out.add(Signal{Kind: SignalOrderCompleted, Tick: st.Tick, OrderID: o.ID, Customer: o.Customer, Employee: emp.Name})
}

// scoreOrder moves popularity by at most one point depending on how the
// customer's wait compared with what they expected.
func (e *Engine) scoreOrder(st *State, emp *Employee, o *Order, last MenuItem, out *signals) {
	items := o.OriginalItems
	if len(items) == 0 {
		items = []MenuItem{last}
	}
	complexities := make([]float64, len(items))
	for i, it := range items {
		complexities[i] = it.Complexity
	}

	verdict, chance := satisfaction.Judge(satisfaction.Order{
		Experience:   emp.Experience,
		Popularity:   st.Popularity,
		Patience:     o.CustomerPatience,
		Ticks:        o.TicksToComplete,
		Complexities: complexities,
	})
	switch verdict {
	case satisfaction.Fast:
		if e.rng.Float64() < chance {
			st.Popularity++
		}
	case satisfaction.Slow:
		if e.rng.Float64() < chance {
			st.Popularity--
			st.Tip = fmt.Sprintf("%s got their order too slowly. Consider hiring more staff!", o.Customer)
			out.add(Signal{Kind: SignalSlowOrder, Tick: st.Tick, OrderID: o.ID, Customer: o.Customer, Message: st.Tip})
		}
	default:
		if e.rng.Float64() < chance {
			if e.rng.Float64() < satisfaction.NeutralUpChance {
				st.Popularity++
			} else {
				st.Popularity--
			}
		}
	}
}

// FairWage is the daily wage an employee with this experience expects.
func FairWage(experience float64) float64 {
	return 65 + math.Pow(math.Max(0, experience)/1000, 1.5)*250
}

// checkWageHealth posts a raise request from an unhappy, underpaid employee,
// at most once per employee per day.
func (e *Engine) checkWageHealth(st *State, ei int, out *signals) {
	emp := &st.Staff[ei]
	day := st.Day(e.tun.DayTicks)
	if emp.WageAdvisoryDay == day {
		return
	}
	fair := FairWage(emp.Experience)
	if emp.Happiness >= 0.8 || emp.DailyWage >= fair {
		return
	}
	emp.WageAdvisoryDay = day
	raise := math.Ceil(fair - emp.DailyWage)
	st.Tip = fmt.Sprintf("%s wants a raise of $%.0f", emp.Name, raise)
	out.add(Signal{Kind: SignalWageAdvisory, Tick: st.Tick, Employee: emp.Name, Message: st.Tip})
}
