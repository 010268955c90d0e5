package world

import (
	"fmt"
	"math"
)

// settleDay bills the day and rolls the cafe over to the next one. It runs
// only on a day boundary and leaves the end-of-day summary showing, which
// gates further ticks until the player dismisses it.
func (e *Engine) settleDay(st *State, out *signals) DaySummary {
	e.updateMarketPrices(st)

	wages := 0.0
	for _, emp := range st.Staff {
		wages += emp.DailyWage
	}
	for _, m := range st.Managers {
		wages += m.DailyWage
	}
	cafeCosts := DailyCafeCosts(st)

	completed := st.completedOrders()
	st.Stats.PopularityChange = st.Popularity - st.Stats.PopularityYesterday
	st.Stats.OrdersChange = completed - st.Stats.OrdersYesterday

	revenue, expenses := st.Stats.RevenueToday, st.Stats.ExpensesToday
	st.Stats.ProfitYesterday = revenue - expenses - wages - cafeCosts
	st.Stats.OrdersYesterday = completed

	var messages []string
	for i := range st.Staff {
		emp := &st.Staff[i]
		if emp.DailyWage == 0 {
			continue
		}
		desired := int(math.Floor(emp.Experience / 100))
		made := uniqueCount(emp.DailyMenuItemsMade)
		if made >= desired {
			emp.Happiness += 0.01
		} else {
			emp.Happiness -= 0.005 * float64(desired-made)
			messages = append(messages, fmt.Sprintf("%s: I am feeling under-challenged.", emp.Name))
		}
		emp.Happiness = math.Max(0, math.Min(2, emp.Happiness))
	}

	set := e.tun.Settlement
	if st.Tick > set.SpoilageAfterTick {
		for i := range st.Inventory {
			line := &st.Inventory[i]
			if line.Quantity > 1 {
				line.Quantity -= Spoilage(line.Quantity, set.SpoilageRate)
			}
		}
	}

	for i := range st.Managers {
		if t := st.Managers[i].Trait; t == TraitGeneral || t == TraitFinancial {
			st.Managers[i].Experience += float64(e.rng.IntN(5))
		}
	}

	st.Cash -= wages
	st.Cash -= cafeCosts

	st.Orders = []Order{}
	for i := range st.Staff {
		st.Staff[i].CurrentOrder = ""
		st.Staff[i].DailyMenuItemsMade = []string{}
	}
	st.Stats.PopularityYesterday = st.Popularity
	st.Stats.RevenueToday = 0
	st.Stats.ExpensesToday = 0
	st.Stats.ProfitToday = 0
	st.Stats.OrdersToday = 0
	st.StartingCash = st.Cash
	st.ShowEndOfDay = true
	st.EndOfDayMessages = messages

	sum := DaySummary{
		Day:              max(0, st.Day(e.tun.DayTicks)-1),
		Tick:             st.Tick,
		Revenue:          revenue,
		Expenses:         expenses,
		Wages:            wages,
		CafeCosts:        cafeCosts,
		Profit:           st.Stats.ProfitYesterday,
		Orders:           completed,
		OrdersChange:     st.Stats.OrdersChange,
		Popularity:       st.Popularity,
		PopularityChange: st.Stats.PopularityChange,
		Cash:             st.Cash,
		Messages:         messages,
	}
	out.add(Signal{Kind: SignalDayEnded, Tick: st.Tick, Day: &sum})
	return sum
}

// Spoilage is how many units a line of qty loses overnight at rate.
func Spoilage(qty int, rate float64) int {
	return int(math.Floor(float64(qty)*rate + 1e-9))
}

func uniqueCount(xs []string) int {
	seen := make(map[string]struct{}, len(xs))
	for _, x := range xs {
		seen[x] = struct{}{}
	}
	return len(seen)
}
