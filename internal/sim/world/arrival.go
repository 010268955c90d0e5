package world

import "thegrind.cafe/internal/sim/world/logic/mathx"

var customerNames = []string{
	"Alex", "Jordan", "Taylor", "Casey", "Morgan",
	"Riley", "Quinn", "Avery", "Blake", "Dakota",
	"Parker", "Hayden", "Reese", "Sage", "Rowan",
}

var lastNames = []string{
	"Smith", "Johnson", "Williams", "Brown", "Jones",
	"Garcia", "Miller", "Davis", "Rodriguez", "Martinez",
	"Anderson", "Taylor", "Thomas", "Hernandez", "Moore",
}

// OrderChance is the per-tick probability that a customer walks in. It is
// linear in popularity, scaled by clamped menu demand and the cafe's vibe.
// While fewer than MinLiveOrders orders are open the lull chance applies.
func (e *Engine) OrderChance(st *State) float64 {
	a := e.tun.Arrival
	if st.liveOrders() < a.MinLiveOrders {
		return a.LullOrderChance
	}
	demand := mathx.Clamp(st.TotalDemand/100, a.DemandFloor, a.DemandCeiling)
	return a.BaseOrderChance * st.Popularity / 100 * demand * st.Vibe
}

func (e *Engine) arrive(st *State, out *signals) {
	if e.rng.Float64() >= e.OrderChance(st) {
		return
	}
	o, ok := e.generateOrder(st)
	if !ok {
		return
	}
	st.Orders = append(st.Orders, o)
	out.add(Signal{Kind: SignalOrderPlaced, Tick: st.Tick, OrderID: o.ID, Customer: o.Customer})
}

// generateOrder builds an order from menu items the cafe can make right now.
// Multi-item orders reserve ingredients against a scratch copy of inventory so
// one scarce ingredient is not promised twice.
func (e *Engine) generateOrder(st *State) (Order, bool) {
	var avail []MenuItem
	for _, m := range st.Menu {
		if st.ownsAll(m.Requires) && st.hasIngredients(m.Ingredients) {
			avail = append(avail, m)
		}
	}
	if len(avail) == 0 {
		return Order{}, false
	}

	var items []MenuItem
	if e.rng.Float64() < st.Popularity/200 {
		n := 2 + e.rng.IntN(2)
		stock := make(map[string]int, len(st.Inventory))
		for _, inv := range st.Inventory {
			stock[inv.Name] += inv.Quantity
		}
		for i := 0; i < n; i++ {
			var eligible []MenuItem
			for _, m := range avail {
				if covers(stock, m.Ingredients) {
					eligible = append(eligible, m)
				}
			}
			if len(eligible) == 0 {
				break
			}
			pick := eligible[e.rng.IntN(len(eligible))]
			items = append(items, pick)
			for name, qty := range pick.Ingredients {
				stock[name] -= qty
			}
		}
	}
	if len(items) == 0 {
		items = append(items, avail[e.rng.IntN(len(avail))])
	}

	minPatience := 400
	if st.Popularity < 50 {
		minPatience += int((50 - st.Popularity) * 8)
	}
	span := 1000 - minPatience
	if span < 1 {
		span = 1
	}

	items = cloneMenuItems(items)
	return Order{
		ID:               e.newID(),
		Customer:         customerNames[e.rng.IntN(len(customerNames))],
		Items:            items,
		OriginalItems:    cloneMenuItems(items),
		CustomerPatience: minPatience + e.rng.IntN(span),
	}, true
}

func covers(stock, need map[string]int) bool {
	for name, qty := range need {
		if stock[name] < qty {
			return false
		}
	}
	return true
}
