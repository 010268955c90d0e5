package world

import (
	"thegrind.cafe/internal/sim/world/feature/economy"
	"thegrind.cafe/internal/sim/world/logic/mathx"
)

// TotalDemand sums menu demand weighted by how each price compares to market.
func TotalDemand(menu []MenuItem) float64 {
	total := 0.0
	for _, m := range menu {
		market := m.MarketPrice
		if market == 0 {
			market = m.Price
		}
		total += economy.DemandWeight(m.Demand, m.Price, market)
	}
	return total
}

// updateMarketPrices drifts every menu item's market reference once a day.
func (e *Engine) updateMarketPrices(st *State) {
	for i := range st.Menu {
		m := &st.Menu[i]
		if m.MarketPrice == 0 {
			m.MarketPrice = m.Price
		}
		mag := economy.DriftMagnitude(e.rng.Float64(), e.rng.Float64())
		up := e.rng.Float64() < 0.5
		m.MarketPrice = mathx.RoundCents(economy.DriftPrice(m.MarketPrice, mag, up))
	}
}

// autoRestock lets an INVENTORY manager top up low inventory lines. The roll
// gets likelier as the manager gains experience.
func (e *Engine) autoRestock(st *State, out *signals) {
	mi := st.managerIndex(TraitInventory)
	if mi < 0 {
		return
	}
	r := e.tun.Restock
	if e.rng.Float64() >= economy.RestockChance(st.Managers[mi].Experience, r.SlowestTicks, r.FastestTicks) {
		return
	}

	var bought []string
	for i := range st.Inventory {
		line := &st.Inventory[i]
		if line.Quantity >= r.Floor {
			continue
		}
		def, ok := e.cats.Ingredient(line.Name)
		if !ok || !st.ownsAll(def.Requires) {
			continue
		}
		n := economy.PackagesToFloor(line.Quantity, r.Floor, def.Quantity)
		cost := float64(n) * def.Cost
		if n == 0 || st.Cash < cost {
			continue
		}
		st.Cash -= cost
		st.Stats.ExpensesToday += cost
		line.Quantity += n * def.Quantity
		bought = append(bought, line.Name)
	}
	st.Managers[mi].Experience += float64(e.rng.IntN(r.MaxXPGainPerBuy + 1))

	for _, name := range bought {
		out.add(Signal{Kind: SignalRestocked, Tick: st.Tick, Employee: st.Managers[mi].Name, Message: name})
	}
}

// DailyCafeCosts is the per-day share of every owned amenity's weekly cost.
func DailyCafeCosts(st *State) float64 {
	total := 0.0
	for _, a := range st.Amenities {
		total += mathx.RoundWhole(a.WeeklyCost / 7)
	}
	return total
}
