package economy

import "math"

const (
	MinMarketPrice = 1.0
	MaxMarketPrice = 10.0
)

// DemandWeight scales an item's baseline demand by how its price compares to
// the market reference. Cheaper than market attracts more, within [0.1, 3].
func DemandWeight(demand, price, marketPrice float64) float64 {
	if price <= 0 {
		return demand * 3
	}
	ratio := marketPrice / price
	return demand * math.Max(0.1, math.Min(3.0, ratio))
}

// DriftMagnitude maps a tier roll and a magnitude roll, both in [0,1), to a
// relative price move: 70% of days 0-3%, 25% 3-7%, 5% 7-10%.
func DriftMagnitude(tierRoll, magRoll float64) float64 {
	switch {
	case tierRoll < 0.70:
		return magRoll * 0.03
	case tierRoll < 0.95:
		return 0.03 + magRoll*0.04
	default:
		return 0.07 + magRoll*0.03
	}
}

// DriftPrice applies a signed move to the market price and clamps it.
func DriftPrice(marketPrice, magnitude float64, up bool) float64 {
	if !up {
		magnitude = -magnitude
	}
	next := marketPrice * (1 + magnitude)
	return math.Max(MinMarketPrice, math.Min(MaxMarketPrice, next))
}

// TicksToRestock is linear in manager experience between slowest (exp 0) and
// fastest (exp 1000).
func TicksToRestock(experience, slowest, fastest float64) float64 {
	exp := math.Max(0, math.Min(1000, experience))
	return slowest - (slowest-fastest)*exp/1000
}

func RestockChance(experience, slowest, fastest float64) float64 {
	t := TicksToRestock(experience, slowest, fastest)
	if t <= 1 {
		return 1
	}
	return 1 / t
}

// PackagesToFloor is how many whole packages lift quantity to at least floor.
func PackagesToFloor(quantity, floor, packageSize int) int {
	if quantity >= floor || packageSize <= 0 {
		return 0
	}
	return (floor - quantity + packageSize - 1) / packageSize
}
