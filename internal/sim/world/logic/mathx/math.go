package mathx

import (
	"math"

	"github.com/shopspring/decimal"
)

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Round1 rounds to one decimal place, half away from zero.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// RoundCents rounds a money amount to two decimals without binary drift.
func RoundCents(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// RoundWhole rounds a money amount to an integer the way JS Math.round does
// for positive values: halves go up.
func RoundWhole(v float64) float64 {
	return math.Floor(v + 0.5)
}
