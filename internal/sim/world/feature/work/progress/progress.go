package progress

import "math"

// Base is the per-tick completion an employee contributes before modifiers.
func Base(experience float64) float64 {
	return experience / 100 * 5.2
}

// ComplexityPenalty shrinks progress by 10% per complexity step above 1.
func ComplexityPenalty(complexity float64) float64 {
	return 1 - (complexity-1)*0.1
}

// Proficiency grows with the number of times an item has been made and caps at 2.5.
func Proficiency(timesMade int) float64 {
	if timesMade < 0 {
		timesMade = 0
	}
	return math.Min(2.5, 0.012*math.Pow(float64(timesMade), 0.68)+0.5)
}

// ManagerSpeed is the flat speed bonus of a GENERAL manager by experience band.
func ManagerSpeed(experience float64) float64 {
	switch {
	case experience < 250:
		return 1.05
	case experience < 500:
		return 1.10
	case experience < 750:
		return 1.15
	default:
		return 1.20
	}
}

type Inputs struct {
	Experience float64
	Complexity float64
	TimesMade  int
	Happiness  float64
	Speed      float64
}

// Step returns the completion gained in one tick of work.
func Step(in Inputs) float64 {
	happiness := in.Happiness
	if happiness == 0 {
		happiness = 1
	}
	speed := in.Speed
	if speed == 0 {
		speed = 1
	}
	return Base(in.Experience) * ComplexityPenalty(in.Complexity) * Proficiency(in.TimesMade) * happiness * speed
}

// TicksToFinish counts the ticks Step needs to carry completion from 0 to 100
// with one-decimal rounding each tick. Returns -1 when progress never advances.
func TicksToFinish(in Inputs) int {
	p := Step(in)
	if p <= 0 {
		return -1
	}
	completion := 0.0
	n := 0
	for completion < 100 {
		completion = math.Round(math.Min(100, completion+p)*10) / 10
		n++
	}
	return n
}
