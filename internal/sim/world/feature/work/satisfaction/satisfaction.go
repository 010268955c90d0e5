// Package satisfaction scores a finished order against the wait the customer
// expected from the employee who served it.
package satisfaction

import "math"

type Verdict int

const (
	Neutral Verdict = iota
	Fast
	Slow
)

func (v Verdict) String() string {
	switch v {
	case Fast:
		return "FAST"
	case Slow:
		return "SLOW"
	default:
		return "NEUTRAL"
	}
}

const (
	// NeutralWalkChance is the chance a neutral order moves popularity at all.
	NeutralWalkChance = 0.05
	// NeutralUpChance is the share of neutral moves that go up.
	NeutralUpChance = 0.4
)

// ExpectedTicks is the wait the customer considers normal for these items when
// served by an employee with the given experience.
func ExpectedTicks(experience float64, complexities []float64) float64 {
	per := experience / 100 * 7.5
	total := 0.0
	for _, c := range complexities {
		p := per * (1 - (c-1)*0.1)
		if p <= 0.1 {
			total += 1000
			continue
		}
		total += math.Ceil(100 / p)
	}
	return total
}

// PopularityExpectation raises the bar as the shop gets more popular.
func PopularityExpectation(popularity float64) float64 {
	if popularity < 65 {
		return 0.6 + popularity/50*0.55
	}
	return 0.85 + (popularity-50)/50*0.45
}

// Thresholds returns the time-ratio bounds below which an order is fast and
// above which it is slow.
func Thresholds(experience, popularity float64, patience int) (fast, slow float64) {
	bonus := math.Min(0.3, (experience-100)/900)
	mult := PopularityExpectation(popularity) * float64(patience) / 250
	return (0.8 + bonus) * mult, (1.5 + bonus) * mult
}

type Order struct {
	Experience   float64
	Popularity   float64
	Patience     int
	Ticks        int
	Complexities []float64
}

// Judge classifies the order and returns the chance that its verdict moves
// popularity. Neutral orders return NeutralWalkChance.
func Judge(o Order) (Verdict, float64) {
	expected := ExpectedTicks(o.Experience, o.Complexities)
	ratio := 0.0
	if expected > 0 {
		ratio = float64(o.Ticks) / expected
	}
	fast, slow := Thresholds(o.Experience, o.Popularity, o.Patience)
	switch {
	case ratio <= fast:
		return Fast, GainChance(o.Experience, o.Popularity, avg(o.Complexities), o.Patience)
	case ratio > slow:
		return Slow, LossChance(o.Experience, o.Popularity)
	default:
		return Neutral, NeutralWalkChance
	}
}

// GainChance is harder to earn at high popularity and easier with skilled
// staff, complex orders and patient customers. Never below 5%.
func GainChance(experience, popularity, avgComplexity float64, patience int) float64 {
	base := math.Min(0.4, 0.1+experience/500*0.15)
	var mod float64
	if popularity < 50 {
		mod = 1 + (50-popularity)*0.4/100
	} else {
		mod = 1 - math.Pow((popularity-50)/50, 1.5)*0.4
	}
	complexityBonus := (avgComplexity - 1) * 0.03
	patienceBonus := float64(patience-400) / 600 * 0.05
	return math.Max(0.05, base*mod+complexityBonus+patienceBonus)
}

// LossChance falls with employee experience and is heavily discounted while
// the shop is below 50 popularity.
func LossChance(experience, popularity float64) float64 {
	base := math.Max(0.3, 0.6-experience/500*0.2)
	var bonus float64
	if popularity < 50 {
		bonus = (50 - popularity) * 1.2
	} else {
		bonus = (100 - popularity) / 100 * 0.3
	}
	return base - bonus
}

func avg(xs []float64) float64 {
	if len(xs) == 0 {
		return 1
	}
	s := 0.0
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}
