package world

import (
	"thegrind.cafe/internal/sim/world/logic/mathx"
)

// Normalize clamps and rounds the fields every tick must leave in range.
// Applying it twice is the same as applying it once.
func Normalize(st *State) {
	for i := range st.Staff {
		emp := &st.Staff[i]
		emp.Experience = mathx.RoundWhole(mathx.Clamp(emp.Experience, 0, 1000))
		emp.Happiness = mathx.Clamp(emp.Happiness, 0.1, 2.0)
	}
	for i := range st.Managers {
		m := &st.Managers[i]
		m.Experience = mathx.RoundWhole(mathx.Clamp(m.Experience, 0, 1000))
		m.Happiness = mathx.Clamp(m.Happiness, 0.1, 2.0)
	}
	st.Popularity = mathx.Clamp(st.Popularity, 0, 100)
	if st.TotalDemand == 0 && len(st.Menu) > 0 {
		st.TotalDemand = TotalDemand(st.Menu)
	}
	if st.Vibe < 0 {
		st.Vibe = 0
	}
	st.Cash = mathx.RoundWhole(st.Cash)
	st.Stats.ProfitToday = mathx.RoundWhole(st.Stats.ProfitToday)
	st.Stats.ProfitYesterday = mathx.RoundWhole(st.Stats.ProfitYesterday)
	st.Stats.RevenueToday = mathx.RoundWhole(st.Stats.RevenueToday)
	st.Stats.ExpensesToday = mathx.RoundWhole(st.Stats.ExpensesToday)
}
