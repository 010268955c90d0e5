package world

// matchStaff pairs free employees with unclaimed open orders index for index,
// in staff order and order arrival order. There is no priority and no
// starvation guard: an order waits until someone frees up or the day ends.
func matchStaff(st *State) {
	claimed := claimedOrders(st)
	var free []int
	for i := range st.Staff {
		if st.Staff[i].CurrentOrder == "" {
			free = append(free, i)
		}
	}
	var open []int
	for i := range st.Orders {
		if st.Orders[i].Completion < 100 && !claimed[st.Orders[i].ID] {
			open = append(open, i)
		}
	}
	n := min(len(free), len(open))
	for k := 0; k < n; k++ {
		st.Staff[free[k]].CurrentOrder = st.Orders[open[k]].ID
	}
}

// ageUnassigned counts a tick of waiting for every open order nobody holds.
// Held orders are aged by the work pass, so each open order ages once a tick.
func ageUnassigned(st *State) {
	claimed := claimedOrders(st)
	for i := range st.Orders {
		o := &st.Orders[i]
		if o.Completion < 100 && !claimed[o.ID] {
			o.TicksToComplete++
		}
	}
}

func claimedOrders(st *State) map[string]bool {
	claimed := make(map[string]bool, len(st.Staff))
	for _, e := range st.Staff {
		if e.CurrentOrder != "" {
			claimed[e.CurrentOrder] = true
		}
	}
	return claimed
}
