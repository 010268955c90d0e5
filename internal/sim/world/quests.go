package world

type questRule struct {
	done   func(st *State, dayTicks int) bool
	effect func(st *State, out *signals)
}

// questRules holds quest behavior keyed by catalog id. Persisted QuestState
// stays pure data; a quest id with no rule never completes.
var questRules = map[string]questRule{
	"first": {
		done: func(st *State, _ int) bool {
			n := 0
			for _, o := range st.Orders {
				if o.Completion == 100 {
					n++
				}
			}
			return n >= 5
		},
	},
	"first-week": {
		done: func(st *State, dayTicks int) bool { return st.Day(dayTicks) > 7 },
		effect: func(st *State, out *signals) {
			msg := "After 1 week of doing great business, it's time for your first rush! Good luck!"
			st.Tip = msg
			out.add(Signal{Kind: SignalNotice, Tick: st.Tick, QuestID: "first-week", Message: msg})
		},
	},
	"hire": {
		done: func(st *State, _ int) bool { return len(st.Staff) > 1 },
	},
	"profitable-day": {
		done: func(st *State, _ int) bool { return st.Stats.ProfitYesterday > 0 },
	},
	"add-menu-item": {
		done: func(st *State, _ int) bool { return len(st.Menu) > 1 },
	},
}

// evaluateQuests runs the two-phase quest transition: a satisfied quest is
// first shown as completing, then paid out QuestDelayTicks later. The delay
// is counted in ticks so pauses and speed changes cannot skip or repeat it.
func (e *Engine) evaluateQuests(st *State, out *signals) {
	for i := range st.Quests {
		q := &st.Quests[i]
		rule, ok := questRules[q.ID]
		if !q.Completed && !q.ShowingCompletion && ok && rule.done(st, e.tun.DayTicks) {
			q.ShowingCompletion = true
			if q.CompletionStartTick == 0 {
				q.CompletionStartTick = st.Tick
			}
			out.add(Signal{Kind: SignalQuestDetected, Tick: st.Tick, QuestID: q.ID})
		}

		if q.ShowingCompletion && st.Tick-q.CompletionStartTick >= e.tun.QuestDelayTicks {
			q.Completed = true
			q.ShowingCompletion = false
			q.CompletionStartTick = 0
			st.Cash += q.Reward.Cash
			st.Popularity += q.Reward.Popularity
			if ok && rule.effect != nil {
				rule.effect(st, out)
			}
			out.add(Signal{Kind: SignalQuestCompleted, Tick: st.Tick, QuestID: q.ID})
		}
	}
}
