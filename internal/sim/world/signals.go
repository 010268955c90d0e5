package world

type SignalKind string

const (
	SignalGameStarted    SignalKind = "GAME_STARTED"
	SignalOrderPlaced    SignalKind = "ORDER_PLACED"
	SignalOrderCompleted SignalKind = "ORDER_COMPLETED"
	SignalSlowOrder      SignalKind = "SLOW_ORDER"
	SignalWageAdvisory   SignalKind = "WAGE_ADVISORY"
	SignalRestocked      SignalKind = "RESTOCKED"
	SignalDayEnded       SignalKind = "DAY_ENDED"
	SignalQuestDetected  SignalKind = "QUEST_DETECTED"
	SignalQuestCompleted SignalKind = "QUEST_COMPLETED"
	SignalNotice         SignalKind = "NOTICE"
)

// Signal is a discrete cue raised during a tick for audio, notifications and
// the day ledger. Signals never feed back into the simulation.
type Signal struct {
	Kind     SignalKind  `json:"kind"`
	Tick     uint64      `json:"tick"`
	OrderID  string      `json:"order_id,omitempty"`
	Customer string      `json:"customer,omitempty"`
	Employee string      `json:"employee,omitempty"`
	QuestID  string      `json:"quest_id,omitempty"`
	Message  string      `json:"message,omitempty"`
	Day      *DaySummary `json:"day,omitempty"`
}

// DaySummary is what the end-of-day screen and the day ledger show.
type DaySummary struct {
	Day              int      `json:"day"`
	Tick             uint64   `json:"tick"`
	Revenue          float64  `json:"revenue"`
	Expenses         float64  `json:"expenses"`
	Wages            float64  `json:"wages"`
	CafeCosts        float64  `json:"cafe_costs"`
	Profit           float64  `json:"profit"`
	Orders           int      `json:"orders"`
	OrdersChange     int      `json:"orders_change"`
	Popularity       float64  `json:"popularity"`
	PopularityChange float64  `json:"popularity_change"`
	Cash             float64  `json:"cash"`
	Messages         []string `json:"messages,omitempty"`
}

type signals []Signal

func (s *signals) add(sig Signal) { *s = append(*s, sig) }
