package world

// WorldMetrics is a thread-safe read-only view of the running cafe.
// It is updated from the world loop goroutine and read from HTTP handlers/tests.
type WorldMetrics struct {
	Tick uint64 `json:"tick"`
	Day  int    `json:"day"`

	Cash        float64 `json:"cash"`
	Popularity  float64 `json:"popularity"`
	TotalDemand float64 `json:"total_demand"`
	Vibe        float64 `json:"vibe"`

	LiveOrders  int `json:"live_orders"`
	OrdersToday int `json:"orders_today"`
	TotalOrders int `json:"total_orders"`
	Staff       int `json:"staff"`
	Managers    int `json:"managers"`

	Paused         bool `json:"paused"`
	ShowEndOfDay   bool `json:"show_end_of_day"`
	TickIntervalMS int  `json:"tick_interval_ms"`
	Subscribers    int  `json:"subscribers"`

	QueueDepths QueueDepths `json:"queue_depths"`

	StepMS float64 `json:"step_ms"`
}

type QueueDepths struct {
	Ops   int `json:"ops"`
	Admin int `json:"admin"`
}

func (w *World) updateMetrics() {
	st := &w.state
	w.metrics.Store(WorldMetrics{
		Tick:           st.Tick,
		Day:            st.Day(w.engine.tun.DayTicks),
		Cash:           st.Cash,
		Popularity:     st.Popularity,
		TotalDemand:    st.TotalDemand,
		Vibe:           st.Vibe,
		LiveOrders:     st.liveOrders(),
		OrdersToday:    st.Stats.OrdersToday,
		TotalOrders:    st.Stats.TotalOrders,
		Staff:          len(st.Staff),
		Managers:       len(st.Managers),
		Paused:         st.Paused,
		ShowEndOfDay:   st.ShowEndOfDay,
		TickIntervalMS: st.Settings.TickIntervalMS,
		Subscribers:    len(w.subs),
		QueueDepths:    QueueDepths{Ops: len(w.ops), Admin: len(w.admin)},
		StepMS:         float64(w.stepNS.Load()) / 1e6,
	})
}

func (w *World) Metrics() WorldMetrics {
	if w == nil {
		return WorldMetrics{}
	}
	v := w.metrics.Load()
	if v == nil {
		return WorldMetrics{}
	}
	m, ok := v.(WorldMetrics)
	if !ok {
		return WorldMetrics{}
	}
	return m
}
