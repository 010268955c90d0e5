package main

import (
	"github.com/prometheus/client_golang/prometheus"

	"thegrind.cafe/internal/persistence/indexdb"
	"thegrind.cafe/internal/sim/world"
	"thegrind.cafe/internal/transport/ws"
)

// cafeCollector reads the world's published metrics on every scrape.
type cafeCollector struct {
	w   *world.World
	ws  *ws.Server
	idx *indexdb.SQLiteIndex // may be nil

	tick        *prometheus.Desc
	cash        *prometheus.Desc
	popularity  *prometheus.Desc
	demand      *prometheus.Desc
	liveOrders  *prometheus.Desc
	totalOrders *prometheus.Desc
	staff       *prometheus.Desc
	stepMS      *prometheus.Desc
	sessions    *prometheus.Desc
	queueDepth  *prometheus.Desc
	drops       *prometheus.Desc
}

func newCafeCollector(saveID string, w *world.World, wsSrv *ws.Server, idx *indexdb.SQLiteIndex) *cafeCollector {
	labels := prometheus.Labels{"save": saveID}
	desc := func(name, help string, varLabels ...string) *prometheus.Desc {
		return prometheus.NewDesc("grind_"+name, help, varLabels, labels)
	}
	return &cafeCollector{
		w:           w,
		ws:          wsSrv,
		idx:         idx,
		tick:        desc("tick", "Current simulation tick."),
		cash:        desc("cash", "Cash on hand."),
		popularity:  desc("popularity", "Cafe popularity (0-100)."),
		demand:      desc("total_demand", "Summed demand of the menu."),
		liveOrders:  desc("live_orders", "Orders waiting or in progress."),
		totalOrders: desc("orders_total", "Orders completed since the cafe opened."),
		staff:       desc("staff", "Employees on the payroll."),
		stepMS:      desc("step_ms", "Duration of the last tick in milliseconds."),
		sessions:    desc("ws_sessions", "Connected websocket clients."),
		queueDepth:  desc("queue_depth", "Channel backlog depth.", "queue"),
		drops:       desc("index_dropped_total", "Index writes dropped because the queue was full.", "kind"),
	}
}

func (c *cafeCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{c.tick, c.cash, c.popularity, c.demand, c.liveOrders, c.totalOrders, c.staff, c.stepMS, c.sessions, c.queueDepth, c.drops} {
		ch <- d
	}
}

func (c *cafeCollector) Collect(ch chan<- prometheus.Metric) {
	m := c.w.Metrics()
	gauge := func(d *prometheus.Desc, v float64, lv ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, lv...)
	}
	gauge(c.tick, float64(m.Tick))
	gauge(c.cash, m.Cash)
	gauge(c.popularity, m.Popularity)
	gauge(c.demand, m.TotalDemand)
	gauge(c.liveOrders, float64(m.LiveOrders))
	ch <- prometheus.MustNewConstMetric(c.totalOrders, prometheus.CounterValue, float64(m.TotalOrders))
	gauge(c.staff, float64(m.Staff))
	gauge(c.stepMS, m.StepMS)
	if c.ws != nil {
		gauge(c.sessions, float64(c.ws.Sessions()))
	}
	gauge(c.queueDepth, float64(m.QueueDepths.Ops), "ops")
	gauge(c.queueDepth, float64(m.QueueDepths.Admin), "admin")
	if c.idx != nil {
		s := c.idx.Stats()
		gauge(c.queueDepth, float64(s.QueueDepth), "index")
		ch <- prometheus.MustNewConstMetric(c.drops, prometheus.CounterValue, float64(s.DropDayTotal), "day")
		ch <- prometheus.MustNewConstMetric(c.drops, prometheus.CounterValue, float64(s.DropSnapshotTotal), "snapshot")
		ch <- prometheus.MustNewConstMetric(c.drops, prometheus.CounterValue, float64(s.DropArchiveTotal), "archive")
	}
}
