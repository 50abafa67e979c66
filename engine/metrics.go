package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rustyeddy/sentinel/signal"
)

// Metrics exposes the loop's health:
//
//	sentinel_cycles_total{result}             cycles by ok|degraded
//	sentinel_cycle_duration_seconds           wall time of one cycle
//	sentinel_signals{status}                  instruments per status, last cycle
//	sentinel_open_positions                   ledger size
//	sentinel_closed_trades_total{result,reason}
//	sentinel_stop_raises_total{rule}          breakeven|trail
//	sentinel_autobuy_rejections_total{reason}
//	sentinel_store_connected                  1 when the durable store is reachable
//	sentinel_feed_failures_total{interval}
type Metrics struct {
	Cycles           *prometheus.CounterVec
	CycleDuration    prometheus.Histogram
	Signals          *prometheus.GaugeVec
	OpenPositions    prometheus.Gauge
	ClosedTrades     *prometheus.CounterVec
	StopRaises       *prometheus.CounterVec
	AutoBuyRejects   *prometheus.CounterVec
	StoreConnected   prometheus.Gauge
	FeedFailures     *prometheus.CounterVec
	ConfirmedSignals prometheus.Counter
}

// NewMetrics builds the collectors and registers them with reg when it is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "sentinel_cycles_total", Help: "Scan cycles run"},
			[]string{"result"},
		),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sentinel_cycle_duration_seconds",
			Help:    "Duration of one scan cycle in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		}),
		Signals: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "sentinel_signals", Help: "Instruments per signal status in the last cycle"},
			[]string{"status"},
		),
		OpenPositions: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "sentinel_open_positions", Help: "Open paper positions"},
		),
		ClosedTrades: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "sentinel_closed_trades_total", Help: "Closed trades by result and reason"},
			[]string{"result", "reason"},
		),
		StopRaises: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "sentinel_stop_raises_total", Help: "Stop ratchets by rule"},
			[]string{"rule"},
		),
		AutoBuyRejects: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "sentinel_autobuy_rejections_total", Help: "Auto-Bot entries refused by risk checks"},
			[]string{"reason"},
		),
		StoreConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "sentinel_store_connected", Help: "1 when the durable store is reachable"},
		),
		FeedFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "sentinel_feed_failures_total", Help: "Market data request failures"},
			[]string{"interval"},
		),
		ConfirmedSignals: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "sentinel_first_confirmations_total", Help: "First confirmations recorded"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Cycles, m.CycleDuration, m.Signals, m.OpenPositions, m.ClosedTrades,
			m.StopRaises, m.AutoBuyRejects, m.StoreConnected, m.FeedFailures, m.ConfirmedSignals)
	}
	return m
}

func (m *Metrics) observeSignals(snaps []signal.Snapshot) {
	counts := signal.Count(snaps)
	for _, s := range signal.Statuses() {
		m.Signals.WithLabelValues(string(s)).Set(float64(counts[s]))
	}
}
