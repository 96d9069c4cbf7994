// Package metrics holds the Prometheus collectors exported by `greenline serve`.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the process-wide registry. A private registry keeps tests free of global state
// from other packages.
var Registry = prometheus.NewRegistry()

var (
	BarRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "greenline",
			Name:      "bar_requests_total",
			Help:      "Bar store requests by source and result.",
		},
		[]string{"source", "result"},
	)

	BarsLoaded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "greenline",
			Name:      "bars_loaded_total",
			Help:      "Daily bars loaded into panels by source.",
		},
		[]string{"source"},
	)

	Signals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "greenline",
			Name:      "signals_total",
			Help:      "Signals emitted on the evaluation date by kind.",
		},
		[]string{"kind"},
	)

	Orders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "greenline",
			Name:      "orders_total",
			Help:      "Paper orders by side and result (submitted, dry_run, failed).",
		},
		[]string{"side", "result"},
	)

	RunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "greenline",
			Name:      "run_duration_seconds",
			Help:      "Duration of backtest and paper runs.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"mode"},
	)

	LastRun = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "greenline",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last completed run by mode.",
		},
		[]string{"mode"},
	)
)

func init() {
	Registry.MustRegister(BarRequests, BarsLoaded, Signals, Orders, RunDuration, LastRun)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
