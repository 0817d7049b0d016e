// Package metrics exposes the prometheus collectors the bot updates during
// operation. They are registered in init() and served at /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	Events = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trader_events_total",
			Help: "Execution events consumed",
		},
	)

	Skips = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trader_skips_total",
			Help: "Decision cycles skipped, by reason",
		},
		[]string{"reason"},
	)

	Orders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trader_orders_total",
			Help: "Orders submitted, by side and outcome",
		},
		[]string{"side", "outcome"},
	)

	Collateral = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "trader_collateral",
			Help: "Last observed account collateral",
		},
	)

	Contrarian = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "trader_contrarian",
			Help: "Contrarian toggle state (0 or 1)",
		},
	)
)

func init() {
	prometheus.MustRegister(Events, Skips, Orders, Collateral, Contrarian)
}
