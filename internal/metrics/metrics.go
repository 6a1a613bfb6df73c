// Package metrics exposes Prometheus instrumentation for the engine.
//
// Primary metrics updated during operation:
//   - eutrader_snapshots_total            – market snapshots consumed by the manager
//   - eutrader_quote_cycles_total{token}  – completed quote cycles per token
//   - eutrader_fills_total{side}          – simulated fills by side
//   - eutrader_orders_placed_total{side}  – orders placed via the executor
//   - eutrader_orders_cancelled_total     – orders cancelled via the executor
//   - eutrader_feed_lag_drops_total       – snapshots dropped for lagging consumers
//   - eutrader_realized_pnl              – aggregate realized P&L (gauge)
//   - eutrader_net_position{token}       – current net position per token (gauge)
//
// All metrics are registered in init() and served at /metrics by the
// dashboard server (Prometheus text exposition format).
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	SnapshotsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "eutrader_snapshots_total",
			Help: "Market snapshots consumed by the order manager",
		},
	)

	QuoteCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eutrader_quote_cycles_total",
			Help: "Completed quote cycles per token",
		},
		[]string{"token"},
	)

	FillsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eutrader_fills_total",
			Help: "Simulated fills by side",
		},
		[]string{"side"},
	)

	OrdersPlacedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eutrader_orders_placed_total",
			Help: "Orders placed via the executor",
		},
		[]string{"side"},
	)

	OrdersCancelledTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "eutrader_orders_cancelled_total",
			Help: "Orders cancelled via the executor",
		},
	)

	FeedLagDropsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "eutrader_feed_lag_drops_total",
			Help: "Snapshots dropped because a feed consumer lagged",
		},
	)

	RealizedPnL = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "eutrader_realized_pnl",
			Help: "Aggregate realized P&L across all positions",
		},
	)

	NetPosition = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "eutrader_net_position",
			Help: "Current net position per token",
		},
		[]string{"token"},
	)
)

func init() {
	prometheus.MustRegister(
		SnapshotsTotal,
		QuoteCyclesTotal,
		FillsTotal,
		OrdersPlacedTotal,
		OrdersCancelledTotal,
		FeedLagDropsTotal,
		RealizedPnL,
		NetPosition,
	)
}
