// Package metrics exposes the Prometheus series the bot updates while
// trading:
//   - straddle_orders_total{side,result}          – leg/TP orders submitted
//   - straddle_fills_total{side}                  – detected position fills
//   - straddle_cycles_completed_total{symbol}     – closed cycles
//   - straddle_realized_pnl_usdt                  – last observed realized PnL
//   - straddle_monitor_errors_total{monitor}      – failed monitor iterations
//   - straddle_active_cycles                      – tracked cycle states
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "straddle_orders_total",
			Help: "Orders submitted, by side and result",
		},
		[]string{"side", "result"},
	)

	FillsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "straddle_fills_total",
			Help: "Position fills detected by the open monitor",
		},
		[]string{"side"},
	)

	CyclesCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "straddle_cycles_completed_total",
			Help: "Cycles that reached position close",
		},
		[]string{"symbol"},
	)

	RealizedPnl = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "straddle_realized_pnl_usdt",
			Help: "Realized PnL of the most recently closed cycle",
		},
	)

	MonitorErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "straddle_monitor_errors_total",
			Help: "Monitor iteration and per-symbol failures",
		},
		[]string{"monitor"},
	)

	ActiveCycles = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "straddle_active_cycles",
			Help: "Cycle states currently tracked",
		},
	)
)

func init() {
	prometheus.MustRegister(
		OrdersTotal,
		FillsTotal,
		CyclesCompleted,
		RealizedPnl,
		MonitorErrors,
		ActiveCycles,
	)
}

// Handler adapts the Prometheus text exposition handler to fasthttp.
func Handler() fasthttp.RequestHandler {
	return fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
}
