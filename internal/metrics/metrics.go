// Package metrics: prometheus-метрики бота, отдаются health-сервером на /metrics.
//
//   - bot_exchange_requests_total{op,outcome}: запросы к OKX (ok|transient|rejected|error)
//   - bot_orders_total{kind}                 : выставленные ордера (trend_buy|breakout_buy|grid_buy|dip_buy|exit_sell|oco)
//   - bot_ticks_total{result}                : тики (done|skipped_overlap|paused)
//   - bot_symbol_errors_total{step}          : ошибки шагов сверки
//   - bot_open_positions{mode}               : открытые позиции
//   - bot_realized_pnl                       : реализованный PnL по журналу
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	ExchangeRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_exchange_requests_total",
			Help: "Exchange REST requests by operation and outcome",
		},
		[]string{"op", "outcome"},
	)

	Orders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_orders_total",
			Help: "Orders accepted by the exchange",
		},
		[]string{"kind"},
	)

	Ticks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_ticks_total",
			Help: "Reconciliation ticks by result",
		},
		[]string{"result"},
	)

	SymbolErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_symbol_errors_total",
			Help: "Failed reconciliation steps",
		},
		[]string{"step"},
	)

	OpenPositions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bot_open_positions",
			Help: "Open positions by mode",
		},
		[]string{"mode"},
	)

	RealizedPnL = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_realized_pnl",
			Help: "Realized PnL of closed trades in quote currency",
		},
	)
)

func init() {
	prometheus.MustRegister(ExchangeRequests, Orders, Ticks, SymbolErrors)
	prometheus.MustRegister(OpenPositions, RealizedPnL)
}
