// FILE: metrics.go
// Package main – Prometheus metrics for observability.
//
// Exposes the primary series the bot updates during operation:
//   • bot_bars_total{phase}        – Bars processed by session phase
//   • bot_intents_total{intent}    – Engine intents by kind
//   • bot_reversals_total{trigger} – SAR reversals by trigger
//   • bot_daily_halts_total        – Daily loss breaker trips
//   • bot_day_pnl_usd              – Current day realized+unrealized (gauge)
//   • bot_equity_usd               – Current equity snapshot (gauge)
//   • bot_trades_total{result}     – Closed trades by result (win|loss|flat)
//
// These are registered in init() and served by the HTTP handler started in
// main.go at /metrics (Prometheus text exposition format).

package main

import "github.com/prometheus/client_golang/prometheus"

var (
	mtxBars = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_bars_total",
			Help: "Bars processed by session phase",
		},
		[]string{"phase"},
	)

	mtxIntents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_intents_total",
			Help: "Engine intents emitted, by kind",
		},
		[]string{"intent"},
	)

	mtxReversals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_reversals_total",
			Help: "Stop-and-reverse flips by trigger",
		},
		[]string{"trigger"},
	)

	mtxHalts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_daily_halts_total",
			Help: "Daily loss breaker trips",
		},
	)

	mtxDayPnL = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_day_pnl_usd",
			Help: "Current trading day P&L (realized + unrealized) in USD",
		},
	)

	mtxPnL = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_equity_usd",
			Help: "Equity in USD",
		},
	)

	mtxTrades = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_trades_total",
			Help: "Closed trades by result (win|loss|flat)",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(mtxBars, mtxIntents, mtxReversals)
	prometheus.MustRegister(mtxHalts, mtxDayPnL, mtxPnL, mtxTrades)
}

// recordDecision updates the intent/reversal/halt series for one bar.
func recordDecision(d Decision) {
	if d.Intent == IntentNone {
		return
	}
	mtxIntents.WithLabelValues(d.Intent.String()).Inc()
	switch d.Intent {
	case IntentReverseToLong, IntentReverseToShort:
		mtxReversals.WithLabelValues(d.Reason).Inc()
	case IntentFlatten:
		if d.Reason == ReasonDailyStop {
			mtxHalts.Inc()
		}
	}
}

// recordTrade counts one closed trade by result.
func recordTrade(t ClosedTrade) {
	switch {
	case t.PnLUSD > 0:
		mtxTrades.WithLabelValues("win").Inc()
	case t.PnLUSD < 0:
		mtxTrades.WithLabelValues("loss").Inc()
	default:
		mtxTrades.WithLabelValues("flat").Inc()
	}
}
