// FILE: broker.go
// Package main – Execution abstractions shared by all intent sinks.
//
// This file defines the minimal interface the runners need to turn engine
// decisions into fills and to read back the day-scoped P&L the risk breaker
// consumes:
//   • Executor interface: apply a Decision, mark to market, report P&L
//   • Common types: OrderSide, PlacedOrder, ClosedTrade
//
// The concrete paper implementation lives in broker_paper.go. A real futures
// gateway would satisfy the same surface.

package main

import (
	"context"
	"time"
)

// OrderSide is the side of an order/lot.
type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

// PlacedOrder is a normalized view of a filled market order.
type PlacedOrder struct {
	ID        string
	Symbol    string
	Side      OrderSide
	Price     float64
	Contracts int
	Time      time.Time
}

// ClosedTrade is one round trip reported back by the execution layer. PnLUSD
// is net of commissions; the risk breaker sums these per venue day.
type ClosedTrade struct {
	ID         string    `json:"id"`
	Symbol     string    `json:"symbol"`
	Side       OrderSide `json:"side"` // side of the closed lot (entry side)
	Contracts  int       `json:"contracts"`
	EntryTime  time.Time `json:"entry_time"`
	ExitTime   time.Time `json:"exit_time"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	PnLUSD     float64   `json:"pnl_usd"`
	Reason     string    `json:"reason"` // trigger/flatten reason that closed it
}

// Executor is the intent sink the engine's decisions flow into.
//
// The call order per bar is fixed: Unrealized(bar) feeds the engine's Step,
// then Apply executes whatever Step returned. RealizedSince provides the
// day-scoped closed-trade P&L the breaker needs — the engine never recomputes
// it from raw history.
type Executor interface {
	Name() string
	Apply(ctx context.Context, d Decision, c Candle) error
	Unrealized(c Candle) float64
	RealizedSince(anchor time.Time) float64
	EquityUSD() float64
	Trades() []ClosedTrade
}
