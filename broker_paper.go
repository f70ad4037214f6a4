// FILE: broker_paper.go
// Package main – In-memory paper executor (no external dependencies).
//
// This executor simulates futures execution at bar close: fixed contract
// size, per-side commission, and a configurable point value (MNQ: $2/point).
// It's used for backtests and dry runs; a live gateway would replace it
// behind the same Executor interface.
//
// Accounting:
//   • gross = (exit − entry) × pointValue × contracts, sign-flipped for shorts
//   • net   = gross − commission × contracts × 2 (entry + exit side)
//   • Unrealized marks the open lot to the supplied bar's close, gross of
//     the pending exit commission; the daily breaker consumes it as-is.

package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// paperLot is the single open lot (the strategy is always-in, one lot).
type paperLot struct {
	Side       OrderSide
	EntryPrice float64
	Contracts  int
	EntryTime  time.Time
}

// PaperExecutor simulates fills and keeps the authoritative trade log.
type PaperExecutor struct {
	cfg Config

	mu     sync.Mutex
	lot    *paperLot
	equity float64
	trades []ClosedTrade
}

func NewPaperExecutor(cfg Config) *PaperExecutor {
	return &PaperExecutor{cfg: cfg, equity: cfg.StartEquityUSD}
}

func (p *PaperExecutor) Name() string { return "paper" }

// RestoreEquity seeds equity from a persisted run state.
func (p *PaperExecutor) RestoreEquity(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v > 0 {
		p.equity = v
	}
}

// Apply executes one Decision at the bar's close price.
func (p *PaperExecutor) Apply(ctx context.Context, d Decision, c Candle) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch d.Intent {
	case IntentNone:
		return nil
	case IntentEnterLong:
		return p.open(SideBuy, d.Contracts, c)
	case IntentEnterShort:
		return p.open(SideSell, d.Contracts, c)
	case IntentReverseToShort:
		p.closeLot(c, d.Reason)
		return p.open(SideSell, d.Contracts, c)
	case IntentReverseToLong:
		p.closeLot(c, d.Reason)
		return p.open(SideBuy, d.Contracts, c)
	case IntentFlatten:
		p.closeLot(c, d.Reason)
		return nil
	default:
		return fmt.Errorf("unknown intent %d", d.Intent)
	}
}

func (p *PaperExecutor) open(side OrderSide, contracts int, c Candle) error {
	if p.lot != nil {
		return fmt.Errorf("paper: open %s with a lot already held", side)
	}
	if contracts < 1 {
		return fmt.Errorf("paper: open %s with %d contracts", side, contracts)
	}
	p.lot = &paperLot{
		Side:       side,
		EntryPrice: c.Close,
		Contracts:  contracts,
		EntryTime:  c.Time,
	}
	return nil
}

// closeLot settles the open lot at c.Close, if any, and appends the trade.
func (p *PaperExecutor) closeLot(c Candle, reason string) {
	if p.lot == nil {
		return
	}
	lot := p.lot
	p.lot = nil

	points := c.Close - lot.EntryPrice
	if lot.Side == SideSell {
		points = -points
	}
	gross := points * p.cfg.PointValue * float64(lot.Contracts)
	net := gross - p.cfg.CommissionPerSide*float64(lot.Contracts)*2

	p.equity += net
	p.trades = append(p.trades, ClosedTrade{
		ID:         uuid.New().String(),
		Symbol:     p.cfg.Symbol,
		Side:       lot.Side,
		Contracts:  lot.Contracts,
		EntryTime:  lot.EntryTime,
		ExitTime:   c.Time,
		EntryPrice: lot.EntryPrice,
		ExitPrice:  c.Close,
		PnLUSD:     net,
		Reason:     reason,
	})
}

// Unrealized marks the open lot to the bar's close; zero when flat.
func (p *PaperExecutor) Unrealized(c Candle) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lot == nil {
		return 0
	}
	points := c.Close - p.lot.EntryPrice
	if p.lot.Side == SideSell {
		points = -points
	}
	return points * p.cfg.PointValue * float64(p.lot.Contracts)
}

// RealizedSince sums net P&L over trades closed at or after anchor.
func (p *PaperExecutor) RealizedSince(anchor time.Time) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	var sum float64
	for i := len(p.trades) - 1; i >= 0; i-- {
		if p.trades[i].ExitTime.Before(anchor) {
			break // trades are appended in time order
		}
		sum += p.trades[i].PnLUSD
	}
	return sum
}

func (p *PaperExecutor) EquityUSD() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.equity
}

// Trades returns a copy of the closed-trade log.
func (p *PaperExecutor) Trades() []ClosedTrade {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ClosedTrade, len(p.trades))
	copy(out, p.trades)
	return out
}
