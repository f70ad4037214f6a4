// FILE: broker_paper_test.go

package main

import (
	"context"
	"testing"
	"time"
)

func paperBarAt(min int, close float64) Candle {
	base := time.Date(2026, 3, 2, 14, 35, 0, 0, time.UTC)
	return Candle{
		Time:   base.Add(time.Duration(min) * time.Minute),
		Open:   close,
		High:   close,
		Low:    close,
		Close:  close,
		Volume: 1000,
	}
}

func TestPaperRoundTripLong(t *testing.T) {
	cfg := testConfig() // PointValue 2.0, CommissionPerSide 0.60
	p := NewPaperExecutor(cfg)
	ctx := context.Background()

	enter := Decision{Intent: IntentEnterLong, Contracts: 1, Reason: TriggerFirstBarLong}
	if err := p.Apply(ctx, enter, paperBarAt(0, 100)); err != nil {
		t.Fatalf("enter: %v", err)
	}
	if got := p.Unrealized(paperBarAt(5, 110)); got != 20 {
		t.Fatalf("unrealized = %v, want 20", got)
	}

	flat := Decision{Intent: IntentFlatten, Reason: ReasonSessionClose}
	if err := p.Apply(ctx, flat, paperBarAt(10, 110)); err != nil {
		t.Fatalf("flatten: %v", err)
	}

	trades := p.Trades()
	if len(trades) != 1 {
		t.Fatalf("trades = %d, want 1", len(trades))
	}
	tr := trades[0]
	// 10 points * $2 - 2 * $0.60 commission = 18.80 net.
	if tr.PnLUSD != 18.80 {
		t.Fatalf("net = %v, want 18.80", tr.PnLUSD)
	}
	if tr.Side != SideBuy || tr.Reason != ReasonSessionClose {
		t.Fatalf("trade = %+v", tr)
	}
	if got := p.EquityUSD(); got != cfg.StartEquityUSD+18.80 {
		t.Fatalf("equity = %v", got)
	}
}

func TestPaperShortSignFlip(t *testing.T) {
	p := NewPaperExecutor(testConfig())
	ctx := context.Background()

	p.Apply(ctx, Decision{Intent: IntentEnterShort, Contracts: 1}, paperBarAt(0, 100))
	if got := p.Unrealized(paperBarAt(5, 95)); got != 10 {
		t.Fatalf("short unrealized = %v, want 10", got)
	}
	p.Apply(ctx, Decision{Intent: IntentFlatten, Reason: ReasonSessionClose}, paperBarAt(10, 105))

	tr := p.Trades()[0]
	// Short losing 5 points: -10 gross - 1.20 commission.
	if tr.PnLUSD != -11.20 {
		t.Fatalf("net = %v, want -11.20", tr.PnLUSD)
	}
}

func TestPaperReverseClosesThenOpens(t *testing.T) {
	p := NewPaperExecutor(testConfig())
	ctx := context.Background()

	p.Apply(ctx, Decision{Intent: IntentEnterLong, Contracts: 1}, paperBarAt(0, 100))
	if err := p.Apply(ctx, Decision{Intent: IntentReverseToShort, Contracts: 1, Reason: TriggerTrailingStop}, paperBarAt(5, 98)); err != nil {
		t.Fatalf("reverse: %v", err)
	}

	trades := p.Trades()
	if len(trades) != 1 {
		t.Fatalf("trades after reverse = %d, want 1", len(trades))
	}
	if trades[0].Reason != TriggerTrailingStop {
		t.Fatalf("close reason = %q", trades[0].Reason)
	}
	// New short lot carried at the reversal price.
	if got := p.Unrealized(paperBarAt(10, 94)); got != 8 {
		t.Fatalf("post-reverse unrealized = %v, want 8", got)
	}
}

func TestPaperRejectsDoubleOpen(t *testing.T) {
	p := NewPaperExecutor(testConfig())
	ctx := context.Background()
	p.Apply(ctx, Decision{Intent: IntentEnterLong, Contracts: 1}, paperBarAt(0, 100))
	if err := p.Apply(ctx, Decision{Intent: IntentEnterShort, Contracts: 1}, paperBarAt(5, 101)); err == nil {
		t.Fatalf("double open accepted")
	}
}

func TestPaperFlattenWhenFlatIsNoop(t *testing.T) {
	p := NewPaperExecutor(testConfig())
	if err := p.Apply(context.Background(), Decision{Intent: IntentFlatten, Reason: ReasonDailyStop}, paperBarAt(0, 100)); err != nil {
		t.Fatalf("flatten while flat: %v", err)
	}
	if len(p.Trades()) != 0 {
		t.Fatalf("phantom trade recorded")
	}
}

func TestRealizedSinceAnchors(t *testing.T) {
	p := NewPaperExecutor(testConfig())
	ctx := context.Background()

	// Day 1 round trip.
	p.Apply(ctx, Decision{Intent: IntentEnterLong, Contracts: 1}, paperBarAt(0, 100))
	p.Apply(ctx, Decision{Intent: IntentFlatten, Reason: ReasonSessionClose}, paperBarAt(10, 110))

	// Day 2 round trip, 24h later.
	day2 := time.Date(2026, 3, 3, 14, 35, 0, 0, time.UTC)
	b1 := Candle{Time: day2, Open: 100, High: 100, Low: 100, Close: 100, Volume: 1000}
	b2 := Candle{Time: day2.Add(10 * time.Minute), Open: 105, High: 105, Low: 105, Close: 105, Volume: 1000}
	p.Apply(ctx, Decision{Intent: IntentEnterLong, Contracts: 1}, b1)
	p.Apply(ctx, Decision{Intent: IntentFlatten, Reason: ReasonSessionClose}, b2)

	anchor := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
	// Only day 2's 5 points * $2 - 1.20 = 8.80 counts from the anchor.
	if got := p.RealizedSince(anchor); got != 8.80 {
		t.Fatalf("RealizedSince = %v, want 8.80", got)
	}
	if got := p.RealizedSince(time.Time{}); got != 18.80+8.80 {
		t.Fatalf("total realized = %v", got)
	}
}
