// FILE: live.go
// Package main – live decision loop over the websocket candle feed.
//
// Flow per completed bar:
//   feed -> rolling history -> ATR/volume SMA -> engine.Step -> executor.Apply
// State is snapshotted after every applied decision; a restart inside a
// halted day restores the halt instead of re-entering. Reconnects use a
// capped exponential backoff.

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand"
	"time"
)

const liveHistoryMax = 600 // bars kept for indicator computation

// runLive drives the engine from the websocket feed until ctx is canceled.
func runLive(ctx context.Context, cfg Config, eng *Engine, exec *PaperExecutor, store *CHStore) error {
	sched := eng.Schedule()

	// Rehydrate a previous run if the snapshot is from the same venue day.
	if st, ok := loadState(cfg.StateFile); ok && st.Symbol == cfg.Symbol {
		exec.RestoreEquity(st.EquityUSD)
		if eng.RestoreDay(st.Day, time.Now()) {
			log.Printf("[LIVE] restored day %s realized=%.2f halted=%v",
				st.Day.Date.Format("2006-01-02"), st.Day.RealizedPnL, st.Day.Halted)
		}
		log.Printf("[LIVE] restored equity=%.2f trades=%d", st.EquityUSD, st.TradeCount)
	}

	var history []Candle
	warm := warmupBars(cfg.ATRLength, cfg.VolAvgLength)
	tradesSeen := len(exec.Trades())
	backoff := time.Second

	for {
		feed := NewKlineFeed(cfg.FeedURL, cfg.Symbol, cfg.Interval)
		if err := feed.Connect(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("[LIVE] connect: %v (retry in %s)", err, backoff)
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			backoff = nextBackoff(backoff)
			continue
		}
		backoff = time.Second

		err := consumeBars(ctx, feed, cfg, eng, exec, sched, &history, warm, &tradesSeen, store)
		feed.Close()
		if err != nil && !errors.Is(err, errFeedClosed) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("[LIVE] feed dropped, reconnecting in %s", backoff)
		if !sleepCtx(ctx, backoff) {
			return ctx.Err()
		}
		backoff = nextBackoff(backoff)
	}
}

var errFeedClosed = errors.New("feed closed")

func consumeBars(ctx context.Context, feed *KlineFeed, cfg Config, eng *Engine, exec *PaperExecutor,
	sched *SessionSchedule, history *[]Candle, warm int, tradesSeen *int, store *CHStore) error {

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c, ok := <-feed.Bars():
			if !ok {
				return errFeedClosed
			}
			// Gate the bar before it can touch the rolling history: one
			// non-finite field in a running indicator sum would invalidate
			// every later snapshot until the bar slides out of the window,
			// and reconnects replay the last closed kline.
			if err := admitBar(*history, c); err != nil {
				log.Printf("[LIVE] bad bar dropped: %v", err)
				continue
			}
			*history = append(*history, c)
			if len(*history) > liveHistoryMax {
				*history = (*history)[len(*history)-liveHistoryMax:]
			}
			if len(*history) <= warm {
				log.Printf("[LIVE] warming up %d/%d", len(*history), warm+1)
				continue
			}

			atr := ATR(*history, cfg.ATRLength)
			volMA := VolumeSMA(*history, cfg.VolAvgLength)
			last := len(*history) - 1

			unrealized := exec.Unrealized(c)
			realized := exec.RealizedSince(sched.DayAnchor(c.Time))

			d, err := eng.Step(c, IndicatorSnapshot{ATR: atr[last], AvgVolume: volMA[last]}, realized, unrealized)
			if err != nil {
				// The engine refused the bar; take it back out so the
				// history holds only bars the engine has consumed.
				*history = (*history)[:last]
				log.Printf("[LIVE] bad bar dropped: %v", err)
				continue
			}

			mtxBars.WithLabelValues(sched.Phase(c.Time).String()).Inc()
			mtxDayPnL.Set(realized + unrealized)

			if d.Intent == IntentNone {
				if cfg.Debug {
					log.Printf("[LIVE] %s hold close=%.2f pnl=%.2f",
						c.Time.Format("15:04"), c.Close, realized+unrealized)
				}
				continue
			}

			log.Printf("[LIVE] %s %s reason=%s close=%.2f", c.Time.Format("15:04"), d.Intent, d.Reason, c.Close)
			recordDecision(d)
			if err := exec.Apply(ctx, d, c); err != nil {
				log.Printf("[LIVE] apply %s: %v", d.Intent, err)
				continue
			}

			trades := exec.Trades()
			newTrades := trades[*tradesSeen:]
			for _, t := range newTrades {
				recordTrade(t)
				log.Printf("[LIVE] trade closed: %s %d@%.2f -> %.2f P/L=%.2f (%s)",
					t.Side, t.Contracts, t.EntryPrice, t.ExitPrice, t.PnLUSD, t.Reason)
			}
			*tradesSeen = len(trades)
			mtxPnL.Set(exec.EquityUSD())

			if store != nil && len(newTrades) > 0 {
				if err := store.SaveTrades(ctx, newTrades); err != nil {
					log.Printf("[LIVE] trade log: %v", err)
				}
			}

			saveState(cfg.StateFile, botState{
				Symbol:     cfg.Symbol,
				EquityUSD:  exec.EquityUSD(),
				Day:        eng.Day(),
				TradeCount: len(trades),
			})
		}
	}
}

// admitBar rejects bars that must not enter the rolling history: zero or
// non-advancing timestamps (reconnects replay the last closed kline) and
// non-finite fields.
func admitBar(history []Candle, c Candle) error {
	if c.Time.IsZero() {
		return fmt.Errorf("feed bar has zero timestamp")
	}
	if n := len(history); n > 0 && !c.Time.After(history[n-1].Time) {
		return fmt.Errorf("feed bar out of order: %s <= %s",
			c.Time.Format(time.RFC3339), history[n-1].Time.Format(time.RFC3339))
	}
	for _, v := range [...]float64{c.Open, c.High, c.Low, c.Close, c.Volume, c.BuyVolume, c.SellVolume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("feed bar %s has non-finite field", c.Time.Format(time.RFC3339))
		}
	}
	return nil
}

// sleepCtx waits d or until ctx cancels; reports whether the wait completed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// nextBackoff doubles up to 60s with light jitter.
func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > 60*time.Second {
		d = 60 * time.Second
	}
	return d + time.Duration(rand.Intn(500))*time.Millisecond
}
