// FILE: backtest.go
// Package main – CSV loader and the bar-by-bar backtest driver.
//
// What's here:
//   • loadCSV(path) -> []Candle : reads time,open,high,low,close,volume with
//     optional buy_volume/sell_volume (or taker_base) columns for the
//     order-flow split. UTF-16 exports (BOM) are decoded transparently.
//   • runBacktest(ctx, candles, engine, exec, cfg): precomputes ATR/volume
//     SMA, replays bars through the engine, routes intents into the
//     executor, and returns the final trade log.
//
// Notes:
//   • Time column accepts RFC3339, "2006-01-02 15:04:05" or UNIX seconds,
//     and must be the bar completion time.
//   • Unknown columns are ignored; headers are case-insensitive.

package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// bomAwareReader wraps r with a UTF-16 decoder when a UTF-16 BOM is present,
// and strips a UTF-8 BOM otherwise. Some venue exports arrive UTF-16LE.
func bomAwareReader(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	head, _ := br.Peek(3)
	switch {
	case len(head) >= 2 && head[0] == 0xFF && head[1] == 0xFE:
		return transform.NewReader(br, unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder())
	case len(head) >= 2 && head[0] == 0xFE && head[1] == 0xFF:
		return transform.NewReader(br, unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder())
	case len(head) >= 3 && head[0] == 0xEF && head[1] == 0xBB && head[2] == 0xBF:
		_, _ = br.Discard(3)
	}
	return br
}

// loadCSV reads a generic candle CSV with headers:
// time|timestamp, open, high, low, close, volume[, buy_volume|taker_base, sell_volume]
func loadCSV(path string) ([]Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(bomAwareReader(f))
	r.FieldsPerRecord = -1

	var out []Candle
	var headers []string
	rowIdx := 0

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if rowIdx == 0 {
			headers = rec
			rowIdx++
			continue
		}
		row := map[string]string{}
		for j, h := range headers {
			k := strings.ToLower(strings.TrimSpace(h))
			if j < len(rec) {
				row[k] = strings.TrimSpace(rec[j])
			}
		}
		ts := first(row, "time", "timestamp")
		op := first(row, "open")
		cp := first(row, "close")
		if ts == "" || op == "" || cp == "" {
			continue
		}
		tt, err := parseTimeFlexible(ts)
		if err != nil {
			continue
		}
		o, _ := strconv.ParseFloat(op, 64)
		h, _ := strconv.ParseFloat(first(row, "high"), 64)
		l, _ := strconv.ParseFloat(first(row, "low"), 64)
		c, _ := strconv.ParseFloat(cp, 64)
		v, _ := strconv.ParseFloat(first(row, "volume", "vol"), 64)

		cd := Candle{Time: tt, Open: o, High: h, Low: l, Close: c, Volume: v}
		if bv := first(row, "buy_volume", "taker_base"); bv != "" {
			b, _ := strconv.ParseFloat(bv, 64)
			cd.BuyVolume = b
			if sv := first(row, "sell_volume"); sv != "" {
				s, _ := strconv.ParseFloat(sv, 64)
				cd.SellVolume = s
			} else if v >= b {
				cd.SellVolume = v - b
			}
		}
		out = append(out, cd)
		rowIdx++
	}

	sortCandles(out)
	return out, nil
}

// parseTimeFlexible supports RFC3339, "2006-01-02 15:04:05" (UTC) or UNIX seconds.
func parseTimeFlexible(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if ts, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return ts.UTC(), nil
	}
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(sec, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("bad time: %s", s)
}

// sortCandles ensures ascending time.
func sortCandles(c []Candle) {
	sort.Slice(c, func(i, j int) bool { return c[i].Time.Before(c[j].Time) })
}

// first returns the first non-empty value for keys in m.
func first(m map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := m[k]; v != "" {
			return v
		}
	}
	return ""
}

// runBacktest replays the candle series through the engine and executor.
// Bars inside the indicator warmup window are skipped (the engine rejects
// non-finite snapshots by contract). Returns the closed-trade log.
func runBacktest(ctx context.Context, candles []Candle, eng *Engine, exec Executor, cfg Config) ([]ClosedTrade, error) {
	warm := warmupBars(cfg.ATRLength, cfg.VolAvgLength)
	if len(candles) <= warm {
		return nil, fmt.Errorf("need more than %d candles for warmup, have %d", warm, len(candles))
	}

	atr := ATR(candles, cfg.ATRLength)
	volMA := VolumeSMA(candles, cfg.VolAvgLength)
	sched := eng.Schedule()

	tradesSeen := 0
	for i := warm; i < len(candles); i++ {
		select {
		case <-ctx.Done():
			log.Println("backtest canceled")
			return exec.Trades(), ctx.Err()
		default:
		}

		c := candles[i]
		unrealized := exec.Unrealized(c)
		realized := exec.RealizedSince(sched.DayAnchor(c.Time))

		d, err := eng.Step(c, IndicatorSnapshot{ATR: atr[i], AvgVolume: volMA[i]}, realized, unrealized)
		if err != nil {
			return exec.Trades(), fmt.Errorf("bar %d: %w", i, err)
		}

		mtxBars.WithLabelValues(sched.Phase(c.Time).String()).Inc()
		mtxDayPnL.Set(realized + unrealized)

		if d.Intent != IntentNone {
			if cfg.Debug {
				log.Printf("[BT] %s %s reason=%s close=%.2f", c.Time.Format("2006-01-02 15:04"), d.Intent, d.Reason, c.Close)
			}
			recordDecision(d)
			if err := exec.Apply(ctx, d, c); err != nil {
				return exec.Trades(), fmt.Errorf("apply %s at bar %d: %w", d.Intent, i, err)
			}
			for _, t := range exec.Trades()[tradesSeen:] {
				recordTrade(t)
				tradesSeen++
				if cfg.Debug {
					log.Printf("[BT] trade closed: %s %d@%.2f -> %.2f P/L=%.2f (%s)",
						t.Side, t.Contracts, t.EntryPrice, t.ExitPrice, t.PnLUSD, t.Reason)
				}
			}
		}
		mtxPnL.Set(exec.EquityUSD())
	}

	return exec.Trades(), nil
}
