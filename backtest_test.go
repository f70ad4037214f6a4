// FILE: backtest_test.go

package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempCSV(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "candles.csv")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func TestLoadCSVBasic(t *testing.T) {
	path := writeTempCSV(t, ""+
		"time,open,high,low,close,volume\n"+
		"2026-03-02T14:40:00Z,100,101,99,100.5,1200\n"+
		"2026-03-02T14:35:00Z,99,100,98,100,1100\n")

	c, err := loadCSV(path)
	if err != nil {
		t.Fatalf("loadCSV: %v", err)
	}
	if len(c) != 2 {
		t.Fatalf("rows = %d, want 2", len(c))
	}
	// Rows come back sorted ascending regardless of file order.
	if !c[0].Time.Before(c[1].Time) {
		t.Fatalf("not sorted: %s vs %s", c[0].Time, c[1].Time)
	}
	if c[1].Close != 100.5 || c[1].Volume != 1200 {
		t.Fatalf("row = %+v", c[1])
	}
}

func TestLoadCSVOrderFlowColumns(t *testing.T) {
	path := writeTempCSV(t, ""+
		"time,open,high,low,close,volume,buy_volume\n"+
		"2026-03-02T14:35:00Z,100,101,99,100.5,1000,650\n")

	c, err := loadCSV(path)
	if err != nil {
		t.Fatalf("loadCSV: %v", err)
	}
	if c[0].BuyVolume != 650 || c[0].SellVolume != 350 {
		t.Fatalf("flow split = %v/%v, want 650/350", c[0].BuyVolume, c[0].SellVolume)
	}
}

func TestLoadCSVUTF8BOMAndUnixSeconds(t *testing.T) {
	path := writeTempCSV(t, "\xEF\xBB\xBF"+
		"timestamp,open,high,low,close,vol\n"+
		"1772462100,100,101,99,100.5,1000\n")

	c, err := loadCSV(path)
	if err != nil {
		t.Fatalf("loadCSV: %v", err)
	}
	if len(c) != 1 {
		t.Fatalf("rows = %d, want 1", len(c))
	}
	if c[0].Time.IsZero() || c[0].Volume != 1000 {
		t.Fatalf("row = %+v", c[0])
	}
}

func TestLoadCSVSkipsBadRows(t *testing.T) {
	path := writeTempCSV(t, ""+
		"time,open,high,low,close,volume\n"+
		"not-a-time,100,101,99,100.5,1000\n"+
		"2026-03-02T14:35:00Z,100,101,99,100.5,1000\n")

	c, err := loadCSV(path)
	if err != nil {
		t.Fatalf("loadCSV: %v", err)
	}
	if len(c) != 1 {
		t.Fatalf("rows = %d, want 1", len(c))
	}
}

// sessionDay synthesizes one venue day of flat 5m bars covering warmup through
// the close, with the entry bar shaped by entryClose.
func sessionDay(t *testing.T, entryClose float64) []Candle {
	t.Helper()
	loc, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Fatalf("tz: %v", err)
	}
	start := time.Date(2026, 3, 2, 6, 0, 0, 0, loc)
	var out []Candle
	for ts := start; !ts.After(time.Date(2026, 3, 2, 14, 50, 0, 0, loc)); ts = ts.Add(5 * time.Minute) {
		c := Candle{Time: ts, Open: 100, High: 101, Low: 99, Close: 100, Volume: 1000}
		if ts.Hour() == 8 && ts.Minute() == 35 {
			c.Close = entryClose
			if entryClose > c.High {
				c.High = entryClose
			}
			if entryClose < c.Low {
				c.Low = entryClose
			}
		}
		out = append(out, c)
	}
	return out
}

func TestRunBacktestFullSessionRoundTrip(t *testing.T) {
	cfg := testConfig()
	eng := newTestEngine(t, cfg)
	exec := NewPaperExecutor(cfg)

	trades, err := runBacktest(context.Background(), sessionDay(t, 102), eng, exec, cfg)
	if err != nil {
		t.Fatalf("runBacktest: %v", err)
	}
	// Quiet tape: one opening long, flattened at the session close.
	if len(trades) != 1 {
		t.Fatalf("trades = %d, want 1", len(trades))
	}
	tr := trades[0]
	if tr.Side != SideBuy || tr.Reason != ReasonSessionClose {
		t.Fatalf("trade = %+v", tr)
	}
	if math.Abs(tr.EntryPrice-102) > 1e-9 {
		t.Fatalf("entry price = %v, want 102", tr.EntryPrice)
	}
}

func TestRunBacktestTooFewCandles(t *testing.T) {
	cfg := testConfig()
	eng := newTestEngine(t, cfg)
	if _, err := runBacktest(context.Background(), sessionDay(t, 102)[:5], eng, NewPaperExecutor(cfg), cfg); err == nil {
		t.Fatalf("short series accepted")
	}
}

func TestParseTimeFlexible(t *testing.T) {
	cases := []string{
		"2026-03-02T14:35:00Z",
		"2026-03-02 14:35:00",
		fmt.Sprintf("%d", time.Date(2026, 3, 2, 14, 35, 0, 0, time.UTC).Unix()),
	}
	want := time.Date(2026, 3, 2, 14, 35, 0, 0, time.UTC)
	for _, s := range cases {
		got, err := parseTimeFlexible(s)
		if err != nil {
			t.Fatalf("parse %q: %v", s, err)
		}
		if !got.Equal(want) {
			t.Fatalf("parse %q = %s, want %s", s, got, want)
		}
	}
	if _, err := parseTimeFlexible("yesterday"); err == nil {
		t.Fatalf("junk time accepted")
	}
}
