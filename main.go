// FILE: main.go
// Package main – Program entrypoint and HTTP/metrics server.
//
// Boot sequence:
//   1) loadBotEnv()               – read .env (no shell exports required)
//   2) cfg := loadConfigFromEnv() – build and validate runtime Config
//   3) wire engine + paper executor (+ ClickHouse when asked)
//   4) start Prometheus /healthz server on cfg.Port
//   5) run backtest / live / Monte Carlo based on flags
//
// Flags:
//   -backtest <csv>    Replay CSV candles (time,open,high,low,close,volume)
//   -ch                Load candles from ClickHouse instead of CSV
//   -from/-to          Candle range for -ch (RFC3339 or YYYY-MM-DD)
//   -live              Run the real-time websocket loop
//   -montecarlo <n>    Bootstrap n simulations after a backtest (0 = off)
//   -seed <n>          RNG seed for -montecarlo (0 = time-based)
//
// Example:
//   go run . -backtest data/nq_5m.csv -montecarlo 1000

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// ---- Flags ----
	var (
		csvBacktest string
		useCH       bool
		live        bool
		mcSims      int
		mcSeed      int64
		fromArg     string
		toArg       string
	)
	flag.StringVar(&csvBacktest, "backtest", "", "Path to CSV candles")
	flag.BoolVar(&useCH, "ch", false, "Backtest from ClickHouse candles")
	flag.BoolVar(&live, "live", false, "Run live websocket loop")
	flag.IntVar(&mcSims, "montecarlo", 0, "Bootstrap simulations after backtest (0 = off)")
	flag.Int64Var(&mcSeed, "seed", 0, "Monte Carlo RNG seed (0 = time-based)")
	flag.StringVar(&fromArg, "from", "", "Range start for -ch")
	flag.StringVar(&toArg, "to", "", "Range end for -ch")
	flag.Parse()

	// ---- Environment & Config ----
	loadBotEnv()
	cfg, err := loadConfigFromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Engine & executor wiring ----
	eng, err := NewEngine(cfg)
	if err != nil {
		log.Fatalf("engine init: %v", err)
	}
	exec := NewPaperExecutor(cfg)

	// ---- HTTP metrics/health ----
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Port), Handler: mux}
	go func() {
		log.Printf("serving metrics on :%d/metrics", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// ---- Run selected mode ----
	switch {
	case live:
		var store *CHStore
		if useCH {
			store, err = openCH(ctx, cfg)
			if err != nil {
				log.Fatalf("clickhouse: %v", err)
			}
			defer store.Close()
			if err := store.EnsureTradeLog(ctx); err != nil {
				log.Fatalf("clickhouse: %v", err)
			}
		}
		if err := runLive(ctx, cfg, eng, exec, store); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("live loop: %v", err)
		}

	case csvBacktest != "" || useCH:
		var candles []Candle
		if useCH {
			from, to, err := parseRange(fromArg, toArg)
			if err != nil {
				log.Fatalf("range: %v", err)
			}
			store, err := openCH(ctx, cfg)
			if err != nil {
				log.Fatalf("clickhouse: %v", err)
			}
			candles, err = store.LoadCandles(ctx, cfg.CHTable, cfg.Symbol, cfg.Interval, from, to)
			store.Close()
			if err != nil {
				log.Fatalf("clickhouse candles: %v", err)
			}
		} else {
			candles, err = loadCSV(csvBacktest)
			if err != nil {
				log.Fatalf("load %s: %v", csvBacktest, err)
			}
			log.Printf("loaded %d candles from %s", len(candles), csvBacktest)
		}

		trades, err := runBacktest(ctx, candles, eng, exec, cfg)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Fatalf("backtest: %v", err)
		}
		rep := buildReport(trades, cfg.StartEquityUSD)
		printReport(rep)

		if mcSims > 0 {
			days := dailyPnL(trades, eng.Schedule().Location())
			seed := mcSeed
			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			mc, err := runMonteCarlo(days, cfg.StartEquityUSD, mcSims, rand.New(rand.NewSource(seed)))
			if err != nil {
				log.Fatalf("monte carlo: %v", err)
			}
			printMonteCarlo(mc)
		}

	default:
		flag.Usage()
		log.Fatal("pick a mode: -backtest <csv>, -ch, or -live")
	}

	// ---- Graceful shutdown for HTTP server ----
	shutdownCtx, c := context.WithTimeout(context.Background(), 2*time.Second)
	defer c()
	_ = srv.Shutdown(shutdownCtx)
}

// parseRange parses -from/-to; an empty from means 90 days back, empty to
// means now.
func parseRange(from, to string) (time.Time, time.Time, error) {
	parse := func(s string, def time.Time) (time.Time, error) {
		if s == "" {
			return def, nil
		}
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t, nil
		}
		if t, err := time.Parse("2006-01-02", s); err == nil {
			return t.UTC(), nil
		}
		return time.Time{}, fmt.Errorf("bad time %q (want RFC3339 or YYYY-MM-DD)", s)
	}
	now := time.Now().UTC()
	f, err := parse(from, now.AddDate(0, 0, -90))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	t, err := parse(to, now)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !f.Before(t) {
		return time.Time{}, time.Time{}, fmt.Errorf("-from must precede -to")
	}
	return f, t, nil
}
