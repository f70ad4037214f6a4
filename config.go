// FILE: config.go
// Package main – Runtime configuration model and loader.
//
// This file defines the Config struct (all the knobs the bot uses) and a
// helper to populate it from environment variables. The .env file is read by
// loadBotEnv() (see env.go), so you can tune behavior without exports.
//
// Typical flow (see main.go):
//   loadBotEnv()
//   cfg, err := loadConfigFromEnv()
//
// Invalid parameter ranges are rejected here, at construction — the engine
// never re-validates at evaluation time.

package main

import "fmt"

// Config holds all runtime knobs for the strategy and operations.
type Config struct {
	// Instrument
	Symbol     string  // venue symbol, e.g. "MNQZ5" or "btcusdt" for the ws feed
	Interval   string  // bar period, e.g. "5m"
	PointValue float64 // currency per index point per contract (MNQ: $2)

	// Strategy
	DailyLossLimitUSD  float64 // one-way daily circuit breaker floor
	ContractSize       int     // fixed contracts per entry/reversal
	TrailATRMult       float64 // reversal distance in ATR multiples
	VolMultiplier      float64 // volume-spike threshold vs average volume
	ATRLength          int
	VolAvgLength       int
	UseOrderFlowFilter bool    // gate entries on the aggressive-volume split
	OrderFlowRatio     float64 // required dominance of the entry-side flow

	// Session (wall clock in the venue timezone; bar COMPLETION times)
	SessionTZ    string // e.g. "America/Chicago"
	SessionEntry string // "HH:MM" — session open + one bar period
	SessionClose string // "HH:MM" — forced flatten instant

	// Execution simulation
	CommissionPerSide float64 // currency per contract per side
	StartEquityUSD    float64

	// Ops
	Port      int
	StateFile string // "" disables persistence
	Debug     bool

	// Live feed (Binance futures kline websocket)
	FeedURL string

	// ClickHouse candle/trade storage (empty DSN disables)
	ClickHouseDSN string
	CHDatabase    string
	CHTable       string
	CHUser        string
	CHPassword    string
}

// loadConfigFromEnv reads the process env (already hydrated by loadBotEnv())
// and returns a validated Config.
func loadConfigFromEnv() (Config, error) {
	cfg := Config{
		Symbol:     getEnv("SYMBOL", "MNQ"),
		Interval:   getEnv("INTERVAL", "5m"),
		PointValue: getEnvFloat("POINT_VALUE", 2.0),

		DailyLossLimitUSD:  getEnvFloat("DAILY_LOSS_LIMIT_USD", 200.0),
		ContractSize:       getEnvInt("CONTRACT_SIZE", 1),
		TrailATRMult:       getEnvFloat("TRAIL_ATR_MULT", 3.0),
		VolMultiplier:      getEnvFloat("VOL_SPIKE_MULT", 3.0),
		ATRLength:          getEnvInt("ATR_LENGTH", 14),
		VolAvgLength:       getEnvInt("VOL_AVG_LENGTH", 20),
		UseOrderFlowFilter: getEnvBool("USE_ORDER_FLOW_FILTER", false),
		OrderFlowRatio:     getEnvFloat("ORDER_FLOW_RATIO", 1.2),

		SessionTZ:    getEnv("SESSION_TZ", "America/Chicago"),
		SessionEntry: getEnv("SESSION_ENTRY", "08:35"),
		SessionClose: getEnv("SESSION_CLOSE", "14:45"),

		CommissionPerSide: getEnvFloat("COMMISSION_PER_SIDE", 0.60),
		StartEquityUSD:    getEnvFloat("START_EQUITY_USD", 5000.0),

		Port:      getEnvInt("PORT", 8080),
		StateFile: getEnv("STATE_FILE", ""),
		Debug:     getEnvBool("DEBUG", true),

		FeedURL: getEnv("FEED_URL", "wss://fstream.binance.com/ws"),

		ClickHouseDSN: getEnv("CLICKHOUSE_DSN", ""),
		CHDatabase:    getEnv("CH_DATABASE", "trading"),
		CHTable:       getEnv("CH_TABLE", "candles"),
		CHUser:        getEnv("CH_USER", "default"),
		CHPassword:    getEnv("CH_PASSWORD", ""),
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// validate enforces the documented parameter ranges.
func (c Config) validate() error {
	if c.DailyLossLimitUSD <= 0 {
		return fmt.Errorf("DAILY_LOSS_LIMIT_USD must be > 0, got %v", c.DailyLossLimitUSD)
	}
	if c.ContractSize < 1 {
		return fmt.Errorf("CONTRACT_SIZE must be >= 1, got %d", c.ContractSize)
	}
	if c.TrailATRMult <= 0 {
		return fmt.Errorf("TRAIL_ATR_MULT must be > 0, got %v", c.TrailATRMult)
	}
	if c.VolMultiplier <= 0 {
		return fmt.Errorf("VOL_SPIKE_MULT must be > 0, got %v", c.VolMultiplier)
	}
	if c.ATRLength < 1 {
		return fmt.Errorf("ATR_LENGTH must be >= 1, got %d", c.ATRLength)
	}
	if c.VolAvgLength < 1 {
		return fmt.Errorf("VOL_AVG_LENGTH must be >= 1, got %d", c.VolAvgLength)
	}
	if c.OrderFlowRatio <= 0 {
		return fmt.Errorf("ORDER_FLOW_RATIO must be > 0, got %v", c.OrderFlowRatio)
	}
	if c.PointValue <= 0 {
		return fmt.Errorf("POINT_VALUE must be > 0, got %v", c.PointValue)
	}
	// Session strings and TZ are validated when the schedule is built
	// (NewEngine), which also happens before any bar is processed.
	return nil
}
