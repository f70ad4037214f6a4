// FILE: feed_ws.go
// Package main – websocket candle feed (Binance futures kline stream).
//
// Streams <symbol>@kline_<interval> and emits one Candle per COMPLETED bar
// (k.x == true), stamped with the bar close time. Taker buy volume ("V")
// gives the buy side of the order-flow split; sell = total - buy.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// KlineFeed holds a single websocket connection to the kline stream.
type KlineFeed struct {
	url      string
	symbol   string
	interval string

	conn *websocket.Conn
	bars chan Candle
	done chan struct{}

	readTimeout  time.Duration
	writeTimeout time.Duration
	pingEvery    time.Duration
}

// NewKlineFeed prepares a feed for one symbol/interval pair. Call Connect
// to dial and start pumping.
func NewKlineFeed(url, symbol, interval string) *KlineFeed {
	return &KlineFeed{
		url:          url,
		symbol:       strings.ToLower(symbol),
		interval:     interval,
		bars:         make(chan Candle, 64),
		done:         make(chan struct{}),
		readTimeout:  90 * time.Second,
		writeTimeout: 10 * time.Second,
		pingEvery:    30 * time.Second,
	}
}

// Bars is the completed-candle stream. Closed when the connection drops.
func (f *KlineFeed) Bars() <-chan Candle { return f.bars }

// Connect dials, subscribes, and starts the read/ping pumps. The caller
// owns reconnect policy: when Bars() closes, build a new feed and retry.
func (f *KlineFeed) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return fmt.Errorf("feed dial %s: %w", f.url, err)
	}
	f.conn = conn
	log.Printf("[FEED] connected %s", f.url)

	sub := map[string]interface{}{
		"method": "SUBSCRIBE",
		"params": []string{f.symbol + "@kline_" + f.interval},
		"id":     time.Now().Unix(),
	}
	payload, _ := json.Marshal(sub)
	conn.SetWriteDeadline(time.Now().Add(f.writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		conn.Close()
		return fmt.Errorf("feed subscribe: %w", err)
	}
	log.Printf("[FEED] subscribed %s@kline_%s", f.symbol, f.interval)

	go f.readPump(ctx)
	go f.pingPump(ctx)
	return nil
}

// Close tears the connection down; safe to call more than once.
func (f *KlineFeed) Close() {
	select {
	case <-f.done:
	default:
		close(f.done)
	}
	if f.conn != nil {
		f.conn.Close()
	}
}

func (f *KlineFeed) pingPump(ctx context.Context) {
	t := time.NewTicker(f.pingEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-f.done:
			return
		case <-t.C:
			f.conn.SetWriteDeadline(time.Now().Add(f.writeTimeout))
			if err := f.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (f *KlineFeed) readPump(ctx context.Context) {
	defer close(f.bars)
	defer f.conn.Close()

	f.conn.SetReadLimit(1 << 20)
	f.conn.SetReadDeadline(time.Now().Add(f.readTimeout))
	f.conn.SetPongHandler(func(string) error {
		f.conn.SetReadDeadline(time.Now().Add(f.readTimeout))
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return
		case <-f.done:
			return
		default:
		}
		_, raw, err := f.conn.ReadMessage()
		if err != nil {
			log.Printf("[FEED] read: %v", err)
			return
		}
		f.conn.SetReadDeadline(time.Now().Add(f.readTimeout))

		c, ok, err := parseKline(raw)
		if err != nil {
			log.Printf("[FEED] parse: %v", err)
			continue
		}
		if !ok {
			continue // subscribe ack or bar still forming
		}
		select {
		case f.bars <- c:
		case <-ctx.Done():
			return
		case <-f.done:
			return
		}
	}
}

// klineEvent mirrors the fields we use from the kline payload.
type klineEvent struct {
	Event string `json:"e"`
	// Declared so the numeric event-time key "E" is not case-insensitively
	// matched into the string field tagged "e".
	EventTime int64 `json:"E"`
	K         struct {
		CloseTime int64  `json:"T"` // bar close, ms
		Open      string `json:"o"`
		High      string `json:"h"`
		Low       string `json:"l"`
		Close     string `json:"c"`
		Volume    string `json:"v"`
		TakerBuy  string `json:"V"`
		Final     bool   `json:"x"`
	} `json:"k"`
}

// parseKline returns (candle, true, nil) only for completed bars.
func parseKline(raw []byte) (Candle, bool, error) {
	var ev klineEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return Candle{}, false, err
	}
	if ev.Event != "kline" || !ev.K.Final {
		return Candle{}, false, nil
	}
	var vals [6]float64
	for i, f := range [...]struct{ name, raw string }{
		{"open", ev.K.Open}, {"high", ev.K.High}, {"low", ev.K.Low},
		{"close", ev.K.Close}, {"volume", ev.K.Volume}, {"takerBuy", ev.K.TakerBuy},
	} {
		n, err := strconv.ParseFloat(f.raw, 64)
		if err != nil {
			return Candle{}, false, fmt.Errorf("%s %q: %w", f.name, f.raw, err)
		}
		vals[i] = n
	}
	o, h, l, c, v, buy := vals[0], vals[1], vals[2], vals[3], vals[4], vals[5]

	sell := v - buy
	if sell < 0 {
		sell = 0
	}
	return Candle{
		// +1ms so the stamp lands on the bar boundary, not 1ms before it
		Time:       time.UnixMilli(ev.K.CloseTime + 1).UTC(),
		Open:       o,
		High:       h,
		Low:        l,
		Close:      c,
		Volume:     v,
		BuyVolume:  buy,
		SellVolume: sell,
	}, true, nil
}
