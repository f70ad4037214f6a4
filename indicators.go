// FILE: indicators.go
// Package main – Technical indicators feeding the engine.
//
// This file implements the two rolling values the strategy consumes:
//   • ATR(c, n)        – Average True Range with Wilder's smoothing
//   • VolumeSMA(c, n)  – Simple moving average of bar volume
//
// Notes
//   - All functions accept a slice of Candle (defined in strategy.go).
//   - Outputs are aligned to input length; indices before the first full
//     window are NaN. Runners must skip NaN snapshots; the engine rejects
//     non-finite indicator values by contract.
//   - Keep these fast and allocation-light; they're recomputed on every live
//     bar over the rolling history window.

package main

import "math"

// trueRange is max(high-low, |high-prevClose|, |low-prevClose|).
func trueRange(cur, prev Candle) float64 {
	tr := cur.High - cur.Low
	if v := math.Abs(cur.High - prev.Close); v > tr {
		tr = v
	}
	if v := math.Abs(cur.Low - prev.Close); v > tr {
		tr = v
	}
	return tr
}

// ATR returns the n-period Average True Range using Wilder's smoothing,
// aligned to c. Indices < n are NaN (the first TR needs a previous close).
func ATR(c []Candle, n int) []float64 {
	out := make([]float64, len(c))
	for i := range out {
		out[i] = math.NaN()
	}
	if n <= 0 || len(c) <= n {
		return out
	}

	var sum float64
	for i := 1; i <= n; i++ {
		sum += trueRange(c[i], c[i-1])
	}
	atr := sum / float64(n)
	out[n] = atr
	for i := n + 1; i < len(c); i++ {
		atr = (atr*float64(n-1) + trueRange(c[i], c[i-1])) / float64(n)
		out[i] = atr
	}
	return out
}

// VolumeSMA returns the n-period simple moving average of Volume, aligned to
// c. Indices < n-1 are NaN.
func VolumeSMA(c []Candle, n int) []float64 {
	out := make([]float64, len(c))
	if n <= 0 || len(c) == 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	var sum float64
	for i := range c {
		sum += c[i].Volume
		if i >= n {
			sum -= c[i-n].Volume
		}
		if i >= n-1 {
			out[i] = sum / float64(n)
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// warmupBars is the first index at which both indicator streams are finite.
func warmupBars(atrLen, volLen int) int {
	w := atrLen + 1
	if volLen > w {
		w = volLen
	}
	return w
}
