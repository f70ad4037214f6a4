// FILE: montecarlo.go
// Package main – bootstrap resampling of daily P&L.
//
// Resamples the realized daily P&L series with replacement to estimate the
// distribution of outcomes over the same horizon: final equity spread,
// drawdown tail, and risk of ruin (equity falling under half the start).

package main

import (
	"fmt"
	"log"
	"math/rand"
	"sort"
)

// MonteCarloResult holds the summary of a bootstrap run.
type MonteCarloResult struct {
	Simulations     int     `json:"simulations"`
	Days            int     `json:"days"`
	MeanFinalEquity float64 `json:"mean_final_equity"`
	BestFinalEquity float64 `json:"best_final_equity"`
	WorstFinal      float64 `json:"worst_final_equity"`
	MedianFinal     float64 `json:"median_final_equity"`
	DD95            float64 `json:"dd_95th_pct"`
	RiskOfRuin      float64 `json:"risk_of_ruin"`
}

// runMonteCarlo bootstraps dayPnL (sampled with replacement, same length)
// sims times from startEquity. rng is injected so runs are reproducible.
func runMonteCarlo(dayPnL []float64, startEquity float64, sims int, rng *rand.Rand) (MonteCarloResult, error) {
	if len(dayPnL) == 0 {
		return MonteCarloResult{}, fmt.Errorf("no daily P&L to resample")
	}
	if sims < 1 {
		return MonteCarloResult{}, fmt.Errorf("simulations must be >= 1, got %d", sims)
	}

	res := MonteCarloResult{Simulations: sims, Days: len(dayPnL)}
	finals := make([]float64, 0, sims)
	dds := make([]float64, 0, sims)
	ruinFloor := startEquity * 0.5
	ruined := 0

	for s := 0; s < sims; s++ {
		equity := startEquity
		peak := startEquity
		maxDD := 0.0
		hitRuin := false
		for d := 0; d < len(dayPnL); d++ {
			equity += dayPnL[rng.Intn(len(dayPnL))]
			if equity > peak {
				peak = equity
			}
			if dd := peak - equity; dd > maxDD {
				maxDD = dd
			}
			if equity < ruinFloor {
				hitRuin = true
			}
		}
		finals = append(finals, equity)
		dds = append(dds, maxDD)
		if hitRuin {
			ruined++
		}
	}

	sort.Float64s(finals)
	sort.Float64s(dds)

	sum := 0.0
	for _, f := range finals {
		sum += f
	}
	res.MeanFinalEquity = sum / float64(sims)
	res.WorstFinal = finals[0]
	res.BestFinalEquity = finals[sims-1]
	res.MedianFinal = percentile(finals, 0.50)
	res.DD95 = percentile(dds, 0.95)
	res.RiskOfRuin = float64(ruined) / float64(sims)
	return res, nil
}

// percentile reads the p-quantile from an ascending slice (nearest-rank).
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}

// printMonteCarlo writes the result to the standard logger.
func printMonteCarlo(r MonteCarloResult) {
	log.Printf("[MC] sims=%d days=%d", r.Simulations, r.Days)
	log.Printf("[MC] final equity mean=%.2f median=%.2f best=%.2f worst=%.2f",
		r.MeanFinalEquity, r.MedianFinal, r.BestFinalEquity, r.WorstFinal)
	log.Printf("[MC] maxDD p95=%.2f riskOfRuin=%.2f%%", r.DD95, r.RiskOfRuin*100)
}
