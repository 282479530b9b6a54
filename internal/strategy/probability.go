package strategy

import "github.com/199ocero/PolymarketBTC15mAssistant/internal/domain"

// Probability converts a snapshot's technical state into a heuristic
// estimate of P(UP), then an edge versus the market's UP odds. This is
// the legacy scorer named in spec §4.6 — not ML-based, a weighted blend
// of simple signals clamped into [0,1].
func Probability(snap domain.Snapshot) (probUp, edgeUp, probDown, edgeDown float64) {
	ind := snap.Indicators

	score := 0.5

	// Spot vs VWAP: above session VWAP tilts bullish.
	if ind.SessionVWAP > 0 {
		if snap.SpotPrice > ind.SessionVWAP {
			score += 0.08
		} else {
			score -= 0.08
		}
	}

	// RSI: above 50 tilts bullish, scaled gently so extremes dominate.
	score += (ind.RSI14 - 50) / 500

	// MACD histogram sign and direction.
	if ind.MACD.Hist > 0 {
		score += 0.05
	} else if ind.MACD.Hist < 0 {
		score -= 0.05
	}
	if ind.MACD.Growing() {
		score += 0.03
	} else if ind.MACD.Shrinking() {
		score -= 0.03
	}

	// Heiken-Ashi run: longer same-color runs add conviction, capped.
	runBoost := float64(ind.HeikenAshi.Run) * 0.01
	if runBoost > 0.08 {
		runBoost = 0.08
	}
	if ind.HeikenAshi.Bullish() {
		score += runBoost
	} else {
		score -= runBoost
	}

	// Time-aware adjustment: as the window closes, weight spot-vs-strike
	// diff more heavily since it's closest to the settlement condition.
	remaining := snap.RemainingMin()
	if remaining > 0 {
		diffWeight := 1.0 / (1.0 + remaining/5.0)
		diffSign := 0.0
		if snap.StrikePrice > 0 {
			diffSign = snap.Diff() / snap.StrikePrice
		}
		score += diffSign * diffWeight * 2
	}

	probUp = clamp01(score)
	probDown = 1 - probUp

	edgeUp = probUp - snap.Odds.Up.Price
	if edgeUp < 0 {
		edgeUp = 0
	}
	edgeDown = probDown - snap.Odds.Down.Price
	if edgeDown < 0 {
		edgeDown = 0
	}
	return
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
