package paper

import "github.com/199ocero/PolymarketBTC15mAssistant/internal/domain"

// stakeFor decides the USDC stake for a new position. When Kelly
// sizing is enabled and the recommendation carries a probability
// estimate, size by Kelly; otherwise fall back to a fixed bet per
// strategy tag.
func (t *Trader) stakeFor(rec domain.Recommendation, price float64) float64 {
	if t.cfg.UseKelly && rec.Probability > 0 {
		return t.kellyStake(t.state.Balance, rec.Probability, price)
	}
	switch rec.Strategy {
	case domain.StrategyLateWindow:
		return t.cfg.FixedBetLateWindow
	case domain.StrategyMomentum:
		return t.cfg.FixedBetMomentum
	case domain.StrategyMeanReversion:
		return t.cfg.FixedBetMeanReversion
	default:
		return t.cfg.FixedBetFallback
	}
}
