package strategy

import (
	"fmt"

	"github.com/199ocero/PolymarketBTC15mAssistant/internal/domain"
)

// Sniper fires only inside the 0.5-2.0 minute window, ahead of
// Momentum, on a sharp dislocation with an aggressive HA run and a
// confirming RSI extreme. Spec §4.6.
type Sniper struct {
	cfg Config
}

func (s *Sniper) Name() domain.StrategyTag { return domain.StrategySniper }

func (s *Sniper) Evaluate(snap domain.Snapshot, side domain.Side, odds domain.Odds) (domain.Recommendation, bool, string) {
	diff := snap.Diff()
	absDiff := diff
	if absDiff < 0 {
		absDiff = -absDiff
	}
	if absDiff <= s.cfg.SniperDiffUSD {
		return domain.Recommendation{}, false, ""
	}

	ha := snap.Indicators.HeikenAshi
	if ha.Run < s.cfg.SniperMinHARun {
		return domain.Recommendation{}, false, ""
	}

	rsi := snap.Indicators.RSI14

	if side == domain.SideUp {
		if !ha.Bullish() || diff <= 0 || rsi <= 60 {
			return domain.Recommendation{}, false, ""
		}
	} else {
		if ha.Bullish() || diff >= 0 || rsi >= 40 {
			return domain.Recommendation{}, false, ""
		}
	}

	if odds.Price >= 0.90 {
		return domain.Recommendation{}, false, oddsTooHighReason(side, odds.Price)
	}

	probUp, edgeUp, probDown, edgeDown := Probability(snap)
	prob, edge := probUp, edgeUp
	if side == domain.SideDown {
		prob, edge = probDown, edgeDown
	}

	return domain.Recommendation{
		Action:      domain.ActionEnter,
		Side:        side,
		Strategy:    domain.StrategySniper,
		Confidence:  domain.ConfidenceMax,
		Reason:      fmt.Sprintf("sniper_%s_diff_%.2f_harun_%d", side, diff, ha.Run),
		Probability: prob,
		Edge:        edge,
	}, true, ""
}
