package strategy

import (
	"fmt"

	"github.com/199ocero/PolymarketBTC15mAssistant/internal/domain"
)

// LateWindow fires only in the closing minutes (1.0-1.5 min remaining,
// evaluated when Sniper/Momentum decline) on a large, low-volatility
// dislocation with a long matching HA run. Spec §4.6.
type LateWindow struct {
	cfg Config
}

func (l *LateWindow) Name() domain.StrategyTag { return domain.StrategyLateWindow }

func (l *LateWindow) Evaluate(snap domain.Snapshot, side domain.Side, odds domain.Odds) (domain.Recommendation, bool, string) {
	diff := snap.Diff()
	if diff < 0 {
		diff = -diff
	}
	if diff <= l.cfg.LateWindowDiffUSD {
		return domain.Recommendation{}, false, ""
	}
	if snap.Volatility5 > l.cfg.LateWindowMaxVol {
		return domain.Recommendation{}, false, ""
	}

	ha := snap.Indicators.HeikenAshi
	if ha.Run < l.cfg.LateWindowMinHARun {
		return domain.Recommendation{}, false, ""
	}
	if side == domain.SideUp && (!ha.Bullish() || snap.Diff() <= 0) {
		return domain.Recommendation{}, false, ""
	}
	if side == domain.SideDown && (ha.Bullish() || snap.Diff() >= 0) {
		return domain.Recommendation{}, false, ""
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
		Strategy:    domain.StrategyLateWindow,
		Confidence:  domain.ConfidenceVeryHigh,
		Reason:      fmt.Sprintf("late_window_%s_diff_%.2f_harun_%d", side, diff, ha.Run),
		Probability: prob,
		Edge:        edge,
	}, true, ""
}
