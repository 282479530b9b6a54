package strategy

import (
	"fmt"

	"github.com/199ocero/PolymarketBTC15mAssistant/internal/domain"
)

// MeanReversion is the legacy scalping strategy from the original
// scalpStrategy.js: fires when price has drifted far from session VWAP
// and RSI is in an extreme, betting on a snap back toward the mean.
// Spec §2/§9 disables it by default — the Evaluator's time-bucket
// dispatch table never calls it — but its exit rules in the paper
// trader (take-profit at price >= 0.50, time-stop at timeLeftMin <= 3)
// stay live so positions opened under it historically, or migrated from
// an older state file, still settle correctly.
type MeanReversion struct {
	cfg Config
}

func (m *MeanReversion) Name() domain.StrategyTag { return domain.StrategyMeanReversion }

// Evaluate requires spot to have drifted at least 2x the momentum
// threshold below/above session VWAP, with RSI confirming an extreme in
// the opposite direction of the drift (oversold dip -> bet UP reversion,
// overbought spike -> bet DOWN reversion).
func (m *MeanReversion) Evaluate(snap domain.Snapshot, side domain.Side, odds domain.Odds) (domain.Recommendation, bool, string) {
	vwap := snap.Indicators.SessionVWAP
	if vwap <= 0 {
		return domain.Recommendation{}, false, ""
	}
	driftFromVWAP := snap.SpotPrice - vwap
	threshold := m.cfg.MomentumDiffUSD * 2

	rsi := snap.Indicators.RSI14

	if side == domain.SideUp {
		if driftFromVWAP >= -threshold || rsi >= 30 {
			return domain.Recommendation{}, false, ""
		}
	} else {
		if driftFromVWAP <= threshold || rsi <= 70 {
			return domain.Recommendation{}, false, ""
		}
	}

	if !oddsGateOK(odds.Price, m.cfg.MinOddsEdge) {
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
		Strategy:    domain.StrategyMeanReversion,
		Confidence:  domain.ConfidenceMedium,
		Reason:      fmt.Sprintf("mean_reversion_%s_drift_%.2f", side, driftFromVWAP),
		Probability: prob,
		Edge:        edge,
	}, true, ""
}
