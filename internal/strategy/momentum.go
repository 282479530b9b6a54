package strategy

import (
	"fmt"
	"strings"

	"github.com/199ocero/PolymarketBTC15mAssistant/internal/domain"
)

// Momentum fires on sustained directional movement away from strike,
// confirmed by MACD growth, trend-aligned indicators, and RSI in a
// non-extreme band. Spec §4.6.
type Momentum struct {
	cfg Config
}

func (m *Momentum) Name() domain.StrategyTag { return domain.StrategyMomentum }

func (m *Momentum) Evaluate(snap domain.Snapshot, side domain.Side, odds domain.Odds) (domain.Recommendation, bool, string) {
	diff := snap.Diff()
	candles := snap.Indicators

	if candles.CandleCount < 2 {
		return domain.Recommendation{}, false, ""
	}

	if side == domain.SideUp {
		if diff <= m.cfg.MomentumDiffUSD {
			return domain.Recommendation{}, false, ""
		}
		if !(candles.LastClose > snap.StrikePrice && candles.PriorClose > snap.StrikePrice) {
			return domain.Recommendation{}, false, ""
		}
		if !(candles.MACD.Hist > candles.MACD.HistPrev && candles.MACD.HistPrev > 0) {
			return domain.Recommendation{}, false, ""
		}
		if !(snap.SpotPrice > candles.EMA21) {
			return domain.Recommendation{}, false, ""
		}
		if !(candles.HeikenAshi.Bullish() && candles.HeikenAshi.Run >= 2) {
			return domain.Recommendation{}, false, ""
		}
		if !(candles.RSI14 >= 40 && candles.RSI14 <= 80) {
			return domain.Recommendation{}, false, ""
		}
	} else {
		if diff >= -m.cfg.MomentumDiffUSD {
			return domain.Recommendation{}, false, ""
		}
		if !(candles.LastClose < snap.StrikePrice && candles.PriorClose < snap.StrikePrice) {
			return domain.Recommendation{}, false, ""
		}
		if !(candles.MACD.Hist < candles.MACD.HistPrev && candles.MACD.HistPrev < 0) {
			return domain.Recommendation{}, false, ""
		}
		if !(snap.SpotPrice < candles.EMA21) {
			return domain.Recommendation{}, false, ""
		}
		if !(!candles.HeikenAshi.Bullish() && candles.HeikenAshi.Run >= 2) {
			return domain.Recommendation{}, false, ""
		}
		if !(candles.RSI14 >= 20 && candles.RSI14 <= 60) {
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
		Strategy:    domain.StrategyMomentum,
		Confidence:  domain.ConfidenceHigh,
		Reason:      fmt.Sprintf("momentum_%s_diff_%.2f", side, diff),
		Probability: prob,
		Edge:        edge,
	}, true, ""
}

// oddsGateOK applies the shared odds gate: side odds must be below 0.85
// and below 1 - minOddsEdge.
func oddsGateOK(price, minOddsEdge float64) bool {
	return price < 0.85 && price < 1-minOddsEdge
}

// oddsTooHighReason formats the blocked-by-odds diagnostic, e.g.
// "odds_too_high_up_0.88" (spec §8 scenario 4).
func oddsTooHighReason(side domain.Side, price float64) string {
	return fmt.Sprintf("odds_too_high_%s_%.2f", strings.ToLower(string(side)), price)
}
