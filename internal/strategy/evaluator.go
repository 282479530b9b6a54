// Package strategy implements the time-bucketed decision tree that
// turns a Snapshot into an ENTER/NO_TRADE recommendation.
package strategy

import (
	"fmt"

	"github.com/199ocero/PolymarketBTC15mAssistant/internal/domain"
)

// Strategy evaluates a snapshot for one side of the market and
// returns a recommendation for that side, or ok=false when its
// preconditions aren't met. When ok is false, reason carries a
// diagnostic for the first gate that blocked entry when the strategy
// bothered to compute one (the odds gate always does); it is empty
// when an earlier structural gate already ruled the side out.
type Strategy interface {
	// Name identifies the strategy for logging and the recommendation tag.
	Name() domain.StrategyTag
	// Evaluate checks entry conditions for side against snap and odds.
	Evaluate(snap domain.Snapshot, side domain.Side, odds domain.Odds) (rec domain.Recommendation, ok bool, reason string)
}

// Config holds the tunable thresholds for every strategy, defaulted
// from spec §4.6.
type Config struct {
	MinCandles          int
	MinOddsEdge         float64
	MomentumDiffUSD     float64
	LateWindowDiffUSD   float64
	LateWindowMaxVol    float64
	LateWindowMinHARun  int
	SniperDiffUSD       float64
	SniperMinHARun      int
}

// DefaultConfig returns the thresholds named in spec §4.6.
func DefaultConfig() Config {
	return Config{
		MinCandles:         30,
		MinOddsEdge:        0.10,
		MomentumDiffUSD:    50,
		LateWindowDiffUSD:  300,
		LateWindowMaxVol:   80,
		LateWindowMinHARun: 5,
		SniperDiffUSD:      80,
		SniperMinHARun:     6,
	}
}

// Evaluator dispatches to Sniper/Momentum/LateWindow based on the time
// remaining in the market, per spec §4.6's time-bucket table.
type Evaluator struct {
	cfg      Config
	sniper   *Sniper
	momentum *Momentum
	late     *LateWindow
}

// NewEvaluator builds an evaluator with the given thresholds.
func NewEvaluator(cfg Config) *Evaluator {
	return &Evaluator{
		cfg:      cfg,
		sniper:   &Sniper{cfg: cfg},
		momentum: &Momentum{cfg: cfg},
		late:     &LateWindow{cfg: cfg},
	}
}

// Evaluate runs the full decision tree over a snapshot for both sides
// and returns the single best recommendation (or NO_TRADE).
func (e *Evaluator) Evaluate(snap domain.Snapshot) domain.Recommendation {
	if snap.Indicators.CandleCount < e.cfg.MinCandles {
		return domain.Recommendation{Action: domain.ActionNoTrade, Reason: "missing_data"}
	}
	if snap.Odds.Up.Price <= 0 || snap.Odds.Up.Price >= 1 || snap.Odds.Down.Price <= 0 || snap.Odds.Down.Price >= 1 {
		return domain.Recommendation{Action: domain.ActionNoTrade, Reason: "missing_data"}
	}

	remaining := snap.RemainingMin()

	switch {
	case remaining >= 0.5 && remaining <= 2.0:
		var blocked string
		if rec, ok, reason := e.tryBoth(e.sniper, snap); ok {
			return rec
		} else if blocked == "" {
			blocked = reason
		}
		if rec, ok, reason := e.tryBoth(e.momentum, snap); ok {
			return rec
		} else if blocked == "" {
			blocked = reason
		}
		if remaining >= 1.0 && remaining <= 1.5 {
			if rec, ok, reason := e.tryBoth(e.late, snap); ok {
				return rec
			} else if blocked == "" {
				blocked = reason
			}
		}
		if blocked == "" {
			blocked = "no_setup"
		}
		return domain.Recommendation{Action: domain.ActionNoTrade, Reason: blocked}

	case remaining < 0.5:
		return domain.Recommendation{Action: domain.ActionNoTrade, Reason: fmt.Sprintf("window_closing_%.2fmin", remaining)}

	default: // remaining > 2.0
		if rec, ok, reason := e.tryBoth(e.momentum, snap); ok {
			return rec
		} else if reason != "" {
			return domain.Recommendation{Action: domain.ActionNoTrade, Reason: reason}
		}
		return domain.Recommendation{Action: domain.ActionNoTrade, Reason: "no_setup"}
	}
}

// tryBoth evaluates a strategy for both UP and DOWN and returns whichever
// side fires first (UP checked first, matching the spec's UP-then-mirror
// presentation of every strategy's gates). When neither side fires, the
// first non-empty blocked-gate reason is passed up for diagnostics.
func (e *Evaluator) tryBoth(s Strategy, snap domain.Snapshot) (domain.Recommendation, bool, string) {
	if rec, ok, reason := s.Evaluate(snap, domain.SideUp, snap.Odds.Up); ok {
		return rec, true, ""
	} else if reason != "" {
		return domain.Recommendation{}, false, reason
	}
	if rec, ok, reason := s.Evaluate(snap, domain.SideDown, snap.Odds.Down); ok {
		return rec, true, ""
	} else if reason != "" {
		return domain.Recommendation{}, false, reason
	}
	return domain.Recommendation{}, false, ""
}
