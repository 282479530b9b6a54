// Package paper runs the paper-trading position lifecycle: entry
// gating, exit rules, fees, settlement, and daily risk caps. Spec §4.7.
package paper

// Config holds every tunable risk/sizing/fee policy named in spec §6.
type Config struct {
	StartingBalance float64

	StopLossRoiPct             float64 // e.g. -0.40 means exit at -40% ROI
	StopLossGracePeriodSeconds int

	MomentumTakeProfitRoiPct float64
	TakeProfitRoiPct        float64 // legacy/fallback take-profit ROI

	MaxConcurrentPositions int
	DailyLossLimitPct      float64
	EntryCooldownSeconds   int
	CooldownMinutes        int
	MinEntryPrice          float64
	MaxEntryPrice          float64
	MaxConsecutiveLosses   int
	ResolutionThreshold    float64
	TimeGuardDefaultMin    float64
	TimeGuardLateWindowMin float64

	UseKelly      bool
	KellyFraction float64 // conservatism multiplier applied to the raw Kelly fraction
	MinKellyBet   float64
	MaxKellyBet   float64

	UsePolymarketDynamicFees bool
	FeePct                   float64 // fallback flat fee, percent of notional

	FixedBetLateWindow    float64
	FixedBetMomentum      float64
	FixedBetMeanReversion float64
	FixedBetFallback      float64
}

// DefaultConfig returns the defaults named or implied by spec §4.7/§6/§8.
func DefaultConfig() Config {
	return Config{
		StartingBalance: 1000,

		StopLossRoiPct:             -0.40,
		StopLossGracePeriodSeconds: 15,

		MomentumTakeProfitRoiPct: 0.50,
		TakeProfitRoiPct:         0.30,

		MaxConcurrentPositions: 2,
		DailyLossLimitPct:      20,
		EntryCooldownSeconds:   30,
		CooldownMinutes:        5,
		MinEntryPrice:          0.05,
		MaxEntryPrice:          0.95,
		MaxConsecutiveLosses:   5,
		ResolutionThreshold:    0.05,
		TimeGuardDefaultMin:    2,
		TimeGuardLateWindowMin: 0.5,

		UseKelly:      true,
		KellyFraction: 0.5,
		MinKellyBet:   3,
		MaxKellyBet:   5,

		UsePolymarketDynamicFees: true,
		FeePct:                   2,

		FixedBetLateWindow:    5,
		FixedBetMomentum:      4,
		FixedBetMeanReversion: 3,
		FixedBetFallback:      2,
	}
}
