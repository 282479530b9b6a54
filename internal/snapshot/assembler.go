// Package snapshot assembles the full domain.Snapshot each slow tick needs:
// candles, indicators, trend, and the latched strike, combined with the
// independently-fetched spot price and UP/DOWN odds.
package snapshot

import (
	"time"

	"github.com/199ocero/PolymarketBTC15mAssistant/internal/clock"
	"github.com/199ocero/PolymarketBTC15mAssistant/internal/domain"
	"github.com/199ocero/PolymarketBTC15mAssistant/internal/indicators"
)

const (
	emaFast   = 9
	emaMid    = 21
	emaSlow   = 200
	rsiPeriod = 14
	macdFast  = 12
	macdSlow  = 26
	macdSig   = 9
)

// Assembler builds Snapshots from independently-fetched inputs. It holds no
// mutable state of its own — the caller owns the candle ring, the strike
// latch, and the odds/spot feeds.
type Assembler struct{}

// NewAssembler returns an Assembler.
func NewAssembler() *Assembler {
	return &Assembler{}
}

// Input is everything one slow tick has fetched, independently per side,
// ready to be folded into a Snapshot.
type Input struct {
	Market       domain.Market
	Odds         domain.OddsPair // Up and Down fetched independently — never aliased
	Candles      []domain.Candle // closed candles, oldest first, the current partial bar appended
	SpotPrice    float64
	StrikePrice  float64
	Window       clock.Window
	Now          time.Time
	StaleSpot    bool
	StaleOnChain bool
}

// Build computes indicators over in.Candles and assembles the Snapshot.
func (a *Assembler) Build(in Input) domain.Snapshot {
	ind := a.indicatorsFor(in.Candles, in.Window.Start)

	snap := domain.Snapshot{
		Market:       in.Market,
		Odds:         in.Odds,
		Indicators:   ind,
		SpotPrice:    in.SpotPrice,
		StrikePrice:  in.StrikePrice,
		WindowStart:  in.Window.Start,
		WindowEnd:    in.Window.End,
		Now:          in.Now,
		StaleSpot:    in.StaleSpot,
		StaleOnChain: in.StaleOnChain,
		Volatility5:  indicators.MeanRange(in.Candles, 5),
	}
	return snap
}

// Trend computes the directional bias for a built Snapshot: RISING iff spot
// is trading above the 21-period EMA, else FALLING.
func Trend(snap domain.Snapshot) domain.Trend {
	if snap.SpotPrice > snap.Indicators.EMA21 {
		return domain.TrendRising
	}
	return domain.TrendFalling
}

func (a *Assembler) indicatorsFor(candles []domain.Candle, windowStart time.Time) domain.Indicators {
	closes := indicators.Closes(candles)
	session := sessionCandles(candles, windowStart)

	ind := domain.Indicators{
		EMA9:        indicators.EMA(closes, emaFast),
		EMA21:       indicators.EMA(closes, emaMid),
		EMA200:      indicators.EMA(closes, emaSlow),
		RSI14:       indicators.RSI(candles, rsiPeriod),
		RSISeries:   indicators.RSISeries(candles, rsiPeriod),
		MACD:        indicators.MACD(candles, macdFast, macdSlow, macdSig),
		HeikenAshi:  indicators.HeikenAshi(candles),
		SessionVWAP: indicators.SessionVWAP(session),
		VWAPSeries:  indicators.VWAPSeries(session),
		CandleCount: len(candles),
	}
	if n := len(closes); n > 0 {
		ind.LastClose = closes[n-1]
	}
	if n := len(closes); n > 1 {
		ind.PriorClose = closes[n-2]
	}
	return ind
}

// sessionCandles returns the suffix of candles whose open time falls within
// the current market window, so SessionVWAP resets every 15 minutes instead
// of drifting over the whole retained candle ring.
func sessionCandles(candles []domain.Candle, windowStart time.Time) []domain.Candle {
	if windowStart.IsZero() {
		return candles
	}
	startMs := windowStart.UnixMilli()
	for i, c := range candles {
		if c.OpenTimeMs >= startMs {
			return candles[i:]
		}
	}
	return nil
}
