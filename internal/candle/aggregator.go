// Package candle folds raw spot ticks into closed one-minute OHLC bars.
package candle

import "github.com/199ocero/PolymarketBTC15mAssistant/internal/domain"

// placeholderVolume is assigned to every closed candle. The spot feed
// this bot consumes carries no real trade volume, only price — swap
// this one line when a venue that reports volume is wired in.
const placeholderVolume = 1.0

// Aggregator folds a stream of spot ticks into closed one-minute
// candles, pushing each closed bar onto a bounded ring as it forms.
type Aggregator struct {
	ring       *domain.CandleRing
	forming    domain.Candle
	hasForming bool
}

// NewAggregator returns an aggregator backed by a ring of the given
// capacity (spec requires at least 240 retained candles).
func NewAggregator(capacity int) *Aggregator {
	return &Aggregator{ring: domain.NewCandleRing(capacity)}
}

// minuteOpen floors a millisecond timestamp to its minute boundary.
func minuteOpen(tsMs int64) int64 {
	return tsMs - (tsMs % 60_000)
}

// Tick folds one spot price observation at tsMs into the candle
// currently forming, closing and pushing the previous candle onto the
// ring whenever tsMs crosses into a new minute.
func (a *Aggregator) Tick(tsMs int64, price float64) {
	open := minuteOpen(tsMs)

	if !a.hasForming {
		a.forming = domain.Candle{OpenTimeMs: open, Open: price, High: price, Low: price, Close: price, Volume: placeholderVolume}
		a.hasForming = true
		return
	}

	if open == a.forming.OpenTimeMs {
		a.forming.Close = price
		if price > a.forming.High {
			a.forming.High = price
		}
		if price < a.forming.Low {
			a.forming.Low = price
		}
		return
	}

	// tsMs moved into a new minute (or skipped several): close the
	// forming candle and start a fresh one at the new boundary.
	a.ring.Push(a.forming)
	a.forming = domain.Candle{OpenTimeMs: open, Open: price, High: price, Low: price, Close: price, Volume: placeholderVolume}
}

// Closed returns the closed candles accumulated so far, oldest first.
func (a *Aggregator) Closed() []domain.Candle {
	return a.ring.Slice()
}

// Forming returns the currently-forming (not yet closed) candle and
// whether one exists yet.
func (a *Aggregator) Forming() (domain.Candle, bool) {
	return a.forming, a.hasForming
}

// WithForming returns Closed() with the in-progress candle appended,
// useful when an indicator needs to react to the latest partial bar.
func (a *Aggregator) WithForming() []domain.Candle {
	closed := a.Closed()
	if !a.hasForming {
		return closed
	}
	out := make([]domain.Candle, len(closed)+1)
	copy(out, closed)
	out[len(closed)] = a.forming
	return out
}
