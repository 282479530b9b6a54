package indicators

import "github.com/199ocero/PolymarketBTC15mAssistant/internal/domain"

// SessionVWAP computes the volume-weighted average typical price over
// candles. Callers pass only the candles belonging to the current
// market window — the window's VWAP is not a rolling proxy over the
// whole candle ring.
func SessionVWAP(candles []domain.Candle) float64 {
	series := VWAPSeries(candles)
	if len(series) == 0 {
		return 0
	}
	return series[len(series)-1]
}

// VWAPSeries returns the running volume-weighted typical price at every
// candle, oldest first, so callers can feed it into SlopeLast. A step
// with zero cumulative volume carries the prior step's value forward
// (0 before any volume has traded).
func VWAPSeries(candles []domain.Candle) []float64 {
	if len(candles) == 0 {
		return nil
	}
	out := make([]float64, len(candles))
	var pv, vol float64
	for i, c := range candles {
		typical := (c.High + c.Low + c.Close) / 3
		pv += typical * c.Volume
		vol += c.Volume
		if vol == 0 {
			out[i] = 0
		} else {
			out[i] = pv / vol
		}
	}
	return out
}
