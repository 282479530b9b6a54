// Package indicators computes technical analysis values over closed
// candles: moving averages, RSI, MACD, Heiken-Ashi, session VWAP.
package indicators

import "github.com/199ocero/PolymarketBTC15mAssistant/internal/domain"

// Closes extracts the Close field from candles, oldest first.
func Closes(candles []domain.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// EMA returns the exponential moving average of the last value in closes
// over period, or 0 when there isn't enough data yet.
func EMA(closes []float64, period int) float64 {
	series := EMASeries(closes, period)
	if len(series) == 0 {
		return 0
	}
	return series[len(series)-1]
}

// EMASeries computes the EMA at every point once period closes have
// accumulated, seeded by a simple moving average of the first period
// values. Returns nil when there are fewer than period closes.
func EMASeries(closes []float64, period int) []float64 {
	if period < 1 || len(closes) < period {
		return nil
	}
	multiplier := 2.0 / float64(period+1)

	sum := 0.0
	for _, c := range closes[:period] {
		sum += c
	}
	ema := sum / float64(period)

	out := make([]float64, 0, len(closes)-period+1)
	out = append(out, ema)
	for _, c := range closes[period:] {
		ema = (c * multiplier) + (ema * (1 - multiplier))
		out = append(out, ema)
	}
	return out
}
