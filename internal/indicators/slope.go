package indicators

import "github.com/199ocero/PolymarketBTC15mAssistant/internal/domain"

// PriceChange returns the close-to-close dollar move over the last
// lookback candles. Returns 0 when there isn't enough history.
func PriceChange(candles []domain.Candle, lookback int) float64 {
	if lookback < 1 || len(candles) < lookback+1 {
		return 0
	}
	last := candles[len(candles)-1]
	past := candles[len(candles)-1-lookback]
	return last.Close - past.Close
}

// MeanRange returns the average of (high-low) over the last lookback
// candles, clamped to however many are available. This is the
// volatility filter used by the late-window strategy, distinct from
// Volatility's single high-low range over the whole window.
func MeanRange(candles []domain.Candle, lookback int) float64 {
	if len(candles) == 0 {
		return 0
	}
	if lookback > len(candles) {
		lookback = len(candles)
	}
	window := candles[len(candles)-lookback:]
	var sum float64
	for _, c := range window {
		sum += c.High - c.Low
	}
	return sum / float64(len(window))
}

// SlopeLast returns the change across the last k points of series,
// divided by k: (series[-1] - series[-k]) / k. ok is false when series has
// fewer than k points, signaling insufficient history rather than a
// flat slope.
func SlopeLast(series []float64, k int) (float64, bool) {
	if k < 1 || len(series) < k {
		return 0, false
	}
	last := series[len(series)-1]
	prior := series[len(series)-k]
	return (last - prior) / float64(k), true
}

// Volatility returns the high-low dollar range over the last lookback
// candles, clamped to however many candles are actually available.
func Volatility(candles []domain.Candle, lookback int) float64 {
	if len(candles) == 0 {
		return 0
	}
	if lookback > len(candles) {
		lookback = len(candles)
	}
	window := candles[len(candles)-lookback:]
	high := window[0].High
	low := window[0].Low
	for _, c := range window[1:] {
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
	}
	return high - low
}
