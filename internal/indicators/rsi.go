package indicators

import "github.com/199ocero/PolymarketBTC15mAssistant/internal/domain"

// RSI computes Wilder's Relative Strength Index over the closed candles,
// using Wilder smoothing (not a plain rolling average of gains/losses).
// Returns the neutral value 50 when there isn't enough history yet.
func RSI(candles []domain.Candle, period int) float64 {
	return RSIFromCloses(Closes(candles), period)
}

// RSIFromCloses is RSI over a raw close-price series.
func RSIFromCloses(closes []float64, period int) float64 {
	series := RSISeriesFromCloses(closes, period)
	if len(series) == 0 {
		return 50.0
	}
	return series[len(series)-1]
}

// RSISeries is RSISeriesFromCloses over candles.
func RSISeries(candles []domain.Candle, period int) []float64 {
	return RSISeriesFromCloses(Closes(candles), period)
}

// RSISeriesFromCloses computes Wilder's RSI at every point once period
// closes have accumulated, seeded by a simple average of the first
// period gains/losses, then smoothed Wilder-style. Returns nil when
// there are fewer than period+1 closes.
func RSISeriesFromCloses(closes []float64, period int) []float64 {
	if period < 1 || len(closes) < period+1 {
		return nil
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss += -change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	out := make([]float64, 0, len(closes)-period)
	out = append(out, rsiFromAverages(avgGain, avgLoss))

	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		// Wilder smoothing: each new value carries (period-1)/period of
		// the running average forward instead of an equal-weight window.
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out = append(out, rsiFromAverages(avgGain, avgLoss))
	}

	return out
}

func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}
