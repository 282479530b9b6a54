package indicators

import "github.com/199ocero/PolymarketBTC15mAssistant/internal/domain"

// MACD computes the MACD line, its EMA signal line, and the last three
// histogram values (current, previous, and the one before that) needed
// to tell whether the histogram is growing or shrinking. The signal
// line is a genuine EMA of the MACD line series, not an approximation.
func MACD(candles []domain.Candle, fast, slow, signalPeriod int) domain.MACDState {
	return MACDFromCloses(Closes(candles), fast, slow, signalPeriod)
}

// MACDFromCloses is MACD over a raw close-price series.
func MACDFromCloses(closes []float64, fast, slow, signalPeriod int) domain.MACDState {
	if len(closes) < slow+signalPeriod+2 {
		return domain.MACDState{}
	}

	fastSeries := EMASeries(closes, fast)
	slowSeries := EMASeries(closes, slow)

	// fastSeries[0] lines up with closes[fast-1]; slowSeries[0] with
	// closes[slow-1]. Shift fastSeries forward by (slow-fast) so both
	// series are indexed against the same closing price.
	offset := slow - fast
	macdSeries := make([]float64, len(slowSeries))
	for i := range slowSeries {
		macdSeries[i] = fastSeries[i+offset] - slowSeries[i]
	}

	signalSeries := EMASeries(macdSeries, signalPeriod)
	if len(signalSeries) < 3 {
		return domain.MACDState{}
	}

	n := len(signalSeries)
	m := len(macdSeries)

	hist := macdSeries[m-1] - signalSeries[n-1]
	histPrev := macdSeries[m-2] - signalSeries[n-2]
	histPrev2 := macdSeries[m-3] - signalSeries[n-3]

	return domain.MACDState{
		Line:      macdSeries[m-1],
		Signal:    signalSeries[n-1],
		Hist:      hist,
		HistPrev:  histPrev,
		HistPrev2: histPrev2,
	}
}
