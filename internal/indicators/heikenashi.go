package indicators

import (
	"math"

	"github.com/199ocero/PolymarketBTC15mAssistant/internal/domain"
)

// HeikenAshi derives the Heiken-Ashi candle for the most recent entry in
// candles and how many consecutive candles have shared its color. The
// whole slice is walked from the start since each HA open depends
// recursively on the previous one — callers should always pass the
// full ring so the run count stays consistent tick to tick.
func HeikenAshi(candles []domain.Candle) domain.HeikenAshiState {
	if len(candles) == 0 {
		return domain.HeikenAshiState{}
	}

	haOpen := make([]float64, len(candles))
	haClose := make([]float64, len(candles))
	color := make([]domain.Side, len(candles))

	for i, c := range candles {
		close := (c.Open + c.High + c.Low + c.Close) / 4
		var open float64
		if i == 0 {
			open = (c.Open + c.Close) / 2
		} else {
			open = (haOpen[i-1] + haClose[i-1]) / 2
		}
		haOpen[i] = open
		haClose[i] = close
		if close >= open {
			color[i] = domain.SideUp
		} else {
			color[i] = domain.SideDown
		}
	}

	last := len(candles) - 1
	high := math.Max(candles[last].High, math.Max(haOpen[last], haClose[last]))
	low := math.Min(candles[last].Low, math.Min(haOpen[last], haClose[last]))

	run := 1
	for i := last - 1; i >= 0 && color[i] == color[last]; i-- {
		run++
	}

	return domain.HeikenAshiState{
		Open:  haOpen[last],
		High:  high,
		Low:   low,
		Close: haClose[last],
		Color: color[last],
		Run:   run,
	}
}
