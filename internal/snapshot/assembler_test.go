package snapshot

import (
	"testing"
	"time"

	"github.com/199ocero/PolymarketBTC15mAssistant/internal/clock"
	"github.com/199ocero/PolymarketBTC15mAssistant/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMarket(slug string) domain.Market {
	return domain.Market{
		ConditionID: "0xabc",
		Slug:        slug,
		Question:    "Bitcoin above $65,000 at 3:15PM ET?",
		EndDate:     time.Date(2026, 1, 1, 15, 15, 0, 0, time.UTC),
		Tokens: [2]domain.Token{
			{TokenID: "up-token", Outcome: domain.SideUp},
			{TokenID: "down-token", Outcome: domain.SideDown},
		},
	}
}

func risingCandles(n int, start float64, step float64) []domain.Candle {
	candles := make([]domain.Candle, 0, n)
	price := start
	openMs := int64(0)
	for i := 0; i < n; i++ {
		c := domain.Candle{
			OpenTimeMs: openMs,
			Open:       price,
			High:       price + 1,
			Low:        price - 1,
			Close:      price + step,
			Volume:     1,
		}
		candles = append(candles, c)
		price += step
		openMs += 60_000
	}
	return candles
}

func TestAssembler_BuildPopulatesAllFields(t *testing.T) {
	a := NewAssembler()
	market := testMarket("btc-15m-0001")
	odds := domain.OddsPair{
		Up:   domain.Odds{TokenID: "up-token", Side: domain.SideUp, Price: 0.55},
		Down: domain.Odds{TokenID: "down-token", Side: domain.SideDown, Price: 0.45},
	}
	candles := risingCandles(30, 100, 1)
	now := time.Date(2026, 1, 1, 15, 5, 0, 0, time.UTC)
	window := clock.Window{Start: now.Add(-5 * time.Minute), End: now.Add(10 * time.Minute)}

	snap := a.Build(Input{
		Market:      market,
		Odds:        odds,
		Candles:     candles,
		SpotPrice:   200,
		StrikePrice: 195,
		Window:      window,
		Now:         now,
	})

	assert.Equal(t, market.Slug, snap.Market.Slug)
	assert.Equal(t, 0.55, snap.Odds.Up.Price)
	assert.Equal(t, 0.45, snap.Odds.Down.Price)
	assert.Equal(t, 200.0, snap.SpotPrice)
	assert.Equal(t, 195.0, snap.StrikePrice)
	assert.Equal(t, window.Start, snap.WindowStart)
	assert.Equal(t, window.End, snap.WindowEnd)
	assert.Equal(t, now, snap.Now)
	assert.False(t, snap.StaleSpot)
	assert.False(t, snap.StaleOnChain)

	assert.Equal(t, 30, snap.Indicators.CandleCount)
	assert.Equal(t, candles[29].Close, snap.Indicators.LastClose)
	assert.Equal(t, candles[28].Close, snap.Indicators.PriorClose)
	assert.Greater(t, snap.Indicators.EMA9, 0.0)
	assert.Greater(t, snap.Indicators.EMA21, 0.0)
	assert.Equal(t, 0.0, snap.Indicators.EMA200) // 30 closes are fewer than the 200-period seed
	assert.Greater(t, snap.Volatility5, 0.0)
}

func TestAssembler_BuildCarriesStaleFlags(t *testing.T) {
	a := NewAssembler()
	snap := a.Build(Input{
		Market:       testMarket("btc-15m-0002"),
		Candles:      risingCandles(5, 100, 0.5),
		SpotPrice:    100,
		StaleSpot:    true,
		StaleOnChain: true,
	})

	assert.True(t, snap.StaleSpot)
	assert.True(t, snap.StaleOnChain)
}

func TestAssembler_BuildWithNoCandlesYieldsZeroIndicators(t *testing.T) {
	a := NewAssembler()
	snap := a.Build(Input{
		Market:    testMarket("btc-15m-0003"),
		SpotPrice: 100,
	})

	require.Equal(t, 0, snap.Indicators.CandleCount)
	assert.Equal(t, 0.0, snap.Indicators.LastClose)
	assert.Equal(t, 0.0, snap.Indicators.PriorClose)
	assert.Equal(t, 0.0, snap.Volatility5)
}

func TestTrend_RisingWhenSpotAboveEMA21(t *testing.T) {
	a := NewAssembler()
	snap := a.Build(Input{
		Market:    testMarket("btc-15m-0004"),
		Candles:   risingCandles(25, 100, 0.1),
		SpotPrice: 1000, // well above any EMA21 derived from the candle history
	})

	assert.Equal(t, domain.TrendRising, Trend(snap))
}

func TestTrend_FallingWhenSpotBelowEMA21(t *testing.T) {
	a := NewAssembler()
	snap := a.Build(Input{
		Market:    testMarket("btc-15m-0005"),
		Candles:   risingCandles(25, 100, 0.1),
		SpotPrice: 1, // well below any EMA21 derived from the candle history
	})

	assert.Equal(t, domain.TrendFalling, Trend(snap))
}
