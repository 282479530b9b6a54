package paper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/199ocero/PolymarketBTC15mAssistant/internal/domain"
)

func testMarket(slug string, endDate time.Time) domain.Market {
	return domain.Market{
		ConditionID: "cond-" + slug,
		Slug:        slug,
		Question:    "Will BTC be above $100,000 at 3:15pm ET?",
		EndDate:     endDate,
		Tokens: [2]domain.Token{
			{TokenID: "up-" + slug, Outcome: domain.SideUp},
			{TokenID: "down-" + slug, Outcome: domain.SideDown},
		},
	}
}

func oddsPair(upPrice, downPrice float64) domain.OddsPair {
	return domain.OddsPair{
		Up:   domain.Odds{Side: domain.SideUp, Price: upPrice},
		Down: domain.Odds{Side: domain.SideDown, Price: downPrice},
	}
}

// Spec §8 scenario 6: a winning UP position settles at 1.0 with no exit fee.
func TestTrader_SettleExpiredWinningPosition(t *testing.T) {
	now := time.Date(2026, 1, 1, 15, 15, 0, 0, time.UTC)
	state := domain.DefaultPaperState(1000)
	state.Positions = []domain.Position{{
		ID:          "p1",
		MarketSlug:  "btc-3pm",
		Side:        domain.SideUp,
		Strategy:    domain.StrategyMomentum,
		EntryPrice:  0.45,
		Amount:      45,
		Shares:      100, // 45 / 0.45
		EntryTime:   now.Add(-5 * time.Minute),
		StrikePrice: 100000,
	}}
	tr := New(DefaultConfig(), state, nil, nil)

	res := tr.Tick(context.Background(), domain.Recommendation{Action: domain.ActionNoTrade},
		oddsPair(0, 0), testMarket("btc-3pm", time.Time{}), 100050, 100000,
		domain.TrendRising, -0.01, now)

	require.Len(t, res.Closed, 1)
	closed := res.Closed[0]
	assert.Equal(t, domain.ExitSettlement, closed.ExitReason)
	assert.True(t, closed.Won)
	assert.Equal(t, 1.0, closed.ExitPrice)
	assert.InDelta(t, 55.0, closed.PnL, 1e-9) // 100*1 - 45
	assert.Empty(t, tr.State().Positions)
	assert.InDelta(t, 1000+100.0, tr.State().Balance, 1e-9)
	assert.Equal(t, 0, tr.State().ConsecutiveLosses)
}

// A losing DOWN-side settlement: spot closed above strike, so DOWN loses.
func TestTrader_SettleExpiredLosingPosition(t *testing.T) {
	now := time.Date(2026, 1, 1, 15, 15, 0, 0, time.UTC)
	state := domain.DefaultPaperState(1000)
	state.Positions = []domain.Position{{
		ID:          "p1",
		MarketSlug:  "btc-3pm",
		Side:        domain.SideDown,
		Strategy:    domain.StrategyMomentum,
		EntryPrice:  0.40,
		Amount:      40,
		Shares:      100,
		EntryTime:   now.Add(-5 * time.Minute),
		StrikePrice: 100000,
	}}
	tr := New(DefaultConfig(), state, nil, nil)

	res := tr.Tick(context.Background(), domain.Recommendation{Action: domain.ActionNoTrade},
		oddsPair(0, 0), testMarket("btc-3pm", time.Time{}), 100050, 100000,
		domain.TrendRising, -0.01, now)

	require.Len(t, res.Closed, 1)
	assert.False(t, res.Closed[0].Won)
	assert.Equal(t, 0.0, res.Closed[0].ExitPrice)
	assert.InDelta(t, -40.0, res.Closed[0].PnL, 1e-9)
	assert.Equal(t, 1, tr.State().ConsecutiveLosses)
}

// Spec §8 scenario 5: inside the time-guard window, a favored position
// (price > 0.50) is held, not force-exited.
func TestTrader_TimeGuardHoldsFavoredPosition(t *testing.T) {
	now := time.Date(2026, 1, 1, 15, 13, 30, 0, time.UTC)
	state := domain.DefaultPaperState(1000)
	state.Positions = []domain.Position{{
		ID:          "p1",
		MarketSlug:  "btc-3pm",
		Side:        domain.SideUp,
		Strategy:    domain.StrategyMomentum,
		EntryPrice:  0.45,
		Amount:      45,
		Shares:      100,
		EntryTime:   now.Add(-2 * time.Minute),
		StrikePrice: 100000,
	}}
	tr := New(DefaultConfig(), state, nil, nil)

	// 1.5 minutes left, inside the default 2-minute time guard, price 0.60 is favored.
	res := tr.Tick(context.Background(), domain.Recommendation{Action: domain.ActionNoTrade},
		oddsPair(0.60, 0.40), testMarket("btc-3pm", now.Add(90*time.Second)), 100050, 100000,
		domain.TrendRising, 1.5, now)

	assert.Empty(t, res.Closed)
	require.Len(t, tr.State().Positions, 1)
}

// Inside the time-guard window, an unfavored, unhopeful, not-near-loss
// position is force-exited.
func TestTrader_TimeGuardExitsUnfavoredPosition(t *testing.T) {
	now := time.Date(2026, 1, 1, 15, 13, 30, 0, time.UTC)
	state := domain.DefaultPaperState(1000)
	state.Positions = []domain.Position{{
		ID:          "p1",
		MarketSlug:  "btc-3pm",
		Side:        domain.SideUp,
		Strategy:    domain.StrategyMomentum,
		EntryPrice:  0.45,
		Amount:      45,
		Shares:      100,
		EntryTime:   now.Add(-2 * time.Minute),
		StrikePrice: 100000,
	}}
	tr := New(DefaultConfig(), state, nil, nil)

	// price 0.30: not favored (<=0.50), not hopeful (trend is falling, side
	// is UP, so it doesn't match), not near-loss (0.30 > 0.05) -- fails all
	// three exceptions, so the time guard forces an exit.
	res := tr.Tick(context.Background(), domain.Recommendation{Action: domain.ActionNoTrade},
		oddsPair(0.30, 0.70), testMarket("btc-3pm", now.Add(90*time.Second)), 100050, 100000,
		domain.TrendFalling, 1.5, now)

	require.Len(t, res.Closed, 1)
	assert.Equal(t, domain.ExitTimeGuard, res.Closed[0].ExitReason)
}

// Stop-loss fires once ROI breaches the configured threshold and the
// grace period has elapsed.
func TestTrader_StopLossFiresAfterGracePeriod(t *testing.T) {
	now := time.Date(2026, 1, 1, 15, 5, 0, 0, time.UTC)
	state := domain.DefaultPaperState(1000)
	state.Positions = []domain.Position{{
		ID:          "p1",
		MarketSlug:  "btc-3pm",
		Side:        domain.SideUp,
		Strategy:    domain.StrategyMomentum,
		EntryPrice:  0.50,
		Amount:      50,
		Shares:      100,
		EntryTime:   now.Add(-30 * time.Second), // past the 15s grace period
		StrikePrice: 100000,
	}}
	tr := New(DefaultConfig(), state, nil, nil)

	// price 0.28 is -44% ROI, past the -40% stop-loss.
	res := tr.Tick(context.Background(), domain.Recommendation{Action: domain.ActionNoTrade},
		oddsPair(0.28, 0.72), testMarket("btc-3pm", now.Add(10*time.Minute)), 99000, 100000,
		domain.TrendFalling, 10, now)

	require.Len(t, res.Closed, 1)
	assert.Equal(t, domain.ExitStopLoss, res.Closed[0].ExitReason)
	assert.False(t, tr.State().LastStopLossTime.IsZero())
}

// Within the grace period a stop-loss breach is not yet acted on.
func TestTrader_StopLossGracePeriodSuppressesExit(t *testing.T) {
	now := time.Date(2026, 1, 1, 15, 5, 0, 0, time.UTC)
	state := domain.DefaultPaperState(1000)
	state.Positions = []domain.Position{{
		ID:          "p1",
		MarketSlug:  "btc-3pm",
		Side:        domain.SideUp,
		Strategy:    domain.StrategyMomentum,
		EntryPrice:  0.50,
		Amount:      50,
		Shares:      100,
		EntryTime:   now.Add(-5 * time.Second), // still within the 15s grace period
		StrikePrice: 100000,
	}}
	tr := New(DefaultConfig(), state, nil, nil)

	res := tr.Tick(context.Background(), domain.Recommendation{Action: domain.ActionNoTrade},
		oddsPair(0.28, 0.72), testMarket("btc-3pm", now.Add(10*time.Minute)), 99000, 100000,
		domain.TrendFalling, 10, now)

	assert.Empty(t, res.Closed)
}

// Momentum take-profit fires at its own, more generous ROI threshold.
func TestTrader_MomentumTakeProfit(t *testing.T) {
	now := time.Date(2026, 1, 1, 15, 5, 0, 0, time.UTC)
	state := domain.DefaultPaperState(1000)
	state.Positions = []domain.Position{{
		ID:          "p1",
		MarketSlug:  "btc-3pm",
		Side:        domain.SideUp,
		Strategy:    domain.StrategyMomentum,
		EntryPrice:  0.40,
		Amount:      40,
		Shares:      100,
		EntryTime:   now.Add(-1 * time.Minute),
		StrikePrice: 100000,
	}}
	tr := New(DefaultConfig(), state, nil, nil)

	// price 0.62 is +55% ROI, past the momentum 50% take-profit.
	res := tr.Tick(context.Background(), domain.Recommendation{Action: domain.ActionNoTrade},
		oddsPair(0.62, 0.38), testMarket("btc-3pm", now.Add(10*time.Minute)), 100200, 100000,
		domain.TrendRising, 10, now)

	require.Len(t, res.Closed, 1)
	assert.Equal(t, domain.ExitTakeProfit, res.Closed[0].ExitReason)
}

// Spec §8 scenario 7: an entry is blocked once the daily loss cap is hit.
func TestTrader_DailyLossCapBlocksEntry(t *testing.T) {
	now := time.Date(2026, 1, 1, 15, 5, 0, 0, time.UTC)
	cfg := DefaultConfig()
	cfg.DailyLossLimitPct = 30
	state := domain.DefaultPaperState(100)
	state.DailyLoss = 30.01
	state.LastDailyReset = now
	tr := New(cfg, state, nil, nil)

	rec := domain.Recommendation{
		Action: domain.ActionEnter, Side: domain.SideUp,
		Strategy: domain.StrategyMomentum, Probability: 0.70,
	}
	res := tr.Tick(context.Background(), rec, oddsPair(0.50, 0.50),
		testMarket("btc-3pm", now.Add(10*time.Minute)), 100000, 100000,
		domain.TrendRising, 10, now)

	assert.Nil(t, res.Opened)
	assert.Equal(t, "Daily Loss Limit (%)", res.BlockedReason)
}

// Spec §8 scenario 8: Kelly sizing clamps the raw fraction into [min, max].
func TestTrader_KellySizingClampsToBounds(t *testing.T) {
	now := time.Date(2026, 1, 1, 15, 5, 0, 0, time.UTC)
	cfg := DefaultConfig()
	cfg.UseKelly = true
	cfg.KellyFraction = 0.5
	cfg.MinKellyBet = 3
	cfg.MaxKellyBet = 5
	state := domain.DefaultPaperState(100)
	tr := New(cfg, state, nil, nil)

	rec := domain.Recommendation{
		Action: domain.ActionEnter, Side: domain.SideUp,
		Strategy: domain.StrategyMomentum, Probability: 0.70,
	}
	res := tr.Tick(context.Background(), rec, oddsPair(0.50, 0.50),
		testMarket("btc-3pm", now.Add(10*time.Minute)), 100000, 100000,
		domain.TrendRising, 10, now)

	require.NotNil(t, res.Opened)
	// fk = (0.70-0.50)/(1-0.50) = 0.40; raw = 100*0.5*0.40 = 20; clamped to 5.
	assert.InDelta(t, 10.0, res.Opened.Shares, 1e-9) // 5 stake / 0.50 price
	assert.InDelta(t, 5.0+tr.fee(5, 0.50), res.Opened.Amount, 1e-9)
}

// The entry cooldown (debounce) blocks a second entry fired too soon
// after the previous one.
func TestTrader_EntryDebounceBlocksRapidReentry(t *testing.T) {
	now := time.Date(2026, 1, 1, 15, 5, 0, 0, time.UTC)
	cfg := DefaultConfig()
	cfg.EntryCooldownSeconds = 30
	state := domain.DefaultPaperState(1000)
	state.LastEntryTime = now.Add(-5 * time.Second)
	tr := New(cfg, state, nil, nil)

	rec := domain.Recommendation{
		Action: domain.ActionEnter, Side: domain.SideUp,
		Strategy: domain.StrategyMomentum, Probability: 0,
	}
	res := tr.Tick(context.Background(), rec, oddsPair(0.50, 0.50),
		testMarket("btc-3pm", now.Add(10*time.Minute)), 100000, 100000,
		domain.TrendRising, 10, now)

	assert.Nil(t, res.Opened)
	assert.Equal(t, "Entry Debounce", res.BlockedReason)
}

// A same-side duplicate is blocked; an opposite-side entry triggers a
// flip-flop close of the existing position instead.
func TestTrader_FlipFlopClosesOppositeSideBeforeOpening(t *testing.T) {
	now := time.Date(2026, 1, 1, 15, 5, 0, 0, time.UTC)
	cfg := DefaultConfig()
	cfg.UseKelly = false
	state := domain.DefaultPaperState(1000)
	state.Positions = []domain.Position{{
		ID:          "p1",
		MarketSlug:  "btc-3pm",
		Side:        domain.SideDown,
		Strategy:    domain.StrategyMomentum,
		EntryPrice:  0.40,
		Amount:      40,
		Shares:      100,
		EntryTime:   now.Add(-1 * time.Minute),
		StrikePrice: 100000,
	}}
	tr := New(cfg, state, nil, nil)

	rec := domain.Recommendation{
		Action: domain.ActionEnter, Side: domain.SideUp,
		Strategy: domain.StrategyMomentum, Probability: 0,
	}
	res := tr.Tick(context.Background(), rec, oddsPair(0.55, 0.45),
		testMarket("btc-3pm", now.Add(10*time.Minute)), 100000, 100000,
		domain.TrendRising, 10, now)

	require.NotNil(t, res.Opened)
	assert.Equal(t, domain.SideUp, res.Opened.Side)
	// the DOWN position should have been flip-closed, leaving only the new UP one.
	require.Len(t, tr.State().Positions, 1)
	assert.Equal(t, domain.SideUp, tr.State().Positions[0].Side)
}

// A flip-flop close frees capacity before the new position is counted
// against MaxConcurrentPositions.
func TestTrader_FlipCloseFreesCapacityForNewEntry(t *testing.T) {
	now := time.Date(2026, 1, 1, 15, 5, 0, 0, time.UTC)
	cfg := DefaultConfig()
	cfg.MaxConcurrentPositions = 1
	cfg.UseKelly = false
	state := domain.DefaultPaperState(1000)
	state.Positions = []domain.Position{{
		ID:         "p1",
		MarketSlug: "btc-3pm",
		Side:       domain.SideDown,
		Strategy:   domain.StrategyMomentum,
		EntryPrice: 0.40,
		Amount:     40,
		Shares:     100,
		EntryTime:  now.Add(-1 * time.Minute),
	}}
	tr := New(cfg, state, nil, nil)

	// Same side would be blocked by the duplicate guard; use the opposite
	// side so it passes flip-flop but then trips capacity at 1.
	rec := domain.Recommendation{
		Action: domain.ActionEnter, Side: domain.SideUp,
		Strategy: domain.StrategyMomentum, Probability: 0,
	}
	res := tr.Tick(context.Background(), rec, oddsPair(0.55, 0.45),
		testMarket("btc-3pm", now.Add(10*time.Minute)), 100000, 100000,
		domain.TrendRising, 10, now)

	// Flip-flop already closed the DOWN position, so open==0 < cap==1: entry proceeds.
	require.NotNil(t, res.Opened)
}

// Circuit breaker blocks new entries once consecutive losses hit the cap.
func TestTrader_CircuitBreakerBlocksEntry(t *testing.T) {
	now := time.Date(2026, 1, 1, 15, 5, 0, 0, time.UTC)
	cfg := DefaultConfig()
	cfg.MaxConsecutiveLosses = 3
	state := domain.DefaultPaperState(1000)
	state.ConsecutiveLosses = 3
	tr := New(cfg, state, nil, nil)

	rec := domain.Recommendation{
		Action: domain.ActionEnter, Side: domain.SideUp,
		Strategy: domain.StrategyMomentum, Probability: 0,
	}
	res := tr.Tick(context.Background(), rec, oddsPair(0.50, 0.50),
		testMarket("btc-3pm", now.Add(10*time.Minute)), 100000, 100000,
		domain.TrendRising, 10, now)

	assert.Nil(t, res.Opened)
	assert.Equal(t, "Circuit Breaker", res.BlockedReason)
}

// Post-stop-loss cooldown blocks entries for cooldownMinutes after the
// most recent stop-loss exit.
func TestTrader_PostStopLossCooldownBlocksEntry(t *testing.T) {
	now := time.Date(2026, 1, 1, 15, 5, 0, 0, time.UTC)
	cfg := DefaultConfig()
	cfg.CooldownMinutes = 5
	state := domain.DefaultPaperState(1000)
	state.LastStopLossTime = now.Add(-1 * time.Minute)
	tr := New(cfg, state, nil, nil)

	rec := domain.Recommendation{
		Action: domain.ActionEnter, Side: domain.SideUp,
		Strategy: domain.StrategyMomentum, Probability: 0,
	}
	res := tr.Tick(context.Background(), rec, oddsPair(0.50, 0.50),
		testMarket("btc-3pm", now.Add(10*time.Minute)), 100000, 100000,
		domain.TrendRising, 10, now)

	assert.Nil(t, res.Opened)
	assert.Equal(t, "Post-SL Cooldown", res.BlockedReason)
}

// The daily loss counter resets once the UTC calendar date rolls over.
func TestTrader_DailyResetClearsLossOnNewDay(t *testing.T) {
	yesterday := time.Date(2026, 1, 1, 23, 59, 0, 0, time.UTC)
	state := domain.DefaultPaperState(1000)
	state.DailyLoss = 75
	state.LastDailyReset = yesterday
	tr := New(DefaultConfig(), state, nil, nil)

	today := time.Date(2026, 1, 2, 0, 5, 0, 0, time.UTC)
	tr.Tick(context.Background(), domain.Recommendation{Action: domain.ActionNoTrade},
		oddsPair(0.50, 0.50), testMarket("btc-3pm", today.Add(10*time.Minute)),
		100000, 100000, domain.TrendRising, 10, today)

	assert.Equal(t, float64(0), tr.State().DailyLoss)
}

// A fixed bet is used when Kelly sizing is disabled or the probability is 0.
func TestTrader_FixedBetSizingByStrategy(t *testing.T) {
	now := time.Date(2026, 1, 1, 15, 5, 0, 0, time.UTC)
	cfg := DefaultConfig()
	cfg.UseKelly = false
	state := domain.DefaultPaperState(1000)
	tr := New(cfg, state, nil, nil)

	rec := domain.Recommendation{
		Action: domain.ActionEnter, Side: domain.SideUp,
		Strategy: domain.StrategyLateWindow, Probability: 0,
	}
	res := tr.Tick(context.Background(), rec, oddsPair(0.50, 0.50),
		testMarket("btc-3pm", now.Add(10*time.Minute)), 100000, 100000,
		domain.TrendRising, 10, now)

	require.NotNil(t, res.Opened)
	assert.InDelta(t, cfg.FixedBetLateWindow, res.Opened.Amount-tr.fee(cfg.FixedBetLateWindow, 0.50), 1e-9)
}

// A position from a market the orchestrator has since rolled past still
// settles on its own stored EndDate, even though the currently tracked
// market (a later window, so timeLeftMin is positive) hasn't expired.
func TestTrader_SettleExpiredUsesPositionOwnEndDate(t *testing.T) {
	now := time.Date(2026, 1, 1, 15, 20, 0, 0, time.UTC)
	state := domain.DefaultPaperState(1000)
	state.Positions = []domain.Position{{
		ID:          "p1",
		MarketSlug:  "btc-3pm",
		Side:        domain.SideUp,
		Strategy:    domain.StrategyMomentum,
		EntryPrice:  0.45,
		Amount:      45,
		Shares:      100,
		EntryTime:   now.Add(-20 * time.Minute),
		StrikePrice: 100000,
		EndDate:     now.Add(-5 * time.Minute), // the btc-3pm window closed 5 min ago
	}}
	tr := New(DefaultConfig(), state, nil, nil)

	// Tick is now tracking the next window, "btc-3:15pm", with 8 minutes left.
	res := tr.Tick(context.Background(), domain.Recommendation{Action: domain.ActionNoTrade},
		oddsPair(0, 0), testMarket("btc-3:15pm", now.Add(8*time.Minute)), 100050, 100000,
		domain.TrendRising, 8, now)

	require.Len(t, res.Closed, 1)
	assert.Equal(t, domain.ExitSettlement, res.Closed[0].ExitReason)
	assert.True(t, res.Closed[0].Won)
	assert.Empty(t, tr.State().Positions)
}
