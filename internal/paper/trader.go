package paper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/199ocero/PolymarketBTC15mAssistant/internal/domain"
)

// Store persists the trader's state after every state-changing
// operation, per spec §4.9 (the full JSON object, not a journal).
type Store interface {
	Save(ctx context.Context, state domain.PaperState) error
}

// Trader owns the PaperState and runs the full per-tick lifecycle:
// daily reset, expiry settlement, exit scan, entry gating. Grounded on
// the teacher's application/engine/paper.Engine shape (config with
// defaulting, one aggregate-result entry point, $-formatted slog
// values) but replacing the reward-farming cycle with the spec's
// directional position lifecycle end to end.
type Trader struct {
	cfg   Config
	state domain.PaperState
	store Store
	log   *slog.Logger
}

// New builds a trader seeded with the given state (typically loaded
// from disk, or domain.DefaultPaperState(cfg.StartingBalance) on a
// fresh run).
func New(cfg Config, initial domain.PaperState, store Store, log *slog.Logger) *Trader {
	if log == nil {
		log = slog.Default()
	}
	return &Trader{cfg: cfg, state: initial, store: store, log: log}
}

// State returns a copy of the current account state.
func (t *Trader) State() domain.PaperState {
	return t.state
}

// TickResult summarizes the outcome of one Tick call.
type TickResult struct {
	Closed        []domain.ClosedTrade
	Opened        *domain.Position
	BlockedReason string
}

// Tick runs the full lifecycle for one slow-tick pass. spot feeds expiry
// settlement and strike is recorded on any position opened this tick;
// odds carries the current UP/DOWN prices for the price band, exit ROI
// and entry sizing.
func (t *Trader) Tick(
	ctx context.Context,
	rec domain.Recommendation,
	odds domain.OddsPair,
	market domain.Market,
	spot, strike float64,
	trend domain.Trend,
	timeLeftMin float64,
	now time.Time,
) *TickResult {
	result := &TickResult{}

	t.dailyReset(now)

	result.Closed = append(result.Closed, t.settleExpired(spot, timeLeftMin, now)...)
	result.Closed = append(result.Closed, t.exitScan(market.Slug, odds, trend, timeLeftMin, now)...)

	if rec.Actionable() {
		opened, blocked := t.tryEnter(rec, odds, market, strike, now)
		result.Opened = opened
		result.BlockedReason = blocked
	}

	if t.store != nil {
		if err := t.store.Save(ctx, t.state); err != nil {
			t.log.Warn("paper: failed to persist state", "err", err)
		}
	}

	return result
}

// dailyReset zeroes dailyLoss once the UTC date rolls over. Spec §4.7 step 1.
func (t *Trader) dailyReset(now time.Time) {
	today := now.UTC().Truncate(24 * time.Hour)
	last := t.state.LastDailyReset.UTC().Truncate(24 * time.Hour)
	if today.Equal(last) {
		return
	}
	t.state.DailyLoss = 0
	t.state.LastDailyReset = now
}

// settleExpired closes any position that has reached expiry, resolving
// at 1 or 0 with no exit fee. A position expires when the currently
// tracked market's timeLeftMin has run out, or independently when now
// has reached the position's own endDate — the latter catches a
// position left open from a prior window after the orchestrator has
// already rolled to tracking the next market's slug. Spec §4.7 step 2.
func (t *Trader) settleExpired(spot float64, timeLeftMin float64, now time.Time) []domain.ClosedTrade {
	var closed []domain.ClosedTrade
	remaining := make([]domain.Position, 0, len(t.state.Positions))
	for _, p := range t.state.Positions {
		expired := timeLeftMin <= 0 || (!p.EndDate.IsZero() && !now.Before(p.EndDate))
		if !expired || spot == 0 || p.StrikePrice == 0 {
			remaining = append(remaining, p)
			continue
		}
		won := p.Side == domain.SideUp && spot >= p.StrikePrice
		if p.Side == domain.SideDown {
			won = spot < p.StrikePrice
		}
		settlePrice := 0.0
		if won {
			settlePrice = 1.0
		}
		pnl := p.Shares*settlePrice - p.Amount
		closed = append(closed, domain.ClosedTrade{
			Position:   p,
			ExitPrice:  settlePrice,
			ExitTime:   now,
			ExitReason: domain.ExitSettlement,
			PnL:        pnl,
			Won:        won,
		})
		t.state.Balance += p.Shares * settlePrice
		t.record(won, pnl, string(domain.ExitSettlement), now)
	}
	t.state.Positions = remaining
	return closed
}

// exitScan applies the time-guard, stop-loss, and take-profit rules to
// every open position on slug. Spec §4.7 step 3.
func (t *Trader) exitScan(slug string, odds domain.OddsPair, trend domain.Trend, timeLeftMin float64, now time.Time) []domain.ClosedTrade {
	var closed []domain.ClosedTrade
	for _, p := range t.state.Positions {
		if p.MarketSlug != slug {
			continue
		}
		price := odds.Side(p.Side).Price
		reason, exit := t.checkExit(p, price, trend, timeLeftMin, now)
		if !exit {
			continue
		}
		pnl, proceeds := t.closePosition(p, price, reason)
		closed = append(closed, domain.ClosedTrade{
			Position:   p,
			ExitPrice:  price,
			ExitTime:   now,
			ExitReason: reason,
			PnL:        pnl,
			Won:        pnl > 0,
		})
		t.state.Balance += proceeds
		t.record(pnl > 0, pnl, string(reason), now)
	}
	for _, c := range closed {
		t.state.Positions = removeByID(t.state.Positions, c.Position.ID)
	}
	return closed
}

// checkExit evaluates time-guard, stop-loss, and take-profit in that
// order for one open position.
func (t *Trader) checkExit(p domain.Position, price float64, trend domain.Trend, timeLeftMin float64, now time.Time) (domain.ExitReason, bool) {
	guard := t.cfg.TimeGuardDefaultMin
	if p.Strategy == domain.StrategyLateWindow {
		guard = t.cfg.TimeGuardLateWindowMin
	}
	if timeLeftMin <= guard {
		favored := price > 0.50
		hopeful := price > 0.20 && trend.Matches(p.Side)
		// nearLoss: the position is already priced as a near-total loss, so
		// forcing an exit here buys nothing over letting it settle.
		nearLoss := price <= t.cfg.ResolutionThreshold
		if !(favored || hopeful || nearLoss) {
			return domain.ExitTimeGuard, true
		}
	}

	roi := (price - p.EntryPrice) / p.EntryPrice
	grace := time.Duration(t.cfg.StopLossGracePeriodSeconds) * time.Second
	if roi <= t.cfg.StopLossRoiPct && now.Sub(p.EntryTime) > grace {
		return domain.ExitStopLoss, true
	}

	switch p.Strategy {
	case domain.StrategyMomentum:
		if roi >= t.cfg.MomentumTakeProfitRoiPct {
			return domain.ExitTakeProfit, true
		}
	case domain.StrategyMeanReversion:
		if price >= 0.50 || timeLeftMin <= 3 {
			return domain.ExitTakeProfit, true
		}
	case domain.StrategyLateWindow:
		// hold to expiry
	default:
		if roi >= t.cfg.TakeProfitRoiPct {
			return domain.ExitTakeProfit, true
		}
	}

	return "", false
}

// closePosition computes PnL and proceeds for a non-settlement exit
// (fee applied), per spec §4.7 step 3/5.
func (t *Trader) closePosition(p domain.Position, price float64, reason domain.ExitReason) (pnl, proceeds float64) {
	gross := p.Shares * price
	f := t.fee(gross, price)
	proceeds = gross - f
	pnl = proceeds - p.Amount
	return pnl, proceeds
}

// tryEnter runs the ordered entry gates from spec §4.7 step 4, then
// sizes and opens a new position on the first gate failure-free pass.
func (t *Trader) tryEnter(rec domain.Recommendation, odds domain.OddsPair, market domain.Market, strike float64, now time.Time) (*domain.Position, string) {
	price := odds.Side(rec.Side).Price

	if price < t.cfg.MinEntryPrice || price > t.cfg.MaxEntryPrice {
		return nil, "Price Band"
	}
	if t.state.ConsecutiveLosses >= t.cfg.MaxConsecutiveLosses {
		return nil, "Circuit Breaker"
	}
	// Duplicate-market guard blocks only same-side duplicates; an
	// opposite-side position is handled by the flip-flop rule below.
	if t.hasSameSideOpen(market.Slug, rec.Side) {
		return nil, "Duplicate Market"
	}
	if t.state.DailyLoss >= t.state.Balance*t.cfg.DailyLossLimitPct/100 {
		return nil, "Daily Loss Limit (%)"
	}
	if !t.state.LastStopLossTime.IsZero() && now.Sub(t.state.LastStopLossTime) < time.Duration(t.cfg.CooldownMinutes)*time.Minute {
		return nil, "Post-SL Cooldown"
	}
	if !t.state.LastEntryTime.IsZero() && now.Sub(t.state.LastEntryTime) < time.Duration(t.cfg.EntryCooldownSeconds)*time.Second {
		return nil, "Entry Debounce"
	}

	t.flipClose(market.Slug, rec.Side, odds, now)

	open := t.countOpen(market.Slug)
	if open >= t.cfg.MaxConcurrentPositions {
		return nil, "Capacity"
	}

	stake := t.stakeFor(rec, price)
	f := t.fee(stake, price)
	if t.state.Balance < stake+f {
		return nil, "Balance"
	}

	pos := domain.Position{
		ID:          uuid.NewString(),
		MarketSlug:  market.Slug,
		Side:        rec.Side,
		Strategy:    rec.Strategy,
		EntryPrice:  price,
		Amount:      stake + f,
		Shares:      stake / price,
		EntryTime:   now,
		StrikePrice: strike,
		EndDate:     market.EndDate,
	}

	t.state.Balance -= stake + f
	t.state.Positions = append(t.state.Positions, pos)
	t.state.LastEntryTime = now

	t.log.Info("paper: opened position",
		"slug", market.Slug, "side", pos.Side, "strategy", pos.Strategy,
		"price", fmt.Sprintf("%.3f", price), "stake", fmt.Sprintf("$%.2f", stake+f),
		"balance", fmt.Sprintf("$%.2f", t.state.Balance))

	return &pos, ""
}

// flipClose closes any existing positions on slug whose side is the
// opposite of side, per spec §4.7 step 4's flip-flop rule.
func (t *Trader) flipClose(slug string, side domain.Side, odds domain.OddsPair, now time.Time) {
	var toClose []domain.Position
	for _, p := range t.state.Positions {
		if p.MarketSlug == slug && p.Side != side {
			toClose = append(toClose, p)
		}
	}
	for _, p := range toClose {
		price := odds.Side(p.Side).Price
		pnl, proceeds := t.closePosition(p, price, domain.ExitBreakeven)
		t.state.Balance += proceeds
		t.record(pnl > 0, pnl, "FLIP_CLOSE", now)
		t.state.Positions = removeByID(t.state.Positions, p.ID)
	}
}

// hasSameSideOpen reports whether an open position already exists on
// slug for side.
func (t *Trader) hasSameSideOpen(slug string, side domain.Side) bool {
	for _, p := range t.state.Positions {
		if p.MarketSlug == slug && p.Side == side {
			return true
		}
	}
	return false
}

func (t *Trader) countOpen(slug string) int {
	n := 0
	for _, p := range t.state.Positions {
		if p.MarketSlug == slug {
			n++
		}
	}
	return n
}

// record appends the outcome to bookkeeping state per spec §4.7 step 6.
func (t *Trader) record(won bool, pnl float64, reason string, now time.Time) {
	t.state.RecordResult(won)
	if pnl < 0 {
		t.state.DailyLoss += -pnl
	} else {
		t.state.DailyLoss -= pnl
		if t.state.DailyLoss < 0 {
			t.state.DailyLoss = 0
		}
	}
	t.state.LastExitTime = now
	if strings.Contains(reason, "STOP_LOSS") {
		t.state.LastStopLossTime = now
	}
}

func removeByID(positions []domain.Position, id string) []domain.Position {
	out := make([]domain.Position, 0, len(positions))
	for _, p := range positions {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}
