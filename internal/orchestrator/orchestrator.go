// Package orchestrator owns the dual-cadence tick loop: a fast ticker
// refreshes UI/PnL state, a slow ticker runs the full
// candles->indicators->evaluator->trader pass. It is the single owner
// of every piece of mutable domain state (candle ring, strike latch,
// paper state), per spec §5's single-consumer discipline. Grounded on
// the teacher's internal/scanner/scanner.go Run/runCycle ticker-select
// shape, generalized from one cadence to two.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/199ocero/PolymarketBTC15mAssistant/internal/candle"
	"github.com/199ocero/PolymarketBTC15mAssistant/internal/clock"
	"github.com/199ocero/PolymarketBTC15mAssistant/internal/domain"
	"github.com/199ocero/PolymarketBTC15mAssistant/internal/paper"
	"github.com/199ocero/PolymarketBTC15mAssistant/internal/ports"
	"github.com/199ocero/PolymarketBTC15mAssistant/internal/snapshot"
	"github.com/199ocero/PolymarketBTC15mAssistant/internal/strategy"
	"github.com/199ocero/PolymarketBTC15mAssistant/internal/strike"
)

// Config holds the orchestrator's own tunables, independent of the
// strategy/paper policy configs it wires together.
type Config struct {
	FastTick             time.Duration // UI/PnL refresh cadence, spec §4.8 default 250ms
	SlowTickEveryNFast    int           // slow pass runs every Nth fast tick, spec §4.8 default 8 (=2s)
	StrikePollInterval    time.Duration // strike.txt poll cadence, spec §4.8 default ~5s
	CandleRingCapacity    int           // retained closed candles, spec requires >= 240
	MaxConsecutiveErrors  int           // hard-error escalation threshold, spec §4.8/§7 default 10
	OnChainStaleAfter     time.Duration // spot-feed staleness bound before falling back to chainlink, spec §6 ~10s
	SpotTickBufferSize    int
}

// DefaultConfig returns the cadences and bounds named in spec §4.8/§6/§7.
func DefaultConfig() Config {
	return Config{
		FastTick:             250 * time.Millisecond,
		SlowTickEveryNFast:   8,
		StrikePollInterval:   5 * time.Second,
		CandleRingCapacity:   240,
		MaxConsecutiveErrors: 10,
		OnChainStaleAfter:    10 * time.Second,
		SpotTickBufferSize:   256,
	}
}

// Dependencies bundles every adapter the orchestrator drives.
type Dependencies struct {
	SpotFeed    ports.SpotFeed
	OnChain     ports.OnChainFeed
	Market      ports.MarketProvider
	Odds        ports.OddsProvider
	Notifier    ports.Notifier
	SignalStore ports.SignalStore
	Dashboard   ports.DashboardBroadcaster
	StrikeFile  string
}

// ErrFatal is returned from Run once MaxConsecutiveErrors consecutive
// hard errors have occurred, per spec §4.8/§6's exit-code-1 contract.
var ErrFatal = errors.New("orchestrator: too many consecutive hard errors")

// Orchestrator runs the full pipeline end to end: it is the sole owner
// of the candle ring, strike latch, and paper trader state.
type Orchestrator struct {
	cfg  Config
	deps Dependencies
	log  *slog.Logger

	aggregator *candle.Aggregator
	latch      *strike.Latch
	assembler  *snapshot.Assembler
	evaluator  *strategy.Evaluator
	trader     *paper.Trader

	spotMu      sync.Mutex
	lastSpot    float64
	lastSpotAt  time.Time

	onchainMu   sync.Mutex
	lastOnChain float64
	lastOnChainAt time.Time

	market domain.Market

	fastCount     int
	consecutiveErrs int
}

// New builds an Orchestrator. trader and evaluator are constructed by
// the caller (cmd/btcpulse) and passed in; cmd/replay does not use the
// orchestrator and drives the same pipeline through replay.Run.
func New(cfg Config, deps Dependencies, evaluator *strategy.Evaluator, trader *paper.Trader, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	if cfg.CandleRingCapacity <= 0 {
		cfg.CandleRingCapacity = 240
	}
	if cfg.SpotTickBufferSize <= 0 {
		cfg.SpotTickBufferSize = 256
	}
	return &Orchestrator{
		cfg:        cfg,
		deps:       deps,
		log:        log,
		aggregator: candle.NewAggregator(cfg.CandleRingCapacity),
		latch:      strike.NewLatch(),
		assembler:  snapshot.NewAssembler(),
		evaluator:  evaluator,
		trader:     trader,
	}
}

// Run drives the dual-cadence loop until ctx is canceled or a fatal
// error threshold is reached. Returns ErrFatal in the latter case, nil
// on a clean shutdown.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.log.Info("orchestrator starting",
		"fast_tick", o.cfg.FastTick, "slow_every", o.cfg.SlowTickEveryNFast, "candle_capacity", o.cfg.CandleRingCapacity)

	spotTicks := make(chan ports.SpotTick, o.cfg.SpotTickBufferSize)
	var wg sync.WaitGroup

	if o.deps.SpotFeed != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := o.deps.SpotFeed.Run(ctx, spotTicks); err != nil {
				o.log.Warn("orchestrator: spot feed exited", "err", err)
			}
		}()
	}

	var strikeStop chan struct{}
	if o.deps.StrikeFile != "" {
		strikeStop = make(chan struct{})
		poller := strike.NewFilePoller(o.deps.StrikeFile, o.cfg.StrikePollInterval, o.latch, o.log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			poller.Run(strikeStop)
		}()
	}

	ticker := time.NewTicker(o.cfg.FastTick)
	defer ticker.Stop()

	var runErr error
loop:
	for {
		select {
		case <-ctx.Done():
			o.log.Info("orchestrator stopped")
			break loop
		case tick := <-spotTicks:
			o.onSpotTick(tick)
		case <-ticker.C:
			o.drainSpotTicks(spotTicks)
			o.fastTick(ctx)
			o.fastCount++
			if o.fastCount%o.cfg.SlowTickEveryNFast == 0 {
				if err := o.slowTick(ctx); err != nil {
					o.log.Error("orchestrator: slow tick failed", "err", err)
					o.consecutiveErrs++
					if o.consecutiveErrs >= o.cfg.MaxConsecutiveErrors {
						runErr = fmt.Errorf("%w: %v", ErrFatal, err)
						break loop
					}
				} else {
					o.consecutiveErrs = 0
				}
			}
		}
	}

	if strikeStop != nil {
		close(strikeStop)
	}
	wg.Wait()

	if o.deps.SignalStore != nil {
		if err := o.deps.SignalStore.Close(); err != nil {
			o.log.Warn("orchestrator: error closing signal store", "err", err)
		}
	}

	return runErr
}

// onSpotTick folds one tick into the candle ring and updates the
// last-value spot price slot. Called only from the single consumer
// loop, never concurrently, so the aggregator needs no lock of its own.
func (o *Orchestrator) onSpotTick(tick ports.SpotTick) {
	o.aggregator.Tick(tick.TimestampMs, tick.Price)
	o.spotMu.Lock()
	o.lastSpot = tick.Price
	o.lastSpotAt = time.UnixMilli(tick.TimestampMs)
	o.spotMu.Unlock()
}

// drainSpotTicks folds every tick currently buffered on ch without
// blocking, so a fast tick never waits on the feed.
func (o *Orchestrator) drainSpotTicks(ch <-chan ports.SpotTick) {
	for {
		select {
		case tick := <-ch:
			o.onSpotTick(tick)
		default:
			return
		}
	}
}

// spotPrice returns the last observed spot price and whether it is
// stale relative to cfg.OnChainStaleAfter.
func (o *Orchestrator) spotPrice(now time.Time) (price float64, stale bool) {
	o.spotMu.Lock()
	defer o.spotMu.Unlock()
	if o.lastSpotAt.IsZero() {
		return 0, true
	}
	return o.lastSpot, now.Sub(o.lastSpotAt) > o.cfg.OnChainStaleAfter
}

// fastTick refreshes dashboard state from already-known values; it
// never mutates PaperState or fetches anything over the network, per
// spec §5's "fast tick never mutates PaperState" rule.
func (o *Orchestrator) fastTick(ctx context.Context) {
	if o.deps.Dashboard == nil {
		return
	}
	now := time.Now()
	spot, stale := o.spotPrice(now)
	state := o.trader.State()

	strikeVal, _ := o.latch.Value()
	payload := ports.StatePayload{
		MarketSlug:    o.market.Slug,
		MarketName:    domain.TruncateQuestion(o.market.Question, o.market.ConditionID, 80),
		BinancePrice:  spot,
		CurrentPrice:  spot,
		StrikePrice:   strikeVal,
		Gap:           spot - strikeVal,
		PaperBalance:  state.Balance,
		OpenPositions: len(state.Positions),
		WinsOverall:   countWins(state.RecentResults),
		LossesOverall: len(state.RecentResults) - countWins(state.RecentResults),
	}
	if !o.market.EndDate.IsZero() {
		remaining := o.market.TimeLeftMin(now)
		payload.TimeLeftMin = remaining
		payload.TimeLeftStr = fmt.Sprintf("%.1fm", remaining)
	}
	for _, p := range state.Positions {
		if p.MarketSlug == o.market.Slug {
			payload.Side = string(p.Side)
			payload.PosPnL += p.UnrealizedPnL(spot)
		}
	}
	if stale {
		payload.Phase = "STALE_SPOT"
	}
	o.deps.Dashboard.BroadcastState(payload)
}

// slowTick runs the full pipeline: fetch market + odds, resolve the
// strike, assemble a snapshot, evaluate, and drive the paper trader.
// Exits are applied before entries inside trader.Tick, preserving the
// same-tick flip ordering guarantee from spec §5.
func (o *Orchestrator) slowTick(ctx context.Context) error {
	now := time.Now()

	market, err := o.deps.Market.ActiveMarket(ctx, now)
	if err != nil {
		return fmt.Errorf("orchestrator.slowTick: active market: %w", err)
	}
	if market.Slug != o.market.Slug {
		o.log.Info("orchestrator: new market window", "slug", market.Slug)
		o.latch.Reset(market.Slug)
	}
	o.market = market

	o.latch.TryFromMarket(market.Question, market.Metadata)

	spot, staleSpot := o.spotPrice(now)
	onChainPrice, staleOnChain := o.pollOnChain(ctx, staleSpot)
	if onChainPrice > 0 {
		o.latch.LatchFromChainlink(onChainPrice)
	}
	if (spot == 0 || staleSpot) && onChainPrice > 0 {
		spot = onChainPrice
	}

	strikeVal, _ := o.latch.Value()

	upPrice, upFound, err := o.deps.Odds.FetchOdds(ctx, market.UpToken().TokenID, domain.SideUp)
	if err != nil {
		return fmt.Errorf("orchestrator.slowTick: fetch up odds: %w", err)
	}
	downPrice, downFound, err := o.deps.Odds.FetchOdds(ctx, market.DownToken().TokenID, domain.SideDown)
	if err != nil {
		return fmt.Errorf("orchestrator.slowTick: fetch down odds: %w", err)
	}
	odds := domain.OddsPair{
		Up:   domain.Odds{TokenID: market.UpToken().TokenID, Side: domain.SideUp, Price: zeroIfMissing(upPrice, upFound)},
		Down: domain.Odds{TokenID: market.DownToken().TokenID, Side: domain.SideDown, Price: zeroIfMissing(downPrice, downFound)},
	}

	win := marketWindow(market, now)
	snap := o.assembler.Build(snapshot.Input{
		Market:       market,
		Odds:         odds,
		Candles:      o.aggregator.WithForming(),
		SpotPrice:    spot,
		StrikePrice:  strikeVal,
		Window:       win,
		Now:          now,
		StaleSpot:    staleSpot,
		StaleOnChain: staleOnChain,
	})

	rec := o.evaluator.Evaluate(snap)
	trend := snapshot.Trend(snap)

	result := o.trader.Tick(ctx, rec, odds, market, spot, strikeVal, trend, snap.RemainingMin(), now)
	after := o.trader.State()

	if o.deps.SignalStore != nil {
		if err := o.deps.SignalStore.SaveSignal(ctx, snap, rec); err != nil {
			o.log.Warn("orchestrator: failed to save signal", "err", err)
		}
	}

	o.reportOpened(ctx, result.Opened)
	o.reportClosed(ctx, result.Closed)

	status := ports.TickStatus{
		Market:         market,
		Snapshot:       snap,
		Recommendation: rec,
		TickResult:     result.BlockedReason,
		Balance:        after.Balance,
		OpenPositions:  len(after.Positions),
	}
	if result.Opened != nil {
		status.TickResult = "OPENED"
	}
	if o.deps.Notifier != nil {
		if err := o.deps.Notifier.NotifyTick(ctx, status); err != nil {
			o.log.Warn("orchestrator: notifier tick error", "err", err)
		}
	}
	if o.deps.Dashboard != nil && result.Opened != nil {
		o.deps.Dashboard.BroadcastActivity(fmt.Sprintf("opened %s %s", result.Opened.Side, result.Opened.Strategy), "trade")
	}

	return nil
}

func (o *Orchestrator) reportOpened(ctx context.Context, pos *domain.Position) {
	if pos == nil {
		return
	}
	if o.deps.SignalStore != nil {
		if err := o.deps.SignalStore.SaveOpenedPosition(ctx, *pos); err != nil {
			o.log.Warn("orchestrator: failed to save opened position", "err", err)
		}
	}
	if o.deps.Notifier != nil {
		if err := o.deps.Notifier.NotifyOpened(ctx, *pos); err != nil {
			o.log.Warn("orchestrator: notifier open error", "err", err)
		}
	}
}

func (o *Orchestrator) reportClosed(ctx context.Context, trades []domain.ClosedTrade) {
	for _, trade := range trades {
		if o.deps.SignalStore != nil {
			if err := o.deps.SignalStore.SaveClosedTrade(ctx, trade); err != nil {
				o.log.Warn("orchestrator: failed to save closed trade", "err", err)
			}
		}
		if o.deps.Notifier != nil {
			if err := o.deps.Notifier.NotifyClosed(ctx, trade); err != nil {
				o.log.Warn("orchestrator: notifier close error", "err", err)
			}
		}
		if o.deps.Dashboard != nil {
			o.deps.Dashboard.BroadcastActivity(fmt.Sprintf("closed %s %s pnl=%.2f", trade.Position.Side, trade.ExitReason, trade.PnL), "trade")
		}
	}
}

// pollOnChain returns the cached chainlink price while it is younger than
// OnChainStaleAfter and the spot feed is fresh; otherwise it fetches a new
// one, per spec §6's "fallback to REST call if stale beyond ~10s".
func (o *Orchestrator) pollOnChain(ctx context.Context, spotStale bool) (float64, bool) {
	if o.deps.OnChain == nil {
		return 0, true
	}
	now := time.Now()
	o.onchainMu.Lock()
	fresh := !o.lastOnChainAt.IsZero() && now.Sub(o.lastOnChainAt) < o.cfg.OnChainStaleAfter
	cached := o.lastOnChain
	o.onchainMu.Unlock()
	if fresh && !spotStale {
		return cached, false
	}

	price, err := o.deps.OnChain.LatestPrice(ctx)
	if err != nil {
		o.log.Warn("orchestrator: chainlink poll failed", "err", err)
		return cached, true
	}
	o.onchainMu.Lock()
	o.lastOnChain = price
	o.lastOnChainAt = now
	o.onchainMu.Unlock()
	return price, false
}

// marketWindow derives the 15-minute window backing market, preferring
// its own EndDate over the clock-derived window.
func marketWindow(market domain.Market, now time.Time) clock.Window {
	if !market.EndDate.IsZero() {
		return clock.Window{Start: market.EndDate.Add(-clock.WindowMinutes * time.Minute), End: market.EndDate}
	}
	return clock.Current(now)
}

func zeroIfMissing(price float64, found bool) float64 {
	if !found {
		return 0
	}
	return price
}

func countWins(results []bool) int {
	n := 0
	for _, w := range results {
		if w {
			n++
		}
	}
	return n
}
