package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/199ocero/PolymarketBTC15mAssistant/internal/adapters/dashboard"
	"github.com/199ocero/PolymarketBTC15mAssistant/internal/adapters/feed"
	"github.com/199ocero/PolymarketBTC15mAssistant/internal/adapters/market"
	"github.com/199ocero/PolymarketBTC15mAssistant/internal/adapters/notify"
	"github.com/199ocero/PolymarketBTC15mAssistant/internal/adapters/onchain"
	"github.com/199ocero/PolymarketBTC15mAssistant/internal/adapters/storage"
	"github.com/199ocero/PolymarketBTC15mAssistant/internal/config"
	"github.com/199ocero/PolymarketBTC15mAssistant/internal/domain"
	"github.com/199ocero/PolymarketBTC15mAssistant/internal/orchestrator"
	"github.com/199ocero/PolymarketBTC15mAssistant/internal/paper"
	"github.com/199ocero/PolymarketBTC15mAssistant/internal/ports"
	"github.com/199ocero/PolymarketBTC15mAssistant/internal/strategy"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	slog.Info("btcpulse starting", "config", *configPath, "slug", cfg.Market.Slug, "series_slug", cfg.Market.SeriesSlug)

	signalStore, err := storage.NewSQLiteStorage(cfg.Storage.SQLiteDSN, slog.Default())
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.SQLiteDSN)
		os.Exit(1)
	}
	defer signalStore.Close()

	stateStore := storage.NewPaperStateStore(cfg.Storage.PaperStatePath)
	initial, err := stateStore.Load(context.Background())
	if err != nil {
		slog.Warn("failed to load paper state, starting fresh", "err", err)
	}
	if initial.Balance == 0 && initial.LastDailyReset.IsZero() {
		initial = domain.DefaultPaperState(cfg.Paper.StartingBalance)
	}

	trader := paper.New(cfg.Paper.ToPaperConfig(), initial, stateStore, slog.Default())
	evaluator := strategy.NewEvaluator(cfg.Strategy.ToStrategyConfig())

	resolveSlug := resolveSlugFunc(cfg.Market)
	marketClient := market.NewClient(cfg.Market.CLOBBase, cfg.Market.GammaBase, cfg.Market.HeavyFetchIntervalDuration(), resolveSlug)

	spotFeed := feed.NewSpotWSFeed(cfg.Feeds.SpotWSURL, slog.Default())

	var onChainFeed ports.OnChainFeed
	if cfg.Feeds.PolygonRPCURL != "" && cfg.Feeds.ChainlinkBTCUSDAggregator != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		cl, err := onchain.NewChainlinkFeed(ctx, cfg.Feeds.PolygonRPCURL, cfg.Feeds.ChainlinkBTCUSDAggregator)
		cancel()
		if err != nil {
			slog.Warn("failed to dial chainlink feed, continuing without on-chain fallback", "err", err)
		} else {
			onChainFeed = cl
		}
	}

	notifiers := []ports.Notifier{notify.NewConsole()}
	if cfg.DiscordWebhookURL != "" {
		notifiers = append(notifiers, notify.NewDiscord(cfg.DiscordWebhookURL, slog.Default()))
	}

	deps := orchestrator.Dependencies{
		SpotFeed:    spotFeed,
		OnChain:     onChainFeed,
		Market:      marketClient,
		Odds:        marketClient,
		Notifier:    notify.Fanout(notifiers),
		SignalStore: signalStore,
		Dashboard:   dashboard.Noop{},
		StrikeFile:  cfg.Market.StrikeFilePath,
	}

	orch := orchestrator.New(orchestrator.DefaultConfig(), deps, evaluator, trader, slog.Default())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := orch.Run(ctx); err != nil {
		slog.Error("orchestrator exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("btcpulse stopped cleanly")
}

// resolveSlugFunc picks the slug resolution strategy named in spec §6:
// a fixed POLYMARKET_SLUG, or series-derived when auto-select is on.
func resolveSlugFunc(cfg config.MarketConfig) func(now time.Time) string {
	if cfg.AutoSelectLatest {
		return market.SeriesSlugResolver(cfg.SeriesSlug)
	}
	return market.FixedSlugResolver(cfg.Slug)
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
