// Package config loads the three-layer configuration every cmd
// entrypoint starts from: a YAML file, an optional .env file, then
// explicit environment variable overrides, then hard-coded defaults for
// anything still zero. Grounded verbatim on the teacher's
// config/config.go precedence and error-wrapping style.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/199ocero/PolymarketBTC15mAssistant/internal/paper"
	"github.com/199ocero/PolymarketBTC15mAssistant/internal/strategy"
)

// Config is the full configuration tree for the orchestrator and the
// replayer, mirroring the teacher's Config{Scanner, API, Storage, Log}
// nesting with this repo's own domains in place of the scanner's.
type Config struct {
	Market   MarketConfig   `yaml:"market"`
	Feeds    FeedsConfig    `yaml:"feeds"`
	Strategy StrategyConfig `yaml:"strategy"`
	Paper    PaperConfig    `yaml:"paper"`
	Storage  StorageConfig  `yaml:"storage"`
	Log      LogConfig      `yaml:"log"`

	Port              int    `yaml:"port"`
	DiscordWebhookURL string `yaml:"discord_webhook_url"`
}

// MarketConfig resolves which Polymarket-style 15-minute BTC window is
// "active" and how its metadata/odds are fetched, per spec §4.4/§4.5/§6.
type MarketConfig struct {
	Slug               string `yaml:"slug"`                 // POLYMARKET_SLUG
	SeriesID           string `yaml:"series_id"`            // POLYMARKET_SERIES_ID
	SeriesSlug         string `yaml:"series_slug"`          // POLYMARKET_SERIES_SLUG
	AutoSelectLatest   bool   `yaml:"auto_select_latest"`   // POLYMARKET_AUTO_SELECT_LATEST
	LiveWSURL          string `yaml:"live_ws_url"`          // POLYMARKET_LIVE_WS_URL (unused: see DESIGN.md)
	CLOBBase           string `yaml:"clob_base"`
	GammaBase          string `yaml:"gamma_base"`
	HeavyFetchInterval int    `yaml:"heavy_fetch_interval_ms"`
	StrikeFilePath     string `yaml:"strike_file_path"`
}

// FeedsConfig addresses the spot and on-chain feed adapters.
type FeedsConfig struct {
	SpotWSURL                string `yaml:"spot_ws_url"`
	PolygonRPCURL            string `yaml:"polygon_rpc_url"`            // POLYGON_RPC_URL(S)
	PolygonWSSURL            string `yaml:"polygon_wss_url"`            // POLYGON_WSS_URL(S)
	ChainlinkBTCUSDAggregator string `yaml:"chainlink_btc_usd_aggregator"` // CHAINLINK_BTC_USD_AGGREGATOR
}

// StrategyConfig mirrors strategy.Config's fields one-for-one for YAML/env
// configurability.
type StrategyConfig struct {
	MinCandles         int     `yaml:"min_candles"`
	MinOddsEdge        float64 `yaml:"min_odds_edge"`
	MomentumDiffUSD    float64 `yaml:"momentum_diff_usd"`
	LateWindowDiffUSD  float64 `yaml:"late_window_diff_usd"`
	LateWindowMaxVol   float64 `yaml:"late_window_max_vol"`
	LateWindowMinHARun int     `yaml:"late_window_min_ha_run"`
	SniperDiffUSD      float64 `yaml:"sniper_diff_usd"`
	SniperMinHARun     int     `yaml:"sniper_min_ha_run"`
}

// ToStrategyConfig converts to the strategy package's own Config type.
func (c StrategyConfig) ToStrategyConfig() strategy.Config {
	return strategy.Config{
		MinCandles:         c.MinCandles,
		MinOddsEdge:        c.MinOddsEdge,
		MomentumDiffUSD:    c.MomentumDiffUSD,
		LateWindowDiffUSD:  c.LateWindowDiffUSD,
		LateWindowMaxVol:   c.LateWindowMaxVol,
		LateWindowMinHARun: c.LateWindowMinHARun,
		SniperDiffUSD:      c.SniperDiffUSD,
		SniperMinHARun:     c.SniperMinHARun,
	}
}

// PaperConfig mirrors paper.Config's fields one-for-one, per spec §6's
// numeric policy list.
type PaperConfig struct {
	StartingBalance            float64 `yaml:"starting_balance"` // PAPER_BALANCE
	StopLossRoiPct             float64 `yaml:"stop_loss_roi_pct"`
	StopLossGracePeriodSeconds int     `yaml:"stop_loss_grace_period_seconds"`
	MomentumTakeProfitRoiPct   float64 `yaml:"momentum_take_profit_roi_pct"`
	TakeProfitRoiPct           float64 `yaml:"take_profit_roi_pct"`
	MaxConcurrentPositions     int     `yaml:"max_concurrent_positions"`
	DailyLossLimitPct          float64 `yaml:"daily_loss_limit_pct"`
	EntryCooldownSeconds       int     `yaml:"entry_cooldown_seconds"`
	CooldownMinutes            int     `yaml:"cooldown_minutes"`
	MinEntryPrice              float64 `yaml:"min_entry_price"`
	MaxEntryPrice              float64 `yaml:"max_entry_price"`
	MaxConsecutiveLosses       int     `yaml:"max_consecutive_losses"`
	ResolutionThreshold        float64 `yaml:"resolution_threshold"`
	TimeGuardDefaultMin        float64 `yaml:"time_guard_minutes"`
	TimeGuardLateWindowMin     float64 `yaml:"time_guard_late_window_minutes"`
	UseKelly                   bool    `yaml:"use_kelly"`
	KellyFraction              float64 `yaml:"kelly_fraction"`
	MinKellyBet                float64 `yaml:"min_kelly_bet"`
	MaxKellyBet                float64 `yaml:"max_kelly_bet"`
	UsePolymarketDynamicFees   bool    `yaml:"use_polymarket_dynamic_fees"`
	FeePct                     float64 `yaml:"fee_pct"`
	FixedBetLateWindow         float64 `yaml:"fixed_bet_late_window"`
	FixedBetMomentum           float64 `yaml:"fixed_bet_momentum"`
	FixedBetMeanReversion      float64 `yaml:"fixed_bet_mean_reversion"`
	FixedBetFallback           float64 `yaml:"fixed_bet_fallback"`
}

// ToPaperConfig converts to the paper package's own Config type.
func (c PaperConfig) ToPaperConfig() paper.Config {
	return paper.Config{
		StartingBalance:             c.StartingBalance,
		StopLossRoiPct:              c.StopLossRoiPct,
		StopLossGracePeriodSeconds:  c.StopLossGracePeriodSeconds,
		MomentumTakeProfitRoiPct:    c.MomentumTakeProfitRoiPct,
		TakeProfitRoiPct:            c.TakeProfitRoiPct,
		MaxConcurrentPositions:      c.MaxConcurrentPositions,
		DailyLossLimitPct:           c.DailyLossLimitPct,
		EntryCooldownSeconds:        c.EntryCooldownSeconds,
		CooldownMinutes:             c.CooldownMinutes,
		MinEntryPrice:               c.MinEntryPrice,
		MaxEntryPrice:               c.MaxEntryPrice,
		MaxConsecutiveLosses:        c.MaxConsecutiveLosses,
		ResolutionThreshold:         c.ResolutionThreshold,
		TimeGuardDefaultMin:         c.TimeGuardDefaultMin,
		TimeGuardLateWindowMin:      c.TimeGuardLateWindowMin,
		UseKelly:                    c.UseKelly,
		KellyFraction:               c.KellyFraction,
		MinKellyBet:                 c.MinKellyBet,
		MaxKellyBet:                 c.MaxKellyBet,
		UsePolymarketDynamicFees:    c.UsePolymarketDynamicFees,
		FeePct:                      c.FeePct,
		FixedBetLateWindow:          c.FixedBetLateWindow,
		FixedBetMomentum:            c.FixedBetMomentum,
		FixedBetMeanReversion:       c.FixedBetMeanReversion,
		FixedBetFallback:            c.FixedBetFallback,
	}
}

// StorageConfig controls where persisted data lives.
type StorageConfig struct {
	SQLiteDSN      string `yaml:"sqlite_dsn"`
	PaperStatePath string `yaml:"paper_state_path"`
}

// LogConfig controls logging format and level.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// HeavyFetchIntervalDuration returns MarketConfig.HeavyFetchInterval as
// a time.Duration.
func (c MarketConfig) HeavyFetchIntervalDuration() time.Duration {
	return time.Duration(c.HeavyFetchInterval) * time.Millisecond
}

// Load reads path (if it exists), applies a .env file and explicit
// environment variable overrides, then fills in defaults. A missing
// YAML file is not an error — deployments driven entirely by
// environment variables are supported, same as the original env-only
// Node process this spec distills.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
			}
		}
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// applyEnvOverrides overwrites YAML values with environment variables
// named in spec §6, for whichever are present.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Port = n
		}
	}
	if v := os.Getenv("PAPER_BALANCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Paper.StartingBalance = f
		}
	}
	if v := os.Getenv("POLYGON_RPC_URL"); v != "" {
		cfg.Feeds.PolygonRPCURL = v
	}
	if v := os.Getenv("POLYGON_RPC_URLS"); v != "" {
		cfg.Feeds.PolygonRPCURL = firstCSV(v)
	}
	if v := os.Getenv("POLYGON_WSS_URL"); v != "" {
		cfg.Feeds.PolygonWSSURL = v
	}
	if v := os.Getenv("POLYGON_WSS_URLS"); v != "" {
		cfg.Feeds.PolygonWSSURL = firstCSV(v)
	}
	if v := os.Getenv("CHAINLINK_BTC_USD_AGGREGATOR"); v != "" {
		cfg.Feeds.ChainlinkBTCUSDAggregator = v
	}
	if v := os.Getenv("POLYMARKET_SLUG"); v != "" {
		cfg.Market.Slug = v
	}
	if v := os.Getenv("POLYMARKET_SERIES_ID"); v != "" {
		cfg.Market.SeriesID = v
	}
	if v := os.Getenv("POLYMARKET_SERIES_SLUG"); v != "" {
		cfg.Market.SeriesSlug = v
	}
	if v := os.Getenv("POLYMARKET_AUTO_SELECT_LATEST"); v != "" {
		cfg.Market.AutoSelectLatest = v == "true" || v == "1"
	}
	if v := os.Getenv("POLYMARKET_LIVE_WS_URL"); v != "" {
		cfg.Market.LiveWSURL = v
	}
	if v := os.Getenv("DISCORD_WEBHOOK_URL"); v != "" {
		cfg.DiscordWebhookURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

func firstCSV(v string) string {
	parts := strings.Split(v, ",")
	return strings.TrimSpace(parts[0])
}

// setDefaults fills in every value still at its zero value, matching
// the constants named across spec §4/§6/§8.
func setDefaults(cfg *Config) {
	if cfg.Market.CLOBBase == "" {
		cfg.Market.CLOBBase = "https://clob.polymarket.com"
	}
	if cfg.Market.GammaBase == "" {
		cfg.Market.GammaBase = "https://gamma-api.polymarket.com"
	}
	if cfg.Market.HeavyFetchInterval <= 0 {
		cfg.Market.HeavyFetchInterval = 2000
	}
	if cfg.Market.StrikeFilePath == "" {
		cfg.Market.StrikeFilePath = "strike.txt"
	}
	if cfg.Feeds.SpotWSURL == "" {
		cfg.Feeds.SpotWSURL = "wss://stream.binance.com:9443/ws/btcusdt@trade"
	}

	def := strategy.DefaultConfig()
	if cfg.Strategy.MinCandles <= 0 {
		cfg.Strategy.MinCandles = def.MinCandles
	}
	if cfg.Strategy.MinOddsEdge <= 0 {
		cfg.Strategy.MinOddsEdge = def.MinOddsEdge
	}
	if cfg.Strategy.MomentumDiffUSD <= 0 {
		cfg.Strategy.MomentumDiffUSD = def.MomentumDiffUSD
	}
	if cfg.Strategy.LateWindowDiffUSD <= 0 {
		cfg.Strategy.LateWindowDiffUSD = def.LateWindowDiffUSD
	}
	if cfg.Strategy.LateWindowMaxVol <= 0 {
		cfg.Strategy.LateWindowMaxVol = def.LateWindowMaxVol
	}
	if cfg.Strategy.LateWindowMinHARun <= 0 {
		cfg.Strategy.LateWindowMinHARun = def.LateWindowMinHARun
	}
	if cfg.Strategy.SniperDiffUSD <= 0 {
		cfg.Strategy.SniperDiffUSD = def.SniperDiffUSD
	}
	if cfg.Strategy.SniperMinHARun <= 0 {
		cfg.Strategy.SniperMinHARun = def.SniperMinHARun
	}

	paperDef := paper.DefaultConfig()
	if cfg.Paper.StartingBalance <= 0 {
		cfg.Paper.StartingBalance = paperDef.StartingBalance
	}
	if cfg.Paper.StopLossRoiPct == 0 {
		cfg.Paper.StopLossRoiPct = paperDef.StopLossRoiPct
	}
	if cfg.Paper.StopLossGracePeriodSeconds <= 0 {
		cfg.Paper.StopLossGracePeriodSeconds = paperDef.StopLossGracePeriodSeconds
	}
	if cfg.Paper.MomentumTakeProfitRoiPct <= 0 {
		cfg.Paper.MomentumTakeProfitRoiPct = paperDef.MomentumTakeProfitRoiPct
	}
	if cfg.Paper.TakeProfitRoiPct <= 0 {
		cfg.Paper.TakeProfitRoiPct = paperDef.TakeProfitRoiPct
	}
	if cfg.Paper.MaxConcurrentPositions <= 0 {
		cfg.Paper.MaxConcurrentPositions = paperDef.MaxConcurrentPositions
	}
	if cfg.Paper.DailyLossLimitPct <= 0 {
		cfg.Paper.DailyLossLimitPct = paperDef.DailyLossLimitPct
	}
	if cfg.Paper.EntryCooldownSeconds <= 0 {
		cfg.Paper.EntryCooldownSeconds = paperDef.EntryCooldownSeconds
	}
	if cfg.Paper.CooldownMinutes <= 0 {
		cfg.Paper.CooldownMinutes = paperDef.CooldownMinutes
	}
	if cfg.Paper.MinEntryPrice <= 0 {
		cfg.Paper.MinEntryPrice = paperDef.MinEntryPrice
	}
	if cfg.Paper.MaxEntryPrice <= 0 {
		cfg.Paper.MaxEntryPrice = paperDef.MaxEntryPrice
	}
	if cfg.Paper.MaxConsecutiveLosses <= 0 {
		cfg.Paper.MaxConsecutiveLosses = paperDef.MaxConsecutiveLosses
	}
	if cfg.Paper.ResolutionThreshold <= 0 {
		cfg.Paper.ResolutionThreshold = paperDef.ResolutionThreshold
	}
	if cfg.Paper.TimeGuardDefaultMin <= 0 {
		cfg.Paper.TimeGuardDefaultMin = paperDef.TimeGuardDefaultMin
	}
	if cfg.Paper.TimeGuardLateWindowMin <= 0 {
		cfg.Paper.TimeGuardLateWindowMin = paperDef.TimeGuardLateWindowMin
	}
	if cfg.Paper.KellyFraction <= 0 {
		cfg.Paper.KellyFraction = paperDef.KellyFraction
	}
	if cfg.Paper.MinKellyBet <= 0 {
		cfg.Paper.MinKellyBet = paperDef.MinKellyBet
	}
	if cfg.Paper.MaxKellyBet <= 0 {
		cfg.Paper.MaxKellyBet = paperDef.MaxKellyBet
	}
	if cfg.Paper.FeePct <= 0 {
		cfg.Paper.FeePct = paperDef.FeePct
	}
	if cfg.Paper.FixedBetLateWindow <= 0 {
		cfg.Paper.FixedBetLateWindow = paperDef.FixedBetLateWindow
	}
	if cfg.Paper.FixedBetMomentum <= 0 {
		cfg.Paper.FixedBetMomentum = paperDef.FixedBetMomentum
	}
	if cfg.Paper.FixedBetMeanReversion <= 0 {
		cfg.Paper.FixedBetMeanReversion = paperDef.FixedBetMeanReversion
	}
	if cfg.Paper.FixedBetFallback <= 0 {
		cfg.Paper.FixedBetFallback = paperDef.FixedBetFallback
	}
	// UseKelly and UsePolymarketDynamicFees default to true in
	// paper.DefaultConfig but a zero-value bool can't be told apart from
	// an explicit "false" in YAML, so only apply the default when the
	// whole Paper block was never configured — the overwhelmingly common
	// case of a fresh deployment.
	if !cfg.Paper.configured() {
		cfg.Paper.UseKelly = paperDef.UseKelly
		cfg.Paper.UsePolymarketDynamicFees = paperDef.UsePolymarketDynamicFees
	}

	if cfg.Storage.SQLiteDSN == "" {
		cfg.Storage.SQLiteDSN = "btcpulse.db"
	}
	if cfg.Storage.PaperStatePath == "" {
		cfg.Storage.PaperStatePath = "paperstate.json"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Port <= 0 {
		cfg.Port = 8080
	}
}

// configured reports whether any field in PaperConfig was set by the
// YAML/env layers before defaulting ran, used only to disambiguate the
// two boolean flags from an unset block.
func (c PaperConfig) configured() bool {
	return c.StartingBalance != 0 || c.MaxConcurrentPositions != 0 || c.MinEntryPrice != 0
}
