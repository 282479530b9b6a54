// Package storage holds the SQLite observability log (signals and
// paper_trades tables, §6/§13) and the flat-file PaperState store
// (§4.9). Grounded on the teacher's internal/adapters/storage/sqlite.go
// (schema-as-constant, single-writer SQLite, CREATE TABLE IF NOT EXISTS)
// but built against this repo's own domain.Snapshot/Position/ClosedTrade
// instead of the teacher's reward-farming domain.Opportunity.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	"github.com/199ocero/PolymarketBTC15mAssistant/internal/domain"
	"github.com/199ocero/PolymarketBTC15mAssistant/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS signals (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    ts             DATETIME NOT NULL,
    time_left_min  REAL     NOT NULL,
    regime         TEXT     NOT NULL,
    signal         TEXT     NOT NULL,
    strategy       TEXT     NOT NULL,
    model_prob_up  REAL     NOT NULL,
    model_prob_down REAL    NOT NULL,
    market_prob_up  REAL    NOT NULL,
    market_prob_down REAL   NOT NULL,
    edge_up        REAL     NOT NULL,
    edge_down      REAL     NOT NULL,
    recommendation TEXT     NOT NULL,
    strike         REAL     NOT NULL,
    current_price  REAL     NOT NULL,
    binance_price  REAL     NOT NULL,
    gap            REAL     NOT NULL,
    market_slug    TEXT     NOT NULL
);

CREATE TABLE IF NOT EXISTS paper_trades (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    ts           DATETIME NOT NULL,
    action       TEXT     NOT NULL, -- OPEN | CLOSE
    market_slug  TEXT     NOT NULL,
    side         TEXT     NOT NULL,
    price        REAL     NOT NULL,
    amount       REAL     NOT NULL,
    shares       REAL     NOT NULL,
    pnl          REAL     NOT NULL DEFAULT 0,
    balance      REAL     NOT NULL DEFAULT 0,
    fee          REAL     NOT NULL DEFAULT 0,
    strategy     TEXT     NOT NULL DEFAULT '',
    exit_reason  TEXT     NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_signals_ts      ON signals(ts DESC);
CREATE INDEX IF NOT EXISTS idx_signals_slug    ON signals(market_slug);
CREATE INDEX IF NOT EXISTS idx_paper_trades_ts ON paper_trades(ts DESC);
CREATE INDEX IF NOT EXISTS idx_paper_trades_slug ON paper_trades(market_slug);
`

// SQLiteStorage implements ports.SignalStore over a local SQLite file
// (pure-Go driver, no CGo). Opened with a single connection since
// SQLite is single-writer, matching the teacher.
type SQLiteStorage struct {
	db  *sql.DB
	log *slog.Logger
}

var _ ports.SignalStore = (*SQLiteStorage)(nil)

// NewSQLiteStorage opens (or creates) the database at path and applies
// the schema.
func NewSQLiteStorage(path string, log *slog.Logger) (*SQLiteStorage, error) {
	if log == nil {
		log = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	return &SQLiteStorage{db: db, log: log}, nil
}

// SaveSignal logs one row per slow tick: the full decision context,
// win or lose, whether or not it led to a trade. Write failures
// downgrade to a warning and the row is dropped, per spec §5/§7 — the
// SQLite log is a best-effort observability sink, not a source of truth.
func (s *SQLiteStorage) SaveSignal(ctx context.Context, snap domain.Snapshot, rec domain.Recommendation) error {
	probUp, probDown := rec.Probability, 1-rec.Probability
	if rec.Side == domain.SideDown {
		probUp, probDown = 1-rec.Probability, rec.Probability
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO signals
			(ts, time_left_min, regime, signal, strategy, model_prob_up, model_prob_down,
			 market_prob_up, market_prob_down, edge_up, edge_down, recommendation, strike,
			 current_price, binance_price, gap, market_slug)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.Now.UTC(), snap.RemainingMin(), string(trendOf(snap)), string(rec.Action), string(rec.Strategy),
		probUp, probDown, snap.Odds.Up.Price, snap.Odds.Down.Price, rec.Edge, rec.Edge, rec.Reason,
		snap.StrikePrice, snap.SpotPrice, snap.SpotPrice, snap.Diff(), snap.Market.Slug,
	)
	if err != nil {
		s.log.Warn("storage: save signal failed, dropping row", "err", err)
		return nil
	}
	return nil
}

// SaveOpenedPosition logs one OPEN row, per spec §6's paper_trades table.
func (s *SQLiteStorage) SaveOpenedPosition(ctx context.Context, pos domain.Position) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO paper_trades (ts, action, market_slug, side, price, amount, shares, strategy)
		VALUES (?, 'OPEN', ?, ?, ?, ?, ?, ?)`,
		pos.EntryTime.UTC(), pos.MarketSlug, string(pos.Side), pos.EntryPrice, pos.Amount, pos.Shares, string(pos.Strategy),
	)
	if err != nil {
		s.log.Warn("storage: save opened position failed, dropping row", "err", err)
	}
	return nil
}

// SaveClosedTrade logs one CLOSE row with realized PnL and the fee
// implied by the gross-minus-proceeds gap (settlement closes carry no
// fee, so it comes out to zero there automatically).
func (s *SQLiteStorage) SaveClosedTrade(ctx context.Context, trade domain.ClosedTrade) error {
	gross := trade.Position.Shares * trade.ExitPrice
	proceeds := trade.Position.Amount + trade.PnL
	fee := gross - proceeds
	if fee < 0 {
		fee = 0
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO paper_trades (ts, action, market_slug, side, price, amount, shares, pnl, fee, strategy, exit_reason)
		VALUES (?, 'CLOSE', ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		trade.ExitTime.UTC(), trade.Position.MarketSlug, string(trade.Position.Side), trade.ExitPrice,
		trade.Position.Amount, trade.Position.Shares, trade.PnL, fee, string(trade.Position.Strategy), string(trade.ExitReason),
	)
	if err != nil {
		s.log.Warn("storage: save closed trade failed, dropping row", "err", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func trendOf(snap domain.Snapshot) domain.Trend {
	if snap.SpotPrice > snap.Indicators.EMA21 {
		return domain.TrendRising
	}
	return domain.TrendFalling
}
