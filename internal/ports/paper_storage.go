package ports

import (
	"context"

	"github.com/199ocero/PolymarketBTC15mAssistant/internal/domain"
)

// PaperStateStore persists the full paper trading account state, rewritten
// atomically after every tick. Implemented by storage.PaperStateStore;
// paper.Store is the Save-only subset the trader depends on.
type PaperStateStore interface {
	Save(ctx context.Context, state domain.PaperState) error
	Load(ctx context.Context) (domain.PaperState, error)
}

// SignalStore logs every assembled snapshot and recommendation, independent
// of whether it led to a trade, for later replay and analysis, plus every
// paper position open/close action (spec §6's "signals" and "paper_trades"
// tables).
type SignalStore interface {
	SaveSignal(ctx context.Context, snap domain.Snapshot, rec domain.Recommendation) error
	SaveOpenedPosition(ctx context.Context, pos domain.Position) error
	SaveClosedTrade(ctx context.Context, trade domain.ClosedTrade) error
	Close() error
}
