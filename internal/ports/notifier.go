package ports

import (
	"context"

	"github.com/199ocero/PolymarketBTC15mAssistant/internal/domain"
)

// TickStatus bundles the one-line status the console prints on every slow tick.
type TickStatus struct {
	Market        domain.Market
	Snapshot      domain.Snapshot
	Recommendation domain.Recommendation
	TickResult    string // "", "OPENED", or a BlockedReason string
	Balance       float64
	OpenPositions int
}

// Notifier presents tick-by-tick status and end-of-run reports to the user.
type Notifier interface {
	// NotifyTick prints (or posts) a compact line summarizing one slow tick.
	NotifyTick(ctx context.Context, status TickStatus) error

	// NotifyOpened announces a position that was just opened.
	NotifyOpened(ctx context.Context, pos domain.Position) error

	// NotifyClosed announces a position that was just closed.
	NotifyClosed(ctx context.Context, trade domain.ClosedTrade) error

	// NotifyReport prints the aggregate PaperStats report, e.g. at shutdown
	// or on a daily boundary.
	NotifyReport(ctx context.Context, stats domain.PaperStats) error
}
