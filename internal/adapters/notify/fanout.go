package notify

import (
	"context"

	"github.com/199ocero/PolymarketBTC15mAssistant/internal/domain"
	"github.com/199ocero/PolymarketBTC15mAssistant/internal/ports"
)

// multiNotifier fans every call out to a fixed set of notifiers,
// collecting the first error but still calling the rest so one broken
// sink (e.g. a dead Discord webhook) never silences the others.
type multiNotifier struct {
	notifiers []ports.Notifier
}

// Fanout combines several notifiers into one, letting main wire
// Console plus an optional Discord notifier behind a single
// ports.Notifier.
func Fanout(notifiers []ports.Notifier) ports.Notifier {
	if len(notifiers) == 1 {
		return notifiers[0]
	}
	return &multiNotifier{notifiers: notifiers}
}

var _ ports.Notifier = (*multiNotifier)(nil)

func (m *multiNotifier) NotifyTick(ctx context.Context, status ports.TickStatus) error {
	var first error
	for _, n := range m.notifiers {
		if err := n.NotifyTick(ctx, status); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m *multiNotifier) NotifyOpened(ctx context.Context, pos domain.Position) error {
	var first error
	for _, n := range m.notifiers {
		if err := n.NotifyOpened(ctx, pos); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m *multiNotifier) NotifyClosed(ctx context.Context, trade domain.ClosedTrade) error {
	var first error
	for _, n := range m.notifiers {
		if err := n.NotifyClosed(ctx, trade); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m *multiNotifier) NotifyReport(ctx context.Context, stats domain.PaperStats) error {
	var first error
	for _, n := range m.notifiers {
		if err := n.NotifyReport(ctx, stats); err != nil && first == nil {
			first = err
		}
	}
	return first
}
