// Package notify presents tick-by-tick status and end-of-run reports to
// the user: a console notifier for every run, an optional Discord webhook
// for open/close events. Grounded on the teacher's
// internal/adapters/notify/console.go (compact one-line status, a
// tablewriter-rendered report) but built against this repo's own
// domain.Snapshot/Position/PaperStats instead of the teacher's
// domain.Opportunity.
package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/199ocero/PolymarketBTC15mAssistant/internal/domain"
	"github.com/199ocero/PolymarketBTC15mAssistant/internal/ports"
)

// Console implements ports.Notifier by writing compact status lines and
// tablewriter reports to an io.Writer (stdout in production, a buffer in
// tests).
type Console struct {
	out io.Writer
}

// NewConsole returns a notifier that writes to stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter returns a notifier that writes to w, for tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

var _ ports.Notifier = (*Console)(nil)

// NotifyTick prints one compact line per slow tick: market, time left,
// side/phase, prices, odds, and the outcome of this tick's paper-trader
// pass, per spec §6's activity-log register.
func (c *Console) NotifyTick(_ context.Context, status ports.TickStatus) error {
	now := time.Now().Format("15:04:05")
	snap := status.Snapshot
	rec := status.Recommendation

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s left=%.2fm spot=%.2f strike=%.2f gap=%+.2f up=%.3f down=%.3f",
		now, shortSlug(status.Market.Slug), snap.RemainingMin(), snap.SpotPrice, snap.StrikePrice,
		snap.Diff(), snap.Odds.Up.Price, snap.Odds.Down.Price)

	if rec.Actionable() {
		fmt.Fprintf(&sb, " | %s %s %s conf=%s", rec.Strategy, rec.Side, rec.Reason, rec.Confidence)
	} else {
		fmt.Fprintf(&sb, " | NO_TRADE %s", rec.Reason)
	}

	if status.TickResult != "" {
		fmt.Fprintf(&sb, " | %s", status.TickResult)
	}

	fmt.Fprintf(&sb, " | bal=$%.2f pos=%d", status.Balance, status.OpenPositions)

	fmt.Fprintln(c.out, sb.String())
	return nil
}

// NotifyOpened announces a freshly opened position.
func (c *Console) NotifyOpened(_ context.Context, pos domain.Position) error {
	fmt.Fprintf(c.out, "  >> OPENED %s %s @%.3f stake=$%.2f strategy=%s\n",
		pos.MarketSlug, pos.Side, pos.EntryPrice, pos.Amount, pos.Strategy)
	return nil
}

// NotifyClosed announces a position that was just closed.
func (c *Console) NotifyClosed(_ context.Context, trade domain.ClosedTrade) error {
	verdict := "LOSS"
	if trade.Won {
		verdict = "WIN"
	}
	fmt.Fprintf(c.out, "  << CLOSED %s %s @%.3f pnl=$%.2f reason=%s [%s]\n",
		trade.Position.MarketSlug, trade.Position.Side, trade.ExitPrice, trade.PnL, trade.ExitReason, verdict)
	return nil
}

// NotifyReport prints the aggregate PaperStats report using tablewriter,
// matching the teacher's PrintPaperReport register.
func (c *Console) NotifyReport(_ context.Context, stats domain.PaperStats) error {
	fmt.Fprintf(c.out, "\n========================================================\n")
	fmt.Fprintf(c.out, "  PAPER TRADING REPORT\n")
	fmt.Fprintf(c.out, "========================================================\n\n")

	table := tablewriter.NewWriter(c.out)
	table.Header("Metric", "Value")
	table.Append("Start balance", fmt.Sprintf("$%.2f", stats.StartBalance))
	table.Append("End balance", fmt.Sprintf("$%.2f", stats.EndBalance))
	table.Append("Net PnL", fmt.Sprintf("$%.2f", stats.NetPnL))
	table.Append("Max drawdown", fmt.Sprintf("$%.2f", stats.MaxDrawdown))
	table.Append("Total trades", fmt.Sprintf("%d", stats.TotalTrades))
	table.Append("Wins / Losses", fmt.Sprintf("%d / %d", stats.Wins, stats.Losses))
	table.Append("Win rate", fmt.Sprintf("%.1f%%", stats.WinRate()*100))
	table.Render()

	if len(stats.TradesByStrategy) > 0 {
		fmt.Fprintf(c.out, "\n  --- BY STRATEGY ---\n")
		strategyTable := tablewriter.NewWriter(c.out)
		strategyTable.Header("Strategy", "Trades")
		for tag, n := range stats.TradesByStrategy {
			strategyTable.Append(string(tag), fmt.Sprintf("%d", n))
		}
		strategyTable.Render()
	}

	verdict := "NET NEGATIVE — review thresholds before trusting this run."
	if stats.NetPnL > 0 {
		verdict = "NET POSITIVE across the run."
	}
	fmt.Fprintf(c.out, "\n  VERDICT: %s\n\n", verdict)
	return nil
}

// shortSlug truncates a market slug for the compact tick line.
func shortSlug(slug string) string {
	if len(slug) <= 28 {
		return slug
	}
	return slug[:25] + "..."
}
