package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/199ocero/PolymarketBTC15mAssistant/internal/domain"
	"github.com/199ocero/PolymarketBTC15mAssistant/internal/ports"
)

// Discord posts a JSON notification per open/close action to a Discord
// incoming webhook, gated by a non-empty URL (spec §6's optional Discord
// notifier). Same ports.Notifier shape as Console; tick status and
// reports are not posted, only open/close — chattier frames would flood
// the channel.
type Discord struct {
	webhookURL string
	http       *http.Client
	log        *slog.Logger
}

// NewDiscord returns a Discord notifier posting to webhookURL. An empty
// URL disables every call (they become no-ops), matching
// DISCORD_WEBHOOK_URL being unset in spec §6.
func NewDiscord(webhookURL string, log *slog.Logger) *Discord {
	if log == nil {
		log = slog.Default()
	}
	return &Discord{
		webhookURL: webhookURL,
		http:       &http.Client{Timeout: 5 * time.Second},
		log:        log,
	}
}

var _ ports.Notifier = (*Discord)(nil)

type discordPayload struct {
	Content string `json:"content"`
}

// NotifyTick is a no-op: Discord only hears about opens/closes, not
// every slow tick.
func (d *Discord) NotifyTick(context.Context, ports.TickStatus) error { return nil }

// NotifyOpened posts an open notification.
func (d *Discord) NotifyOpened(ctx context.Context, pos domain.Position) error {
	return d.post(ctx, fmt.Sprintf("🟢 OPEN %s %s @%.3f stake=$%.2f (%s)",
		pos.MarketSlug, pos.Side, pos.EntryPrice, pos.Amount, pos.Strategy))
}

// NotifyClosed posts a close notification.
func (d *Discord) NotifyClosed(ctx context.Context, trade domain.ClosedTrade) error {
	icon := "🔴"
	if trade.Won {
		icon = "🟢"
	}
	return d.post(ctx, fmt.Sprintf("%s CLOSE %s %s @%.3f pnl=$%.2f reason=%s",
		icon, trade.Position.MarketSlug, trade.Position.Side, trade.ExitPrice, trade.PnL, trade.ExitReason))
}

// NotifyReport is a no-op: end-of-run reports stay on the console.
func (d *Discord) NotifyReport(context.Context, domain.PaperStats) error { return nil }

// post sends content to the webhook. Failures are warnings only — per
// spec §7 a Discord outage never interrupts the orchestrator loop.
func (d *Discord) post(ctx context.Context, content string) error {
	if d.webhookURL == "" {
		return nil
	}
	body, err := json.Marshal(discordPayload{Content: content})
	if err != nil {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		d.log.Warn("discord: build request failed", "err", err)
		return nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.http.Do(req)
	if err != nil {
		d.log.Warn("discord: webhook post failed", "err", err)
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		d.log.Warn("discord: webhook returned non-2xx", "status", resp.StatusCode)
	}
	return nil
}
