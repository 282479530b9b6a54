// Package feed holds the long-lived WebSocket readers that keep the
// orchestrator fed with a last-value BTC/USD spot tick. Grounded on
// koshedutech-binance-trading-app's UserDataStream: an outer reconnect
// loop with fixed backoff wrapping an inner blocking ReadMessage loop.
package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/199ocero/PolymarketBTC15mAssistant/internal/ports"
)

const (
	reconnectBackoff = 3 * time.Second
	pongWait         = 30 * time.Second
)

// SpotWSFeed streams BTC/USD trade prices from a venue's public trade
// WebSocket (Binance-shaped {"p": "<price>", "T": <ms>} trade frames by
// default; Dial is swappable for other venues via NewSpotWSFeed's url).
// Implements ports.SpotFeed.
type SpotWSFeed struct {
	url string
	log *slog.Logger
}

// NewSpotWSFeed returns a feed that dials url on Run and reconnects on
// any lost connection until ctx is canceled.
func NewSpotWSFeed(url string, log *slog.Logger) *SpotWSFeed {
	if log == nil {
		log = slog.Default()
	}
	return &SpotWSFeed{url: url, log: log}
}

type tradeFrame struct {
	Price string `json:"p"`
	TsMs  int64  `json:"T"`
}

// Run implements ports.SpotFeed: connects, reads trade frames, writes
// ticks onto out, and reconnects with a fixed backoff on any lost
// connection. Returns nil once ctx is canceled.
func (f *SpotWSFeed) Run(ctx context.Context, out chan<- ports.SpotTick) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
		if err != nil {
			f.log.Warn("spot feed: connect failed, retrying", "url", f.url, "err", err)
			if !f.sleep(ctx) {
				return nil
			}
			continue
		}

		f.log.Info("spot feed: connected", "url", f.url)
		lost := f.readLoop(ctx, conn, out)
		conn.Close()

		if ctx.Err() != nil {
			return nil
		}
		if lost {
			f.log.Warn("spot feed: connection lost, reconnecting", "backoff", reconnectBackoff)
			if !f.sleep(ctx) {
				return nil
			}
		}
	}
}

// readLoop blocks on ReadMessage until the connection closes or ctx is
// canceled. Returns true if the loop exited due to a lost connection
// (as opposed to a clean shutdown), matching the grounding file's
// websocket.IsCloseError distinction.
func (f *SpotWSFeed) readLoop(ctx context.Context, conn *websocket.Conn, out chan<- ports.SpotTick) bool {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	defer close(done)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				f.log.Info("spot feed: connection closed normally")
				return false
			}
			if ctx.Err() != nil {
				return false
			}
			f.log.Warn("spot feed: read error", "err", err)
			return true
		}

		var frame tradeFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			continue
		}
		price, err := strconv.ParseFloat(frame.Price, 64)
		if err != nil {
			continue
		}
		tick := ports.SpotTick{TimestampMs: frame.TsMs, Price: price}
		select {
		case out <- tick:
		case <-ctx.Done():
			return false
		}
	}
}

func (f *SpotWSFeed) sleep(ctx context.Context) bool {
	select {
	case <-time.After(reconnectBackoff):
		return true
	case <-ctx.Done():
		return false
	}
}
