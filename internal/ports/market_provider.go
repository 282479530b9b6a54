package ports

import (
	"context"
	"time"

	"github.com/199ocero/PolymarketBTC15mAssistant/internal/domain"
)

// MarketProvider resolves the single currently-active 15-minute BTC
// up/down market and its CLOB token ids.
type MarketProvider interface {
	// ActiveMarket returns the market whose window contains now, fetching
	// fresh metadata (question, tokens, endDate) from the venue.
	ActiveMarket(ctx context.Context, now time.Time) (domain.Market, error)
}

// OddsProvider fetches the best buy-side price for one outcome token,
// per spec §6's "given a token-id and side, returns a probability in
// [0,1] or null". Implemented by a rate-limited REST client, polled on
// the orchestrator's slow cadence rather than streamed.
type OddsProvider interface {
	// FetchOdds returns the best buy-side price for tokenID and
	// whether a price was available at all (found=false on a null odds).
	FetchOdds(ctx context.Context, tokenID string, side domain.Side) (price float64, found bool, err error)
}
