package ports

import "context"

// SpotTick is one observed BTC/USD spot price, timestamped in milliseconds.
type SpotTick struct {
	TimestampMs int64
	Price       float64
}

// SpotFeed streams the fast BTC/USD price used to build candles and detect
// strike dislocations.
type SpotFeed interface {
	// Run streams ticks onto out until ctx is canceled, reconnecting on
	// any transport failure. Run only returns once ctx is done.
	Run(ctx context.Context, out chan<- SpotTick) error
}

// OnChainFeed reads the Chainlink BTC/USD price used as a strike-latch
// fallback and as the spot price when the spot feed is stale or absent.
type OnChainFeed interface {
	LatestPrice(ctx context.Context) (float64, error)
}
