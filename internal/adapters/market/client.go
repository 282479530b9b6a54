// Package market is the rate-limited REST client for Polymarket's Gamma
// (market metadata) and CLOB (order book / price) APIs, scoped to a single
// live 15-minute BTC up/down window at a time.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/199ocero/PolymarketBTC15mAssistant/internal/domain"
)

const (
	defaultCLOBBase  = "https://clob.polymarket.com"
	defaultGammaBase = "https://gamma-api.polymarket.com"

	// Rate limits held at 60% of the documented real limits.
	pricesRatePerSec = 30
	gammaRatePerSec  = 18

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond

	requestDeadline = 5 * time.Second
)

// Client is the HTTP client for market metadata and CLOB best-price
// lookups, with per-endpoint rate limiting and retry-with-backoff.
// Grounded on the teacher's internal/adapters/polymarket/client.go.
type Client struct {
	http          *http.Client
	clobBase      string
	gammaBase     string
	pricesLimiter *rate.Limiter
	gammaLimiter  *rate.Limiter

	mu              sync.Mutex
	cachedMarket    domain.Market
	cachedSlug      string
	cachedAt        time.Time
	heavyFetchEvery time.Duration

	// resolveSlug turns "now" into the slug of the market whose window
	// contains it. A fixed-slug deployment (POLYMARKET_SLUG set) just
	// returns that constant; POLYMARKET_AUTO_SELECT_LATEST deployments
	// derive it from POLYMARKET_SERIES_SLUG + the current window.
	resolveSlug func(now time.Time) string
}

// NewClient builds a Client. Empty base URLs fall back to the production
// Polymarket endpoints. heavyFetchEvery caches ActiveMarket results for
// that long, per spec §4.4/§6's heavyFetchIntervalMs. resolveSlug decides
// which market slug is "active" for a given instant.
func NewClient(clobBase, gammaBase string, heavyFetchEvery time.Duration, resolveSlug func(now time.Time) string) *Client {
	if clobBase == "" {
		clobBase = defaultCLOBBase
	}
	if gammaBase == "" {
		gammaBase = defaultGammaBase
	}
	if heavyFetchEvery <= 0 {
		heavyFetchEvery = 2 * time.Second
	}
	if resolveSlug == nil {
		resolveSlug = func(time.Time) string { return "" }
	}
	return &Client{
		http:            &http.Client{Timeout: requestDeadline},
		clobBase:        clobBase,
		gammaBase:       gammaBase,
		pricesLimiter:   rate.NewLimiter(pricesRatePerSec, 5),
		gammaLimiter:    rate.NewLimiter(gammaRatePerSec, 10),
		heavyFetchEvery: heavyFetchEvery,
		resolveSlug:     resolveSlug,
	}
}

// priceResponse is the CLOB GET /price response shape.
type priceResponse struct {
	Price string `json:"price"`
}

// FetchOdds returns the best buy-side price for tokenID, implementing
// ports.OddsProvider. A missing or unparsable price is reported as
// found=false rather than an error, matching the "may be null" odds
// contract in spec §3/§6.
func (c *Client) FetchOdds(ctx context.Context, tokenID string, side domain.Side) (float64, bool, error) {
	if tokenID == "" {
		return 0, false, nil
	}
	url := fmt.Sprintf("%s/price?token_id=%s&side=buy", c.clobBase, tokenID)

	var resp priceResponse
	if err := c.get(ctx, c.pricesLimiter, url, &resp); err != nil {
		return 0, false, fmt.Errorf("market.FetchOdds: %w", err)
	}
	if resp.Price == "" {
		return 0, false, nil
	}
	p, err := strconv.ParseFloat(resp.Price, 64)
	if err != nil {
		slog.Warn("market: unparsable odds price, treating as null", "token_id", tokenID, "side", side, "raw", resp.Price)
		return 0, false, nil
	}
	if p <= 0 || p >= 1 {
		return 0, false, nil
	}
	return p, true, nil
}

// gammaMarket is the subset of Gamma's market fields this bot needs.
type gammaMarket struct {
	ConditionID   string      `json:"conditionId"`
	Slug          string      `json:"slug"`
	Question      string      `json:"question"`
	EndDateISO    string      `json:"endDateIso"`
	ClobTokenIDs  string      `json:"clobTokenIds"` // JSON-encoded array of two strings
	Outcomes      string      `json:"outcomes"`     // JSON-encoded array of two labels
	Active        bool        `json:"active"`
	Closed        bool        `json:"closed"`
	PriceToBeat   json.Number `json:"priceToBeat"`
}

// FetchMarket resolves the active market by slug via the Gamma API,
// implementing ports.MarketProvider via ActiveMarket. Results are cached
// for heavyFetchEvery so repeated slow ticks don't refetch on every call.
func (c *Client) FetchMarket(ctx context.Context, slug string) (domain.Market, error) {
	c.mu.Lock()
	if slug == c.cachedSlug && c.cachedSlug != "" && time.Since(c.cachedAt) < c.heavyFetchEvery {
		m := c.cachedMarket
		c.mu.Unlock()
		return m, nil
	}
	c.mu.Unlock()

	url := fmt.Sprintf("%s/markets?slug=%s", c.gammaBase, slug)
	var resp []gammaMarket
	if err := c.get(ctx, c.gammaLimiter, url, &resp); err != nil {
		return domain.Market{}, fmt.Errorf("market.FetchMarket: %w", err)
	}
	if len(resp) == 0 {
		return domain.Market{}, fmt.Errorf("market.FetchMarket: no market for slug %q", slug)
	}

	m, err := mapGammaMarket(resp[0])
	if err != nil {
		return domain.Market{}, fmt.Errorf("market.FetchMarket: %w", err)
	}

	c.mu.Lock()
	c.cachedMarket = m
	c.cachedSlug = slug
	c.cachedAt = time.Now()
	c.mu.Unlock()

	return m, nil
}

// ActiveMarket implements ports.MarketProvider: resolve the slug whose
// window contains now, then fetch its metadata.
func (c *Client) ActiveMarket(ctx context.Context, now time.Time) (domain.Market, error) {
	slug := c.resolveSlug(now)
	if slug == "" {
		return domain.Market{}, fmt.Errorf("market.ActiveMarket: no slug resolved for %s", now)
	}
	return c.FetchMarket(ctx, slug)
}

func mapGammaMarket(gm gammaMarket) (domain.Market, error) {
	var tokenIDs []string
	if gm.ClobTokenIDs != "" {
		_ = json.Unmarshal([]byte(gm.ClobTokenIDs), &tokenIDs)
	}
	var outcomes []string
	if gm.Outcomes != "" {
		_ = json.Unmarshal([]byte(gm.Outcomes), &outcomes)
	}

	m := domain.Market{
		ConditionID: gm.ConditionID,
		Slug:        gm.Slug,
		Question:    gm.Question,
		Metadata:    map[string]string{},
	}
	if gm.PriceToBeat.String() != "" {
		m.Metadata["priceToBeat"] = gm.PriceToBeat.String()
	}
	if gm.EndDateISO != "" {
		t, err := time.Parse(time.RFC3339, gm.EndDateISO)
		if err != nil {
			return domain.Market{}, fmt.Errorf("parse endDateIso %q: %w", gm.EndDateISO, err)
		}
		m.EndDate = t
	}

	// Two outcomes expected: UP and DOWN. Fall back to positional
	// assignment if the outcome labels aren't exactly "Up"/"Down".
	for i := 0; i < len(tokenIDs) && i < 2; i++ {
		side := domain.SideUp
		if i < len(outcomes) {
			if strings.EqualFold(outcomes[i], "down") || strings.EqualFold(outcomes[i], "no") {
				side = domain.SideDown
			} else if strings.EqualFold(outcomes[i], "up") || strings.EqualFold(outcomes[i], "yes") {
				side = domain.SideUp
			} else if i == 1 {
				side = domain.SideDown
			}
		} else if i == 1 {
			side = domain.SideDown
		}
		m.Tokens[i] = domain.Token{TokenID: tokenIDs[i], Outcome: side}
	}

	return m, nil
}

// get performs a rate-limited GET with retry-with-backoff, grounded on
// the teacher's doWithRetry.
func (c *Client) get(ctx context.Context, limiter *rate.Limiter, url string, out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		reqCtx, cancel := context.WithTimeout(ctx, requestDeadline)
		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
		if err != nil {
			cancel()
			return err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			cancel()
			if attempt == maxRetries {
				return fmt.Errorf("request failed after %d retries: %w", maxRetries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			cancel()
			slog.Warn("market: rate limited by API", "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			cancel()
			if attempt == maxRetries {
				return fmt.Errorf("server error %d after %d retries", resp.StatusCode, maxRetries)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			cancel()
			return fmt.Errorf("client error %d: %s", resp.StatusCode, string(body))
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		cancel()
		if err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", maxRetries)
}

func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
