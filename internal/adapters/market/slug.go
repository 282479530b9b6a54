package market

import (
	"fmt"
	"time"

	"github.com/199ocero/PolymarketBTC15mAssistant/internal/clock"
)

// FixedSlugResolver always returns the same configured slug, for
// POLYMARKET_SLUG deployments that track one named market series.
func FixedSlugResolver(slug string) func(now time.Time) string {
	return func(time.Time) string { return slug }
}

// SeriesSlugResolver derives the slug of the 15-minute window containing
// now from a series slug prefix, for POLYMARKET_AUTO_SELECT_LATEST
// deployments that roll from one window to the next automatically. The
// naming convention follows Polymarket's own up-or-down market slugs:
// "<series>-<YYYY-MM-DD>-<HHhMMm>et" in US/Eastern time.
func SeriesSlugResolver(seriesSlug string) func(now time.Time) string {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}
	return func(now time.Time) string {
		w := clock.Current(now.In(loc))
		return fmt.Sprintf("%s-%s-%02dh%02dmet", seriesSlug, w.Start.Format("2006-01-02"), w.Start.Hour(), w.Start.Minute())
	}
}
