package domain

// Odds is the best-available implied probability for one side of a
// binary market, expressed as a price in [0,1].
type Odds struct {
	TokenID string
	Side    Side
	Price   float64 // best ask, the price you'd pay to buy this side
}

// Implied returns the price itself — on Polymarket-style binary markets
// the best ask already is the implied probability of that outcome.
func (o Odds) Implied() float64 {
	return o.Price
}

// OddsPair is the independently-fetched UP and DOWN side odds for a
// single market snapshot. The two sides are never derived from one
// another — each is its own fetch result.
type OddsPair struct {
	Up   Odds
	Down Odds
}

// Side returns the requested side's odds.
func (p OddsPair) Side(s Side) Odds {
	if s == SideDown {
		return p.Down
	}
	return p.Up
}
