package domain

import "time"

// resultRingSize is how many of the most recent closed trades are kept
// for the rolling win-rate reported by WinRate.
const resultRingSize = 10

// PaperState is the full persisted state of the paper trading account.
// It is loaded at startup and rewritten atomically after every change.
type PaperState struct {
	Balance           float64
	Positions         []Position
	DailyLoss         float64
	LastStopLossTime  time.Time
	RecentResults     []bool // true = win, oldest first, capped at resultRingSize
	LastDailyReset    time.Time
	LastExitTime      time.Time
	LastEntryTime     time.Time
	ConsecutiveLosses int
}

// DefaultPaperState returns a fresh account seeded with the given starting balance.
func DefaultPaperState(startingBalance float64) PaperState {
	return PaperState{
		Balance:        startingBalance,
		Positions:      nil,
		RecentResults:  nil,
		LastDailyReset: time.Time{},
	}
}

// RecordResult appends a win/loss outcome to the rolling result ring,
// evicting the oldest entry once the ring is full.
func (s *PaperState) RecordResult(won bool) {
	s.RecentResults = append(s.RecentResults, won)
	if len(s.RecentResults) > resultRingSize {
		s.RecentResults = s.RecentResults[len(s.RecentResults)-resultRingSize:]
	}
	if won {
		s.ConsecutiveLosses = 0
	} else {
		s.ConsecutiveLosses++
	}
}

// WinRate returns the fraction of wins in the rolling result ring.
// Returns 0 when no results have been recorded yet.
func (s PaperState) WinRate() float64 {
	if len(s.RecentResults) == 0 {
		return 0
	}
	wins := 0
	for _, w := range s.RecentResults {
		if w {
			wins++
		}
	}
	return float64(wins) / float64(len(s.RecentResults))
}

// OpenPositionForMarket returns the open position on the given market
// slug, if any.
func (s PaperState) OpenPositionForMarket(slug string) (Position, bool) {
	for _, p := range s.Positions {
		if p.MarketSlug == slug {
			return p, true
		}
	}
	return Position{}, false
}

// RemovePosition returns a copy of Positions with the position matching
// id removed.
func (s PaperState) RemovePosition(id string) []Position {
	out := make([]Position, 0, len(s.Positions))
	for _, p := range s.Positions {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}

// PaperStats is the aggregate report printed at the end of a replay run
// or on demand by the console notifier.
type PaperStats struct {
	StartBalance    float64
	EndBalance      float64
	TotalTrades     int
	Wins            int
	Losses          int
	NetPnL          float64
	MaxDrawdown     float64
	TradesByStrategy map[StrategyTag]int
}

// WinRate returns Wins / TotalTrades, or 0 if no trades were recorded.
func (s PaperStats) WinRate() float64 {
	if s.TotalTrades == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.TotalTrades)
}
