package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/199ocero/PolymarketBTC15mAssistant/internal/adapters/storage"
	"github.com/199ocero/PolymarketBTC15mAssistant/internal/domain"
)

func testSnapshot() domain.Snapshot {
	now := time.Date(2026, 8, 6, 14, 40, 0, 0, time.UTC)
	return domain.Snapshot{
		Market:      domain.Market{Slug: "btc-15m-test"},
		SpotPrice:   100_100,
		StrikePrice: 100_000,
		WindowEnd:   now.Add(5 * time.Minute),
		Now:         now,
		Odds: domain.OddsPair{
			Up:   domain.Odds{Side: domain.SideUp, Price: 0.6},
			Down: domain.Odds{Side: domain.SideDown, Price: 0.4},
		},
	}
}

func TestSQLiteStorage_SaveSignal(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:", nil)
	require.NoError(t, err)
	defer db.Close()

	rec := domain.Recommendation{
		Action: domain.ActionEnter, Side: domain.SideUp, Strategy: domain.StrategyMomentum,
		Reason: "momentum_UP_diff_100.00", Probability: 0.65, Edge: 0.05,
	}

	require.NoError(t, db.SaveSignal(context.Background(), testSnapshot(), rec))
}

func TestSQLiteStorage_SaveOpenedAndClosedPosition(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:", nil)
	require.NoError(t, err)
	defer db.Close()

	pos := domain.Position{
		MarketSlug: "btc-15m-test",
		Side:       domain.SideUp,
		Strategy:   domain.StrategyMomentum,
		EntryPrice: 0.55,
		Amount:     5.10,
		Shares:     5.10 / 0.55,
		EntryTime:  time.Now(),
	}
	require.NoError(t, db.SaveOpenedPosition(context.Background(), pos))

	trade := domain.ClosedTrade{
		Position:   pos,
		ExitPrice:  1.0,
		ExitTime:   time.Now(),
		ExitReason: domain.ExitSettlement,
		PnL:        pos.Shares*1.0 - pos.Amount,
		Won:        true,
	}
	require.NoError(t, db.SaveClosedTrade(context.Background(), trade))
}

func TestSQLiteStorage_ClosedByFlipNeverFails(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:", nil)
	require.NoError(t, err)
	defer db.Close()

	trade := domain.ClosedTrade{
		Position:   domain.Position{MarketSlug: "btc-15m-test", Side: domain.SideDown, Amount: 3, Shares: 6},
		ExitPrice:  0.45,
		ExitTime:   time.Now(),
		ExitReason: domain.ExitBreakeven,
		PnL:        -0.3,
		Won:        false,
	}
	require.NoError(t, db.SaveClosedTrade(context.Background(), trade))
}
