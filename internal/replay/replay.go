// Package replay drives the candle aggregator, snapshot assembler,
// strategy evaluator, and paper trader over a recorded tick+odds
// export instead of the live feeds, for the one-shot replayer command
// (cmd/replay). No wall clock, no network: every timestamp comes from
// the input rows themselves.
package replay

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/199ocero/PolymarketBTC15mAssistant/internal/candle"
	"github.com/199ocero/PolymarketBTC15mAssistant/internal/clock"
	"github.com/199ocero/PolymarketBTC15mAssistant/internal/domain"
	"github.com/199ocero/PolymarketBTC15mAssistant/internal/paper"
	"github.com/199ocero/PolymarketBTC15mAssistant/internal/snapshot"
	"github.com/199ocero/PolymarketBTC15mAssistant/internal/strategy"
	"github.com/199ocero/PolymarketBTC15mAssistant/internal/strike"
)

const candleRingCapacity = 240

// Row is one recorded observation: a spot price, optionally paired
// with the UP/DOWN odds in effect at that moment. Rows with no odds
// still feed the candle aggregator but are never evaluated, matching
// how the live loop's fast tick never drives the strategy pass alone.
type Row struct {
	TsMs    int64
	Price   float64
	OddsUp  float64
	OddsDown float64
	Strike  float64 // optional; 0 means "not recorded, latch from window open"
}

// ParseCSV reads a header row (ts_ms,price,odds_up,odds_down[,strike])
// followed by one row per observation.
func ParseCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("replay.ParseCSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[h] = i
	}
	idx := func(name string) (int, bool) {
		i, ok := col[name]
		return i, ok
	}

	tsIdx, ok := idx("ts_ms")
	if !ok {
		return nil, fmt.Errorf("replay.ParseCSV: missing ts_ms column")
	}
	priceIdx, ok := idx("price")
	if !ok {
		return nil, fmt.Errorf("replay.ParseCSV: missing price column")
	}
	upIdx, hasUp := idx("odds_up")
	downIdx, hasDown := idx("odds_down")
	strikeIdx, hasStrike := idx("strike")

	rows := make([]Row, 0, len(records)-1)
	for n, rec := range records[1:] {
		row, err := rowFromFields(rec, tsIdx, priceIdx, upIdx, hasUp, downIdx, hasDown, strikeIdx, hasStrike)
		if err != nil {
			return nil, fmt.Errorf("replay.ParseCSV: row %d: %w", n+2, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func rowFromFields(rec []string, tsIdx, priceIdx, upIdx int, hasUp bool, downIdx int, hasDown bool, strikeIdx int, hasStrike bool) (Row, error) {
	ts, err := strconv.ParseInt(rec[tsIdx], 10, 64)
	if err != nil {
		return Row{}, fmt.Errorf("ts_ms: %w", err)
	}
	price, err := strconv.ParseFloat(rec[priceIdx], 64)
	if err != nil {
		return Row{}, fmt.Errorf("price: %w", err)
	}
	row := Row{TsMs: ts, Price: price}
	if hasUp && rec[upIdx] != "" {
		if row.OddsUp, err = strconv.ParseFloat(rec[upIdx], 64); err != nil {
			return Row{}, fmt.Errorf("odds_up: %w", err)
		}
	}
	if hasDown && rec[downIdx] != "" {
		if row.OddsDown, err = strconv.ParseFloat(rec[downIdx], 64); err != nil {
			return Row{}, fmt.Errorf("odds_down: %w", err)
		}
	}
	if hasStrike && rec[strikeIdx] != "" {
		if row.Strike, err = strconv.ParseFloat(rec[strikeIdx], 64); err != nil {
			return Row{}, fmt.Errorf("strike: %w", err)
		}
	}
	return row, nil
}

// jsonRow is the on-the-wire JSONL shape, one object per line.
type jsonRow struct {
	TsMs    int64   `json:"ts_ms"`
	Price   float64 `json:"price"`
	OddsUp  float64 `json:"odds_up"`
	OddsDown float64 `json:"odds_down"`
	Strike  float64 `json:"strike"`
}

// ParseJSONL reads one JSON object per line, each matching jsonRow's
// fields.
func ParseJSONL(r io.Reader) ([]Row, error) {
	dec := json.NewDecoder(r)
	var rows []Row
	for dec.More() {
		var jr jsonRow
		if err := dec.Decode(&jr); err != nil {
			return nil, fmt.Errorf("replay.ParseJSONL: %w", err)
		}
		rows = append(rows, Row{
			TsMs: jr.TsMs, Price: jr.Price,
			OddsUp: jr.OddsUp, OddsDown: jr.OddsDown, Strike: jr.Strike,
		})
	}
	return rows, nil
}

// noopStore discards every save: a replay run's PaperState lives only
// for the duration of the run.
type noopStore struct{}

func (noopStore) Save(context.Context, domain.PaperState) error { return nil }

// Result is everything one replay run produced: the aggregate report
// plus the individual closed trades, for callers that want the detail.
type Result struct {
	Stats  domain.PaperStats
	Closed []domain.ClosedTrade
}

// Run drives rows (assumed sorted by TsMs ascending) through the
// candle aggregator, snapshot assembler, strategy evaluator, and paper
// trader, using the window each row's timestamp falls into as a
// synthetic market. A window's strike latches from its "strike" rows
// when present, otherwise from the first spot price observed after the
// window opens — the same resolution order strike.Latch applies live,
// minus the question/metadata sources a synthetic market never has.
func Run(rows []Row, startingBalance float64, stratCfg strategy.Config, paperCfg paper.Config, log *slog.Logger) (Result, error) {
	if log == nil {
		log = slog.Default()
	}

	agg := candle.NewAggregator(candleRingCapacity)
	asm := snapshot.NewAssembler()
	latch := strike.NewLatch()
	evaluator := strategy.NewEvaluator(stratCfg)
	trader := paper.New(paperCfg, domain.DefaultPaperState(startingBalance), noopStore{}, log)

	var window clock.Window
	var slug string
	var closed []domain.ClosedTrade

	for _, row := range rows {
		ts := time.UnixMilli(row.TsMs).UTC()

		w := clock.Current(ts)
		if !w.Start.Equal(window.Start) {
			window = w
			slug = fmt.Sprintf("replay-%s", w.Start.Format("2006-01-02T15-04"))
			latch.Reset(slug)
		}

		agg.Tick(row.TsMs, row.Price)

		market := domain.Market{
			ConditionID: slug,
			Slug:        slug,
			EndDate:     window.End,
			Tokens: [2]domain.Token{
				{TokenID: slug + "-up", Outcome: domain.SideUp},
				{TokenID: slug + "-down", Outcome: domain.SideDown},
			},
		}
		if row.Strike > 0 {
			market.Metadata = map[string]string{"strike": fmt.Sprintf("%.2f", row.Strike)}
		}
		latch.TryFromMarket(market.Question, market.Metadata)
		latch.LatchFromChainlink(row.Price)
		strikePrice, _ := latch.Value()

		if row.OddsUp <= 0 || row.OddsDown <= 0 {
			// No odds recorded for this tick: candles keep building but
			// there is nothing for the trader to act or exit-scan on.
			continue
		}

		odds := domain.OddsPair{
			Up:   domain.Odds{TokenID: market.UpToken().TokenID, Side: domain.SideUp, Price: row.OddsUp},
			Down: domain.Odds{TokenID: market.DownToken().TokenID, Side: domain.SideDown, Price: row.OddsDown},
		}

		snap := asm.Build(snapshot.Input{
			Market:      market,
			Odds:        odds,
			Candles:     agg.WithForming(),
			SpotPrice:   row.Price,
			StrikePrice: strikePrice,
			Window:      window,
			Now:         ts,
		})
		rec := evaluator.Evaluate(snap)
		trend := snapshot.Trend(snap)

		tick := trader.Tick(context.Background(), rec, odds, market, row.Price, strikePrice, trend, snap.RemainingMin(), ts)
		closed = append(closed, tick.Closed...)
	}

	return Result{Stats: buildStats(startingBalance, trader.State().Balance, closed), Closed: closed}, nil
}

// buildStats folds the closed-trade list into the aggregate report.
func buildStats(startBalance, endBalance float64, closed []domain.ClosedTrade) domain.PaperStats {
	stats := domain.PaperStats{
		StartBalance:     startBalance,
		EndBalance:       endBalance,
		TradesByStrategy: map[domain.StrategyTag]int{},
	}
	balance := startBalance
	peak := startBalance
	for _, c := range closed {
		stats.TotalTrades++
		if c.Won {
			stats.Wins++
		} else {
			stats.Losses++
		}
		stats.NetPnL += c.PnL
		stats.TradesByStrategy[c.Position.Strategy]++

		balance += c.PnL
		if balance > peak {
			peak = balance
		}
		if dd := peak - balance; dd > stats.MaxDrawdown {
			stats.MaxDrawdown = dd
		}
	}
	return stats
}
