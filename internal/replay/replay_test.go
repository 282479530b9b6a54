package replay_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/199ocero/PolymarketBTC15mAssistant/internal/paper"
	"github.com/199ocero/PolymarketBTC15mAssistant/internal/replay"
	"github.com/199ocero/PolymarketBTC15mAssistant/internal/strategy"
)

func TestParseCSV(t *testing.T) {
	csv := "ts_ms,price,odds_up,odds_down,strike\n" +
		"1000,100000,0.55,0.45,100000\n" +
		"2000,100010,0.56,0.44,\n"

	rows, err := replay.ParseCSV(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, int64(1000), rows[0].TsMs)
	assert.Equal(t, 100000.0, rows[0].Price)
	assert.Equal(t, 0.55, rows[0].OddsUp)
	assert.Equal(t, 100000.0, rows[0].Strike)

	assert.Equal(t, int64(2000), rows[1].TsMs)
	assert.Equal(t, 0.0, rows[1].Strike)
}

func TestParseCSV_MissingColumn(t *testing.T) {
	_, err := replay.ParseCSV(strings.NewReader("price\n1.0\n"))
	assert.Error(t, err)
}

func TestParseJSONL(t *testing.T) {
	jsonl := `{"ts_ms":1000,"price":100000,"odds_up":0.55,"odds_down":0.45}
{"ts_ms":2000,"price":100050,"odds_up":0.6,"odds_down":0.4}
`
	rows, err := replay.ParseJSONL(strings.NewReader(jsonl))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 100050.0, rows[1].Price)
}

func TestRun_TooFewCandlesNeverEntersAndConservesBalance(t *testing.T) {
	var rows []replay.Row
	base := int64(1_700_000_000_000)
	for i := 0; i < 5; i++ {
		rows = append(rows, replay.Row{
			TsMs:    base + int64(i)*60_000,
			Price:   100000 + float64(i),
			OddsUp:  0.55,
			OddsDown: 0.45,
		})
	}

	result, err := replay.Run(rows, 1000, strategy.DefaultConfig(), paper.DefaultConfig(), nil)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Stats.TotalTrades, "too few closed one-minute candles for any strategy to fire")
	assert.Equal(t, 1000.0, result.Stats.StartBalance)
	assert.Equal(t, 1000.0, result.Stats.EndBalance)
	assert.Empty(t, result.Closed)
}

func TestRun_EmptyInput(t *testing.T) {
	result, err := replay.Run(nil, 1000, strategy.DefaultConfig(), paper.DefaultConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Stats.TotalTrades)
	assert.Equal(t, 1000.0, result.Stats.EndBalance)
}
