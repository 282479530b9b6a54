package candle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregator_FirstTickStartsForming(t *testing.T) {
	a := NewAggregator(240)
	a.Tick(0, 100)

	c, ok := a.Forming()
	assert.True(t, ok)
	assert.Equal(t, int64(0), c.OpenTimeMs)
	assert.Equal(t, 100.0, c.Open)
	assert.Equal(t, 100.0, c.Close)
	assert.Empty(t, a.Closed())
}

func TestAggregator_SameMinuteUpdatesHighLowClose(t *testing.T) {
	a := NewAggregator(240)
	a.Tick(0, 100)
	a.Tick(10_000, 105)
	a.Tick(20_000, 95)
	a.Tick(30_000, 102)

	c, _ := a.Forming()
	assert.Equal(t, 100.0, c.Open)
	assert.Equal(t, 105.0, c.High)
	assert.Equal(t, 95.0, c.Low)
	assert.Equal(t, 102.0, c.Close)
}

func TestAggregator_MinuteBoundaryClosesCandle(t *testing.T) {
	a := NewAggregator(240)
	a.Tick(0, 100)
	a.Tick(59_000, 103)
	a.Tick(60_000, 110) // new minute

	closed := a.Closed()
	assert.Len(t, closed, 1)
	assert.Equal(t, int64(0), closed[0].OpenTimeMs)
	assert.Equal(t, 103.0, closed[0].Close)

	forming, ok := a.Forming()
	assert.True(t, ok)
	assert.Equal(t, int64(60_000), forming.OpenTimeMs)
	assert.Equal(t, 110.0, forming.Open)
}

func TestAggregator_RingEvictsOldestBeyondCapacity(t *testing.T) {
	a := NewAggregator(2)
	a.Tick(0, 1)
	a.Tick(60_000, 2)
	a.Tick(120_000, 3)
	a.Tick(180_000, 4)

	closed := a.Closed()
	assert.Len(t, closed, 2)
	assert.Equal(t, int64(60_000), closed[0].OpenTimeMs)
	assert.Equal(t, int64(120_000), closed[1].OpenTimeMs)
}

func TestAggregator_WithFormingAppendsPartialBar(t *testing.T) {
	a := NewAggregator(240)
	a.Tick(0, 100)
	a.Tick(60_000, 110)

	all := a.WithForming()
	assert.Len(t, all, 2)
	assert.Equal(t, 110.0, all[1].Open)
}
