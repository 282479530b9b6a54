package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCurrent_FloorsToFifteenMinuteBoundary(t *testing.T) {
	now := time.Date(2026, 8, 6, 14, 37, 12, 0, time.UTC)
	w := Current(now)

	assert.Equal(t, time.Date(2026, 8, 6, 14, 30, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2026, 8, 6, 14, 45, 0, 0, time.UTC), w.End)
}

func TestWindow_Next(t *testing.T) {
	w := Current(time.Date(2026, 8, 6, 14, 37, 0, 0, time.UTC))
	n := w.Next()

	assert.Equal(t, w.End, n.Start)
	assert.Equal(t, w.End.Add(15*time.Minute), n.End)
}

func TestWindow_ElapsedAndRemaining(t *testing.T) {
	w := Window{
		Start: time.Date(2026, 8, 6, 14, 30, 0, 0, time.UTC),
		End:   time.Date(2026, 8, 6, 14, 45, 0, 0, time.UTC),
	}
	now := time.Date(2026, 8, 6, 14, 40, 0, 0, time.UTC)

	assert.InDelta(t, 10.0, w.ElapsedMin(now), 1e-9)
	assert.InDelta(t, 5.0, w.RemainingMin(now), 1e-9)
}

func TestWindow_Expired(t *testing.T) {
	w := Window{
		Start: time.Date(2026, 8, 6, 14, 30, 0, 0, time.UTC),
		End:   time.Date(2026, 8, 6, 14, 45, 0, 0, time.UTC),
	}
	assert.False(t, w.Expired(time.Date(2026, 8, 6, 14, 44, 59, 0, time.UTC)))
	assert.True(t, w.Expired(time.Date(2026, 8, 6, 14, 45, 0, 0, time.UTC)))
}
