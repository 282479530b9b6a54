package strike

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromQuestion_PriceToBeat(t *testing.T) {
	v, ok := FromQuestion("Bitcoin price to beat: $118,250 by 3pm ET")
	require.True(t, ok)
	assert.Equal(t, 118250.0, v)
}

func TestFromQuestion_AbovePattern(t *testing.T) {
	v, ok := FromQuestion("Will BTC be above $65000 in 15 minutes?")
	require.True(t, ok)
	assert.Equal(t, 65000.0, v)
}

func TestFromQuestion_NoMatch(t *testing.T) {
	_, ok := FromQuestion("Will it rain tomorrow?")
	assert.False(t, ok)
}

func TestFromMetadata_MatchesStrikeKey(t *testing.T) {
	v, ok := FromMetadata(map[string]string{"strikePrice": "99500"})
	require.True(t, ok)
	assert.Equal(t, 99500.0, v)
}

func TestFromMetadata_RejectsImplausibleValue(t *testing.T) {
	_, ok := FromMetadata(map[string]string{"threshold": "5"})
	assert.False(t, ok)
}

func TestLatch_PrefersQuestionOverChainlink(t *testing.T) {
	l := NewLatch()
	l.Reset("btc-15m-123")
	resolved := l.TryFromMarket("BTC above $100000?", nil)
	require.True(t, resolved)

	l.LatchFromChainlink(99999) // should be ignored, already resolved
	v, ok := l.Value()
	require.True(t, ok)
	assert.Equal(t, 100000.0, v)
}

func TestLatch_FallsBackToChainlinkWhenNoTextOrMetadata(t *testing.T) {
	l := NewLatch()
	l.Reset("btc-15m-124")
	resolved := l.TryFromMarket("Will BTC go up?", nil)
	assert.False(t, resolved)

	l.LatchFromChainlink(101234.5)
	v, ok := l.Value()
	require.True(t, ok)
	assert.Equal(t, 101234.5, v)
}

func TestFilePoller_OverridesLatchedValue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "strike.txt")
	require.NoError(t, os.WriteFile(path, []byte("102000\n"), 0o644))

	l := NewLatch()
	l.LatchFromChainlink(100000)

	p := NewFilePoller(path, time.Minute, l, nil)
	p.pollOnce()

	v, ok := l.Value()
	require.True(t, ok)
	assert.Equal(t, 102000.0, v)
}

func TestFilePoller_MissingFileClearsOverride(t *testing.T) {
	l := NewLatch()
	l.LatchFromChainlink(100000)
	l.setOverride(999999)

	p := NewFilePoller(filepath.Join(t.TempDir(), "missing.txt"), time.Minute, l, nil)
	p.pollOnce()

	v, ok := l.Value()
	require.True(t, ok)
	assert.Equal(t, 100000.0, v)
}
