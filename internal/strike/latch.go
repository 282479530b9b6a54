// Package strike determines the BTC price a market resolves against:
// parsed from the question text, found in market metadata, or latched
// from the first chainlink observation after the window opens.
package strike

import (
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// questionPatterns are tried in order against the market question text.
// Commas in the number are tolerated and stripped before parsing.
var questionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)price to beat[^0-9]*\$?([0-9,]+(?:\.[0-9]+)?)`),
	regexp.MustCompile(`(?i)above\s*\$?([0-9,]+(?:\.[0-9]+)?)`),
	regexp.MustCompile(`>\s*\$?([0-9,]+(?:\.[0-9]+)?)`),
}

// metadataKeyPattern matches metadata keys worth searching for a numeric strike.
var metadataKeyPattern = regexp.MustCompile(`(?i)price|strike|threshold|target|beat`)

const (
	minPlausibleStrike = 1_000
	maxPlausibleStrike = 2_000_000
)

// FromQuestion tries each question-text pattern in turn and returns the
// first plausible strike found.
func FromQuestion(question string) (float64, bool) {
	for _, re := range questionPatterns {
		m := re.FindStringSubmatch(question)
		if len(m) < 2 {
			continue
		}
		if v, ok := parsePlausible(m[1]); ok {
			return v, true
		}
	}
	return 0, false
}

// FromMetadata searches metadata keys matching price|strike|threshold|target|beat
// for a plausible numeric value.
func FromMetadata(metadata map[string]string) (float64, bool) {
	for k, v := range metadata {
		if !metadataKeyPattern.MatchString(k) {
			continue
		}
		if val, ok := parsePlausible(v); ok {
			return val, true
		}
	}
	return 0, false
}

func parsePlausible(s string) (float64, bool) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	if v < minPlausibleStrike || v > maxPlausibleStrike {
		return 0, false
	}
	return v, true
}

// Latch resolves and remembers the strike for the lifetime of one market
// slug. Resolution order: question text, metadata, then the first
// chainlink observation after the market window opened. A strike.txt
// file, polled separately, can override whatever was latched.
type Latch struct {
	mu        sync.Mutex
	slug      string
	value     float64
	resolved  bool
	override  float64
	hasOverride bool
}

// NewLatch returns an empty latch.
func NewLatch() *Latch {
	return &Latch{}
}

// Reset clears the latch for a new market slug.
func (l *Latch) Reset(slug string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.slug = slug
	l.value = 0
	l.resolved = false
}

// TryFromMarket attempts to resolve the strike from question text or
// metadata. Returns true once resolved.
func (l *Latch) TryFromMarket(question string, metadata map[string]string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.resolved {
		return true
	}
	if v, ok := FromQuestion(question); ok {
		l.value = v
		l.resolved = true
		return true
	}
	if v, ok := FromMetadata(metadata); ok {
		l.value = v
		l.resolved = true
		return true
	}
	return false
}

// LatchFromChainlink latches the strike from the first chainlink price
// observed after the window opened, if nothing has resolved yet.
func (l *Latch) LatchFromChainlink(price float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.resolved {
		return
	}
	l.value = price
	l.resolved = true
}

// Value returns the current strike: the strike.txt override if present,
// otherwise the latched value, and whether a strike is known at all.
func (l *Latch) Value() (float64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.hasOverride {
		return l.override, true
	}
	return l.value, l.resolved
}

// setOverride installs a strike.txt-sourced override.
func (l *Latch) setOverride(v float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.override = v
	l.hasOverride = true
}

// clearOverride drops the strike.txt override, falling back to the
// latched value. Used when the file is removed or becomes unparsable.
func (l *Latch) clearOverride() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hasOverride = false
}

// FilePoller watches a strike.txt file on a fixed interval and pushes
// any parsed number into the latch as an override.
type FilePoller struct {
	path     string
	interval time.Duration
	latch    *Latch
	log      *slog.Logger
}

// NewFilePoller returns a poller for path, ticking at interval.
func NewFilePoller(path string, interval time.Duration, latch *Latch, log *slog.Logger) *FilePoller {
	if log == nil {
		log = slog.Default()
	}
	return &FilePoller{path: path, interval: interval, latch: latch, log: log}
}

// Run polls until stop is closed. Errors reading or parsing the file are
// treated as "no override" rather than fatal.
func (p *FilePoller) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.pollOnce()
		}
	}
}

func (p *FilePoller) pollOnce() {
	data, err := os.ReadFile(p.path)
	if err != nil {
		p.latch.clearOverride()
		return
	}
	text := strings.TrimSpace(string(data))
	v, err := strconv.ParseFloat(strings.ReplaceAll(text, ",", ""), 64)
	if err != nil || v < minPlausibleStrike || v > maxPlausibleStrike {
		p.log.Warn("strike.txt: unparsable override, ignoring", "path", p.path, "raw", text)
		p.latch.clearOverride()
		return
	}
	p.latch.setOverride(v)
}
