package domain

// MACDState bundles the MACD line with enough history to tell whether
// the histogram is growing or shrinking across the last two closes.
type MACDState struct {
	Line      float64
	Signal    float64
	Hist      float64
	HistPrev  float64
	HistPrev2 float64
}

// HistDelta returns Hist - HistPrev, positive when the histogram is growing.
func (m MACDState) HistDelta() float64 {
	return m.Hist - m.HistPrev
}

// Growing reports whether the histogram has grown for two closes in a row.
func (m MACDState) Growing() bool {
	return m.Hist > m.HistPrev && m.HistPrev > m.HistPrev2
}

// Shrinking reports whether the histogram has shrunk for two closes in a row.
func (m MACDState) Shrinking() bool {
	return m.Hist < m.HistPrev && m.HistPrev < m.HistPrev2
}

// HeikenAshiState is the derived Heiken-Ashi candle color and how many
// consecutive closed candles have shared that color (the "run" length).
type HeikenAshiState struct {
	Open  float64
	High  float64
	Low   float64
	Close float64
	Color Side // SideUp for a bullish (green) HA candle, SideDown for bearish
	Run   int  // consecutive candles of the same color, including this one
}

// Bullish reports whether this HA candle closed green.
func (h HeikenAshiState) Bullish() bool {
	return h.Color == SideUp
}

// Indicators is the full bundle of computed technical state for the
// current closed 1-minute candle, assembled once per slow tick.
type Indicators struct {
	EMA9        float64
	EMA21       float64
	EMA200      float64
	RSI14       float64
	RSISeries   []float64 // RSI at every closed candle, oldest first, for slope
	MACD        MACDState
	HeikenAshi  HeikenAshiState
	SessionVWAP float64
	VWAPSeries  []float64 // session VWAP at every closed candle, oldest first, for slope
	LastClose   float64
	PriorClose  float64 // close of the second-to-last closed candle
	CandleCount int     // how many closed candles were available when computing this bundle
}

// EMAFast returns true if the fast EMA is above the slow EMA (bullish cross state).
func (i Indicators) EMAFast() bool {
	return i.EMA9 > i.EMA21
}
