package models

// MCandle represents an OHLC bucket for a (symbol, timeframe) pair.
// StartEpoch is always aligned to a multiple of TimeframeSeconds.
type MCandle struct {
	Symbol           string  `json:"symbol"`
	TimeframeSeconds int64   `json:"timeframe_seconds"`
	Open             float64 `json:"open"`
	High             float64 `json:"high"`
	Low              float64 `json:"low"`
	Close            float64 `json:"close"`
	StartEpoch       int64   `json:"start_epoch"`
	TickCount        int     `json:"tick_count"`
	IsForming        bool    `json:"is_forming"`
}

// -----------------------------------------------------------------------------

// EndEpoch returns the first epoch that no longer belongs to this candle.
func (c MCandle) EndEpoch() int64 {
	return c.StartEpoch + c.TimeframeSeconds
}

// -----------------------------------------------------------------------------

// Body returns the absolute open-to-close distance.
func (c MCandle) Body() float64 {
	if c.Close >= c.Open {
		return c.Close - c.Open
	}
	return c.Open - c.Close
}

// -----------------------------------------------------------------------------

// Range returns the high-to-low distance.
func (c MCandle) Range() float64 {
	return c.High - c.Low
}

// -----------------------------------------------------------------------------

// IsBullish reports whether the candle closed above its open.
func (c MCandle) IsBullish() bool {
	return c.Close > c.Open
}

// -----------------------------------------------------------------------------

// IsBearish reports whether the candle closed below its open.
func (c MCandle) IsBearish() bool {
	return c.Close < c.Open
}
