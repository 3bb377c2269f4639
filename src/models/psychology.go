package models

// -----------------------------------------------------------------------------
// Pattern Types
// -----------------------------------------------------------------------------

// Pattern bias / type values shared by patterns and the overall analysis.
const (
	PatternBullish = "bullish"
	PatternBearish = "bearish"
	PatternNeutral = "neutral"
)

// MCandlestickPattern describes one detected candlestick formation.
// Strength is normalized to (0, 1].
type MCandlestickPattern struct {
	Name        string  `json:"name"`
	Type        string  `json:"type"` // bullish / bearish / neutral
	Strength    float64 `json:"strength"`
	Description string  `json:"description"`
}

// -----------------------------------------------------------------------------
// Psychology Record
// -----------------------------------------------------------------------------

// MPsychologyAnalysis is the candle-psychology output for the most recent
// candle plus its local context.
type MPsychologyAnalysis struct {
	BodyRatio             float64               `json:"body_ratio"`
	UpperWickRatio        float64               `json:"upper_wick_ratio"`
	LowerWickRatio        float64               `json:"lower_wick_ratio"`
	IsDoji                bool                  `json:"is_doji"`
	Patterns              []MCandlestickPattern `json:"patterns"`
	Bias                  string                `json:"bias"` // bullish / bearish / neutral
	OrderBlockProbability float64               `json:"order_block_probability"`
	FVGDetected           bool                  `json:"fvg_detected"`
}
