package models

import "time"

// -----------------------------------------------------------------------------
// Directions
// -----------------------------------------------------------------------------

// Vote directions emitted by individual producers.
const (
	VoteUp      = "UP"
	VoteDown    = "DOWN"
	VoteNeutral = "NEUTRAL"
)

// Final signal decisions.
const (
	DirectionCall    = "CALL"
	DirectionPut     = "PUT"
	DirectionNoTrade = "NO_TRADE"
)

// -----------------------------------------------------------------------------
// Vote
// -----------------------------------------------------------------------------

// MVote is a weighted directional opinion from one indicator producer.
type MVote struct {
	IndicatorName string  `json:"indicator_name"`
	Direction     string  `json:"direction"` // UP / DOWN / NEUTRAL
	Weight        float64 `json:"weight"`
	Reason        string  `json:"reason,omitempty"`
}

// -----------------------------------------------------------------------------
// Signal Result
// -----------------------------------------------------------------------------

// MSignalResult is the full output of one signal computation.
// Invariant: VolatilityOverride implies Direction == NO_TRADE and
// Confidence == 0.
type MSignalResult struct {
	SessionID          string              `json:"session_id"`
	Symbol             string              `json:"symbol"`
	TimeframeSeconds   int64               `json:"timeframe_seconds"`
	Timestamp          time.Time           `json:"timestamp"`
	CandleCloseTime    int64               `json:"candle_close_time"`
	Direction          string              `json:"direction"` // CALL / PUT / NO_TRADE
	Confidence         int                 `json:"confidence"`
	ProbabilityUp      float64             `json:"probability_up"`
	ProbabilityDown    float64             `json:"probability_down"`
	Votes              []MVote             `json:"votes"`
	Indicators         MIndicatorValues    `json:"indicators"`
	Psychology         MPsychologyAnalysis `json:"psychology"`
	VolatilityOverride bool                `json:"volatility_override"`
	VolatilityReason   string              `json:"volatility_reason,omitempty"`
	ClosedCandlesCount int                 `json:"closed_candles_count"`
	FormingCandle      *MCandle            `json:"forming_candle,omitempty"`
}

// -----------------------------------------------------------------------------
// Prediction
// -----------------------------------------------------------------------------

// MVolatilityAssessment is the short-horizon volatility verdict.
type MVolatilityAssessment struct {
	IsVolatile bool   `json:"is_volatile"`
	Reason     string `json:"reason,omitempty"`
}

// MPrediction combines the forming-candle estimate with the analysis outputs
// that feed the signal engine.
type MPrediction struct {
	EstimatedClose float64               `json:"estimated_close"`
	Indicators     MIndicatorValues      `json:"indicators"`
	Psychology     MPsychologyAnalysis   `json:"psychology"`
	Volatility     MVolatilityAssessment `json:"volatility"`
}
