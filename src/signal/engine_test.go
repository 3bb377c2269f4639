package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal-engine/src/analysis"
	"signal-engine/src/logger"
	"signal-engine/src/models"
)

// -----------------------------------------------------------------------------

func risingCandles(n int, start, step float64) []models.MCandle {
	candles := make([]models.MCandle, n)
	price := start
	for i := range candles {
		candles[i] = models.MCandle{
			Symbol:           "R_10",
			TimeframeSeconds: 60,
			StartEpoch:       int64(60 * (i + 1)),
			Open:             price,
			High:             price + step,
			Low:              price - step/2,
			Close:            price + step*0.8,
			TickCount:        20,
		}
		price += step
	}
	return candles
}

func newTestEngine(minConfidence int, volCfg models.MVolatilityConfig) *SignalEngine {
	log := logger.NewLogger("ERROR", "test")
	prediction := analysis.NewPredictionEngine(volCfg, analysis.NewIndicatorEngine(log), analysis.NewPsychologyEngine(log), log)
	return NewSignalEngine(models.MSignalConfig{MinConfidence: minConfidence}, volCfg, prediction, log)
}

func calmVolatilityConfig() models.MVolatilityConfig {
	return models.MVolatilityConfig{
		ATRThreshold:            0.005,
		TickVolatilityThreshold: 0.003,
		TickVolatilityWindow:    10,
		MinCandlesForSignal:     50,
	}
}

// -----------------------------------------------------------------------------

func TestGenerateSignalDepthGate(t *testing.T) {
	e := newTestEngine(60, calmVolatilityConfig())

	result := e.GenerateSignal("s1", "R_10", 60, risingCandles(10, 100, 0.1), nil, 660, nil)

	assert.Equal(t, models.DirectionNoTrade, result.Direction)
	assert.Zero(t, result.Confidence)
	assert.Empty(t, result.Votes)
	assert.Equal(t, 10, result.ClosedCandlesCount)
	assert.False(t, result.VolatilityOverride)
}

// -----------------------------------------------------------------------------

func TestGenerateSignalVolatilityOverride(t *testing.T) {
	volCfg := calmVolatilityConfig()
	volCfg.ATRThreshold = 1e-9
	e := newTestEngine(60, volCfg)

	result := e.GenerateSignal("s1", "R_10", 60, risingCandles(250, 100, 0.1), nil, 15060, nil)

	assert.True(t, result.VolatilityOverride)
	assert.NotEmpty(t, result.VolatilityReason)
	assert.Equal(t, models.DirectionNoTrade, result.Direction)
	assert.Zero(t, result.Confidence)
	assert.Empty(t, result.Votes)

	// The analysis outputs still ride along for observability.
	assert.NotNil(t, result.Indicators.RSI14)
}

// -----------------------------------------------------------------------------

func TestGenerateSignalCallOnUptrend(t *testing.T) {
	e := newTestEngine(60, calmVolatilityConfig())

	result := e.GenerateSignal("s1", "R_10", 60, risingCandles(250, 100, 0.1), nil, 15060, nil)

	assert.Equal(t, models.DirectionCall, result.Direction)
	assert.GreaterOrEqual(t, result.Confidence, 60)
	assert.Greater(t, result.ProbabilityUp, 0.5)
	assert.InDelta(t, 1.0, result.ProbabilityUp+result.ProbabilityDown, 1e-9)
	assert.NotEmpty(t, result.Votes)
	assert.False(t, result.VolatilityOverride)
	assert.Equal(t, int64(15060), result.CandleCloseTime)

	upVotes := map[string]bool{}
	for _, v := range result.Votes {
		if v.Direction == models.VoteUp {
			upVotes[v.IndicatorName] = true
		}
	}
	assert.True(t, upVotes["ema_cross_5_21"], "uptrend must produce the fast EMA cross vote")
	assert.True(t, upVotes["macd_signal"], "uptrend must produce the MACD signal vote")
	assert.True(t, upVotes["supertrend_signal"], "uptrend must produce a trend vote")
}

// -----------------------------------------------------------------------------

func TestGenerateSignalIsDeterministic(t *testing.T) {
	e := newTestEngine(60, calmVolatilityConfig())

	closed := risingCandles(250, 100, 0.1)
	a := e.GenerateSignal("s1", "R_10", 60, closed, nil, 15060, nil)
	b := e.GenerateSignal("s1", "R_10", 60, closed, nil, 15060, nil)

	assert.Equal(t, a.Direction, b.Direction)
	assert.Equal(t, a.Confidence, b.Confidence)
	assert.Equal(t, a.ProbabilityUp, b.ProbabilityUp)
	assert.Equal(t, a.Votes, b.Votes)
	assert.Equal(t, a.Indicators, b.Indicators)
}

// -----------------------------------------------------------------------------

func TestGenerateSignalIndicatorFilter(t *testing.T) {
	e := newTestEngine(60, calmVolatilityConfig())

	options := &models.MSessionOptions{
		EnabledIndicators: []string{"rsi_overbought", "supertrend_signal"},
	}
	result := e.GenerateSignal("s1", "R_10", 60, risingCandles(250, 100, 0.1), nil, 15060, options)

	// Only the whitelisted producers survive: SuperTrend UP vs RSI DOWN.
	require.Len(t, result.Votes, 2)
	for _, v := range result.Votes {
		assert.Contains(t, options.EnabledIndicators, v.IndicatorName)
	}

	// 1.5 vs 1.3 is far too close to clear the confidence floor.
	assert.Equal(t, models.DirectionNoTrade, result.Direction)
	assert.Less(t, result.Confidence, 60)
}

// -----------------------------------------------------------------------------

func TestGenerateSignalCustomWeights(t *testing.T) {
	e := newTestEngine(1, calmVolatilityConfig())

	// Equal custom weights produce a dead heat; the epsilon in the score
	// nudges pUp just under 0.5, so the tie resolves to PUT.
	options := &models.MSessionOptions{
		EnabledIndicators: []string{"rsi_overbought", "supertrend_signal"},
		CustomWeights:     map[string]float64{"rsi_overbought": 1.0, "supertrend_signal": 1.0},
	}
	result := e.GenerateSignal("s1", "R_10", 60, risingCandles(250, 100, 0.1), nil, 15060, options)
	assert.Equal(t, models.DirectionPut, result.Direction)

	// Tilting the bullish side flips the decision.
	options.CustomWeights["supertrend_signal"] = 10.0
	result = e.GenerateSignal("s1", "R_10", 60, risingCandles(250, 100, 0.1), nil, 15060, options)
	assert.Equal(t, models.DirectionCall, result.Direction)
	assert.Greater(t, result.Confidence, 60)
}

// -----------------------------------------------------------------------------

func TestGenerateSignalBelowConfidenceFloor(t *testing.T) {
	e := newTestEngine(99, calmVolatilityConfig())

	result := e.GenerateSignal("s1", "R_10", 60, risingCandles(250, 100, 0.1), nil, 15060, nil)

	// The uptrend is convincing but not 99% convincing.
	assert.Equal(t, models.DirectionNoTrade, result.Direction)
	assert.NotEmpty(t, result.Votes)
	assert.Greater(t, result.Confidence, 0)
}

// -----------------------------------------------------------------------------

func TestDefaultWeightFallback(t *testing.T) {
	assert.Equal(t, 1.5, DefaultWeight("supertrend_signal"))
	assert.Equal(t, 1.0, DefaultWeight("never_heard_of_it"))
	assert.NotEmpty(t, KnownProducers())
}
