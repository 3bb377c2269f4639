package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal-engine/src/logger"
	"signal-engine/src/models"
)

// -----------------------------------------------------------------------------

func newPredictionEngine(cfg models.MVolatilityConfig) *PredictionEngine {
	log := logger.NewLogger("ERROR", "test")
	return NewPredictionEngine(cfg, NewIndicatorEngine(log), NewPsychologyEngine(log), log)
}

func defaultVolatilityConfig() models.MVolatilityConfig {
	return models.MVolatilityConfig{
		ATRThreshold:            0.005,
		TickVolatilityThreshold: 0.003,
		TickVolatilityWindow:    10,
		MinCandlesForSignal:     50,
	}
}

// -----------------------------------------------------------------------------

func TestEstimatedCloseUsesFormingCandle(t *testing.T) {
	e := newPredictionEngine(defaultVolatilityConfig())

	closed := trendCandles(60, 100, 0.1)
	forming := models.MCandle{Open: 110, High: 111, Low: 109, Close: 110.5, IsForming: true}

	pred := e.Predict("R_10", closed, &forming)
	assert.Equal(t, 110.5, pred.EstimatedClose)

	pred = e.Predict("R_10", closed, nil)
	assert.Equal(t, closed[len(closed)-1].Close, pred.EstimatedClose)
}

// -----------------------------------------------------------------------------

func TestVolatilityATRRule(t *testing.T) {
	cfg := defaultVolatilityConfig()
	cfg.ATRThreshold = 0.0001
	e := newPredictionEngine(cfg)

	pred := e.Predict("R_10", trendCandles(60, 100, 0.1), nil)
	assert.True(t, pred.Volatility.IsVolatile)
	assert.Contains(t, pred.Volatility.Reason, "ATR")
}

// -----------------------------------------------------------------------------

func TestVolatilityCalmMarket(t *testing.T) {
	e := newPredictionEngine(defaultVolatilityConfig())

	// 0.1-point ranges on a 100+ price: relative ATR well under 0.5%.
	pred := e.Predict("R_10", trendCandles(60, 100, 0.1), nil)
	assert.False(t, pred.Volatility.IsVolatile)
	assert.Empty(t, pred.Volatility.Reason)
}

// -----------------------------------------------------------------------------

func TestVolatilityTickBurstRule(t *testing.T) {
	e := newPredictionEngine(defaultVolatilityConfig())

	// Ten ticks swinging 2% around 100: far beyond the 0.3% threshold.
	for i := 0; i < 10; i++ {
		price := 99.0
		if i%2 == 0 {
			price = 101.0
		}
		e.ObserveTick(models.MTick{Symbol: "R_10", Price: price, Epoch: int64(100 + i)})
	}

	closed := trendCandles(60, 100, 0.001)
	pred := e.Predict("R_10", closed, nil)
	assert.True(t, pred.Volatility.IsVolatile)
	assert.Contains(t, pred.Volatility.Reason, "tick range")
}

// -----------------------------------------------------------------------------

func TestVolatilityTickWindowNotFull(t *testing.T) {
	e := newPredictionEngine(defaultVolatilityConfig())

	// Only three ticks: the burst rule stays silent regardless of range.
	for _, price := range []float64{90, 110, 95} {
		e.ObserveTick(models.MTick{Symbol: "R_10", Price: price, Epoch: 100})
	}

	pred := e.Predict("R_10", trendCandles(60, 100, 0.001), nil)
	assert.False(t, pred.Volatility.IsVolatile)
}

// -----------------------------------------------------------------------------

func TestForgetSymbolClearsTickWindow(t *testing.T) {
	e := newPredictionEngine(defaultVolatilityConfig())

	for i := 0; i < 10; i++ {
		price := 99.0
		if i%2 == 0 {
			price = 101.0
		}
		e.ObserveTick(models.MTick{Symbol: "R_10", Price: price, Epoch: int64(100 + i)})
	}
	e.ForgetSymbol("R_10")

	pred := e.Predict("R_10", trendCandles(60, 100, 0.001), nil)
	assert.False(t, pred.Volatility.IsVolatile)
}

// -----------------------------------------------------------------------------

func TestTickWindowOnlyAffectsOwnSymbol(t *testing.T) {
	e := newPredictionEngine(defaultVolatilityConfig())

	for i := 0; i < 10; i++ {
		price := 99.0
		if i%2 == 0 {
			price = 101.0
		}
		e.ObserveTick(models.MTick{Symbol: "R_25", Price: price, Epoch: int64(100 + i)})
	}

	pred := e.Predict("R_10", trendCandles(60, 100, 0.001), nil)
	require.False(t, pred.Volatility.IsVolatile)
}
