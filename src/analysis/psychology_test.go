package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"signal-engine/src/logger"
	"signal-engine/src/models"
)

// -----------------------------------------------------------------------------

func newPsychologyEngine() *PsychologyEngine {
	return NewPsychologyEngine(logger.NewLogger("ERROR", "test"))
}

func candle(open, high, low, close float64) models.MCandle {
	return models.MCandle{Open: open, High: high, Low: low, Close: close, TickCount: 10}
}

func hasPattern(patterns []models.MCandlestickPattern, name string) bool {
	for _, p := range patterns {
		if p.Name == name {
			return true
		}
	}
	return false
}

// -----------------------------------------------------------------------------

func TestAnalyzeRatios(t *testing.T) {
	e := newPsychologyEngine()

	// Range 10, body 4, upper wick 2, lower wick 4.
	last := candle(102, 108, 98, 106)
	out := e.Analyze([]models.MCandle{last}, nil)

	assert.InDelta(t, 0.4, out.BodyRatio, 1e-9)
	assert.InDelta(t, 0.2, out.UpperWickRatio, 1e-9)
	assert.InDelta(t, 0.4, out.LowerWickRatio, 1e-9)
	assert.False(t, out.IsDoji)
}

// -----------------------------------------------------------------------------

func TestAnalyzeZeroRangeCandle(t *testing.T) {
	e := newPsychologyEngine()

	out := e.Analyze([]models.MCandle{candle(100, 100, 100, 100)}, nil)
	assert.Zero(t, out.BodyRatio)
	assert.False(t, out.IsDoji)
	assert.Equal(t, models.PatternNeutral, out.Bias)
	assert.Empty(t, out.Patterns)
}

// -----------------------------------------------------------------------------

func TestDojiDetection(t *testing.T) {
	e := newPsychologyEngine()

	out := e.Analyze([]models.MCandle{candle(100, 105, 95, 100.2)}, nil)
	assert.True(t, out.IsDoji)
	assert.True(t, hasPattern(out.Patterns, "doji"))
}

// -----------------------------------------------------------------------------

func TestBullishEngulfing(t *testing.T) {
	e := newPsychologyEngine()

	prev := candle(105, 106, 99, 100)  // bearish
	last := candle(99, 108, 98, 107)   // bullish, engulfs prev body
	out := e.Analyze([]models.MCandle{prev, last}, nil)

	assert.True(t, hasPattern(out.Patterns, "bullish_engulfing"))
	assert.False(t, hasPattern(out.Patterns, "bearish_engulfing"))
}

// -----------------------------------------------------------------------------

func TestBearishEngulfing(t *testing.T) {
	e := newPsychologyEngine()

	prev := candle(100, 106, 99, 105)  // bullish
	last := candle(106, 107, 97, 98)   // bearish, engulfs prev body
	out := e.Analyze([]models.MCandle{prev, last}, nil)

	assert.True(t, hasPattern(out.Patterns, "bearish_engulfing"))
}

// -----------------------------------------------------------------------------

func TestHammer(t *testing.T) {
	e := newPsychologyEngine()

	// Small body near the top, long lower wick.
	last := candle(107, 108, 98, 107.9)
	out := e.Analyze([]models.MCandle{last}, nil)

	assert.True(t, hasPattern(out.Patterns, "hammer"))
	assert.False(t, hasPattern(out.Patterns, "shooting_star"))
}

// -----------------------------------------------------------------------------

func TestShootingStar(t *testing.T) {
	e := newPsychologyEngine()

	// Small body near the bottom, long upper wick.
	last := candle(98.9, 108, 98, 98.1)
	out := e.Analyze([]models.MCandle{last}, nil)

	assert.True(t, hasPattern(out.Patterns, "shooting_star"))
	assert.False(t, hasPattern(out.Patterns, "hammer"))
}

// -----------------------------------------------------------------------------

func TestBiasFromLastCandlePosition(t *testing.T) {
	e := newPsychologyEngine()

	// Bullish body closing in the upper third.
	bullish := e.Analyze([]models.MCandle{candle(100, 110, 99, 109)}, nil)
	assert.Equal(t, models.PatternBullish, bullish.Bias)

	// Bearish body closing in the lower third.
	bearish := e.Analyze([]models.MCandle{candle(109, 110, 99, 100)}, nil)
	assert.Equal(t, models.PatternBearish, bearish.Bias)

	// Bullish body closing mid-range stays neutral.
	neutral := e.Analyze([]models.MCandle{candle(104, 110, 99, 105)}, nil)
	assert.Equal(t, models.PatternNeutral, neutral.Bias)
}

// -----------------------------------------------------------------------------

func TestFVGDetection(t *testing.T) {
	e := newPsychologyEngine()

	// First candle's high (101) sits below the third candle's low (103).
	candles := []models.MCandle{
		candle(100, 101, 99, 100.5),
		candle(100.5, 104, 100, 103.5),
		candle(103.5, 106, 103, 105),
	}
	out := e.Analyze(candles, nil)
	assert.True(t, out.FVGDetected)

	// Overlapping ranges leave no gap.
	noGap := []models.MCandle{
		candle(100, 103, 99, 102),
		candle(102, 104, 101, 103),
		candle(103, 105, 102, 104),
	}
	out = e.Analyze(noGap, nil)
	assert.False(t, out.FVGDetected)
}

// -----------------------------------------------------------------------------

func TestFormingCandleActsAsLastBar(t *testing.T) {
	e := newPsychologyEngine()

	prev := candle(105, 106, 99, 100)
	forming := candle(99, 108, 98, 107)
	forming.IsForming = true

	out := e.Analyze([]models.MCandle{prev}, &forming)
	assert.True(t, hasPattern(out.Patterns, "bullish_engulfing"))
}

// -----------------------------------------------------------------------------

func TestOrderBlockProbabilityBounds(t *testing.T) {
	e := newPsychologyEngine()

	candles := []models.MCandle{
		candle(100, 101, 99, 100.5),
		candle(100.5, 102, 100, 101.5),
		candle(101.5, 106, 101, 105.5),
	}
	out := e.Analyze(candles, nil)
	assert.GreaterOrEqual(t, out.OrderBlockProbability, 0.0)
	assert.LessOrEqual(t, out.OrderBlockProbability, 1.0)

	// Too little context yields zero.
	short := e.Analyze([]models.MCandle{candle(100, 101, 99, 100.5)}, nil)
	assert.Zero(t, short.OrderBlockProbability)
}
