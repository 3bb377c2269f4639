package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal-engine/src/logger"
	"signal-engine/src/models"
)

// -----------------------------------------------------------------------------

func trendCandles(n int, start, step float64) []models.MCandle {
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

// -----------------------------------------------------------------------------

func TestComputeEmptySeries(t *testing.T) {
	e := NewIndicatorEngine(logger.NewLogger("ERROR", "test"))

	values := e.Compute(nil, nil)
	assert.Nil(t, values.EMA5)
	assert.Nil(t, values.MACD)
	assert.Nil(t, values.RSI14)
}

// -----------------------------------------------------------------------------

// Short series fill only the indicators whose lookback is satisfied.
func TestComputeOmitsOnInsufficientData(t *testing.T) {
	e := NewIndicatorEngine(logger.NewLogger("ERROR", "test"))

	values := e.Compute(trendCandles(10, 100, 0.1), nil)
	require.NotNil(t, values.EMA5)
	require.NotNil(t, values.EMA9)
	assert.Nil(t, values.EMA50)
	assert.Nil(t, values.SMA200)
	assert.Nil(t, values.MACD)
	assert.Nil(t, values.ADX)
	assert.Nil(t, values.RSI14)
}

// -----------------------------------------------------------------------------

func TestComputeFullWindow(t *testing.T) {
	e := NewIndicatorEngine(logger.NewLogger("ERROR", "test"))

	values := e.Compute(trendCandles(250, 100, 0.1), nil)

	require.NotNil(t, values.EMA5)
	require.NotNil(t, values.EMA50)
	require.NotNil(t, values.SMA200)
	require.NotNil(t, values.MACD)
	require.NotNil(t, values.RSI14)
	require.NotNil(t, values.Stochastic)
	require.NotNil(t, values.ATR14)
	require.NotNil(t, values.ADX)
	require.NotNil(t, values.Bollinger)
	require.NotNil(t, values.Keltner)
	require.NotNil(t, values.SuperTrend)
	require.NotNil(t, values.PSAR)
	require.NotNil(t, values.Donchian)
	require.NotNil(t, values.VWAP)
	require.NotNil(t, values.OBV)
	require.NotNil(t, values.Chaikin)
	require.NotNil(t, values.EMARibbon)

	// Rising market: fast above slow, SuperTrend up, ribbon bullish.
	assert.Greater(t, *values.EMA5, *values.EMA50)
	assert.Equal(t, "up", values.SuperTrend.Direction)
	assert.Greater(t, *values.EMARibbon, 0.0)
	assert.Greater(t, *values.RSI14, 50.0)
}

// -----------------------------------------------------------------------------

func TestComputeIncludesFormingCandle(t *testing.T) {
	e := NewIndicatorEngine(logger.NewLogger("ERROR", "test"))

	closed := trendCandles(4, 100, 0.1)
	forming := trendCandles(5, 100, 0.1)[4]
	forming.IsForming = true

	withForming := e.Compute(closed, &forming)
	withoutForming := e.Compute(closed, nil)

	// 4 closed candles cannot feed EMA5; the forming bar makes it 5.
	assert.Nil(t, withoutForming.EMA5)
	assert.NotNil(t, withForming.EMA5)
}
