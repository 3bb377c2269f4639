package analysis

import (
	"signal-engine/src/analysis/core"
	"signal-engine/src/logger"
	"signal-engine/src/models"
)

// -----------------------------------------------------------------------------
// IndicatorEngine computes the full indicator schema from a candle window.
// It is stateless: every call recomputes from the series it is given, so the
// caller can hand it any snapshot without ordering concerns.
// -----------------------------------------------------------------------------

type IndicatorEngine struct {
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewIndicatorEngine(log *logger.Logger) *IndicatorEngine {
	return &IndicatorEngine{Logger: log}
}

// -----------------------------------------------------------------------------

// Compute evaluates every indicator over the closed candles plus the forming
// candle as the provisional last bar. Indicators whose minimum lookback is
// not met stay nil in the result.
func (e *IndicatorEngine) Compute(closed []models.MCandle, forming *models.MCandle) models.MIndicatorValues {
	candles := closed
	if forming != nil {
		candles = make([]models.MCandle, 0, len(closed)+1)
		candles = append(candles, closed...)
		candles = append(candles, *forming)
	}

	highs, lows, closes, volumes := splitSeries(candles)
	values := models.MIndicatorValues{}
	if len(closes) == 0 {
		return values
	}

	// 1. Moving averages
	values.EMA5 = okPtr(core.EMA(closes, 5))
	values.EMA9 = okPtr(core.EMA(closes, 9))
	values.EMA12 = okPtr(core.EMA(closes, 12))
	values.EMA21 = okPtr(core.EMA(closes, 21))
	values.EMA50 = okPtr(core.EMA(closes, 50))
	values.SMA20 = okPtr(core.SMA(closes, 20))
	values.SMA50 = okPtr(core.SMA(closes, 50))
	values.SMA200 = okPtr(core.SMA(closes, 200))
	values.HullMA = okPtr(core.HullMA(closes, 9))
	values.EMARibbon = okPtr(core.EMARibbon(closes, []int{5, 9, 12, 21, 50}))

	// 2. Oscillators
	values.RSI14 = okPtr(core.RSI(closes, 14))
	if k, d, ok := core.Stochastic(highs, lows, closes, 14, 3, 3); ok {
		values.Stochastic = &models.MStochasticResult{K: k, D: d}
	}
	values.CCI = okPtr(core.CCI(highs, lows, closes, 20))
	values.WilliamsR = okPtr(core.WilliamsR(highs, lows, closes, 14))
	values.ROC = okPtr(core.ROC(closes, 12))
	values.Momentum = okPtr(core.Momentum(closes, 10))
	values.UltimateOsc = okPtr(core.UltimateOscillator(highs, lows, closes, 7, 14, 28))
	values.Fisher = okPtr(core.FisherTransform(highs, lows, 10))

	// 3. Trend
	if macd, sig, hist, ok := core.MACD(closes, 12, 26, 9); ok {
		values.MACD = &models.MMACDResult{MACD: macd, Signal: sig, Histogram: hist}
	}
	values.ADX = okPtr(core.ADX(highs, lows, closes, 14))
	if value, direction, ok := core.SuperTrend(highs, lows, closes, 10, 3); ok {
		st := &models.MSuperTrend{Value: value, Direction: "down"}
		if direction > 0 {
			st.Direction = "up"
		}
		values.SuperTrend = st
	}
	if sar, _, ok := core.PSAR(highs, lows, 0.02, 0.2); ok {
		values.PSAR = &sar
	}
	if upper, lower, ok := core.Donchian(highs, lows, 20); ok {
		values.Donchian = &models.MDonchianChannels{Upper: upper, Lower: lower}
	}

	// 4. Volatility
	values.ATR14 = okPtr(core.ATR(highs, lows, closes, 14))
	if upper, middle, lower, ok := core.BollingerBands(closes, 20, 2); ok {
		values.Bollinger = &models.MBollingerBands{Upper: upper, Middle: middle, Lower: lower}
	}
	if upper, middle, lower, ok := core.KeltnerChannels(highs, lows, closes, 20, 2); ok {
		values.Keltner = &models.MKeltnerChannels{Upper: upper, Middle: middle, Lower: lower}
	}
	if upper, lower, ok := core.ATRBands(highs, lows, closes, 14, 2); ok {
		values.ATRBands = &models.MATRBands{Upper: upper, Lower: lower}
	}
	values.RangePercentile = okPtr(core.RangePercentile(highs, lows, 50))
	values.ZScore = okPtr(core.ZScore(closes, 20))
	values.LinRegSlope = okPtr(core.LinRegSlope(closes, 14))

	// 5. Activity (tick count stands in for volume)
	values.VWAP = okPtr(core.VWAP(highs, lows, closes, volumes))
	values.OBV = okPtr(core.OBV(closes, volumes))
	values.Chaikin = okPtr(core.ChaikinOscillator(highs, lows, closes, volumes, 3, 10))

	return values
}

// -----------------------------------------------------------------------------

func splitSeries(candles []models.MCandle) (highs, lows, closes, volumes []float64) {
	highs = make([]float64, len(candles))
	lows = make([]float64, len(candles))
	closes = make([]float64, len(candles))
	volumes = make([]float64, len(candles))
	for i, c := range candles {
		highs[i] = c.High
		lows[i] = c.Low
		closes[i] = c.Close
		volumes[i] = float64(c.TickCount)
	}
	return
}

// -----------------------------------------------------------------------------

func okPtr(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}
