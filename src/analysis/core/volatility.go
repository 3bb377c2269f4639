package core

import "math"

// -----------------------------------------------------------------------------

// TrueRanges returns the true range series. result[i] corresponds to bar
// i+1 of the input (the first bar has no previous close).
func TrueRanges(highs, lows, closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		tr := highs[i] - lows[i]
		if v := math.Abs(highs[i] - closes[i-1]); v > tr {
			tr = v
		}
		if v := math.Abs(lows[i] - closes[i-1]); v > tr {
			tr = v
		}
		out = append(out, tr)
	}
	return out
}

// -----------------------------------------------------------------------------

// ATR returns the Average True Range with Wilder smoothing.
// Requires at least period+1 bars.
func ATR(highs, lows, closes []float64, period int) (float64, bool) {
	trs := TrueRanges(highs, lows, closes)
	if len(trs) < period || period <= 0 {
		return 0, false
	}

	atr := Mean(trs[:period])
	for _, tr := range trs[period:] {
		atr = (atr*float64(period-1) + tr) / float64(period)
	}
	return atr, true
}

// -----------------------------------------------------------------------------

// BollingerBands returns the upper, middle and lower band using the SMA
// plus/minus mult population standard deviations.
func BollingerBands(closes []float64, period int, mult float64) (float64, float64, float64, bool) {
	if len(closes) < period || period <= 1 {
		return 0, 0, 0, false
	}
	mean, std := MeanStd(closes[len(closes)-period:])
	return mean + mult*std, mean, mean - mult*std, true
}

// -----------------------------------------------------------------------------

// KeltnerChannels returns the upper, middle and lower channel: EMA of the
// close plus/minus mult times the ATR of the same period.
func KeltnerChannels(highs, lows, closes []float64, period int, mult float64) (float64, float64, float64, bool) {
	middle, ok := EMA(closes, period)
	if !ok {
		return 0, 0, 0, false
	}
	atr, ok := ATR(highs, lows, closes, period)
	if !ok {
		return 0, 0, 0, false
	}
	return middle + mult*atr, middle, middle - mult*atr, true
}

// -----------------------------------------------------------------------------

// ATRBands returns close plus/minus mult times the ATR of the period.
func ATRBands(highs, lows, closes []float64, period int, mult float64) (float64, float64, bool) {
	atr, ok := ATR(highs, lows, closes, period)
	if !ok {
		return 0, 0, false
	}
	last := closes[len(closes)-1]
	return last + mult*atr, last - mult*atr, true
}

// -----------------------------------------------------------------------------

// RangePercentile returns where the latest bar's high-low range sits among
// the trailing lookback ranges, as a fraction in [0, 1].
func RangePercentile(highs, lows []float64, lookback int) (float64, bool) {
	if len(highs) < lookback || lookback <= 1 {
		return 0, false
	}
	ranges := make([]float64, lookback)
	for i := 0; i < lookback; i++ {
		idx := len(highs) - lookback + i
		ranges[i] = highs[idx] - lows[idx]
	}
	return Percentile(ranges, ranges[lookback-1]), true
}
