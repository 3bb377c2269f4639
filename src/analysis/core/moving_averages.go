package core

import "math"

// -----------------------------------------------------------------------------

// SMA returns the simple moving average of the trailing period values.
func SMA(values []float64, period int) (float64, bool) {
	if len(values) < period || period <= 0 {
		return 0, false
	}
	return Mean(values[len(values)-period:]), true
}

// -----------------------------------------------------------------------------

// EMASeries returns the full EMA series, seeded with the SMA of the first
// period values. The result is aligned so that result[i] corresponds to
// values[period-1+i].
func EMASeries(values []float64, period int) []float64 {
	if len(values) < period || period <= 0 {
		return nil
	}

	k := 2.0 / float64(period+1)
	out := make([]float64, 0, len(values)-period+1)

	ema := Mean(values[:period])
	out = append(out, ema)

	for _, v := range values[period:] {
		ema = v*k + ema*(1-k)
		out = append(out, ema)
	}
	return out
}

// -----------------------------------------------------------------------------

// EMA returns the latest EMA value for the period.
func EMA(values []float64, period int) (float64, bool) {
	series := EMASeries(values, period)
	if len(series) == 0 {
		return 0, false
	}
	return series[len(series)-1], true
}

// -----------------------------------------------------------------------------

// WMA returns the linearly weighted moving average of the trailing period
// values (newest value carries the highest weight).
func WMA(values []float64, period int) (float64, bool) {
	if len(values) < period || period <= 0 {
		return 0, false
	}
	window := values[len(values)-period:]

	num, denom := 0.0, 0.0
	for i, v := range window {
		w := float64(i + 1)
		num += v * w
		denom += w
	}
	return num / denom, true
}

// -----------------------------------------------------------------------------

// HullMA returns the Hull moving average: WMA(sqrt(n)) applied to the
// series 2*WMA(n/2) - WMA(n).
func HullMA(values []float64, period int) (float64, bool) {
	half := period / 2
	sqrtLen := int(math.Round(math.Sqrt(float64(period))))
	if half <= 0 || sqrtLen <= 0 {
		return 0, false
	}
	// Need enough history for the raw series feeding the final WMA.
	if len(values) < period+sqrtLen {
		return 0, false
	}

	raw := make([]float64, 0, sqrtLen)
	for i := sqrtLen; i >= 1; i-- {
		sub := values[:len(values)-i+1]
		wHalf, ok1 := WMA(sub, half)
		wFull, ok2 := WMA(sub, period)
		if !ok1 || !ok2 {
			return 0, false
		}
		raw = append(raw, 2*wHalf-wFull)
	}

	return WMA(raw, sqrtLen)
}

// -----------------------------------------------------------------------------

// EMARibbon collapses the alignment of a fan of EMAs into one scalar in
// [-1, 1]: +1 when every faster EMA sits above every slower one, -1 for the
// full bearish ordering, proportional in between.
func EMARibbon(values []float64, periods []int) (float64, bool) {
	if len(periods) < 2 {
		return 0, false
	}

	emas := make([]float64, len(periods))
	for i, p := range periods {
		v, ok := EMA(values, p)
		if !ok {
			return 0, false
		}
		emas[i] = v
	}

	score := 0.0
	pairs := 0
	for i := 0; i < len(emas)-1; i++ {
		for j := i + 1; j < len(emas); j++ {
			pairs++
			if emas[i] > emas[j] {
				score++
			} else if emas[i] < emas[j] {
				score--
			}
		}
	}
	return score / float64(pairs), true
}
