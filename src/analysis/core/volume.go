package core

// Tick-based feeds carry no traded volume, so every function here takes the
// per-candle tick count as the activity measure.

// -----------------------------------------------------------------------------

// VWAP returns the volume-weighted average of typical prices over the whole
// window, weighting each bar by its tick count.
func VWAP(highs, lows, closes, volumes []float64) (float64, bool) {
	if len(closes) == 0 {
		return 0, false
	}

	num, denom := 0.0, 0.0
	for i := range closes {
		tp := (highs[i] + lows[i] + closes[i]) / 3
		num += tp * volumes[i]
		denom += volumes[i]
	}
	if denom == 0 {
		return 0, false
	}
	return num / denom, true
}

// -----------------------------------------------------------------------------

// OBV returns the on-balance volume accumulated over the window.
func OBV(closes, volumes []float64) (float64, bool) {
	if len(closes) < 2 {
		return 0, false
	}

	obv := 0.0
	for i := 1; i < len(closes); i++ {
		switch {
		case closes[i] > closes[i-1]:
			obv += volumes[i]
		case closes[i] < closes[i-1]:
			obv -= volumes[i]
		}
	}
	return obv, true
}

// -----------------------------------------------------------------------------

// ChaikinOscillator returns the difference between the fast and slow EMA of
// the accumulation/distribution line.
func ChaikinOscillator(highs, lows, closes, volumes []float64, fast, slow int) (float64, bool) {
	if len(closes) < slow || fast <= 0 || slow <= fast {
		return 0, false
	}

	adl := make([]float64, len(closes))
	running := 0.0
	for i := range closes {
		rng := highs[i] - lows[i]
		if rng != 0 {
			mfm := ((closes[i] - lows[i]) - (highs[i] - closes[i])) / rng
			running += mfm * volumes[i]
		}
		adl[i] = running
	}

	fastEMA, ok1 := EMA(adl, fast)
	slowEMA, ok2 := EMA(adl, slow)
	if !ok1 || !ok2 {
		return 0, false
	}
	return fastEMA - slowEMA, true
}
