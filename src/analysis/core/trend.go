package core

import "math"

// -----------------------------------------------------------------------------

// MACD returns the MACD line, signal line and histogram for the given
// fast/slow/signal periods.
func MACD(closes []float64, fast, slow, signal int) (float64, float64, float64, bool) {
	if len(closes) < slow+signal-1 || fast <= 0 || slow <= fast || signal <= 0 {
		return 0, 0, 0, false
	}

	fastSeries := EMASeries(closes, fast)
	slowSeries := EMASeries(closes, slow)
	if fastSeries == nil || slowSeries == nil {
		return 0, 0, 0, false
	}

	// Align the two EMA series on the slow one.
	offset := len(fastSeries) - len(slowSeries)
	macdLine := make([]float64, len(slowSeries))
	for i := range slowSeries {
		macdLine[i] = fastSeries[i+offset] - slowSeries[i]
	}

	signalSeries := EMASeries(macdLine, signal)
	if signalSeries == nil {
		return 0, 0, 0, false
	}

	macd := macdLine[len(macdLine)-1]
	sig := signalSeries[len(signalSeries)-1]
	return macd, sig, macd - sig, true
}

// -----------------------------------------------------------------------------

// ADX returns the Average Directional Index with Wilder smoothing.
// Requires at least 2*period+1 bars.
func ADX(highs, lows, closes []float64, period int) (float64, bool) {
	if len(closes) < 2*period+1 || period <= 0 {
		return 0, false
	}

	n := len(closes)
	smTR, smPlusDM, smMinusDM := 0.0, 0.0, 0.0
	dxs := make([]float64, 0, n)

	for i := 1; i < n; i++ {
		upMove := highs[i] - highs[i-1]
		downMove := lows[i-1] - lows[i]

		plusDM, minusDM := 0.0, 0.0
		if upMove > downMove && upMove > 0 {
			plusDM = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM = downMove
		}

		tr := highs[i] - lows[i]
		if v := math.Abs(highs[i] - closes[i-1]); v > tr {
			tr = v
		}
		if v := math.Abs(lows[i] - closes[i-1]); v > tr {
			tr = v
		}

		if i <= period {
			smTR += tr
			smPlusDM += plusDM
			smMinusDM += minusDM
			if i < period {
				continue
			}
		} else {
			smTR = smTR - smTR/float64(period) + tr
			smPlusDM = smPlusDM - smPlusDM/float64(period) + plusDM
			smMinusDM = smMinusDM - smMinusDM/float64(period) + minusDM
		}

		if smTR == 0 {
			dxs = append(dxs, 0)
			continue
		}
		plusDI := 100 * smPlusDM / smTR
		minusDI := 100 * smMinusDM / smTR
		if plusDI+minusDI == 0 {
			dxs = append(dxs, 0)
			continue
		}
		dxs = append(dxs, 100*math.Abs(plusDI-minusDI)/(plusDI+minusDI))
	}

	if len(dxs) < period {
		return 0, false
	}

	adx := Mean(dxs[:period])
	for _, dx := range dxs[period:] {
		adx = (adx*float64(period-1) + dx) / float64(period)
	}
	return adx, true
}

// -----------------------------------------------------------------------------

// SuperTrend returns the SuperTrend line value and its direction
// (+1 up trend, -1 down trend) using the ATR band flip rules.
func SuperTrend(highs, lows, closes []float64, period int, mult float64) (float64, int, bool) {
	if len(closes) < period+1 || period <= 0 {
		return 0, 0, false
	}

	trs := TrueRanges(highs, lows, closes)

	// Wilder ATR series aligned to bars period..n-1.
	atr := Mean(trs[:period])
	atrs := []float64{atr}
	for _, tr := range trs[period:] {
		atr = (atr*float64(period-1) + tr) / float64(period)
		atrs = append(atrs, atr)
	}

	finalUpper, finalLower := 0.0, 0.0
	direction := 1
	value := 0.0

	for i := 0; i < len(atrs); i++ {
		bar := period + i
		hl2 := (highs[bar] + lows[bar]) / 2
		basicUpper := hl2 + mult*atrs[i]
		basicLower := hl2 - mult*atrs[i]

		if i == 0 {
			finalUpper, finalLower = basicUpper, basicLower
		} else {
			if basicUpper < finalUpper || closes[bar-1] > finalUpper {
				finalUpper = basicUpper
			}
			if basicLower > finalLower || closes[bar-1] < finalLower {
				finalLower = basicLower
			}
		}

		if direction == 1 {
			if closes[bar] < finalLower {
				direction = -1
			}
		} else {
			if closes[bar] > finalUpper {
				direction = 1
			}
		}

		if direction == 1 {
			value = finalLower
		} else {
			value = finalUpper
		}
	}

	return value, direction, true
}

// -----------------------------------------------------------------------------

// PSAR returns the Parabolic SAR value and the current trend direction
// (+1 when price is above the SAR, -1 below).
func PSAR(highs, lows []float64, step, maxStep float64) (float64, int, bool) {
	if len(highs) < 2 {
		return 0, 0, false
	}

	uptrend := highs[1] >= highs[0]
	af := step
	var sar, ep float64
	if uptrend {
		sar, ep = lows[0], highs[1]
	} else {
		sar, ep = highs[0], lows[1]
	}

	for i := 2; i < len(highs); i++ {
		sar = sar + af*(ep-sar)

		if uptrend {
			// SAR may never enter the prior two bars' range.
			if sar > lows[i-1] {
				sar = lows[i-1]
			}
			if sar > lows[i-2] {
				sar = lows[i-2]
			}
			if lows[i] < sar {
				uptrend = false
				sar = ep
				ep = lows[i]
				af = step
				continue
			}
			if highs[i] > ep {
				ep = highs[i]
				af = math.Min(af+step, maxStep)
			}
		} else {
			if sar < highs[i-1] {
				sar = highs[i-1]
			}
			if sar < highs[i-2] {
				sar = highs[i-2]
			}
			if highs[i] > sar {
				uptrend = true
				sar = ep
				ep = highs[i]
				af = step
				continue
			}
			if lows[i] < ep {
				ep = lows[i]
				af = math.Min(af+step, maxStep)
			}
		}
	}

	direction := -1
	if uptrend {
		direction = 1
	}
	return sar, direction, true
}

// -----------------------------------------------------------------------------

// Donchian returns the highest high and lowest low of the trailing period.
func Donchian(highs, lows []float64, period int) (float64, float64, bool) {
	if len(highs) < period || period <= 0 {
		return 0, 0, false
	}

	hh, ll := highs[len(highs)-period], lows[len(lows)-period]
	for i := len(highs) - period + 1; i < len(highs); i++ {
		if highs[i] > hh {
			hh = highs[i]
		}
		if lows[i] < ll {
			ll = lows[i]
		}
	}
	return hh, ll, true
}
