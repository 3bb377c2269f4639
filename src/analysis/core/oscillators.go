package core

import "math"

// -----------------------------------------------------------------------------

// RSI returns the Relative Strength Index with Wilder smoothing.
// Requires at least period+1 closes.
func RSI(closes []float64, period int) (float64, bool) {
	if len(closes) < period+1 || period <= 0 {
		return 0, false
	}

	avgGain, avgLoss := 0.0, 0.0
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	// Wilder smoothing over the remaining closes.
	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50, true
		}
		return 100, true
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), true
}

// -----------------------------------------------------------------------------

// Stochastic returns the slow stochastic oscillator: %K is the SMA of the
// raw %K over smoothK periods, %D is the SMA of %K over smoothD periods.
func Stochastic(highs, lows, closes []float64, period, smoothK, smoothD int) (float64, float64, bool) {
	need := period + smoothK + smoothD - 2
	if len(closes) < need || len(highs) < need || len(lows) < need || period <= 0 {
		return 0, 0, false
	}

	rawLen := smoothK + smoothD - 1
	raw := make([]float64, 0, rawLen)
	for i := len(closes) - rawLen; i < len(closes); i++ {
		hh, ll := highs[i], lows[i]
		for j := i - period + 1; j <= i; j++ {
			if highs[j] > hh {
				hh = highs[j]
			}
			if lows[j] < ll {
				ll = lows[j]
			}
		}
		if hh == ll {
			raw = append(raw, 50)
		} else {
			raw = append(raw, (closes[i]-ll)/(hh-ll)*100)
		}
	}

	smoothed := make([]float64, 0, smoothD)
	for i := smoothK - 1; i < len(raw); i++ {
		smoothed = append(smoothed, Mean(raw[i-smoothK+1:i+1]))
	}

	k := smoothed[len(smoothed)-1]
	d := Mean(smoothed)
	return k, d, true
}

// -----------------------------------------------------------------------------

// CCI returns the Commodity Channel Index over the trailing period.
func CCI(highs, lows, closes []float64, period int) (float64, bool) {
	if len(closes) < period || period <= 0 {
		return 0, false
	}

	tp := make([]float64, period)
	for i := 0; i < period; i++ {
		idx := len(closes) - period + i
		tp[i] = (highs[idx] + lows[idx] + closes[idx]) / 3
	}

	mean := Mean(tp)
	dev := 0.0
	for _, v := range tp {
		dev += math.Abs(v - mean)
	}
	dev /= float64(period)
	if dev == 0 {
		return 0, false
	}
	return (tp[period-1] - mean) / (0.015 * dev), true
}

// -----------------------------------------------------------------------------

// WilliamsR returns Williams %R over the trailing period, in [-100, 0].
func WilliamsR(highs, lows, closes []float64, period int) (float64, bool) {
	if len(closes) < period || period <= 0 {
		return 0, false
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
	if hh == ll {
		return -50, true
	}
	return (hh - closes[len(closes)-1]) / (hh - ll) * -100, true
}

// -----------------------------------------------------------------------------

// ROC returns the rate of change in percent against period bars ago.
func ROC(closes []float64, period int) (float64, bool) {
	if len(closes) < period+1 || period <= 0 {
		return 0, false
	}
	prev := closes[len(closes)-1-period]
	if prev == 0 {
		return 0, false
	}
	return (closes[len(closes)-1] - prev) / prev * 100, true
}

// -----------------------------------------------------------------------------

// Momentum returns the raw price difference against period bars ago.
func Momentum(closes []float64, period int) (float64, bool) {
	if len(closes) < period+1 || period <= 0 {
		return 0, false
	}
	return closes[len(closes)-1] - closes[len(closes)-1-period], true
}

// -----------------------------------------------------------------------------

// UltimateOscillator returns the Ultimate Oscillator over the three
// standard windows (short, mid, long), weighted 4:2:1.
func UltimateOscillator(highs, lows, closes []float64, short, mid, long int) (float64, bool) {
	if len(closes) < long+1 || short <= 0 || mid <= short || long <= mid {
		return 0, false
	}

	n := len(closes)
	bp := make([]float64, 0, long)
	tr := make([]float64, 0, long)
	for i := n - long; i < n; i++ {
		trueLow := math.Min(lows[i], closes[i-1])
		trueHigh := math.Max(highs[i], closes[i-1])
		bp = append(bp, closes[i]-trueLow)
		tr = append(tr, trueHigh-trueLow)
	}

	sumTail := func(values []float64, count int) float64 {
		sum := 0.0
		for _, v := range values[len(values)-count:] {
			sum += v
		}
		return sum
	}

	trShort, trMid, trLong := sumTail(tr, short), sumTail(tr, mid), sumTail(tr, long)
	if trShort == 0 || trMid == 0 || trLong == 0 {
		return 0, false
	}

	avgShort := sumTail(bp, short) / trShort
	avgMid := sumTail(bp, mid) / trMid
	avgLong := sumTail(bp, long) / trLong
	return 100 * (4*avgShort + 2*avgMid + avgLong) / 7, true
}

// -----------------------------------------------------------------------------

// FisherTransform returns the Fisher Transform of the normalised price
// position over the trailing period windows.
func FisherTransform(highs, lows []float64, period int) (float64, bool) {
	if len(highs) < period*2 || period <= 1 {
		return 0, false
	}

	value := 0.0
	fisher := 0.0
	start := len(highs) - period
	for i := start; i < len(highs); i++ {
		hh, ll := highs[i], lows[i]
		for j := i - period + 1; j <= i; j++ {
			if highs[j] > hh {
				hh = highs[j]
			}
			if lows[j] < ll {
				ll = lows[j]
			}
		}

		mid := (highs[i] + lows[i]) / 2
		pos := 0.0
		if hh != ll {
			pos = 2*(mid-ll)/(hh-ll) - 1
		}
		value = 0.33*pos + 0.67*value

		// Clamp to keep the log argument finite.
		if value > 0.999 {
			value = 0.999
		} else if value < -0.999 {
			value = -0.999
		}
		fisher = 0.5*math.Log((1+value)/(1-value)) + 0.5*fisher
	}
	return fisher, true
}
