package core

import "math"

// -----------------------------------------------------------------------------

// Mean returns the arithmetic mean of values (0 for empty input).
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// -----------------------------------------------------------------------------

// MeanStd returns the mean and population standard deviation.
func MeanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	mean := Mean(values)
	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}

// -----------------------------------------------------------------------------

// ZScore returns (last - mean) / std over the trailing period.
// ok is false when the series is too short or the deviation is zero.
func ZScore(values []float64, period int) (float64, bool) {
	if len(values) < period || period <= 1 {
		return 0, false
	}
	window := values[len(values)-period:]
	mean, std := MeanStd(window)
	if std == 0 {
		return 0, false
	}
	return (window[len(window)-1] - mean) / std, true
}

// -----------------------------------------------------------------------------

// LinRegSlope returns the ordinary-least-squares slope of the trailing
// period values against x = 0..period-1.
func LinRegSlope(values []float64, period int) (float64, bool) {
	if len(values) < period || period <= 1 {
		return 0, false
	}
	window := values[len(values)-period:]

	n := float64(period)
	sumX, sumY, sumXY, sumXX := 0.0, 0.0, 0.0, 0.0
	for i, y := range window {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, false
	}
	return (n*sumXY - sumX*sumY) / denom, true
}

// -----------------------------------------------------------------------------

// Percentile returns the fraction of values less than or equal to target.
func Percentile(values []float64, target float64) float64 {
	if len(values) == 0 {
		return 0
	}
	count := 0
	for _, v := range values {
		if v <= target {
			count++
		}
	}
	return float64(count) / float64(len(values))
}
