package analysis

import (
	"math"

	"signal-engine/src/logger"
	"signal-engine/src/models"
)

// -----------------------------------------------------------------------------
// Candle Psychology
// -----------------------------------------------------------------------------

// Anatomy thresholds shared by the pattern detectors.
const (
	DojiBodyRatio    = 0.1 // body under 10% of range reads as indecision
	HammerWickRatio  = 2.0 // dominant wick at least twice the body
	PinBarWickRatio  = 0.6 // single wick covering 60% of the range
	StrongBodyRatio  = 0.6 // conviction candle
	OrderBlockCutoff = 0.6
	BiasLookback     = 5
	FVGLookback      = 10
)

type PsychologyEngine struct {
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewPsychologyEngine(log *logger.Logger) *PsychologyEngine {
	return &PsychologyEngine{Logger: log}
}

// -----------------------------------------------------------------------------

// Analyze reads the anatomy of the most recent bar and its local context.
// The forming candle, when present, acts as the provisional last bar.
func (e *PsychologyEngine) Analyze(closed []models.MCandle, forming *models.MCandle) models.MPsychologyAnalysis {
	candles := closed
	if forming != nil {
		candles = make([]models.MCandle, 0, len(closed)+1)
		candles = append(candles, closed...)
		candles = append(candles, *forming)
	}

	analysis := models.MPsychologyAnalysis{
		Bias:     models.PatternNeutral,
		Patterns: []models.MCandlestickPattern{},
	}
	if len(candles) == 0 {
		return analysis
	}

	last := candles[len(candles)-1]
	rng := last.Range()
	if rng > 0 {
		analysis.BodyRatio = last.Body() / rng
		analysis.UpperWickRatio = (last.High - math.Max(last.Open, last.Close)) / rng
		analysis.LowerWickRatio = (math.Min(last.Open, last.Close) - last.Low) / rng
	}
	analysis.IsDoji = rng > 0 && analysis.BodyRatio < DojiBodyRatio

	analysis.Patterns = e.detectPatterns(candles)
	analysis.Bias = e.computeBias(last)
	analysis.OrderBlockProbability = e.orderBlockProbability(candles)
	analysis.FVGDetected = e.detectFVG(candles)

	return analysis
}

// -----------------------------------------------------------------------------

// detectPatterns runs every single- and two-candle detector against the
// newest bars. Multiple patterns can coexist on one candle.
func (e *PsychologyEngine) detectPatterns(candles []models.MCandle) []models.MCandlestickPattern {
	patterns := []models.MCandlestickPattern{}
	last := candles[len(candles)-1]
	rng := last.Range()

	if rng <= 0 {
		return patterns
	}

	body := last.Body() / rng
	upperWick := (last.High - math.Max(last.Open, last.Close)) / rng
	lowerWick := (math.Min(last.Open, last.Close) - last.Low) / rng

	// 1. Doji
	if body < DojiBodyRatio {
		patterns = append(patterns, models.MCandlestickPattern{
			Name:        "doji",
			Type:        models.PatternNeutral,
			Strength:    1 - body/DojiBodyRatio,
			Description: "indecision candle with negligible body",
		})
	}

	// 2. Hammer: long lower wick rejecting lower prices
	if last.Body() > 0 && lowerWick*rng >= HammerWickRatio*last.Body() && upperWick < 0.15 {
		patterns = append(patterns, models.MCandlestickPattern{
			Name:        "hammer",
			Type:        models.PatternBullish,
			Strength:    math.Min(lowerWick/PinBarWickRatio, 1),
			Description: "long lower wick, buyers absorbed the sell-off",
		})
	}

	// 3. Shooting star: mirror of the hammer
	if last.Body() > 0 && upperWick*rng >= HammerWickRatio*last.Body() && lowerWick < 0.15 {
		patterns = append(patterns, models.MCandlestickPattern{
			Name:        "shooting_star",
			Type:        models.PatternBearish,
			Strength:    math.Min(upperWick/PinBarWickRatio, 1),
			Description: "long upper wick, rally was sold into",
		})
	}

	// 4. Pin bar: one wick dominating the whole range
	if lowerWick >= PinBarWickRatio {
		patterns = append(patterns, models.MCandlestickPattern{
			Name:        "pin_bar_bullish",
			Type:        models.PatternBullish,
			Strength:    lowerWick,
			Description: "lower wick covers most of the range",
		})
	} else if upperWick >= PinBarWickRatio {
		patterns = append(patterns, models.MCandlestickPattern{
			Name:        "pin_bar_bearish",
			Type:        models.PatternBearish,
			Strength:    upperWick,
			Description: "upper wick covers most of the range",
		})
	}

	// 5. Marubozu-style conviction candle
	if body >= StrongBodyRatio {
		pType := models.PatternBearish
		desc := "full-bodied sell candle"
		if last.IsBullish() {
			pType = models.PatternBullish
			desc = "full-bodied buy candle"
		}
		patterns = append(patterns, models.MCandlestickPattern{
			Name:        "conviction_candle",
			Type:        pType,
			Strength:    body,
			Description: desc,
		})
	}

	// 6. Engulfing: needs the previous candle
	if len(candles) >= 2 {
		prev := candles[len(candles)-2]
		if prev.Body() > 0 {
			if last.IsBullish() && prev.IsBearish() &&
				last.Close > prev.Open && last.Open < prev.Close {
				patterns = append(patterns, models.MCandlestickPattern{
					Name:        "bullish_engulfing",
					Type:        models.PatternBullish,
					Strength:    math.Min(last.Body()/prev.Body()/2, 1),
					Description: "buy candle engulfed the previous sell candle",
				})
			}
			if last.IsBearish() && prev.IsBullish() &&
				last.Close < prev.Open && last.Open > prev.Close {
				patterns = append(patterns, models.MCandlestickPattern{
					Name:        "bearish_engulfing",
					Type:        models.PatternBearish,
					Strength:    math.Min(last.Body()/prev.Body()/2, 1),
					Description: "sell candle engulfed the previous buy candle",
				})
			}
		}
	}

	return patterns
}

// -----------------------------------------------------------------------------

// computeBias reads the last candle alone: bullish when a bullish body
// settles in the upper third of its range, bearish for the mirror case.
func (e *PsychologyEngine) computeBias(last models.MCandle) string {
	rng := last.Range()
	if rng == 0 {
		return models.PatternNeutral
	}

	position := (last.Close - last.Low) / rng
	switch {
	case last.IsBullish() && position >= 2.0/3.0:
		return models.PatternBullish
	case last.IsBearish() && position <= 1.0/3.0:
		return models.PatternBearish
	default:
		return models.PatternNeutral
	}
}

// -----------------------------------------------------------------------------

// orderBlockProbability estimates how likely the latest move originates from
// an institutional accumulation zone. Three normalized components: impulse
// strength of the last candle against the local average, wick asymmetry, and
// how shallow the retracement from the recent extreme is.
func (e *PsychologyEngine) orderBlockProbability(candles []models.MCandle) float64 {
	if len(candles) < 3 {
		return 0
	}

	last := candles[len(candles)-1]
	rng := last.Range()

	start := len(candles) - BiasLookback
	if start < 0 {
		start = 0
	}
	context := candles[start:]

	avgBody := 0.0
	for _, c := range context {
		avgBody += c.Body()
	}
	avgBody /= float64(len(context))

	impulse := 0.0
	if avgBody > 0 {
		impulse = math.Min(last.Body()/(avgBody*2), 1)
	}

	asymmetry := 0.0
	if rng > 0 {
		upper := last.High - math.Max(last.Open, last.Close)
		lower := math.Min(last.Open, last.Close) - last.Low
		asymmetry = math.Abs(upper-lower) / rng
	}

	hh, ll := context[0].High, context[0].Low
	for _, c := range context[1:] {
		if c.High > hh {
			hh = c.High
		}
		if c.Low < ll {
			ll = c.Low
		}
	}
	retracement := 0.0
	if hh > ll {
		if last.IsBullish() {
			retracement = (last.Close - ll) / (hh - ll)
		} else {
			retracement = (hh - last.Close) / (hh - ll)
		}
	}

	return 0.4*impulse + 0.3*asymmetry + 0.3*retracement
}

// -----------------------------------------------------------------------------

// detectFVG scans the recent window for a three-candle fair value gap: the
// middle candle moved so fast that the outer candles' ranges never overlap.
func (e *PsychologyEngine) detectFVG(candles []models.MCandle) bool {
	if len(candles) < 3 {
		return false
	}

	start := len(candles) - FVGLookback
	if start < 2 {
		start = 2
	}
	for i := start; i < len(candles); i++ {
		first, third := candles[i-2], candles[i]
		if first.High < third.Low || first.Low > third.High {
			return true
		}
	}
	return false
}
