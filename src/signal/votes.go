package signal

import (
	"fmt"
	"math"

	"signal-engine/src/models"
)

// -----------------------------------------------------------------------------
// Vote Producers
//
// Every producer is a pure function over the indicator record, the psychology
// analysis and the latest close. It emits zero or more votes with a base
// weight; table weights and per-session multipliers are applied later.
// -----------------------------------------------------------------------------

const macdHistogramDeadZone = 1e-5

// collectVotes invokes the full producer catalogue.
func collectVotes(ind models.MIndicatorValues, psy models.MPsychologyAnalysis, lastClose float64) []models.MVote {
	votes := []models.MVote{}

	votes = append(votes, emaCrossVotes(ind, lastClose)...)
	votes = append(votes, smaTrendVotes(ind, lastClose)...)
	votes = append(votes, macdVotes(ind)...)
	votes = append(votes, rsiVotes(ind)...)
	votes = append(votes, stochasticVotes(ind)...)
	votes = append(votes, bollingerVotes(ind, lastClose)...)
	votes = append(votes, trendVotes(ind, lastClose)...)
	votes = append(votes, oscillatorVotes(ind, lastClose)...)
	votes = append(votes, psychologyVotes(psy)...)

	return votes
}

// -----------------------------------------------------------------------------

// emaCrossVotes: UP when fast above slow and price rides the fast EMA,
// DOWN for the mirror, NEUTRAL weight 0.3 otherwise.
func emaCrossVotes(ind models.MIndicatorValues, close float64) []models.MVote {
	pairs := []struct {
		name string
		fast *float64
		slow *float64
	}{
		{"ema_cross_5_21", ind.EMA5, ind.EMA21},
		{"ema_cross_9_21", ind.EMA9, ind.EMA21},
		{"ema_cross_12_50", ind.EMA12, ind.EMA50},
	}

	votes := []models.MVote{}
	for _, p := range pairs {
		if p.fast == nil || p.slow == nil {
			continue
		}
		switch {
		case *p.fast > *p.slow && close > *p.fast:
			votes = append(votes, models.MVote{IndicatorName: p.name, Direction: models.VoteUp, Weight: 1,
				Reason: fmt.Sprintf("fast EMA %.5f above slow %.5f with price above", *p.fast, *p.slow)})
		case *p.fast < *p.slow && close < *p.fast:
			votes = append(votes, models.MVote{IndicatorName: p.name, Direction: models.VoteDown, Weight: 1,
				Reason: fmt.Sprintf("fast EMA %.5f below slow %.5f with price below", *p.fast, *p.slow)})
		default:
			votes = append(votes, models.MVote{IndicatorName: p.name, Direction: models.VoteNeutral, Weight: 0.3,
				Reason: "no aligned cross"})
		}
	}
	return votes
}

// -----------------------------------------------------------------------------

// smaTrendVotes: directional when the close deviates more than 0.1% from
// the SMA, NEUTRAL weight 0.5 otherwise.
func smaTrendVotes(ind models.MIndicatorValues, close float64) []models.MVote {
	smas := []struct {
		name string
		sma  *float64
	}{
		{"sma_trend_20", ind.SMA20},
		{"sma_trend_50", ind.SMA50},
		{"sma_trend_200", ind.SMA200},
	}

	votes := []models.MVote{}
	for _, s := range smas {
		if s.sma == nil || *s.sma == 0 {
			continue
		}
		dev := (close - *s.sma) / *s.sma
		switch {
		case dev > 0.001:
			votes = append(votes, models.MVote{IndicatorName: s.name, Direction: models.VoteUp, Weight: 1,
				Reason: fmt.Sprintf("close %.3f%% above SMA", dev*100)})
		case dev < -0.001:
			votes = append(votes, models.MVote{IndicatorName: s.name, Direction: models.VoteDown, Weight: 1,
				Reason: fmt.Sprintf("close %.3f%% below SMA", dev*100)})
		default:
			votes = append(votes, models.MVote{IndicatorName: s.name, Direction: models.VoteNeutral, Weight: 0.5,
				Reason: "close hugging SMA"})
		}
	}
	return votes
}

// -----------------------------------------------------------------------------

func macdVotes(ind models.MIndicatorValues) []models.MVote {
	if ind.MACD == nil {
		return nil
	}

	votes := []models.MVote{}
	if ind.MACD.MACD > ind.MACD.Signal {
		votes = append(votes, models.MVote{IndicatorName: "macd_signal", Direction: models.VoteUp, Weight: 1,
			Reason: "MACD above signal line"})
	} else if ind.MACD.MACD < ind.MACD.Signal {
		votes = append(votes, models.MVote{IndicatorName: "macd_signal", Direction: models.VoteDown, Weight: 1,
			Reason: "MACD below signal line"})
	}

	// Histogram votes only outside the dead zone.
	if ind.MACD.Histogram > macdHistogramDeadZone {
		votes = append(votes, models.MVote{IndicatorName: "macd_histogram", Direction: models.VoteUp, Weight: 1,
			Reason: fmt.Sprintf("histogram %.6f positive", ind.MACD.Histogram)})
	} else if ind.MACD.Histogram < -macdHistogramDeadZone {
		votes = append(votes, models.MVote{IndicatorName: "macd_histogram", Direction: models.VoteDown, Weight: 1,
			Reason: fmt.Sprintf("histogram %.6f negative", ind.MACD.Histogram)})
	}
	return votes
}

// -----------------------------------------------------------------------------

func rsiVotes(ind models.MIndicatorValues) []models.MVote {
	if ind.RSI14 == nil {
		return nil
	}

	rsi := *ind.RSI14
	switch {
	case rsi < 30:
		return []models.MVote{{IndicatorName: "rsi_oversold", Direction: models.VoteUp, Weight: 1,
			Reason: fmt.Sprintf("RSI %.1f oversold", rsi)}}
	case rsi > 70:
		return []models.MVote{{IndicatorName: "rsi_overbought", Direction: models.VoteDown, Weight: 1,
			Reason: fmt.Sprintf("RSI %.1f overbought", rsi)}}
	case rsi > 50:
		return []models.MVote{{IndicatorName: "rsi_trend", Direction: models.VoteUp, Weight: 0.5,
			Reason: fmt.Sprintf("RSI %.1f above midline", rsi)}}
	case rsi < 50:
		return []models.MVote{{IndicatorName: "rsi_trend", Direction: models.VoteDown, Weight: 0.5,
			Reason: fmt.Sprintf("RSI %.1f below midline", rsi)}}
	}
	return nil
}

// -----------------------------------------------------------------------------

func stochasticVotes(ind models.MIndicatorValues) []models.MVote {
	if ind.Stochastic == nil {
		return nil
	}

	votes := []models.MVote{}
	if ind.Stochastic.K > ind.Stochastic.D {
		votes = append(votes, models.MVote{IndicatorName: "stochastic_cross", Direction: models.VoteUp, Weight: 1,
			Reason: "%K above %D"})
	} else if ind.Stochastic.K < ind.Stochastic.D {
		votes = append(votes, models.MVote{IndicatorName: "stochastic_cross", Direction: models.VoteDown, Weight: 1,
			Reason: "%K below %D"})
	}

	if ind.Stochastic.K < 20 {
		votes = append(votes, models.MVote{IndicatorName: "stochastic_extreme", Direction: models.VoteUp, Weight: 1,
			Reason: fmt.Sprintf("%%K %.1f oversold", ind.Stochastic.K)})
	} else if ind.Stochastic.K > 80 {
		votes = append(votes, models.MVote{IndicatorName: "stochastic_extreme", Direction: models.VoteDown, Weight: 1,
			Reason: fmt.Sprintf("%%K %.1f overbought", ind.Stochastic.K)})
	}
	return votes
}

// -----------------------------------------------------------------------------

func bollingerVotes(ind models.MIndicatorValues, close float64) []models.MVote {
	if ind.Bollinger == nil || ind.Bollinger.Middle == 0 {
		return nil
	}

	votes := []models.MVote{}
	bandwidth := (ind.Bollinger.Upper - ind.Bollinger.Lower) / ind.Bollinger.Middle
	if bandwidth < 0.02 {
		votes = append(votes, models.MVote{IndicatorName: "bollinger_squeeze", Direction: models.VoteNeutral, Weight: 1,
			Reason: fmt.Sprintf("bandwidth %.2f%% squeezed", bandwidth*100)})
	}

	if close > ind.Bollinger.Upper {
		votes = append(votes, models.MVote{IndicatorName: "bollinger_breakout", Direction: models.VoteUp, Weight: 1,
			Reason: "close broke above upper band"})
	} else if close < ind.Bollinger.Lower {
		votes = append(votes, models.MVote{IndicatorName: "bollinger_breakout", Direction: models.VoteDown, Weight: 1,
			Reason: "close broke below lower band"})
	}
	return votes
}

// -----------------------------------------------------------------------------

// trendVotes covers SuperTrend, PSAR, ADX and the EMA ribbon.
func trendVotes(ind models.MIndicatorValues, close float64) []models.MVote {
	votes := []models.MVote{}

	if ind.SuperTrend != nil {
		dir := models.VoteDown
		if ind.SuperTrend.Direction == "up" {
			dir = models.VoteUp
		}
		votes = append(votes, models.MVote{IndicatorName: "supertrend_signal", Direction: dir, Weight: 1,
			Reason: fmt.Sprintf("SuperTrend %s at %.5f", ind.SuperTrend.Direction, ind.SuperTrend.Value)})
	}

	if ind.PSAR != nil {
		if close > *ind.PSAR {
			votes = append(votes, models.MVote{IndicatorName: "psar_signal", Direction: models.VoteUp, Weight: 1,
				Reason: "price above PSAR"})
		} else if close < *ind.PSAR {
			votes = append(votes, models.MVote{IndicatorName: "psar_signal", Direction: models.VoteDown, Weight: 1,
				Reason: "price below PSAR"})
		}
	}

	if ind.ADX != nil && *ind.ADX < 25 {
		votes = append(votes, models.MVote{IndicatorName: "adx_strength", Direction: models.VoteNeutral, Weight: 1,
			Reason: fmt.Sprintf("ADX %.1f, weak trend", *ind.ADX)})
	}

	if ind.EMARibbon != nil {
		if *ind.EMARibbon > 0.5 {
			votes = append(votes, models.MVote{IndicatorName: "ema_ribbon", Direction: models.VoteUp, Weight: math.Abs(*ind.EMARibbon),
				Reason: "ribbon fanned bullish"})
		} else if *ind.EMARibbon < -0.5 {
			votes = append(votes, models.MVote{IndicatorName: "ema_ribbon", Direction: models.VoteDown, Weight: math.Abs(*ind.EMARibbon),
				Reason: "ribbon fanned bearish"})
		}
	}
	return votes
}

// -----------------------------------------------------------------------------

// oscillatorVotes covers CCI, Williams %R, Hull MA and the Z-score mean
// reversion producer.
func oscillatorVotes(ind models.MIndicatorValues, close float64) []models.MVote {
	votes := []models.MVote{}

	if ind.CCI != nil {
		if *ind.CCI > 100 {
			votes = append(votes, models.MVote{IndicatorName: "cci_extreme", Direction: models.VoteUp, Weight: 1,
				Reason: fmt.Sprintf("CCI %.0f momentum", *ind.CCI)})
		} else if *ind.CCI < -100 {
			votes = append(votes, models.MVote{IndicatorName: "cci_extreme", Direction: models.VoteDown, Weight: 1,
				Reason: fmt.Sprintf("CCI %.0f momentum", *ind.CCI)})
		}
	}

	if ind.WilliamsR != nil {
		if *ind.WilliamsR < -80 {
			votes = append(votes, models.MVote{IndicatorName: "williams_r", Direction: models.VoteUp, Weight: 1,
				Reason: fmt.Sprintf("Williams %%R %.0f oversold", *ind.WilliamsR)})
		} else if *ind.WilliamsR > -20 {
			votes = append(votes, models.MVote{IndicatorName: "williams_r", Direction: models.VoteDown, Weight: 1,
				Reason: fmt.Sprintf("Williams %%R %.0f overbought", *ind.WilliamsR)})
		}
	}

	if ind.HullMA != nil {
		if close > *ind.HullMA {
			votes = append(votes, models.MVote{IndicatorName: "hull_ma", Direction: models.VoteUp, Weight: 1,
				Reason: "price above Hull MA"})
		} else if close < *ind.HullMA {
			votes = append(votes, models.MVote{IndicatorName: "hull_ma", Direction: models.VoteDown, Weight: 1,
				Reason: "price below Hull MA"})
		}
	}

	if ind.ZScore != nil {
		if *ind.ZScore > 2 {
			votes = append(votes, models.MVote{IndicatorName: "mean_reversion", Direction: models.VoteDown, Weight: 1,
				Reason: fmt.Sprintf("z-score %.2f stretched high", *ind.ZScore)})
		} else if *ind.ZScore < -2 {
			votes = append(votes, models.MVote{IndicatorName: "mean_reversion", Direction: models.VoteUp, Weight: 1,
				Reason: fmt.Sprintf("z-score %.2f stretched low", *ind.ZScore)})
		}
	}
	return votes
}

// -----------------------------------------------------------------------------

// psychologyVotes converts the pattern analysis into votes: one per detected
// pattern plus the order-block, FVG and wick-rejection producers.
func psychologyVotes(psy models.MPsychologyAnalysis) []models.MVote {
	votes := []models.MVote{}

	for _, p := range psy.Patterns {
		producer, ok := patternProducerNames[p.Name]
		if !ok {
			producer = p.Name
		}
		dir := models.VoteNeutral
		switch p.Type {
		case models.PatternBullish:
			dir = models.VoteUp
		case models.PatternBearish:
			dir = models.VoteDown
		}
		votes = append(votes, models.MVote{IndicatorName: producer, Direction: dir, Weight: p.Strength,
			Reason: p.Description})
	}

	if psy.OrderBlockProbability > 0.6 && psy.Bias != models.PatternNeutral {
		dir := models.VoteDown
		if psy.Bias == models.PatternBullish {
			dir = models.VoteUp
		}
		votes = append(votes, models.MVote{IndicatorName: "order_block", Direction: dir, Weight: psy.OrderBlockProbability,
			Reason: fmt.Sprintf("order block probability %.2f with %s bias", psy.OrderBlockProbability, psy.Bias)})
	}

	if psy.FVGDetected {
		dir := models.VoteNeutral
		switch psy.Bias {
		case models.PatternBullish:
			dir = models.VoteUp
		case models.PatternBearish:
			dir = models.VoteDown
		}
		votes = append(votes, models.MVote{IndicatorName: "fvg_signal", Direction: dir, Weight: 1,
			Reason: "fair value gap in recent window"})
	}

	if psy.LowerWickRatio > 0.6 {
		votes = append(votes, models.MVote{IndicatorName: "wick_rejection", Direction: models.VoteUp, Weight: psy.LowerWickRatio,
			Reason: "lower wick rejection"})
	} else if psy.UpperWickRatio > 0.6 {
		votes = append(votes, models.MVote{IndicatorName: "wick_rejection", Direction: models.VoteDown, Weight: psy.UpperWickRatio,
			Reason: "upper wick rejection"})
	}

	return votes
}
