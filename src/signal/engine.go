package signal

import (
	"math"
	"time"

	"signal-engine/src/analysis"
	"signal-engine/src/logger"
	"signal-engine/src/models"
)

// -----------------------------------------------------------------------------
// SignalEngine turns a candle window into a tradeable decision. One instance
// serves every session; all per-session variation flows in through options.
// -----------------------------------------------------------------------------

const scoreEpsilon = 1e-9

type SignalEngine struct {
	Logger     *logger.Logger
	Prediction *analysis.PredictionEngine

	minConfidence       int
	minCandlesForSignal int
}

// -----------------------------------------------------------------------------

func NewSignalEngine(signalCfg models.MSignalConfig, volCfg models.MVolatilityConfig, prediction *analysis.PredictionEngine, log *logger.Logger) *SignalEngine {
	return &SignalEngine{
		Logger:              log,
		Prediction:          prediction,
		minConfidence:       signalCfg.MinConfidence,
		minCandlesForSignal: volCfg.MinCandlesForSignal,
	}
}

// -----------------------------------------------------------------------------

// GenerateSignal computes the full decision pipeline for one pre-close
// moment: gate on window depth, run the prediction stack, apply the
// volatility override, then score the weighted votes.
func (e *SignalEngine) GenerateSignal(sessionID, symbol string, timeframeSeconds int64, closed []models.MCandle, forming *models.MCandle, candleCloseTime int64, options *models.MSessionOptions) models.MSignalResult {
	result := models.MSignalResult{
		SessionID:          sessionID,
		Symbol:             symbol,
		TimeframeSeconds:   timeframeSeconds,
		Timestamp:          time.Now().UTC(),
		CandleCloseTime:    candleCloseTime,
		Direction:          models.DirectionNoTrade,
		Votes:              []models.MVote{},
		ClosedCandlesCount: len(closed),
		FormingCandle:      forming,
	}

	// 1. Depth gate: too little history means no statistical footing.
	if len(closed) < e.minCandlesForSignal {
		e.Logger.Debug("Signal gate: %s has %d/%d closed candles", symbol, len(closed), e.minCandlesForSignal)
		return result
	}

	// 2. Full analysis stack.
	prediction := e.Prediction.Predict(symbol, closed, forming)
	result.Indicators = prediction.Indicators
	result.Psychology = prediction.Psychology

	// 3. Volatility override wins over everything else.
	if prediction.Volatility.IsVolatile {
		result.VolatilityOverride = true
		result.VolatilityReason = prediction.Volatility.Reason
		e.Logger.Info("Volatility override for %s: %s", symbol, prediction.Volatility.Reason)
		return result
	}

	// 4. Collect, filter and weight the votes.
	lastClose := lastKnownClose(closed, forming)
	votes := collectVotes(prediction.Indicators, prediction.Psychology, lastClose)

	finalUp, finalDown := 0.0, 0.0
	kept := make([]models.MVote, 0, len(votes))
	for _, v := range votes {
		if !options.IndicatorEnabled(v.IndicatorName) {
			continue
		}
		v.Weight *= options.WeightFor(v.IndicatorName, DefaultWeight(v.IndicatorName))
		kept = append(kept, v)

		switch v.Direction {
		case models.VoteUp:
			finalUp += v.Weight
		case models.VoteDown:
			finalDown += v.Weight
		}
	}
	result.Votes = kept

	// 5. Score.
	pUp := finalUp / (finalUp + finalDown + scoreEpsilon)
	result.ProbabilityUp = pUp
	result.ProbabilityDown = 1 - pUp
	result.Confidence = int(math.Round(math.Max(pUp, 1-pUp) * 100))

	if result.Confidence < e.minConfidence {
		return result
	}
	if pUp > 0.5 {
		result.Direction = models.DirectionCall
	} else {
		result.Direction = models.DirectionPut
	}
	return result
}

// -----------------------------------------------------------------------------

func lastKnownClose(closed []models.MCandle, forming *models.MCandle) float64 {
	if forming != nil {
		return forming.Close
	}
	if len(closed) > 0 {
		return closed[len(closed)-1].Close
	}
	return 0
}
