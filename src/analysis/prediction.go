package analysis

import (
	"fmt"
	"sync"

	"signal-engine/src/logger"
	"signal-engine/src/models"
)

// -----------------------------------------------------------------------------
// PredictionEngine composes the indicator and psychology outputs into one
// prediction, and owns the volatility override. It keeps a short rolling
// tick window per symbol so the tick-burst rule can fire between candles.
// -----------------------------------------------------------------------------

type PredictionEngine struct {
	Logger     *logger.Logger
	Indicators *IndicatorEngine
	Psychology *PsychologyEngine

	atrThreshold  float64
	tickThreshold float64
	tickWindow    int

	mu          sync.Mutex
	recentTicks map[string][]models.MTick
}

// -----------------------------------------------------------------------------

func NewPredictionEngine(cfg models.MVolatilityConfig, indicators *IndicatorEngine, psychology *PsychologyEngine, log *logger.Logger) *PredictionEngine {
	return &PredictionEngine{
		Logger:        log,
		Indicators:    indicators,
		Psychology:    psychology,
		atrThreshold:  cfg.ATRThreshold,
		tickThreshold: cfg.TickVolatilityThreshold,
		tickWindow:    cfg.TickVolatilityWindow,
		recentTicks:   make(map[string][]models.MTick),
	}
}

// -----------------------------------------------------------------------------

// ObserveTick records a tick into the symbol's rolling window. The window
// only ever holds the last tickWindow ticks.
func (e *PredictionEngine) ObserveTick(tick models.MTick) {
	if e.tickWindow <= 0 {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	window := append(e.recentTicks[tick.Symbol], tick)
	if len(window) > e.tickWindow {
		window = window[len(window)-e.tickWindow:]
	}
	e.recentTicks[tick.Symbol] = window
}

// -----------------------------------------------------------------------------

// ForgetSymbol drops the tick window for a symbol, e.g. when its last
// session stops.
func (e *PredictionEngine) ForgetSymbol(symbol string) {
	e.mu.Lock()
	delete(e.recentTicks, symbol)
	e.mu.Unlock()
}

// -----------------------------------------------------------------------------

// Predict runs the full analysis stack over the candle window and returns
// the combined prediction.
func (e *PredictionEngine) Predict(symbol string, closed []models.MCandle, forming *models.MCandle) models.MPrediction {
	indicators := e.Indicators.Compute(closed, forming)
	psychology := e.Psychology.Analyze(closed, forming)

	return models.MPrediction{
		EstimatedClose: e.estimateClose(closed, forming),
		Indicators:     indicators,
		Psychology:     psychology,
		Volatility:     e.AssessVolatility(symbol, indicators, closed, forming),
	}
}

// -----------------------------------------------------------------------------

// AssessVolatility applies the two override rules. Either one firing marks
// the market too unstable to trade:
//  1. ATR(14) relative to the last close above the ATR threshold.
//  2. Tick range over the rolling window relative to its midpoint above the
//     tick threshold.
func (e *PredictionEngine) AssessVolatility(symbol string, indicators models.MIndicatorValues, closed []models.MCandle, forming *models.MCandle) models.MVolatilityAssessment {
	lastClose := 0.0
	if forming != nil {
		lastClose = forming.Close
	} else if len(closed) > 0 {
		lastClose = closed[len(closed)-1].Close
	}

	if indicators.ATR14 != nil && lastClose > 0 {
		relATR := *indicators.ATR14 / lastClose
		if relATR > e.atrThreshold {
			return models.MVolatilityAssessment{
				IsVolatile: true,
				Reason:     fmt.Sprintf("ATR %.6f exceeds %.2f%% of price", *indicators.ATR14, e.atrThreshold*100),
			}
		}
	}

	e.mu.Lock()
	window := e.recentTicks[symbol]
	e.mu.Unlock()

	if len(window) >= e.tickWindow && e.tickWindow > 0 {
		min, max := window[0].Price, window[0].Price
		for _, t := range window[1:] {
			if t.Price < min {
				min = t.Price
			}
			if t.Price > max {
				max = t.Price
			}
		}
		mid := (min + max) / 2
		if mid > 0 && (max-min)/mid > e.tickThreshold {
			return models.MVolatilityAssessment{
				IsVolatile: true,
				Reason:     fmt.Sprintf("tick range %.6f over last %d ticks exceeds %.2f%% of midpoint", max-min, len(window), e.tickThreshold*100),
			}
		}
	}

	return models.MVolatilityAssessment{IsVolatile: false}
}

// -----------------------------------------------------------------------------

// estimateClose is the forming candle's current close, falling back to the
// last closed candle when no tick has opened the current bucket yet.
func (e *PredictionEngine) estimateClose(closed []models.MCandle, forming *models.MCandle) float64 {
	if forming != nil {
		return forming.Close
	}
	if len(closed) > 0 {
		return closed[len(closed)-1].Close
	}
	return 0
}
