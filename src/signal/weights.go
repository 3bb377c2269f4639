package signal

// -----------------------------------------------------------------------------
// Default Weight Table
// -----------------------------------------------------------------------------

// defaultWeights maps every vote producer to its base weight. The table is
// immutable after init; per-session customWeights multiply on top of the
// producer's own vote weight instead of replacing these.
var defaultWeights = map[string]float64{
	"ema_cross_5_21":  1.2,
	"ema_cross_9_21":  1.1,
	"ema_cross_12_50": 1.3,

	"sma_trend_20":  0.8,
	"sma_trend_50":  0.9,
	"sma_trend_200": 1.0,

	"macd_signal":    1.4,
	"macd_histogram": 1.2,

	"rsi_oversold":   1.3,
	"rsi_overbought": 1.3,
	"rsi_trend":      1.0,

	"stochastic_cross":   1.1,
	"stochastic_extreme": 1.2,

	"bollinger_squeeze":  0.8,
	"bollinger_breakout": 1.4,

	"supertrend_signal": 1.5,
	"psar_signal":       1.2,
	"adx_strength":      0.7,

	"cci_extreme":    1.0,
	"williams_r":     0.9,
	"hull_ma":        1.0,
	"mean_reversion": 1.1,
	"ema_ribbon":     0.9,

	"engulfing_pattern": 1.5,
	"hammer_pattern":    1.3,
	"shooting_star":     1.3,
	"doji_pattern":      0.8,
	"pin_bar_pattern":   1.1,
	"conviction_candle": 0.9,

	"order_block":    1.4,
	"fvg_signal":     1.2,
	"wick_rejection": 1.1,
}

// patternProducerNames maps detected pattern names onto their producer name
// in the weight table.
var patternProducerNames = map[string]string{
	"doji":              "doji_pattern",
	"hammer":            "hammer_pattern",
	"shooting_star":     "shooting_star",
	"bullish_engulfing": "engulfing_pattern",
	"bearish_engulfing": "engulfing_pattern",
	"pin_bar_bullish":   "pin_bar_pattern",
	"pin_bar_bearish":   "pin_bar_pattern",
	"conviction_candle": "conviction_candle",
}

// -----------------------------------------------------------------------------

// DefaultWeight returns the table weight for a producer, or 1.0 for a name
// the table does not know.
func DefaultWeight(name string) float64 {
	if w, ok := defaultWeights[name]; ok {
		return w
	}
	return 1.0
}

// -----------------------------------------------------------------------------

// KnownProducers returns every producer name in the default table.
func KnownProducers() []string {
	names := make([]string, 0, len(defaultWeights))
	for name := range defaultWeights {
		names = append(names, name)
	}
	return names
}
