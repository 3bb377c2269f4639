package models

// -----------------------------------------------------------------------------
// Indicator Record
// -----------------------------------------------------------------------------

// MIndicatorValues is the fixed indicator schema computed from a candle
// series. Every field is optional: a nil pointer means the input series was
// too short for that indicator. No NaN and no zero placeholders are ever
// stored here.
type MIndicatorValues struct {
	EMA5  *float64 `json:"ema_5,omitempty"`
	EMA9  *float64 `json:"ema_9,omitempty"`
	EMA12 *float64 `json:"ema_12,omitempty"`
	EMA21 *float64 `json:"ema_21,omitempty"`
	EMA50 *float64 `json:"ema_50,omitempty"`

	SMA20  *float64 `json:"sma_20,omitempty"`
	SMA50  *float64 `json:"sma_50,omitempty"`
	SMA200 *float64 `json:"sma_200,omitempty"`

	MACD       *MMACDResult       `json:"macd,omitempty"`
	RSI14      *float64           `json:"rsi_14,omitempty"`
	Stochastic *MStochasticResult `json:"stochastic,omitempty"`

	ATR14     *float64 `json:"atr_14,omitempty"`
	ADX       *float64 `json:"adx,omitempty"`
	CCI       *float64 `json:"cci,omitempty"`
	WilliamsR *float64 `json:"williams_r,omitempty"`

	Bollinger  *MBollingerBands  `json:"bollinger,omitempty"`
	Keltner    *MKeltnerChannels `json:"keltner,omitempty"`
	HullMA     *float64          `json:"hull_ma,omitempty"`
	SuperTrend *MSuperTrend      `json:"supertrend,omitempty"`

	ROC      *float64 `json:"roc,omitempty"`
	Momentum *float64 `json:"momentum,omitempty"`

	VWAP    *float64 `json:"vwap,omitempty"`
	OBV     *float64 `json:"obv,omitempty"`
	Chaikin *float64 `json:"chaikin,omitempty"`

	Fisher      *float64           `json:"fisher,omitempty"`
	Donchian    *MDonchianChannels `json:"donchian,omitempty"`
	PSAR        *float64           `json:"psar,omitempty"`
	UltimateOsc *float64           `json:"ultimate_oscillator,omitempty"`

	ZScore          *float64   `json:"z_score,omitempty"`
	LinRegSlope     *float64   `json:"linreg_slope,omitempty"`
	ATRBands        *MATRBands `json:"atr_bands,omitempty"`
	RangePercentile *float64   `json:"range_percentile,omitempty"`
	EMARibbon       *float64   `json:"ema_ribbon,omitempty"`
}

// -----------------------------------------------------------------------------
// Composite Sub-Records
// -----------------------------------------------------------------------------

// MMACDResult holds the MACD(12,26,9) triple.
type MMACDResult struct {
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// MStochasticResult holds the %K / %D pair.
type MStochasticResult struct {
	K float64 `json:"k"`
	D float64 `json:"d"`
}

// MBollingerBands holds the Bollinger(20, 2) triple.
type MBollingerBands struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// MKeltnerChannels holds the Keltner(20, 2*ATR) triple.
type MKeltnerChannels struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// MSuperTrend holds the SuperTrend(10, 3) value and its direction.
type MSuperTrend struct {
	Value     float64 `json:"value"`
	Direction string  `json:"direction"` // "up" or "down"
}

// MDonchianChannels holds the Donchian(20) extremes.
type MDonchianChannels struct {
	Upper float64 `json:"upper"`
	Lower float64 `json:"lower"`
}

// MATRBands holds close +/- 2*ATR bands.
type MATRBands struct {
	Upper float64 `json:"upper"`
	Lower float64 `json:"lower"`
}
