package models

// MConfig Structure
type MConfig struct {
	Name       string            `yaml:"name"`
	Host       string            `yaml:"host"`
	Port       int               `yaml:"port"`
	LogLevel   string            `yaml:"log_level"`
	Feed       MFeedConfig       `yaml:"feed"`
	Signal     MSignalConfig     `yaml:"signal"`
	Volatility MVolatilityConfig `yaml:"volatility"`
	Storage    MStorageConfig    `yaml:"storage"`
	Weights    MWeightsConfig    `yaml:"weights"`
}

type MFeedConfig struct {
	Endpoint           string `yaml:"endpoint"`
	AppID              string `yaml:"app_id"`
	RequestTimeout     int    `yaml:"request_timeout_seconds"`
	ReconnectBaseDelay int    `yaml:"reconnect_base_delay_seconds"`
	ReconnectMaxDelay  int    `yaml:"reconnect_max_delay_seconds"`
}

type MSignalConfig struct {
	MinConfidence     int `yaml:"min_confidence"`
	PreCloseSeconds   int `yaml:"pre_close_seconds"`
	SendSignalSeconds int `yaml:"send_signal_seconds"`
	HistoryCandles    int `yaml:"history_candles"`
	ChartCandles      int `yaml:"chart_candles"`
	WindowCapacity    int `yaml:"window_capacity"`
}

type MVolatilityConfig struct {
	ATRThreshold            float64 `yaml:"atr_threshold"`
	TickVolatilityThreshold float64 `yaml:"tick_volatility_threshold"`
	TickVolatilityWindow    int     `yaml:"tick_volatility_window"`
	MinCandlesForSignal     int     `yaml:"min_candles_for_signal"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
	RetentionDays      int    `yaml:"retention_days"`
	CleanupSpec        string `yaml:"cleanup_spec"` // cron spec, e.g. "0 3 * * *"
}

type MWeightsConfig struct {
	// Overrides for the built-in default weight table, keyed by producer name.
	Overrides map[string]float64 `yaml:"overrides"`
}
