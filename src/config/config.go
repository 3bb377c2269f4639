package config

import (
	"fmt"
	"os"

	"signal-engine/src/models"
	"signal-engine/src/utils"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Unmarshal data into the models struct
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.applyDefaults()

	// 3. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// applyDefaults fills in the documented engine defaults for anything the
// YAML file left at zero.
func (c *Config) applyDefaults() {
	if c.Signal.MinConfidence == 0 {
		c.Signal.MinConfidence = 60
	}
	if c.Signal.PreCloseSeconds == 0 {
		c.Signal.PreCloseSeconds = 4
	}
	if c.Signal.SendSignalSeconds == 0 {
		c.Signal.SendSignalSeconds = 3
	}
	if c.Signal.HistoryCandles == 0 {
		c.Signal.HistoryCandles = 300
	}
	if c.Signal.ChartCandles == 0 {
		c.Signal.ChartCandles = 100
	}
	if c.Signal.WindowCapacity == 0 {
		c.Signal.WindowCapacity = 500
	}

	if c.Volatility.ATRThreshold == 0 {
		c.Volatility.ATRThreshold = 0.005
	}
	if c.Volatility.TickVolatilityThreshold == 0 {
		c.Volatility.TickVolatilityThreshold = 0.003
	}
	if c.Volatility.TickVolatilityWindow == 0 {
		c.Volatility.TickVolatilityWindow = 10
	}
	if c.Volatility.MinCandlesForSignal == 0 {
		c.Volatility.MinCandlesForSignal = 50
	}

	if c.Feed.RequestTimeout == 0 {
		c.Feed.RequestTimeout = 10
	}
	if c.Feed.ReconnectBaseDelay == 0 {
		c.Feed.ReconnectBaseDelay = 1
	}
	if c.Feed.ReconnectMaxDelay == 0 {
		c.Feed.ReconnectMaxDelay = 30
	}

	if c.Storage.RetentionDays == 0 {
		c.Storage.RetentionDays = 7
	}
	if c.Storage.CleanupSpec == "" {
		c.Storage.CleanupSpec = "0 3 * * *"
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	// Validate App configuration (Flattened)
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	// Validate Server configuration (Flattened)
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}

	// Validate Feed configuration
	if c.Feed.Endpoint == "" {
		return fmt.Errorf("feed endpoint cannot be empty")
	}
	if c.Feed.ReconnectBaseDelay > c.Feed.ReconnectMaxDelay {
		return fmt.Errorf("reconnect base delay %ds exceeds max delay %ds",
			c.Feed.ReconnectBaseDelay, c.Feed.ReconnectMaxDelay)
	}

	// Validate Signal configuration
	if c.Signal.MinConfidence < 0 || c.Signal.MinConfidence > 100 {
		return fmt.Errorf("min_confidence must be within [0,100], got %d", c.Signal.MinConfidence)
	}
	if c.Signal.PreCloseSeconds >= int(utils.MinTimeframeSeconds()) {
		return fmt.Errorf("pre_close_seconds %d must be shorter than the shortest timeframe", c.Signal.PreCloseSeconds)
	}
	if c.Signal.WindowCapacity < c.Volatility.MinCandlesForSignal {
		return fmt.Errorf("window_capacity %d is below min_candles_for_signal %d",
			c.Signal.WindowCapacity, c.Volatility.MinCandlesForSignal)
	}

	// Validate Volatility configuration
	if c.Volatility.ATRThreshold <= 0 {
		return fmt.Errorf("atr_threshold must be greater than 0")
	}
	if c.Volatility.TickVolatilityThreshold <= 0 {
		return fmt.Errorf("tick_volatility_threshold must be greater than 0")
	}
	if c.Volatility.TickVolatilityWindow <= 1 {
		return fmt.Errorf("tick_volatility_window must be greater than 1")
	}

	// Validate Storage configuration
	if c.Storage.DBType == "" {
		return fmt.Errorf("database type cannot be empty")
	}
	if c.Storage.DBType == "sqlite" && c.Storage.DBPath == "" {
		return fmt.Errorf("database path cannot be empty for sqlite")
	}
	if c.Storage.DBType == "postgres" && c.Storage.DBConnectionString == "" {
		return fmt.Errorf("connection string cannot be empty for postgres")
	}

	// Validate weight overrides against the known producer names
	for name, w := range c.Weights.Overrides {
		if w < 0 {
			return fmt.Errorf("weight override for '%s' cannot be negative", name)
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
