package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const minimalYAML = `
name: signal-engine
host: 127.0.0.1
port: 8090
log_level: INFO
feed:
  endpoint: wss://example.test/websockets/v3
  app_id: "1089"
storage:
  db_type: sqlite
  db_path: ./data/test.db
`

// -----------------------------------------------------------------------------

func TestNewConfigAppliesDefaults(t *testing.T) {
	cfg, err := NewConfig(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, 60, cfg.Signal.MinConfidence)
	assert.Equal(t, 4, cfg.Signal.PreCloseSeconds)
	assert.Equal(t, 3, cfg.Signal.SendSignalSeconds)
	assert.Equal(t, 300, cfg.Signal.HistoryCandles)
	assert.Equal(t, 100, cfg.Signal.ChartCandles)
	assert.Equal(t, 500, cfg.Signal.WindowCapacity)

	assert.Equal(t, 0.005, cfg.Volatility.ATRThreshold)
	assert.Equal(t, 0.003, cfg.Volatility.TickVolatilityThreshold)
	assert.Equal(t, 10, cfg.Volatility.TickVolatilityWindow)
	assert.Equal(t, 50, cfg.Volatility.MinCandlesForSignal)

	assert.Equal(t, 10, cfg.Feed.RequestTimeout)
	assert.Equal(t, 1, cfg.Feed.ReconnectBaseDelay)
	assert.Equal(t, 30, cfg.Feed.ReconnectMaxDelay)

	assert.Equal(t, 7, cfg.Storage.RetentionDays)
	assert.Equal(t, "0 3 * * *", cfg.Storage.CleanupSpec)
}

// -----------------------------------------------------------------------------

func TestNewConfigKeepsExplicitValues(t *testing.T) {
	yaml := minimalYAML + `
signal:
  min_confidence: 75
  pre_close_seconds: 10
  window_capacity: 600
volatility:
  atr_threshold: 0.01
`
	cfg, err := NewConfig(writeConfig(t, yaml))
	require.NoError(t, err)

	assert.Equal(t, 75, cfg.Signal.MinConfidence)
	assert.Equal(t, 10, cfg.Signal.PreCloseSeconds)
	assert.Equal(t, 600, cfg.Signal.WindowCapacity)
	assert.Equal(t, 0.01, cfg.Volatility.ATRThreshold)
}

// -----------------------------------------------------------------------------

func TestNewConfigMissingFile(t *testing.T) {
	_, err := NewConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestNewConfigMalformedYAML(t *testing.T) {
	_, err := NewConfig(writeConfig(t, "name: [unclosed"))
	assert.Error(t, err)
}

// -----------------------------------------------------------------------------

func TestValidationFailures(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"missing name", `
host: 127.0.0.1
port: 8090
feed:
  endpoint: wss://example.test
storage:
  db_type: sqlite
  db_path: ./x.db
`},
		{"privileged port", `
name: signal-engine
host: 127.0.0.1
port: 80
feed:
  endpoint: wss://example.test
storage:
  db_type: sqlite
  db_path: ./x.db
`},
		{"missing feed endpoint", `
name: signal-engine
host: 127.0.0.1
port: 8090
storage:
  db_type: sqlite
  db_path: ./x.db
`},
		{"pre-close longer than shortest timeframe", `
name: signal-engine
host: 127.0.0.1
port: 8090
feed:
  endpoint: wss://example.test
signal:
  pre_close_seconds: 60
storage:
  db_type: sqlite
  db_path: ./x.db
`},
		{"window below signal minimum", `
name: signal-engine
host: 127.0.0.1
port: 8090
feed:
  endpoint: wss://example.test
signal:
  window_capacity: 40
storage:
  db_type: sqlite
  db_path: ./x.db
`},
		{"sqlite without path", `
name: signal-engine
host: 127.0.0.1
port: 8090
feed:
  endpoint: wss://example.test
storage:
  db_type: sqlite
`},
		{"postgres without connection string", `
name: signal-engine
host: 127.0.0.1
port: 8090
feed:
  endpoint: wss://example.test
storage:
  db_type: postgres
`},
		{"reconnect base above max", `
name: signal-engine
host: 127.0.0.1
port: 8090
feed:
  endpoint: wss://example.test
  reconnect_base_delay_seconds: 60
  reconnect_max_delay_seconds: 30
storage:
  db_type: sqlite
  db_path: ./x.db
`},
		{"negative weight override", `
name: signal-engine
host: 127.0.0.1
port: 8090
feed:
  endpoint: wss://example.test
storage:
  db_type: sqlite
  db_path: ./x.db
weights:
  overrides:
    supertrend_signal: -1
`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewConfig(writeConfig(t, tc.yaml))
			assert.Error(t, err)
		})
	}
}

// -----------------------------------------------------------------------------

func TestSaveRoundTrip(t *testing.T) {
	cfg, err := NewConfig(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, cfg.Save(out))

	reloaded, err := NewConfig(out)
	require.NoError(t, err)
	assert.Equal(t, cfg.Port, reloaded.Port)
	assert.Equal(t, cfg.Signal.MinConfidence, reloaded.Signal.MinConfidence)
}
