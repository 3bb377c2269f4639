package storage

import (
	"database/sql"
	"encoding/json"
	"time"

	_ "modernc.org/sqlite"

	"signal-engine/src/helpers"
	"signal-engine/src/logger"
	"signal-engine/src/models"
)

// SQLite batch constants
const (
	sqliteMaxVars    = 32000
	candleParamsRow  = 8
	candleBatchLimit = sqliteMaxVars / candleParamsRow
)

// -----------------------------------------------------------------------------

type SQLiteDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*SQLiteDB, error) {
	return &SQLiteDB{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) Initialize() error {
	db, err := sql.Open("sqlite", d.Config.Storage.DBPath)
	if err != nil {
		return err
	}
	if err := db.Ping(); err != nil {
		return err
	}
	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return d.createTables()
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) createTables() error {
	// SQLite types: INTEGER for int64, REAL for float64, TEXT for string
	queries := []string{
		`CREATE TABLE IF NOT EXISTS signals (
			session_id TEXT,
			symbol TEXT,
			timeframe_seconds INTEGER,
			candle_close_time INTEGER,
			created_at INTEGER,
			direction TEXT,
			confidence INTEGER,
			probability_up REAL,
			volatility_override INTEGER,
			payload TEXT,
			PRIMARY KEY (session_id, candle_close_time)
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			chat_id TEXT,
			symbol TEXT,
			timeframe_seconds INTEGER,
			status TEXT,
			started_at INTEGER,
			last_signal_at INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS candles (
			symbol TEXT,
			timeframe_seconds INTEGER,
			start_epoch INTEGER,
			open REAL,
			high REAL,
			low REAL,
			close REAL,
			tick_count INTEGER,
			PRIMARY KEY (symbol, timeframe_seconds, start_epoch)
		);`,
	}

	for _, query := range queries {
		if _, err := d.DB.Exec(query); err != nil {
			return helpers.NewDatabase("failed to create table", err)
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) SaveSignal(signal models.MSignalResult) error {
	payload, err := json.Marshal(signal)
	if err != nil {
		return helpers.NewDatabase("failed to marshal signal", err)
	}

	_, err = d.DB.Exec(`
		INSERT OR REPLACE INTO signals
			(session_id, symbol, timeframe_seconds, candle_close_time, created_at,
			 direction, confidence, probability_up, volatility_override, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		signal.SessionID, signal.Symbol, signal.TimeframeSeconds, signal.CandleCloseTime,
		signal.Timestamp.Unix(), signal.Direction, signal.Confidence, signal.ProbabilityUp,
		boolToInt(signal.VolatilityOverride), string(payload))
	if err != nil {
		return helpers.NewDatabase("failed to save signal", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) SaveSession(session models.MSession) error {
	var lastSignal interface{}
	if session.LastSignalAt != nil {
		lastSignal = session.LastSignalAt.Unix()
	}

	_, err := d.DB.Exec(`
		INSERT OR REPLACE INTO sessions
			(id, chat_id, symbol, timeframe_seconds, status, started_at, last_signal_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		session.ID, session.ChatID, session.Symbol, session.TimeframeSeconds,
		session.Status, session.StartedAt.Unix(), lastSignal)
	if err != nil {
		return helpers.NewDatabase("failed to save session", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) SaveCandles(candles []models.MCandle) error {
	if len(candles) == 0 {
		return nil
	}

	for start := 0; start < len(candles); start += candleBatchLimit {
		end := start + candleBatchLimit
		if end > len(candles) {
			end = len(candles)
		}
		if err := d.saveCandleBatch(candles[start:end]); err != nil {
			return err
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) saveCandleBatch(candles []models.MCandle) error {
	query := "INSERT OR REPLACE INTO candles (symbol, timeframe_seconds, start_epoch, open, high, low, close, tick_count) VALUES "
	args := make([]interface{}, 0, len(candles)*candleParamsRow)

	for i, c := range candles {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?, ?, ?)"
		args = append(args, c.Symbol, c.TimeframeSeconds, c.StartEpoch, c.Open, c.High, c.Low, c.Close, c.TickCount)
	}

	if _, err := d.DB.Exec(query, args...); err != nil {
		return helpers.NewDatabase("failed to save candle batch", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) CleanupOldData() error {
	retention := d.Config.Storage.RetentionDays
	if retention <= 0 {
		return nil
	}
	cutoff := time.Now().AddDate(0, 0, -retention).Unix()

	if _, err := d.DB.Exec("DELETE FROM signals WHERE created_at < ?", cutoff); err != nil {
		return helpers.NewDatabase("failed to clean signals", err)
	}
	if _, err := d.DB.Exec("DELETE FROM candles WHERE start_epoch < ?", cutoff); err != nil {
		return helpers.NewDatabase("failed to clean candles", err)
	}
	if _, err := d.DB.Exec("DELETE FROM sessions WHERE status = 'stopped' AND started_at < ?", cutoff); err != nil {
		return helpers.NewDatabase("failed to clean sessions", err)
	}

	d.Logger.Info("Cleanup removed data older than %d day(s)", retention)
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}

// -----------------------------------------------------------------------------

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
