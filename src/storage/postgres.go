package storage

import (
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/lib/pq"

	"signal-engine/src/helpers"
	"signal-engine/src/logger"
	"signal-engine/src/models"
)

// -----------------------------------------------------------------------------

type PostgresDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	return &PostgresDB{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	db, err := sql.Open("postgres", d.Config.Storage.DBConnectionString)
	if err != nil {
		return err
	}
	if err := db.Ping(); err != nil {
		return err
	}
	d.DB = db

	return d.createTables()
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS signals (
			session_id TEXT,
			symbol TEXT,
			timeframe_seconds BIGINT,
			candle_close_time BIGINT,
			created_at BIGINT,
			direction TEXT,
			confidence INT,
			probability_up DOUBLE PRECISION,
			volatility_override BOOLEAN,
			payload JSONB,
			PRIMARY KEY (session_id, candle_close_time)
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			chat_id TEXT,
			symbol TEXT,
			timeframe_seconds BIGINT,
			status TEXT,
			started_at BIGINT,
			last_signal_at BIGINT
		);`,
		`CREATE TABLE IF NOT EXISTS candles (
			symbol TEXT,
			timeframe_seconds BIGINT,
			start_epoch BIGINT,
			open DOUBLE PRECISION,
			high DOUBLE PRECISION,
			low DOUBLE PRECISION,
			close DOUBLE PRECISION,
			tick_count INT,
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

func (d *PostgresDB) SaveSignal(signal models.MSignalResult) error {
	payload, err := json.Marshal(signal)
	if err != nil {
		return helpers.NewDatabase("failed to marshal signal", err)
	}

	_, err = d.DB.Exec(`
		INSERT INTO signals
			(session_id, symbol, timeframe_seconds, candle_close_time, created_at,
			 direction, confidence, probability_up, volatility_override, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (session_id, candle_close_time) DO UPDATE SET
			direction = EXCLUDED.direction,
			confidence = EXCLUDED.confidence,
			probability_up = EXCLUDED.probability_up,
			volatility_override = EXCLUDED.volatility_override,
			payload = EXCLUDED.payload`,
		signal.SessionID, signal.Symbol, signal.TimeframeSeconds, signal.CandleCloseTime,
		signal.Timestamp.Unix(), signal.Direction, signal.Confidence, signal.ProbabilityUp,
		signal.VolatilityOverride, string(payload))
	if err != nil {
		return helpers.NewDatabase("failed to save signal", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) SaveSession(session models.MSession) error {
	var lastSignal interface{}
	if session.LastSignalAt != nil {
		lastSignal = session.LastSignalAt.Unix()
	}

	_, err := d.DB.Exec(`
		INSERT INTO sessions
			(id, chat_id, symbol, timeframe_seconds, status, started_at, last_signal_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			last_signal_at = EXCLUDED.last_signal_at`,
		session.ID, session.ChatID, session.Symbol, session.TimeframeSeconds,
		session.Status, session.StartedAt.Unix(), lastSignal)
	if err != nil {
		return helpers.NewDatabase("failed to save session", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) SaveCandles(candles []models.MCandle) error {
	if len(candles) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return helpers.NewDatabase("failed to begin candle tx", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO candles (symbol, timeframe_seconds, start_epoch, open, high, low, close, tick_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (symbol, timeframe_seconds, start_epoch) DO NOTHING`)
	if err != nil {
		return helpers.NewDatabase("failed to prepare candle insert", err)
	}
	defer stmt.Close()

	for _, c := range candles {
		if _, err := stmt.Exec(c.Symbol, c.TimeframeSeconds, c.StartEpoch, c.Open, c.High, c.Low, c.Close, c.TickCount); err != nil {
			return helpers.NewDatabase("failed to save candle", err)
		}
	}
	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) CleanupOldData() error {
	retention := d.Config.Storage.RetentionDays
	if retention <= 0 {
		return nil
	}
	cutoff := time.Now().AddDate(0, 0, -retention).Unix()

	if _, err := d.DB.Exec("DELETE FROM signals WHERE created_at < $1", cutoff); err != nil {
		return helpers.NewDatabase("failed to clean signals", err)
	}
	if _, err := d.DB.Exec("DELETE FROM candles WHERE start_epoch < $1", cutoff); err != nil {
		return helpers.NewDatabase("failed to clean candles", err)
	}
	if _, err := d.DB.Exec("DELETE FROM sessions WHERE status = 'stopped' AND started_at < $1", cutoff); err != nil {
		return helpers.NewDatabase("failed to clean sessions", err)
	}

	d.Logger.Info("Cleanup removed data older than %d day(s)", retention)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
