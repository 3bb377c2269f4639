package interfaces

import "signal-engine/src/models"

// -----------------------------------------------------------------------------
// IDatabase defines the contract for the persistence sink. The core never
// requires storage to be present; implementations may drop writes on error.
// -----------------------------------------------------------------------------

type IDatabase interface {

	// -----------------------------------------------------------------------------

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// SaveSignal persists one emitted signal result.
	SaveSignal(signal models.MSignalResult) error

	// -----------------------------------------------------------------------------

	// SaveSession persists a session record on creation and on stop.
	SaveSession(session models.MSession) error

	// -----------------------------------------------------------------------------

	// SaveCandles persists a batch of closed candles.
	SaveCandles(candles []models.MCandle) error

	// -----------------------------------------------------------------------------

	// CleanupOldData removes data older than the retention policy.
	CleanupOldData() error

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
