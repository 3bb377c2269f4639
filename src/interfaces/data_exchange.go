package interfaces

import "signal-engine/src/models"

// -----------------------------------------------------------------------------
// IDataExchanger defining the interface for sharing data with external
// subscribers (Server/Push).
// -----------------------------------------------------------------------------

type IDataExchanger interface {

	// -----------------------------------------------------------------------------
	// BroadcastSignal pushes one pre-close signal to connected subscribers
	// and folds it into the server state.
	BroadcastSignal(session models.MSession, signal models.MSignalResult)

	// -----------------------------------------------------------------------------
	// UpdateSession folds a session lifecycle change into the server state.
	UpdateSession(session models.MSession)

	// -----------------------------------------------------------------------------
	// Start the server
	Start() error

	// -----------------------------------------------------------------------------
	// Stop the server gracefully
	Stop() error
}
