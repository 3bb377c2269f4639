package helpers

import (
	"fmt"
	"time"

	"signal-engine/src/logger"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type SignalEngineError struct {
	Message string
	Cause   error
}

func (e *SignalEngineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *SignalEngineError) Unwrap() error {
	return e.Cause
}

// Distinct error types for type assertions at call sites.

// FeedUnavailableError: a history fetch or subscription could not complete
// because the feed connection is down and could not be restored in time.
type FeedUnavailableError struct{ SignalEngineError }

// SessionConflictError: startSession called with an id that already exists.
type SessionConflictError struct{ SignalEngineError }

// ValidationError: bad symbol, unsupported timeframe, malformed options.
type ValidationError struct{ SignalEngineError }

// DatabaseError: persistence sink failures (never fatal for the core).
type DatabaseError struct{ SignalEngineError }

// -----------------------------------------------------------------------------
// Constructors
// -----------------------------------------------------------------------------

func NewFeedUnavailable(msg string, cause error) *FeedUnavailableError {
	return &FeedUnavailableError{SignalEngineError{Message: msg, Cause: cause}}
}

func NewSessionConflict(sessionID string) *SessionConflictError {
	return &SessionConflictError{SignalEngineError{Message: fmt.Sprintf("session '%s' already exists", sessionID)}}
}

func NewValidation(msg string) *ValidationError {
	return &ValidationError{SignalEngineError{Message: msg}}
}

func NewDatabase(msg string, cause error) *DatabaseError {
	return &DatabaseError{SignalEngineError{Message: msg, Cause: cause}}
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff attempts to execute the operation up to maxRetries times with exponential backoff.
func RetryWithBackoff(log *logger.Logger, operation string, maxRetries int, baseDelay time.Duration, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err
		if attempt == maxRetries-1 {
			break
		}

		delay := baseDelay * (1 << attempt)
		log.Warning("Attempt %d/%d failed for %s: %v. Retrying in %v", attempt+1, maxRetries, operation, err, delay)
		time.Sleep(delay)
	}

	return lastErr
}
