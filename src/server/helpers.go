package server

import (
	"errors"

	"signal-engine/src/helpers"
)

// -----------------------------------------------------------------------------
// Error Mapping
// -----------------------------------------------------------------------------

// statusForError maps the engine's error taxonomy onto HTTP status codes.
func statusForError(err error) int {
	var conflict *helpers.SessionConflictError
	var validation *helpers.ValidationError
	var feed *helpers.FeedUnavailableError

	switch {
	case errors.As(err, &conflict):
		return 409
	case errors.As(err, &validation):
		return 400
	case errors.As(err, &feed):
		return 503
	default:
		return 500
	}
}
