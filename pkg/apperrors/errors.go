package apperrors

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// ErrConnectionTimeout means the database did not answer within the connect timeout.
	ErrConnectionTimeout = errors.New("connection timeout")
	// ErrConnectionRefused covers handshake, authentication and unknown-database failures.
	ErrConnectionRefused = errors.New("connection refused")
	// ErrQueryFailure wraps any error raised while a metadata query executes.
	ErrQueryFailure = errors.New("query failed")

	ErrInvalidIdentifier = errors.New("invalid identifier")
)

// IsConnectionError reports whether err is one of the connection failure kinds.
func IsConnectionError(err error) bool {
	return errors.Is(err, ErrConnectionTimeout) || errors.Is(err, ErrConnectionRefused)
}
