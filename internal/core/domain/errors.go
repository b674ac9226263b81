package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown entity kind or payload origin.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrRunNotRunnable indicates a run cannot be started from its current status.
	ErrRunNotRunnable = errors.New("run is not pending")

	// Harvest error taxonomy. Connector and adapter errors match one of
	// these through errors.Is so the core can classify them without
	// importing infrastructure packages.

	// ErrTransport indicates the external call could not complete.
	ErrTransport = errors.New("transport failure")

	// ErrProtocol indicates the API answered with a non-success response.
	ErrProtocol = errors.New("protocol error")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrMalformed indicates a response was parsed but lacked the expected shape.
	ErrMalformed = errors.New("malformed response")

	// ErrStorage indicates the persistence adapter failed.
	// Storage errors are never isolated per identifier; they fail the run.
	ErrStorage = errors.New("storage failure")
)

// statusCoder is implemented by errors that carry an HTTP status code.
type statusCoder interface {
	HTTPStatus() int
}

// StatusCode returns the HTTP status carried by err, or 0 if none.
func StatusCode(err error) int {
	var sc statusCoder
	if errors.As(err, &sc) {
		return sc.HTTPStatus()
	}
	return 0
}

// IsRetryable reports whether err is worth retrying: transport failures,
// rate limiting and 5xx responses. Client errors (4xx) are final.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransport) || errors.Is(err, ErrRateLimited) {
		return true
	}
	return StatusCode(err) >= 500
}
