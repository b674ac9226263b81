package github

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/custodia-labs/harvester/internal/core/domain"
)

// TransportError indicates a request that did not produce an HTTP response.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("github: %s: %v", e.Op, e.Err)
}

// Unwrap exposes both the cause and domain.ErrTransport.
func (e *TransportError) Unwrap() []error {
	return []error{domain.ErrTransport, e.Err}
}

// RateLimitError represents a rate limit exceeded error with reset time.
type RateLimitError struct {
	ResetAt    time.Time
	Remaining  int
	Limit      int
	StatusCode int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("github: rate limit exceeded, resets at %s", e.ResetAt.Format(time.RFC3339))
}

// HTTPStatus returns the response status, 403 when unknown.
func (e *RateLimitError) HTTPStatus() int {
	if e.StatusCode == 0 {
		return http.StatusForbidden
	}
	return e.StatusCode
}

// Is matches domain.ErrRateLimited and domain.ErrProtocol.
func (e *RateLimitError) Is(target error) bool {
	return target == domain.ErrRateLimited || target == domain.ErrProtocol
}

// APIError represents a GitHub API error response.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github: API error %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}

// HTTPStatus returns the response status.
func (e *APIError) HTTPStatus() int {
	return e.StatusCode
}

// Is matches domain.ErrProtocol, and domain.ErrNotFound for 404s.
func (e *APIError) Is(target error) bool {
	if target == domain.ErrProtocol {
		return true
	}
	return target == domain.ErrNotFound && e.StatusCode == http.StatusNotFound
}

// GraphQLError is an error reported in a graph query response body.
type GraphQLError struct {
	Message string
}

func (e *GraphQLError) Error() string {
	return "github: graphql: " + e.Message
}

// Is matches domain.ErrProtocol.
func (e *GraphQLError) Is(target error) bool {
	return target == domain.ErrProtocol
}

// IsNotFound checks if the error indicates a resource was not found.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return false
}

// IsRateLimited checks if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	var rateLimitErr *RateLimitError
	return errors.As(err, &rateLimitErr)
}

// IsUnauthorized checks if the error indicates an authentication failure.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized
	}
	return false
}
