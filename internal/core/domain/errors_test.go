package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type httpError struct{ code int }

func (e httpError) Error() string   { return fmt.Sprintf("status %d", e.code) }
func (e httpError) HTTPStatus() int { return e.code }

func TestErrors_Distinct(t *testing.T) {
	all := []error{
		ErrNotFound, ErrInvalidInput, ErrUnsupportedType, ErrRunNotRunnable,
		ErrTransport, ErrProtocol, ErrRateLimited, ErrMalformed, ErrStorage,
	}
	for i, a := range all {
		for j, b := range all {
			if i != j {
				assert.False(t, errors.Is(a, b), "%v should not match %v", a, b)
			}
		}
	}
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, 0, StatusCode(errors.New("plain")))
	assert.Equal(t, 404, StatusCode(httpError{404}))
	assert.Equal(t, 502, StatusCode(fmt.Errorf("wrapped: %w", httpError{502})))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"transport", fmt.Errorf("dial: %w", ErrTransport), true},
		{"rate limited", fmt.Errorf("%w: secondary", ErrRateLimited), true},
		{"server error", httpError{502}, true},
		{"not found", httpError{404}, false},
		{"unauthorized", httpError{401}, false},
		{"malformed", ErrMalformed, false},
		{"storage", ErrStorage, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRetryable(tt.err))
		})
	}
}
