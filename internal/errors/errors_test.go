package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIError_Error(t *testing.T) {
	err := NewAPIError("gateway", 429, "too many requests")
	assert.Equal(t, "gateway API error (status 429): too many requests", err.Error())
}

func TestAPIError_Unwrap(t *testing.T) {
	inner := errors.New("connection reset")
	err := &APIError{Service: "gateway", StatusCode: 500, Message: "boom", Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limit status", NewAPIError("gateway", 429, "slow down"), true},
		{"server error", NewAPIError("gateway", 503, "unavailable"), true},
		{"bad gateway", NewAPIError("gateway", 502, "bad gateway"), true},
		{"payment required", NewAPIError("gateway", 402, "add credits"), false},
		{"bad request", NewAPIError("gateway", 400, "nope"), false},
		{"timeout sentinel", ErrTimeout, true},
		{"rate limit sentinel", ErrRateLimit, true},
		{"unavailable sentinel", ErrUnavailable, true},
		{"unclear request", ErrUnclearRequest, false},
		{"wrapped retryable", fmt.Errorf("calling gateway: %w", ErrTimeout), true},
		{"plain error", errors.New("nope"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}
