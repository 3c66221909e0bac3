package retry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	ferrors "github.com/darkmc/plugin-forge/internal/errors"
)

func TestDo_Success(t *testing.T) {
	calls := 0
	err := Do(context.Background(), DefaultConfig(), func(ctx context.Context) error {
		calls++
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_NonRetryableError(t *testing.T) {
	calls := 0
	err := Do(context.Background(), DefaultConfig(), func(ctx context.Context) error {
		calls++
		return ferrors.ErrUnclearRequest
	})
	assert.ErrorIs(t, err, ferrors.ErrUnclearRequest)
	assert.Equal(t, 1, calls) // Should not retry
}

func TestDo_RetryableError_EventualSuccess(t *testing.T) {
	calls := 0
	cfg := Config{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond, Jitter: false}
	err := Do(context.Background(), cfg, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return ferrors.ErrTimeout
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_RetryableError_AllFail(t *testing.T) {
	calls := 0
	cfg := Config{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond, Jitter: false}
	err := Do(context.Background(), cfg, func(ctx context.Context) error {
		calls++
		return ferrors.NewAPIError("gateway", 429, "rate limit")
	})
	assert.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := Config{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: time.Second, Jitter: false}
	err := Do(ctx, cfg, func(ctx context.Context) error {
		return ferrors.ErrTimeout
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDo_PaymentRequiredNotRetried(t *testing.T) {
	calls := 0
	err := Do(context.Background(), DefaultConfig(), func(ctx context.Context) error {
		calls++
		return ferrors.NewAPIError("gateway", 402, "add credits")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
