package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sambitmohanty1/transit-dispatch/internal/errs"
)

func TestRetrier_SucceedsOnFirstAttempt(t *testing.T) {
	r := NewRetrier(RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond, ExponentialBackoff: true}, zap.NewNop())

	calls := 0
	err := r.Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetrier_SucceedsAfterRetries(t *testing.T) {
	r := NewRetrier(RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond, ExponentialBackoff: true}, zap.NewNop())

	calls := 0
	err := r.Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetrier_ExhaustsRetries(t *testing.T) {
	r := NewRetrier(RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond, ExponentialBackoff: true}, zap.NewNop())

	calls := 0
	err := r.Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return errors.New("permanent")
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls, "initial attempt plus MaxRetries retries")
	assert.True(t, errs.Is(err, errs.KindRetryExhausted))
}

func TestRetrier_CancelsDuringBackoff(t *testing.T) {
	r := NewRetrier(RetryConfig{MaxRetries: 5, BaseDelay: 50 * time.Millisecond, MaxDelay: time.Second, ExponentialBackoff: true}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	err := r.Do(ctx, "op", func(ctx context.Context) error {
		calls++
		return errors.New("transient")
	})

	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindRetryExhausted))
}

func TestRetrier_DelayFor_ExponentialCappedAtMaxDelay(t *testing.T) {
	r := NewRetrier(RetryConfig{BaseDelay: time.Second, MaxDelay: 5 * time.Second, ExponentialBackoff: true}, zap.NewNop())

	assert.Equal(t, time.Second, r.delayFor(0))
	assert.Equal(t, 2*time.Second, r.delayFor(1))
	assert.Equal(t, 4*time.Second, r.delayFor(2))
	assert.Equal(t, 5*time.Second, r.delayFor(3), "8s would exceed maxDelay, capped at 5s")
	assert.Equal(t, 5*time.Second, r.delayFor(10), "large k must not overflow into a negative duration")
}

func TestRetrier_DelayFor_FixedWhenNotExponential(t *testing.T) {
	r := NewRetrier(RetryConfig{BaseDelay: 2 * time.Second, MaxDelay: 10 * time.Second, ExponentialBackoff: false}, zap.NewNop())

	assert.Equal(t, 2*time.Second, r.delayFor(0))
	assert.Equal(t, 2*time.Second, r.delayFor(5))
}
