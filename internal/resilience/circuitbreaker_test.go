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

func newTestBreaker(threshold int, timeout time.Duration) *CircuitBreaker {
	return NewCircuitBreaker(CircuitBreakerConfig{Threshold: threshold, Timeout: timeout}, zap.NewNop())
}

func TestCircuitBreaker_StaysClosedBelowThreshold(t *testing.T) {
	cb := newTestBreaker(3, time.Minute)

	for i := 0; i < 2; i++ {
		_ = cb.Call(context.Background(), func(ctx context.Context) error {
			return errors.New("fail")
		})
	}

	assert.Equal(t, StateClosed, cb.CurrentState())
}

func TestCircuitBreaker_OpensAtThreshold(t *testing.T) {
	cb := newTestBreaker(3, time.Minute)

	var lastErr error
	for i := 0; i < 3; i++ {
		lastErr = cb.Call(context.Background(), func(ctx context.Context) error {
			return errors.New("fail")
		})
	}

	require.Error(t, lastErr)
	assert.Equal(t, StateOpen, cb.CurrentState())

	err := cb.Call(context.Background(), func(ctx context.Context) error { return nil })
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindCircuitOpen))
}

func TestCircuitBreaker_HalfOpenAfterTimeoutThenCloses(t *testing.T) {
	cb := newTestBreaker(1, 5*time.Millisecond)

	_ = cb.Call(context.Background(), func(ctx context.Context) error { return errors.New("fail") })
	require.Equal(t, StateOpen, cb.CurrentState())

	time.Sleep(10 * time.Millisecond)

	err := cb.Call(context.Background(), func(ctx context.Context) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, StateClosed, cb.CurrentState())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := newTestBreaker(1, 5*time.Millisecond)

	_ = cb.Call(context.Background(), func(ctx context.Context) error { return errors.New("fail") })
	time.Sleep(10 * time.Millisecond)

	err := cb.Call(context.Background(), func(ctx context.Context) error { return errors.New("still failing") })
	require.Error(t, err)
	assert.Equal(t, StateOpen, cb.CurrentState())
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := newTestBreaker(1, time.Minute)
	_ = cb.Call(context.Background(), func(ctx context.Context) error { return errors.New("fail") })
	require.Equal(t, StateOpen, cb.CurrentState())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.CurrentState())
}

func TestCircuitBreaker_SuccessResetsFailureCountWhileClosed(t *testing.T) {
	cb := newTestBreaker(2, time.Minute)

	_ = cb.Call(context.Background(), func(ctx context.Context) error { return errors.New("fail") })
	_ = cb.Call(context.Background(), func(ctx context.Context) error { return nil })

	for i := 0; i < 1; i++ {
		_ = cb.Call(context.Background(), func(ctx context.Context) error { return errors.New("fail") })
	}
	assert.Equal(t, StateClosed, cb.CurrentState(), "success must have reset the failure count")
}
