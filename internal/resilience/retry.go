// Package resilience implements the retry policy and circuit breaker
// guarding event processing and per-city frame computation. The backoff
// calculation is grounded on the teacher's RetryService.calculateDelay
// (internal/services/retry_service.go), generalized to an injectable
// policy object instead of a fire-and-forget goroutine scheduler.
package resilience

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sambitmohanty1/transit-dispatch/internal/errs"
)

// RetryConfig configures a Retrier.
type RetryConfig struct {
	MaxRetries         int
	BaseDelay          time.Duration
	MaxDelay           time.Duration
	ExponentialBackoff bool
}

// Retrier runs a function with a bounded number of attempts and either
// fixed or exponential backoff between them.
type Retrier struct {
	cfg    RetryConfig
	logger *zap.Logger
}

func NewRetrier(cfg RetryConfig, logger *zap.Logger) *Retrier {
	return &Retrier{cfg: cfg, logger: logger}
}

// Do runs fn up to MaxRetries+1 times. On success after at least one
// retry it logs "succeeded after retry"; on final failure it returns the
// last error wrapped as RetryExhausted.
func (r *Retrier) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := r.cfg.MaxRetries + 1

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			if attempt > 1 {
				r.logger.Info("succeeded after retry", zap.String("op", op), zap.Int("attempt", attempt))
			}
			return nil
		}

		if attempt == attempts {
			break
		}

		delay := r.delayFor(attempt - 1)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return errs.RetryExhausted(op+" canceled during backoff", ctx.Err())
		}
	}

	return errs.RetryExhausted(op+" exhausted retries", lastErr)
}

// delayFor computes the delay before retry k (0-indexed among retries):
// exponential ? min(base * 2^k, max) : base.
func (r *Retrier) delayFor(k int) time.Duration {
	if !r.cfg.ExponentialBackoff {
		return r.cfg.BaseDelay
	}
	delay := r.cfg.BaseDelay * time.Duration(1<<uint(k))
	if delay > r.cfg.MaxDelay || delay <= 0 {
		return r.cfg.MaxDelay
	}
	return delay
}
