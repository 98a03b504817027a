package resilience

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sambitmohanty1/transit-dispatch/internal/errs"
)

// State is one of the three circuit-breaker states from spec §4.7.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// CircuitBreakerConfig configures a CircuitBreaker.
type CircuitBreakerConfig struct {
	Threshold int
	Timeout   time.Duration
}

// CircuitBreaker implements the closed/open/half-open transition table
// from spec §4.7, with atomic updates guarded by a single mutex — the
// counters are touched from whichever goroutine invokes Call.
type CircuitBreaker struct {
	cfg    CircuitBreakerConfig
	logger *zap.Logger

	mu              sync.Mutex
	state           State
	failureCount    int
	lastFailureTime time.Time
	nextRetryTime   time.Time
}

func NewCircuitBreaker(cfg CircuitBreakerConfig, logger *zap.Logger) *CircuitBreaker {
	return &CircuitBreaker{cfg: cfg, logger: logger, state: StateClosed}
}

// Call runs fn guarded by the breaker. It short-circuits with
// CircuitOpenError while open and before nextRetryTime.
func (cb *CircuitBreaker) Call(ctx context.Context, fn func(ctx context.Context) error) error {
	if !cb.allow() {
		return errs.CircuitOpen("circuit breaker is open")
	}

	err := fn(ctx)
	if err != nil {
		cb.recordFailure()
		return err
	}
	cb.recordSuccess()
	return nil
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if time.Now().Before(cb.nextRetryTime) {
			return false
		}
		cb.state = StateHalfOpen
		return true
	case StateHalfOpen:
		return true
	default:
		return true
	}
}

func (cb *CircuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.lastFailureTime = time.Now()

	switch cb.state {
	case StateHalfOpen:
		cb.failureCount++
		cb.openLocked()
	case StateClosed:
		cb.failureCount++
		if cb.failureCount >= cb.cfg.Threshold {
			cb.openLocked()
		}
	case StateOpen:
		cb.failureCount++
		cb.openLocked()
	}
}

func (cb *CircuitBreaker) openLocked() {
	cb.state = StateOpen
	cb.nextRetryTime = time.Now().Add(cb.cfg.Timeout)
	cb.logger.Warn("circuit breaker opened", zap.Time("nextRetryTime", cb.nextRetryTime))
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateHalfOpen || cb.state == StateClosed {
		cb.state = StateClosed
		cb.failureCount = 0
	}
}

// Reset manually clears the breaker to closed.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failureCount = 0
	cb.nextRetryTime = time.Time{}
}

// CurrentState reports the breaker's state, for metrics.
func (cb *CircuitBreaker) CurrentState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
