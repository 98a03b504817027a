// Package processor orchestrates subscription, validation, state
// mutation and scope-filtered recomputation, guarded by the resilience
// layer, the way the teacher's EventProcessorService orchestrates
// subscribe -> unmarshal -> persist (worker/internal/services/
// event_processor_service.go) — generalized from a single DB write to
// the vehicle-state + frame-recompute pipeline this spec calls for.
package processor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sambitmohanty1/transit-dispatch/internal/eventbus"
	"github.com/sambitmohanty1/transit-dispatch/internal/framecompute"
	"github.com/sambitmohanty1/transit-dispatch/internal/metrics"
	"github.com/sambitmohanty1/transit-dispatch/internal/models"
	"github.com/sambitmohanty1/transit-dispatch/internal/resilience"
	"github.com/sambitmohanty1/transit-dispatch/internal/validator"
	"github.com/sambitmohanty1/transit-dispatch/internal/vehiclestate"
)

const (
	// NormalizedEventsTopic is the producer -> processor topic name.
	NormalizedEventsTopic = "events.normalized"
	consumerGroup         = "processor"
	consumerName           = "processor-1"
)

// Config configures the processor's retry/circuit-breaker/cleanup
// knobs, sourced from config.ProcessorConfig.
type Config struct {
	MaxVehicleAge     time.Duration
	CleanupInterval   time.Duration
	RetryMaxRetries   int
	RetryBaseDelay    time.Duration
	RetryMaxDelay     time.Duration
	CircuitThreshold  int
	CircuitTimeout    time.Duration
}

// Processor wires the vehicle state manager, frame computer, validator
// and resilience layer together against one subscription.
type Processor struct {
	instanceID string
	bus        eventbus.EventBus
	state      *vehiclestate.Manager
	frames     *framecompute.Computer
	metrics    *metrics.Registry
	logger     *zap.Logger
	cfg        Config

	breaker *resilience.CircuitBreaker
	retrier *resilience.Retrier

	mu             sync.Mutex
	isShuttingDown bool
	unsubscribe    eventbus.Unsubscribe
	cleanupStop    chan struct{}
}

// New builds a Processor tagged with a random instance id, so logs from
// concurrently-run cmd/processor and cmd/allinone deployments (or any
// future multi-instance setup) can be told apart without relying on
// hostname/PID, the way the teacher stamps generated ids onto
// PaymentFailure records rather than trusting caller-supplied ones.
func New(bus eventbus.EventBus, state *vehiclestate.Manager, frames *framecompute.Computer, reg *metrics.Registry, logger *zap.Logger, cfg Config) *Processor {
	instanceID := uuid.NewString()
	return &Processor{
		instanceID: instanceID,
		bus:        bus,
		state:      state,
		frames:     frames,
		metrics:    reg,
		logger:     logger.With(zap.String("processorInstance", instanceID)),
		cfg:        cfg,
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Threshold: cfg.CircuitThreshold,
			Timeout:   cfg.CircuitTimeout,
		}, logger),
		retrier: resilience.NewRetrier(resilience.RetryConfig{
			MaxRetries:         cfg.RetryMaxRetries,
			BaseDelay:          cfg.RetryBaseDelay,
			MaxDelay:           cfg.RetryMaxDelay,
			ExponentialBackoff: true,
		}, logger),
	}
}

// Start subscribes to the normalized-events topic and begins the
// periodic cleanup task.
func (p *Processor) Start(ctx context.Context) error {
	unsub, err := p.bus.Subscribe(ctx, NormalizedEventsTopic, consumerGroup, consumerName, p.handleMessage)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.unsubscribe = unsub
	p.cleanupStop = make(chan struct{})
	p.mu.Unlock()

	go p.runCleanupLoop()

	p.logger.Info("processor started", zap.String("topic", NormalizedEventsTopic))
	return nil
}

// Stop marks the processor shutting down, stops the cleanup timer and
// unsubscribes. In-flight handler invocations are allowed to complete.
func (p *Processor) Stop(_ context.Context) error {
	p.mu.Lock()
	p.isShuttingDown = true
	if p.cleanupStop != nil {
		close(p.cleanupStop)
	}
	unsub := p.unsubscribe
	p.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	return nil
}

func (p *Processor) handleMessage(ctx context.Context, fields map[string]string) error {
	start := time.Now()

	body, ok := fields["json"]
	if !ok {
		p.recordRejected("missing_json_field")
		p.logger.Warn("stream entry missing json field")
		return nil
	}

	result := validator.ValidateBytes([]byte(body))
	if !result.OK {
		p.recordRejected("validation_failed")
		p.logger.Warn("discarding invalid envelope", zap.Strings("errors", result.Errors))
		return nil
	}

	cityID := result.CityID

	err := p.breaker.Call(ctx, func(ctx context.Context) error {
		switch ev := result.Event.(type) {
		case models.VehicleUpsertEvent:
			p.state.UpsertVehicle(cityID, ev.Payload.ID, ev.Payload)
			p.metrics.EventsProcessed.WithLabelValues(string(models.KindVehicleUpsert)).Inc()
		case models.VehicleRemoveEvent:
			p.state.RemoveVehicle(cityID, ev.Payload.ID)
			p.metrics.EventsProcessed.WithLabelValues(string(models.KindVehicleRemove)).Inc()
		}

		return p.computeFramesForCity(ctx, cityID)
	})

	p.metrics.ProcessingSeconds.Observe(time.Since(start).Seconds())
	p.metrics.VehiclesTracked.Set(float64(p.state.GetStats().TotalVehicles))

	if err != nil {
		p.recordRejected("processing_error")
		p.logger.Error("event processing failed", zap.Error(err), zap.String("cityId", cityID))
		return err
	}
	return nil
}

func (p *Processor) computeFramesForCity(ctx context.Context, cityID string) error {
	return p.retrier.Do(ctx, "computeFramesForCity", func(ctx context.Context) error {
		vehicles := p.state.GetVehiclesForCity(cityID)
		result := p.frames.ComputeFrames(cityID, vehicles, func(def models.ScopeDefinition) bool {
			return def.CityID == cityID
		})
		for _, errMsg := range result.Errors {
			p.logger.Error("frame computation error", zap.String("cityId", cityID), zap.String("error", errMsg))
		}
		p.metrics.FramesComputed.Add(float64(result.ScopesProcessed))
		return nil
	})
}

func (p *Processor) recordRejected(reason string) {
	p.metrics.EventsRejected.WithLabelValues(reason).Inc()
}

func (p *Processor) runCleanupLoop() {
	ticker := time.NewTicker(p.cfg.CleanupInterval)
	defer ticker.Stop()

	p.mu.Lock()
	stop := p.cleanupStop
	p.mu.Unlock()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			removed := p.state.Cleanup(p.cfg.MaxVehicleAge)
			if removed > 0 {
				p.logger.Info("cleanup removed stale vehicles", zap.Int("removed", removed))
			}
			p.refreshGauges()
		}
	}
}

// refreshGauges pushes point-in-time state into the gauges that aren't
// naturally updated on the hot path.
func (p *Processor) refreshGauges() {
	p.metrics.VehiclesTracked.Set(float64(p.state.GetStats().TotalVehicles))
	p.metrics.ScopesActive.Set(float64(p.frames.Store().ActiveScopeCount()))
	if p.breaker.CurrentState() == resilience.StateClosed {
		p.metrics.CircuitBreakerUp.Set(1)
	} else {
		p.metrics.CircuitBreakerUp.Set(0)
	}
}

// Stats returns a point-in-time snapshot used by the HTTP health and
// metrics surface.
func (p *Processor) Stats() vehiclestate.Stats {
	return p.state.GetStats()
}

// CircuitState reports the current breaker state, for observability.
func (p *Processor) CircuitState() resilience.State {
	return p.breaker.CurrentState()
}

// InstanceID identifies this processor instance in logs and, potentially,
// a future multi-instance leader election scheme.
func (p *Processor) InstanceID() string {
	return p.instanceID
}
