// Command processor runs the stream-consuming, vehicle-state-mutating,
// frame-recomputing side of the system, wired with go.uber.org/fx the
// way the teacher's worker/cmd/main.go wires its EventProcessorService.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/sambitmohanty1/transit-dispatch/internal/config"
	"github.com/sambitmohanty1/transit-dispatch/internal/eventbus"
	"github.com/sambitmohanty1/transit-dispatch/internal/framecompute"
	"github.com/sambitmohanty1/transit-dispatch/internal/metrics"
	"github.com/sambitmohanty1/transit-dispatch/internal/processor"
	"github.com/sambitmohanty1/transit-dispatch/internal/scopestore"
	"github.com/sambitmohanty1/transit-dispatch/internal/streambus"
	"github.com/sambitmohanty1/transit-dispatch/internal/vehiclestate"
)

func main() {
	app := fx.New(
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger}
		}),
		fx.Provide(
			config.Load,
			initLogger,
			initStreamBusClient,
			initEventBus,
			initScopeStore,
			vehiclestate.NewManager,
			framecompute.NewComputer,
			initMetricsRegistry,
			initProcessor,
		),
		fx.Invoke(registerHooks),
		fx.StopTimeout(30*time.Second),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal("failed to start processor: ", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("shutting down processor...")
	if err := app.Stop(context.Background()); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}

func initLogger(cfg *config.Config) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = level
	return zcfg.Build()
}

func initStreamBusClient(cfg *config.Config, logger *zap.Logger) (*streambus.Client, error) {
	return streambus.NewClient(streambus.Config{
		URL:          cfg.StreamBus.URL,
		DefaultBlock: time.Duration(cfg.StreamBus.DefaultBlockMs) * time.Millisecond,
		DefaultCount: cfg.StreamBus.DefaultCount,
	}, logger)
}

func initEventBus(client *streambus.Client, logger *zap.Logger) eventbus.EventBus {
	return eventbus.NewStreamBus(client, logger)
}

func initScopeStore(cfg *config.Config, logger *zap.Logger) *scopestore.Store {
	return scopestore.NewStore(time.Duration(cfg.ScopeStore.DefaultTTLMs)*time.Millisecond, logger)
}

func initMetricsRegistry() *metrics.Registry {
	return metrics.NewRegistry(prometheus.DefaultRegisterer)
}

func initProcessor(cfg *config.Config, bus eventbus.EventBus, state *vehiclestate.Manager, frames *framecompute.Computer, reg *metrics.Registry, logger *zap.Logger) *processor.Processor {
	return processor.New(bus, state, frames, reg, logger, processor.Config{
		MaxVehicleAge:    time.Duration(cfg.Processor.MaxVehicleAgeMs) * time.Millisecond,
		CleanupInterval:  time.Duration(cfg.Processor.CleanupIntervalMs) * time.Millisecond,
		RetryMaxRetries:  cfg.Processor.MaxRetries,
		RetryBaseDelay:   time.Duration(cfg.Processor.RetryBaseDelayMs) * time.Millisecond,
		RetryMaxDelay:    time.Duration(cfg.Processor.RetryMaxDelayMs) * time.Millisecond,
		CircuitThreshold: cfg.Processor.CircuitBreakerThreshold,
		CircuitTimeout:   time.Duration(cfg.Processor.CircuitBreakerTimeoutMs) * time.Millisecond,
	})
}

func registerHooks(lc fx.Lifecycle, p *processor.Processor, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("starting transit dispatch processor")
			return p.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping transit dispatch processor")
			return p.Stop(ctx)
		},
	})
}
