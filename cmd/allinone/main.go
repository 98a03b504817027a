// Command allinone runs the processor and the scope API in a single
// process sharing one scopestore.Store and one vehiclestate.Manager.
// Not grounded on any single teacher file directly — it combines the
// teacher's worker/cmd and api/cmd wiring into one entrypoint for
// deployments where the spec's single-active-processor assumption makes
// running two processes pure overhead.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/sambitmohanty1/transit-dispatch/internal/config"
	"github.com/sambitmohanty1/transit-dispatch/internal/eventbus"
	"github.com/sambitmohanty1/transit-dispatch/internal/framecompute"
	"github.com/sambitmohanty1/transit-dispatch/internal/httpapi"
	"github.com/sambitmohanty1/transit-dispatch/internal/metrics"
	"github.com/sambitmohanty1/transit-dispatch/internal/processor"
	"github.com/sambitmohanty1/transit-dispatch/internal/scopestore"
	"github.com/sambitmohanty1/transit-dispatch/internal/streambus"
	"github.com/sambitmohanty1/transit-dispatch/internal/vehiclestate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = level
	logger, err := zcfg.Build()
	if err != nil {
		log.Fatal("failed to build logger: ", err)
	}
	defer logger.Sync()

	client, err := streambus.NewClient(streambus.Config{
		URL:          cfg.StreamBus.URL,
		DefaultBlock: time.Duration(cfg.StreamBus.DefaultBlockMs) * time.Millisecond,
		DefaultCount: cfg.StreamBus.DefaultCount,
	}, logger)
	if err != nil {
		logger.Fatal("failed to build stream bus client", zap.Error(err))
	}
	bus := eventbus.NewStreamBus(client, logger)

	store := scopestore.NewStore(time.Duration(cfg.ScopeStore.DefaultTTLMs)*time.Millisecond, logger)
	state := vehiclestate.NewManager()
	frames := framecompute.NewComputer(store)
	reg := metrics.NewRegistry(prometheus.DefaultRegisterer)

	proc := processor.New(bus, state, frames, reg, logger, processor.Config{
		MaxVehicleAge:    time.Duration(cfg.Processor.MaxVehicleAgeMs) * time.Millisecond,
		CleanupInterval:  time.Duration(cfg.Processor.CleanupIntervalMs) * time.Millisecond,
		RetryMaxRetries:  cfg.Processor.MaxRetries,
		RetryBaseDelay:   time.Duration(cfg.Processor.RetryBaseDelayMs) * time.Millisecond,
		RetryMaxDelay:    time.Duration(cfg.Processor.RetryMaxDelayMs) * time.Millisecond,
		CircuitThreshold: cfg.Processor.CircuitBreakerThreshold,
		CircuitTimeout:   time.Duration(cfg.Processor.CircuitBreakerTimeoutMs) * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := proc.Start(ctx); err != nil {
		logger.Fatal("failed to start processor", zap.Error(err))
	}

	handlers := httpapi.NewHandlers(store, logger)
	router := httpapi.NewRouter(handlers, httpapi.NewOpenAPIRegistry())
	addr := cfg.Server.Host + ":" + cfg.Server.Port
	srv := &http.Server{Addr: addr, Handler: router}

	go func() {
		logger.Info("starting transit dispatch (allinone)", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("error during http shutdown", zap.Error(err))
	}
	if err := proc.Stop(shutdownCtx); err != nil {
		logger.Error("error during processor shutdown", zap.Error(err))
	}
}
