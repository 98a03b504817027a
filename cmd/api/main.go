// Command api serves the HTTP scope-provisioning/retrieval surface,
// wired by hand the way the teacher's api/cmd/main.go wires its gin
// server: build dependencies top-down, construct the router, serve with
// graceful shutdown on SIGINT/SIGTERM.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sambitmohanty1/transit-dispatch/internal/config"
	"github.com/sambitmohanty1/transit-dispatch/internal/httpapi"
	"github.com/sambitmohanty1/transit-dispatch/internal/scopestore"
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

	store := scopestore.NewStore(time.Duration(cfg.ScopeStore.DefaultTTLMs)*time.Millisecond, logger)
	handlers := httpapi.NewHandlers(store, logger)
	registry := httpapi.NewOpenAPIRegistry()
	router := httpapi.NewRouter(handlers, registry)

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		logger.Info("starting transit dispatch scope api", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down scope api...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("error during shutdown", zap.Error(err))
	}
}
