package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"poseidon/internal/adapters/config"
	"poseidon/internal/adapters/errors/noop"
	"poseidon/internal/adapters/errors/sentry"
	"poseidon/internal/bootstrap"
	"poseidon/pkg/errors"
	"poseidon/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()
	log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	tracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(tracker)

	container, err := bootstrap.Build(cfg, log)
	if err != nil {
		log.Fatalf("bootstrap failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := container.Start(ctx); err != nil {
		log.Fatalf("startup failed: %v", err)
	}
	log.Info("engine started")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	container.Stop(shutdownCtx)

	_ = tracker.Flush(shutdownCtx)
	log.Info("shutdown complete")
}

// initErrorTracker wires Sentry when enabled, a no-op tracker otherwise.
func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("failed to initialize sentry: %v", err)
		return noop.New()
	}

	log.Info("error tracking initialized")
	return tracker
}
