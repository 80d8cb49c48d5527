package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atri1011/datafx/internal/app"
	"github.com/atri1011/datafx/internal/config"
	"github.com/atri1011/datafx/internal/server"
	"github.com/atri1011/datafx/internal/util"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := util.NewLogger(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Bilibili popular analyzer starting...",
		zap.String("addr", cfg.Server.Addr),
		zap.String("log_level", cfg.Logging.Level),
		zap.Bool("redis", cfg.Redis.Enabled),
		zap.Bool("postgres", cfg.Postgres.Enabled),
	)

	buildCtx, buildCancel := context.WithTimeout(context.Background(), 30*time.Second)
	container, err := app.Build(buildCtx, cfg, logger)
	buildCancel()
	if err != nil {
		logger.Error("Failed to assemble application services", zap.Error(err))
		os.Exit(1)
	}
	defer container.Close()

	deps := server.Deps{
		Analyzer:  container.Analyzer,
		Charts:    container.Charts,
		Config:    container,
		WebSocket: container.Hub,
		Metrics:   container.Metrics.Handler(),
		Logger:    logger,
	}
	if container.History != nil {
		deps.History = container.History
	}
	httpServer := server.New(cfg.Server.Addr, deps)

	// Create context with cancellation for runtime lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go container.Hub.Run(ctx)
	container.Scheduler.Start()

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Start(); err != nil {
			errCh <- err
		}
	}()

	// Initial refresh so the dashboard has data right away
	go func() {
		if _, err := container.Analyzer.Refresh(ctx); err != nil {
			logger.Warn("Initial refresh failed", zap.Error(err))
		}
	}()

	logger.Info("Analyzer started, waiting for signals...")

	select {
	case sig := <-sigCh:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("HTTP server error", zap.Error(err))
	}

	// Graceful shutdown
	logger.Info("Shutting down gracefully...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during HTTP shutdown", zap.Error(err))
	}

	select {
	case <-container.Scheduler.Stop().Done():
	case <-shutdownCtx.Done():
		logger.Warn("Scheduled job still running at shutdown")
	}

	logger.Info("Shutdown complete")
}
