// Package app wires the waterlog components together and manages their
// lifecycle.
package app

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"github.com/waterlogd/waterlog/internal/ingest"
	"github.com/waterlogd/waterlog/internal/log"
	"github.com/waterlogd/waterlog/internal/restserver"
	"github.com/waterlogd/waterlog/internal/store"
	"github.com/waterlogd/waterlog/pkg/config"
)

// App represents the main application
type App struct {
	cfg    *config.ConfigData
	logger *zap.SugaredLogger
}

// New creates a new application instance
func New(cfg *config.ConfigData, logger *zap.SugaredLogger) *App {
	return &App{
		cfg:    cfg,
		logger: logger,
	}
}

// Run starts the application and blocks until shutdown
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Open the reading store
	readings, err := store.New(&a.cfg.Storage)
	if err != nil {
		return err
	}
	defer readings.Close()

	// Start the REST server
	rest, err := restserver.NewController(ctx, &wg, a.cfg.HTTP, a.cfg.Auth, readings, a.logger)
	if err != nil {
		return err
	}
	if err := rest.StartController(); err != nil {
		return err
	}

	// Start the TCP push listener if configured
	if a.cfg.Ingest.ListenAddr != "" {
		listener := ingest.NewListener(ctx, &wg, a.cfg.Ingest.ListenAddr, readings, a.logger)
		if err := listener.Start(); err != nil {
			return err
		}
	}

	log.Info("Application started successfully")

	// Set up signal handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal
	select {
	case <-sigs:
		log.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		log.Info("context cancelled, shutting down...")
	}

	// Cancel context to signal all goroutines to stop
	cancel()

	// Wait for all workers to terminate
	log.Info("waiting for all workers to terminate...")
	wg.Wait()
	log.Info("shutdown complete")

	return nil
}
