package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const (
	serverShutdownTimeout  = 10 * time.Second
	managerShutdownTimeout = 30 * time.Second
)

// run starts the worker pool, the retention janitor and the HTTP server, and
// blocks until a shutdown signal has been fully handled.
func (app *application) run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app.manager.Start()
	go app.janitor.Run(ctx)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Server.Port),
		Handler:           app.newRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info("starting server", "port", app.cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		app.logger.Info("shutdown signal received")
	}

	// Stop accepting requests first, then drain the pipeline, then release
	// connections.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("server shutdown failed", "error", err)
	}

	managerCtx, cancelManager := context.WithTimeout(context.Background(), managerShutdownTimeout)
	defer cancelManager()
	app.manager.Stop(managerCtx)

	app.cleanup()
	app.logger.Info("server shutdown completed")
	return nil
}
