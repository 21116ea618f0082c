package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"orderhub/api"
	orderapp "orderhub/application/order"
	"orderhub/config"
	"orderhub/pkg/logger"

	"go.uber.org/zap"
)

type App struct {
	config  *config.Config
	core    *core
	router  *api.Router
	server  *http.Server
	sweeper *orderapp.TimeoutSweeper
}

// Handler is the full HTTP surface, for tests and embedding.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run serves until ctx is cancelled or the listener fails, then shuts down.
func (a *App) Run(ctx context.Context) error {
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	sweepDone := make(chan struct{})
	if a.sweeper != nil {
		go func() {
			defer close(sweepDone)
			a.sweeper.Run(sweepCtx)
		}()
	} else {
		close(sweepDone)
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err, ok := <-serveErr:
		if ok {
			runErr = fmt.Errorf("http server failed: %w", err)
		}
	}

	stopSweep()
	<-sweepDone
	if err := a.Shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// Shutdown drains HTTP requests, drops pending simulated callbacks, closes
// every push session and finally the storage.
func (a *App) Shutdown() error {
	timeout := a.config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	if err := a.server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	a.core.gateway.Shutdown()
	a.core.registry.Close()
	if err := a.core.storage.Close(); err != nil {
		errs = append(errs, fmt.Errorf("storage close: %w", err))
	}
	logger.Info("Server stopped")
	return errors.Join(errs...)
}
