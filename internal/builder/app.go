package builder

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/futig/knowledge-console/internal/usecase/ingest"
	"github.com/futig/knowledge-console/internal/watcher"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

// App is the local HTTP API with its background daemons.
type App struct {
	server  *http.Server
	ingest  *ingest.Client
	watcher *watcher.Watcher
	logger  *zap.Logger
}

// Run serves until SIGINT/SIGTERM or until a daemon fails.
func (a *App) Run() error {
	defer a.logger.Sync()

	ctx, stop := signal.NotifyContext(ctxzap.ToContext(context.Background(), a.logger), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// keeps /ingest/status?cached=true fresh while the API is up
	release := a.ingest.Poller().Acquire()
	defer release()

	failed := make(chan error, 2)
	go func() {
		a.logger.Info("HTTP server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			failed <- fmt.Errorf("http server: %w", err)
		}
	}()
	if a.watcher != nil {
		go func() {
			if err := a.watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				failed <- fmt.Errorf("watcher: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case runErr = <-failed:
		a.logger.Error("daemon failed", zap.Error(runErr))
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	}
	stop()

	if err := a.shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := a.server.Shutdown(ctx)
	if err != nil {
		a.logger.Error("HTTP server shutdown", zap.Error(err))
	}
	a.ingest.Poller().Stop()

	a.logger.Info("application stopped")
	return err
}
