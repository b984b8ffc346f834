package backend

import (
	"context"
	"fmt"

	"github.com/avast/retry-go/v4"
	"github.com/futig/knowledge-console/internal/entity"
	pkgRetry "github.com/futig/knowledge-console/internal/pkg/retry"
	pkghttp "github.com/futig/knowledge-console/pkg/http"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
)

type healthChecker interface {
	Health(ctx context.Context) (*entity.StatusResponse, error)
}

// WaitForReady polls /health until the backend answers 2xx. Only connectivity
// failures and 5xx replies are retried; anything else is returned at once.
func WaitForReady(ctx context.Context, hc healthChecker, cfg *pkgRetry.RetryConfig) error {
	err := pkgRetry.Do(ctx, cfg, "wait_for_backend", func(ctx context.Context) error {
		_, err := hc.Health(ctx)
		return err
	}, retry.RetryIf(isTransient))
	if err != nil {
		return fmt.Errorf("backend not ready: %w", err)
	}

	ctxzap.Info(ctx, "backend is ready")
	return nil
}

func isTransient(err error) bool {
	if pkghttp.IsConnectivity(err) {
		return true
	}
	return pkghttp.StatusCode(err) >= 500
}
