package http

import (
	"context"
	"net/http"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// bodyInfo describes the outgoing body for the logging transport.
type bodyInfo struct {
	json []byte
	size int
}

type bodyInfoKey struct{}

func withBodyInfo(ctx context.Context, info bodyInfo) context.Context {
	return context.WithValue(ctx, bodyInfoKey{}, info)
}

type logTransport struct {
	next http.RoundTripper
}

func (t *logTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	log := ctxzap.Extract(ctx).With(
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
	)

	if info, ok := ctx.Value(bodyInfoKey{}).(bodyInfo); ok {
		if len(info.json) > 0 {
			log.Debug("backend request", zap.ByteString("payload", info.json))
		} else {
			log.Debug("backend request", zap.Int("body_size", info.size))
		}
	}

	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	elapsed := zap.Duration("elapsed", time.Since(start))
	if err != nil {
		log.Debug("backend request failed", elapsed, zap.Error(err))
		return nil, err
	}
	log.Debug("backend response", elapsed, zap.Int("status", resp.StatusCode))
	return resp, nil
}

// WithRequestLogging logs every exchange at debug level through the
// context logger.
func WithRequestLogging() Option {
	return WithTransport(func(rt http.RoundTripper) http.RoundTripper {
		return &logTransport{next: rt}
	})
}
