package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_AccessLine(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	r := chi.NewRouter()
	r.Use(Logger(zap.New(core), "/health"))
	r.Get("/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		ctxzap.Extract(r.Context()).Info("inside")
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/sessions/abc", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	if n := logs.FilterMessage("inside").Len(); n != 1 {
		t.Fatalf("handler should log through the context logger, got %d", n)
	}

	access := logs.FilterMessage("http request").All()
	if len(access) != 2 {
		t.Fatalf("expected two access lines, got %d", len(access))
	}
	if access[0].Level != zapcore.WarnLevel || access[0].ContextMap()["route"] != "/sessions/{id}" {
		t.Errorf("unexpected access line %+v", access[0].ContextMap())
	}
	if access[1].Level != zapcore.DebugLevel {
		t.Errorf("quiet path logged at %s", access[1].Level)
	}
}

func TestCORS_AllowsConfiguredOrigin(t *testing.T) {
	h := CORS([]string{"http://localhost:3000"})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/sessions/a", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("unexpected allow origin %q", got)
	}
}
