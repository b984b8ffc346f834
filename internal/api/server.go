package api

import (
	"net/http"

	backendapi "github.com/futig/knowledge-console/internal/api/backend"
	"github.com/futig/knowledge-console/internal/api/docs"
	ingestapi "github.com/futig/knowledge-console/internal/api/ingest"
	"github.com/futig/knowledge-console/internal/api/middleware"
	sessionapi "github.com/futig/knowledge-console/internal/api/session"
	"github.com/futig/knowledge-console/internal/config"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Handlers struct {
	Session *sessionapi.Handler
	Ingest  *ingestapi.Handler
	Backend *backendapi.Handler
}

// SetupRouter creates and configures the HTTP router
func SetupRouter(cfg *config.Config, h Handlers, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.Logger(logger, "/health"))
	r.Use(middleware.CORS(cfg.CORSOrigins))
	// long enough for the slowest ingestion; queries carry their own deadline
	r.Use(chimiddleware.Timeout(cfg.IngestCfg.Timeout + cfg.QueryCfg.Timeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	docs.Mount(r, "/docs")

	sessionapi.RegisterRoutes(r, h.Session)
	ingestapi.RegisterRoutes(r, h.Ingest)
	backendapi.RegisterRoutes(r, h.Backend)

	return r
}
