package builder

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/futig/knowledge-console/internal/api"
	backendapi "github.com/futig/knowledge-console/internal/api/backend"
	ingestapi "github.com/futig/knowledge-console/internal/api/ingest"
	sessionapi "github.com/futig/knowledge-console/internal/api/session"
	"github.com/futig/knowledge-console/internal/cli"
	"github.com/futig/knowledge-console/internal/config"
	"github.com/futig/knowledge-console/internal/entity"
	"github.com/futig/knowledge-console/internal/integration/backend"
	"github.com/futig/knowledge-console/internal/pkg/formatter"
	"github.com/futig/knowledge-console/internal/pkg/highlight"
	"github.com/futig/knowledge-console/internal/pkg/logger"
	"github.com/futig/knowledge-console/internal/pkg/validator"
	"github.com/futig/knowledge-console/internal/telegram"
	"github.com/futig/knowledge-console/internal/telegram/handlers"
	"github.com/futig/knowledge-console/internal/telegram/keyboard"
	"github.com/futig/knowledge-console/internal/usecase/feedback"
	"github.com/futig/knowledge-console/internal/usecase/ingest"
	"github.com/futig/knowledge-console/internal/usecase/query"
	"github.com/futig/knowledge-console/internal/usecase/session"
	"github.com/futig/knowledge-console/internal/watcher"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// backendConnector is what every surface needs from the remote backend.
type backendConnector interface {
	query.Backend
	ingest.Backend
	feedback.Backend
	Health(ctx context.Context) (*entity.StatusResponse, error)
	BaseURL() string
}

// components are shared by every surface: one backend connection, one
// ingestion client with its status cache, and the session registry.
type components struct {
	cfg        *config.Config
	logger     *zap.Logger
	backend    backendConnector
	sessions   *session.Registry
	ingest     *ingest.Client
	validator  *validator.Validator
	feedback   *feedback.Usecase
	formatters *formatter.Factory
}

func buildComponents(environment, surface string, highlighter *highlight.Highlighter) (*components, error) {
	cfg, err := config.LoadConfig(environment)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}
	log = log.With(zap.String("surface", surface))

	log.Info("Building application",
		zap.String("environment", cfg.Environment),
		zap.String("backend_url", cfg.BackendCfg.Url),
	)

	var connector backendConnector
	if cfg.EnableMocks {
		log.Info("Using mock backend connector")
		connector = backend.NewMockConnector(log)
	} else {
		connector = backend.NewConnector(cfg.BackendCfg, log)
	}

	if cfg.BackendCfg.WaitOnStart {
		ctx := ctxzap.ToContext(context.Background(), log)
		if err := backend.WaitForReady(ctx, connector, &cfg.BackendCfg.Readiness); err != nil {
			return nil, err
		}
	}

	c := &components{
		cfg:        cfg,
		logger:     log,
		backend:    connector,
		sessions:   session.NewRegistry(connector, cfg.QueryCfg, cfg.SessionCfg, log, query.WithHighlighter(highlighter)),
		ingest:     ingest.NewClient(connector, cfg.IngestCfg, log),
		validator:  validator.NewFileValidator(cfg.UploadCfg),
		feedback:   feedback.NewUsecase(connector),
		formatters: formatter.NewFactory(),
	}
	log.Info("Use cases initialized")
	return c, nil
}

// Build assembles the local HTTP API.
func Build(environment string) (*App, error) {
	c, err := buildComponents(environment, "api", highlight.HTML())
	if err != nil {
		return nil, err
	}

	handlers := api.Handlers{
		Session: sessionapi.NewHandler(c.sessions, c.formatters),
		Ingest:  ingestapi.NewHandler(c.ingest, c.validator, c.cfg.UploadCfg),
		Backend: backendapi.NewHandler(c.backend, c.feedback),
	}
	c.logger.Info("API handlers initialized")

	router := api.SetupRouter(c.cfg, handlers, c.logger)
	c.logger.Info("HTTP router configured")

	server := &http.Server{
		Addr:        c.cfg.ServerAddr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// uploads and queries may legitimately run this long
		WriteTimeout: c.cfg.IngestCfg.Timeout + c.cfg.QueryCfg.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	var w *watcher.Watcher
	if dir := c.cfg.IngestCfg.WatchDir; dir != "" {
		w = watcher.New(dir, c.cfg.IngestCfg.BatchWindow, c.ingest, c.validator, c.logger)
	}

	c.logger.Info("Application built successfully",
		zap.String("environment", c.cfg.Environment),
	)

	return &App{
		server:  server,
		ingest:  c.ingest,
		watcher: w,
		logger:  c.logger,
	}, nil
}

// BuildTelegramBot creates and initializes the Telegram bot
func BuildTelegramBot(environment string) (telegram.Bot, *zap.Logger, error) {
	c, err := buildComponents(environment, "telegram", highlight.Telegram())
	if err != nil {
		return nil, nil, err
	}

	deps := handlers.Deps{
		Sessions:    c.sessions,
		Ingest:      c.ingest,
		Validator:   c.validator,
		Feedback:    c.feedback,
		Formatters:  c.formatters,
		Keyboard:    keyboard.NewBuilder(),
		MaxFileSize: c.cfg.UploadCfg.MaxFileSize,
		Logger:      c.logger,
	}

	bot, err := telegram.NewBot(&c.cfg.TelegramCfg, deps, c.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize telegram bot: %w", err)
	}

	c.logger.Info("Telegram bot built successfully",
		zap.String("environment", c.cfg.Environment),
	)

	return bot, c.logger, nil
}

// BuildCLI assembles the terminal surface.
func BuildCLI(environment string) (*cli.Deps, error) {
	c, err := buildComponents(environment, "cli", cli.Highlighter())
	if err != nil {
		return nil, err
	}

	return &cli.Deps{
		Config:     c.cfg,
		Sessions:   c.sessions,
		Ingest:     c.ingest,
		Validator:  c.validator,
		Feedback:   c.feedback,
		Health:     c.backend,
		Formatters: c.formatters,
		Logger:     c.logger,
	}, nil
}
