// Package cli is the terminal surface: an interactive chat plus one-shot
// commands for search, ingestion, index status and an MCP server over stdio.
package cli

import (
	"context"
	"os"

	"github.com/futig/knowledge-console/internal/config"
	"github.com/futig/knowledge-console/internal/entity"
	"github.com/futig/knowledge-console/internal/pkg/formatter"
	"github.com/futig/knowledge-console/internal/pkg/validator"
	"github.com/futig/knowledge-console/internal/usecase/ingest"
	"github.com/futig/knowledge-console/internal/usecase/session"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// TerminalSessionID is the registry key of the single terminal conversation.
const TerminalSessionID = "cli"

type SessionRegistry interface {
	Ensure(ctx context.Context, id string) *session.Session
	End(ctx context.Context, id string) error
}

type IngestClient interface {
	IngestByPath(ctx context.Context, paths []string, opts ...ingest.Option) (*entity.StatusResponse, error)
	IngestUpload(ctx context.Context, files []entity.FileData, opts ...ingest.Option) (*entity.IngestUploadResponse, error)
	Rebuild(ctx context.Context) (*entity.StatusResponse, error)
	GetStatus(ctx context.Context) (*entity.IngestStatus, error)
	CachedStatus() (*entity.IngestStatus, bool)
	Poller() *ingest.Poller
}

type HealthChecker interface {
	Health(ctx context.Context) (*entity.StatusResponse, error)
	BaseURL() string
}

type FeedbackSubmitter interface {
	Submit(ctx context.Context, req *entity.FeedbackRequest) (*entity.StatusResponse, error)
}

// Deps is everything the commands need, built once per invocation.
type Deps struct {
	Config     *config.Config
	Sessions   SessionRegistry
	Ingest     IngestClient
	Validator  *validator.Validator
	Feedback   FeedbackSubmitter
	Health     HealthChecker
	Formatters *formatter.Factory
	Logger     *zap.Logger
}

// Loader builds Deps for an environment name.
type Loader func(environment string) (*Deps, error)

var (
	flagEnv string

	loader Loader
	deps   *Deps
)

var rootCmd = &cobra.Command{
	Use:           "knowledge",
	Short:         "Ask questions over your document index and manage what it contains",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		d, err := loader(flagEnv)
		if err != nil {
			return err
		}
		deps = d
		cmd.SetContext(ctxzap.ToContext(cmd.Context(), d.Logger))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if deps != nil {
			deps.Logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return chatCmd.RunE(cmd, args)
	},
}

func Execute(load Loader) {
	loader = load
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagEnv, "env", "local", "environment name, loads .env.<env> when present")
}
