package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	pkgRetry "github.com/futig/knowledge-console/internal/pkg/retry"
	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	// Local HTTP API
	ServerAddr string `env:"SERVER_ADDR" envDefault:":8080"`
	// Comma separated origins allowed to call the local HTTP API
	CORSOrigins []string `env:"CORS_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`

	// Remote retrieval and generation backend
	BackendCfg BackendConfig `envPrefix:"BACKEND_"`

	// Query defaults
	QueryCfg QueryConfig `envPrefix:"QUERY_"`

	// Ingestion defaults
	IngestCfg IngestConfig `envPrefix:"INGEST_"`

	// Upload limits applied where files are selected
	UploadCfg UploadConfig `envPrefix:"UPLOAD_"`

	// Session lifetime
	SessionCfg SessionConfig `envPrefix:"SESSION_"`

	// Logging configuration
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Mock configuration
	EnableMocks bool `env:"ENABLE_MOCKS" envDefault:"false"`

	// Telegram bot configuration (optional)
	TelegramCfg TelegramConfig `envPrefix:"TELEGRAM_"`

	// Environment (set from flag, not from env var)
	Environment string
}

type BackendConfig struct {
	HTTPClientConfig
	// Readiness check against /health before a surface starts serving
	WaitOnStart bool                 `env:"WAIT_ON_START" envDefault:"false"`
	Readiness   pkgRetry.RetryConfig `envPrefix:"READINESS_"`
}

type HTTPClientConfig struct {
	RequestTimeout        time.Duration `env:"TIMEOUT" envDefault:"2m"`
	ConnTimeout           time.Duration `env:"CONN_TIMEOUT" envDefault:"10s"`
	KeepAlive             time.Duration `env:"KEEP_ALIVE" envDefault:"90s"`
	IdleConnTimeout       time.Duration `env:"IDLE_CONN_TIMEOUT" envDefault:"90s"`
	ResponseHeaderTimeout time.Duration `env:"RESPONSE_HEADER_TIMEOUT" envDefault:"0s"`
	Token                 string        `env:"TOKEN"`
	Url                   string        `env:"SERVICE_URL" envDefault:"http://localhost:8000"`
}

type QueryConfig struct {
	TopK         int           `env:"TOP_K" envDefault:"20"`
	ChatKFinal   int           `env:"CHAT_K_FINAL" envDefault:"5"`
	SearchKFinal int           `env:"SEARCH_K_FINAL" envDefault:"10"`
	Timeout      time.Duration `env:"TIMEOUT" envDefault:"60s"`
}

type IngestConfig struct {
	MaxChunkTokens int           `env:"MAX_CHUNK_TOKENS" envDefault:"512"`
	Overlap        int           `env:"OVERLAP" envDefault:"64"`
	PollInterval   time.Duration `env:"POLL_INTERVAL" envDefault:"5s"`
	Timeout        time.Duration `env:"TIMEOUT" envDefault:"10m"`
	// Optional drop folder; files landing there are uploaded in batches
	WatchDir    string        `env:"WATCH_DIR"`
	BatchWindow time.Duration `env:"BATCH_WINDOW" envDefault:"2s"`
}

// UploadConfig holds file upload limits
type UploadConfig struct {
	MaxFileSize   int64 `env:"MAX_FILE_SIZE" envDefault:"52428800"` // 50 MiB, the backend's own per-file cap
	MaxFileCount  int   `env:"MAX_FILE_COUNT" envDefault:"64"`
	MaxUploadSize int64 `env:"MAX_UPLOAD_SIZE" envDefault:"268435456"` // 256 MiB multipart parse limit
}

type SessionConfig struct {
	IdleTTL         time.Duration `env:"IDLE_TTL" envDefault:"2h"`
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"10m"`
}

// TelegramConfig holds Telegram bot configuration
type TelegramConfig struct {
	BotToken           string `env:"BOT_TOKEN"`
	UpdateTimeout      int    `env:"UPDATE_TIMEOUT" envDefault:"60"`
	RateLimitPerMinute int    `env:"RATE_LIMIT_PER_MINUTE" envDefault:"20"`
	RateLimitBurst     int    `env:"RATE_LIMIT_BURST" envDefault:"5"`
	ShutdownTimeout    int    `env:"SHUTDOWN_TIMEOUT" envDefault:"30"` // seconds
}

// LoadConfig reads .env.<environment> if present and parses the environment.
func LoadConfig(environment string) (*Config, error) {
	if environment == "" {
		environment = "local"
	}

	envFile := getEnvFile(environment)
	// Try to load env file, but don't fail if it's missing.
	// In containerized/prod environments variables are usually set externally.
	if err := godotenv.Load(envFile); err != nil {
		fmt.Printf("Warning: could not load %s file (this is ok if env vars are set externally): %v\n", envFile, err)
	}

	cfg, err := Parse()
	if err != nil {
		return nil, err
	}

	cfg.Environment = environment
	return cfg, nil
}

// Parse builds a validated Config from the current process environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	var errors []string

	if cfg.BackendCfg.Url == "" {
		errors = append(errors, "BACKEND_SERVICE_URL must not be empty")
	}

	if cfg.QueryCfg.TopK < 1 || cfg.QueryCfg.TopK > 100 {
		errors = append(errors, fmt.Sprintf("QUERY_TOP_K must be between 1 and 100, got %d", cfg.QueryCfg.TopK))
	}

	if cfg.QueryCfg.ChatKFinal < 1 || cfg.QueryCfg.ChatKFinal > 20 {
		errors = append(errors, fmt.Sprintf("QUERY_CHAT_K_FINAL must be between 1 and 20, got %d", cfg.QueryCfg.ChatKFinal))
	}

	if cfg.QueryCfg.SearchKFinal < 1 || cfg.QueryCfg.SearchKFinal > 20 {
		errors = append(errors, fmt.Sprintf("QUERY_SEARCH_K_FINAL must be between 1 and 20, got %d", cfg.QueryCfg.SearchKFinal))
	}

	if cfg.QueryCfg.Timeout <= 0 {
		errors = append(errors, "QUERY_TIMEOUT must be positive")
	}

	if cfg.IngestCfg.MaxChunkTokens <= 0 {
		errors = append(errors, fmt.Sprintf("INGEST_MAX_CHUNK_TOKENS must be positive, got %d", cfg.IngestCfg.MaxChunkTokens))
	}

	if cfg.IngestCfg.Overlap < 0 || cfg.IngestCfg.Overlap >= cfg.IngestCfg.MaxChunkTokens {
		errors = append(errors, fmt.Sprintf("INGEST_OVERLAP must be in [0, INGEST_MAX_CHUNK_TOKENS), got %d", cfg.IngestCfg.Overlap))
	}

	if cfg.IngestCfg.PollInterval < time.Second {
		errors = append(errors, fmt.Sprintf("INGEST_POLL_INTERVAL must be at least 1s, got %s", cfg.IngestCfg.PollInterval))
	}

	if cfg.IngestCfg.Timeout <= 0 {
		errors = append(errors, "INGEST_TIMEOUT must be positive")
	}

	if cfg.TelegramCfg.RateLimitPerMinute < 1 || cfg.TelegramCfg.RateLimitPerMinute > 60 {
		errors = append(errors, fmt.Sprintf("TELEGRAM_RATE_LIMIT_PER_MINUTE must be between 1 and 60, got %d", cfg.TelegramCfg.RateLimitPerMinute))
	}

	if cfg.TelegramCfg.ShutdownTimeout < 1 || cfg.TelegramCfg.ShutdownTimeout > 300 {
		errors = append(errors, fmt.Sprintf("TELEGRAM_SHUTDOWN_TIMEOUT must be between 1 and 300 seconds, got %d", cfg.TelegramCfg.ShutdownTimeout))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation errors:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

func getEnvFile(environment string) string {
	switch environment {
	case "prod", "production":
		return ".env.prod"
	case "local", "dev", "development":
		return ".env.local"
	default:
		return fmt.Sprintf(".env.%s", environment)
	}
}
