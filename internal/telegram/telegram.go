package telegram

import (
	"context"
	"fmt"

	"github.com/futig/knowledge-console/internal/config"
	"github.com/futig/knowledge-console/internal/telegram/bot"
	"github.com/futig/knowledge-console/internal/telegram/handlers"
	"go.uber.org/zap"
)

// Bot is the main telegram bot interface
type Bot interface {
	Start(ctx context.Context) error
	Stop() error
}

// NewBot initializes the telegram bot. deps.Bot is filled in with the
// authorized API client.
func NewBot(cfg *config.TelegramConfig, deps handlers.Deps, logger *zap.Logger) (Bot, error) {
	b, err := bot.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	deps.Bot = b.API()
	if deps.Logger == nil {
		deps.Logger = logger
	}
	registerHandlers(b, deps, logger)

	logger.Info("telegram bot initialized successfully")
	return b, nil
}

func registerHandlers(b *bot.Bot, deps handlers.Deps, logger *zap.Logger) {
	all := []handlers.Handler{
		handlers.NewCommandHandler(deps),
		handlers.NewQuestionHandler(deps),
		handlers.NewDocumentHandler(deps),
		handlers.NewCallbackHandler(deps),
	}
	for _, h := range all {
		b.RegisterHandler(h)
	}

	logger.Info("telegram handlers registered", zap.Int("handler_count", len(all)))
}
