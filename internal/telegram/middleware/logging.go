package middleware

import (
	"context"
	"time"

	"github.com/futig/knowledge-console/internal/pkg/logger"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Logging tags the context logger with the update origin and times the
// rest of the chain.
func Logging() Middleware {
	return func(next UpdateFunc) UpdateFunc {
		return func(ctx context.Context, update tgbotapi.Update) {
			o, _ := OriginOf(update)
			ctx = logger.AddFields(ctx,
				zap.Int("update_id", update.UpdateID),
				zap.Int64("user_id", o.UserID),
				zap.Int64("chat_id", o.ChatID),
			)

			ctxzap.Debug(ctx, "telegram update received", zap.String("type", o.Kind))
			start := time.Now()
			next(ctx, update)
			ctxzap.Info(ctx, "telegram update processed", zap.Duration("duration", time.Since(start)))
		}
	}
}
