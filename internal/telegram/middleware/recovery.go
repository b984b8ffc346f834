package middleware

import (
	"context"
	"runtime/debug"

	"github.com/futig/knowledge-console/internal/telegram/render"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Recovery turns a handler panic into an apology for the chat.
func Recovery(bot Sender) Middleware {
	return func(next UpdateFunc) UpdateFunc {
		return func(ctx context.Context, update tgbotapi.Update) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				ctxzap.Error(ctx, "panic recovered in telegram handler",
					zap.Any("panic", r),
					zap.ByteString("stack", debug.Stack()),
				)

				o, ok := OriginOf(update)
				if !ok || o.ChatID == 0 {
					return
				}
				if _, err := bot.Send(tgbotapi.NewMessage(o.ChatID, render.ErrGeneric)); err != nil {
					ctxzap.Error(ctx, "failed to send error message", zap.Error(err))
				}
			}()

			next(ctx, update)
		}
	}
}
