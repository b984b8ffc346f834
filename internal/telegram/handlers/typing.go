package handlers

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Telegram drops a chat action after about 5 seconds.
const typingRefresh = 4 * time.Second

// whileTyping runs fn and keeps the chat's "typing..." indicator visible until
// it returns.
func whileTyping[T any](ctx context.Context, bot BotAPI, chatID int64, fn func(context.Context) (T, error)) (T, error) {
	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)

		ticker := time.NewTicker(typingRefresh)
		defer ticker.Stop()
		for {
			if _, err := bot.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
				ctxzap.Debug(ctx, "typing action failed", zap.Error(err), zap.Int64("chat_id", chatID))
			}
			select {
			case <-ticker.C:
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	result, err := fn(ctx)
	close(stop)
	<-done
	return result, err
}
