package handlers

import (
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	maxSendRetries = 3
	retrySleepBase = time.Second
)

// MessageSender provides centralized message sending functionality.
// Text is sent with Telegram's HTML parse mode.
type MessageSender struct {
	bot        BotAPI
	logger     *zap.Logger
	retryDelay time.Duration
}

// NewMessageSender creates a new MessageSender
func NewMessageSender(bot BotAPI, logger *zap.Logger) *MessageSender {
	return &MessageSender{
		bot:        bot,
		logger:     logger,
		retryDelay: retrySleepBase,
	}
}

// Send sends a message to the specified chat
func (s *MessageSender) Send(chatID int64, text string, markup interface{}) error {
	_, err := s.bot.Send(newMessage(chatID, text, markup))
	if err != nil {
		s.logger.Error("failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
		)
		return err
	}

	return nil
}

// SendCritical retries delivery with backoff. Used for answers, which the
// user cannot ask for again without spending another query.
func (s *MessageSender) SendCritical(chatID int64, text string, markup interface{}) error {
	msg := newMessage(chatID, text, markup)

	err := retry.Do(
		func() error {
			_, err := s.bot.Send(msg)
			return err
		},
		retry.Attempts(maxSendRetries),
		retry.Delay(s.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Warn("failed to send message, retrying",
				zap.Error(err),
				zap.Uint("attempt", n+1),
				zap.Int("max_retries", maxSendRetries),
				zap.Int64("chat_id", chatID),
			)
		}),
	)
	if err != nil {
		s.logger.Error("failed to send message after all retries",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
		)
	}
	return err
}

// SendDocument sends a file
func (s *MessageSender) SendDocument(chatID int64, filename string, data []byte) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  filename,
		Bytes: data,
	})
	if _, err := s.bot.Send(doc); err != nil {
		return fmt.Errorf("send document: %w", err)
	}
	return nil
}

func newMessage(chatID int64, text string, markup interface{}) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	return msg
}
