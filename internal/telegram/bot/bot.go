package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/futig/knowledge-console/internal/config"
	"github.com/futig/knowledge-console/internal/pkg/logger"
	"github.com/futig/knowledge-console/internal/telegram/handlers"
	"github.com/futig/knowledge-console/internal/telegram/middleware"
	"github.com/futig/knowledge-console/internal/telegram/render"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// ErrShutdownTimeout is returned by Stop when in-flight updates outlive
// the configured shutdown timeout.
var ErrShutdownTimeout = errors.New("shutdown timeout exceeded")

// Bot long-polls Telegram and dispatches every update through the
// middleware chain to the handler registered for its kind.
type Bot struct {
	api      *tgbotapi.BotAPI
	cfg      *config.TelegramConfig
	log      *zap.Logger
	handlers map[string]handlers.Handler
	pipeline middleware.UpdateFunc

	cancel   context.CancelFunc
	inflight sync.WaitGroup
}

// New authorizes against the Bot API.
func New(cfg *config.TelegramConfig, log *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("create bot API: %w", err)
	}

	log.Info("telegram bot authorized",
		zap.String("username", api.Self.UserName),
		zap.Int64("id", api.Self.ID),
	)

	b := &Bot{
		api:      api,
		cfg:      cfg,
		log:      log,
		handlers: make(map[string]handlers.Handler),
	}
	// rate limiting runs before logging so dropped floods stay quiet
	b.pipeline = middleware.Chain(b.dispatch,
		middleware.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst, api).Middleware(),
		middleware.Logging(),
		middleware.Recovery(api),
	)
	return b, nil
}

// Start begins polling. It returns immediately.
func (b *Bot) Start(ctx context.Context) error {
	ctx, b.cancel = context.WithCancel(ctxzap.ToContext(ctx, b.log))

	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.UpdateTimeout
	updates := b.api.GetUpdatesChan(u)

	go b.poll(ctx, updates)

	b.log.Info("telegram bot started", zap.Int("update_timeout", b.cfg.UpdateTimeout))
	return nil
}

// Stop ends polling and waits for in-flight updates.
func (b *Bot) Stop() error {
	b.log.Info("stopping telegram bot")
	if b.cancel != nil {
		b.cancel()
	}
	b.api.StopReceivingUpdates()

	done := make(chan struct{})
	go func() {
		b.inflight.Wait()
		close(done)
	}()

	timeout := time.Duration(b.cfg.ShutdownTimeout) * time.Second
	select {
	case <-done:
		b.log.Info("telegram bot stopped")
		return nil
	case <-time.After(timeout):
		b.log.Warn("in-flight updates did not finish", zap.Duration("timeout", timeout))
		return ErrShutdownTimeout
	}
}

func (b *Bot) poll(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			ctxzap.Info(ctx, "update polling stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.inflight.Add(1)
			go func() {
				defer b.inflight.Done()
				b.pipeline(ctx, update)
			}()
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	var (
		msg  *handlers.Message
		kind string
	)
	switch {
	case update.CallbackQuery != nil:
		msg, kind = b.fromCallback(update.CallbackQuery)
	case update.Message != nil:
		msg, kind = fromMessage(update.Message)
	}
	if msg == nil {
		return
	}

	ctx = logger.AddFields(ctx, zap.String("kind", kind))

	handler, ok := b.handlers[kind]
	if !ok {
		ctxzap.Warn(ctx, "no handler for update kind")
		if msg.CallbackID != "" {
			b.answerCallback(ctx, msg.CallbackID, "❌ Not available")
		}
		return
	}

	if msg.CallbackID != "" {
		// acknowledge first so the client stops its spinner
		b.answerCallback(ctx, msg.CallbackID, "⏳")
	}

	if err := handler.Handle(ctx, msg); err != nil {
		ctxzap.Error(ctx, "handler failed", zap.Error(err))
		b.send(ctx, msg.ChatID, render.ErrGeneric)
	}
}

// fromMessage returns nil for messages without text, command or document.
func fromMessage(m *tgbotapi.Message) (*handlers.Message, string) {
	msg := &handlers.Message{
		ChatID:    m.Chat.ID,
		MessageID: m.MessageID,
		Text:      m.Text,
		Document:  m.Document,
	}
	if m.From != nil {
		msg.UserID = m.From.ID
	}

	switch {
	case m.IsCommand():
		msg.Command = m.Command()
		msg.Args = m.CommandArguments()
		return msg, handlers.HandlerKindCommand
	case m.Document != nil:
		return msg, handlers.HandlerKindDocument
	case m.Text != "":
		return msg, handlers.HandlerKindText
	}
	return nil, ""
}

func (b *Bot) fromCallback(q *tgbotapi.CallbackQuery) (*handlers.Message, string) {
	if q.Message == nil {
		// the message with the keyboard is gone
		b.answerCallback(context.Background(), q.ID, "")
		return nil, ""
	}
	return &handlers.Message{
		ChatID:       q.Message.Chat.ID,
		UserID:       q.From.ID,
		MessageID:    q.Message.MessageID,
		CallbackData: q.Data,
		CallbackID:   q.ID,
	}, handlers.HandlerKindCallback
}

func (b *Bot) send(ctx context.Context, chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		ctxzap.Error(ctx, "failed to send message", zap.Error(err))
	}
}

func (b *Bot) answerCallback(ctx context.Context, callbackID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		ctxzap.Error(ctx, "failed to answer callback",
			zap.Error(err),
			zap.String("callback_id", callbackID),
		)
	}
}

// RegisterHandler registers a handler for its kind. It panics on an
// unknown kind.
func (b *Bot) RegisterHandler(handler handlers.Handler) {
	kind := handler.Kind()
	if !handlers.IsValidKind(kind) {
		panic(fmt.Sprintf("telegram: invalid handler kind %q", kind))
	}
	b.handlers[kind] = handler
	b.log.Debug("handler registered", zap.String("kind", kind))
}

// API exposes the authorized client to handlers.
func (b *Bot) API() *tgbotapi.BotAPI {
	return b.api
}
