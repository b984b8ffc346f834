package middleware

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// UpdateFunc processes a single update.
type UpdateFunc func(ctx context.Context, update tgbotapi.Update)

// Middleware wraps an UpdateFunc.
type Middleware func(next UpdateFunc) UpdateFunc

// Chain wraps h so that mws[0] runs first.
func Chain(h UpdateFunc, mws ...Middleware) UpdateFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Sender is the part of the bot API the middlewares talk back through.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Origin identifies who sent an update.
type Origin struct {
	UserID int64
	ChatID int64
	Kind   string
}

// OriginOf reports false for update types the bot does not handle.
func OriginOf(update tgbotapi.Update) (Origin, bool) {
	switch {
	case update.Message != nil:
		m := update.Message
		o := Origin{ChatID: m.Chat.ID, Kind: "other"}
		if m.From != nil {
			o.UserID = m.From.ID
		}
		switch {
		case m.IsCommand():
			o.Kind = "command"
		case m.Document != nil:
			o.Kind = "document"
		case m.Text != "":
			o.Kind = "text"
		}
		return o, true
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		q := update.CallbackQuery
		return Origin{UserID: q.From.ID, ChatID: q.Message.Chat.ID, Kind: "callback"}, true
	}
	return Origin{}, false
}
