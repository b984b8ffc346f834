package handlers

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Handler kinds
const (
	HandlerKindCommand  = "COMMAND"
	HandlerKindText     = "TEXT"
	HandlerKindDocument = "DOCUMENT"
	HandlerKindCallback = "CALLBACK"
)

// Message represents a normalized Telegram message
type Message struct {
	ChatID       int64
	UserID       int64
	MessageID    int
	Text         string
	Command      string
	Args         string
	Document     *tgbotapi.Document
	CallbackData string
	CallbackID   string
}

// Handler processes one kind of update
type Handler interface {
	Handle(ctx context.Context, msg *Message) error

	// Kind returns the update kind this handler manages
	Kind() string
}

// BaseHandler provides common functionality for all handlers
type BaseHandler struct {
	kind          string
	messageSender *MessageSender
}

// Kind implements Handler
func (h *BaseHandler) Kind() string {
	return h.kind
}

// sendMessage is a convenience wrapper for messageSender.Send
func (h *BaseHandler) sendMessage(chatID int64, text string, markup interface{}) {
	if h.messageSender != nil {
		h.messageSender.Send(chatID, text, markup)
	}
}

var validKinds = map[string]bool{
	HandlerKindCommand:  true,
	HandlerKindText:     true,
	HandlerKindDocument: true,
	HandlerKindCallback: true,
}

// IsValidKind checks if a kind is valid for handler registration
func IsValidKind(kind string) bool {
	_, ok := validKinds[kind]
	return ok
}

// ChatSessionID is the session a chat's conversation lives in.
func ChatSessionID(chatID int64) string {
	return fmt.Sprintf("chat-%d", chatID)
}
