package keyboard

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Callback actions
const (
	ActionSources  = "src"
	ActionMetrics  = "met"
	ActionFeedback = "fb"
	ActionExport   = "exp"

	FeedbackUp   = "up"
	FeedbackDown = "down"
)

// Builder creates inline keyboards
type Builder struct{}

// NewBuilder creates a keyboard builder
func NewBuilder() *Builder {
	return &Builder{}
}

// AnswerKeyboard is attached to every answer
func (b *Builder) AnswerKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📚 Sources", EncodeCallback(ActionSources, "latest")),
			tgbotapi.NewInlineKeyboardButtonData("📊 Metrics", EncodeCallback(ActionMetrics, "latest")),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👍", EncodeCallback(ActionFeedback, FeedbackUp)),
			tgbotapi.NewInlineKeyboardButtonData("👎", EncodeCallback(ActionFeedback, FeedbackDown)),
		),
	)
}

// ExportKeyboard offers the transcript formats
func (b *Builder) ExportKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📝 Markdown", EncodeCallback(ActionExport, "md")),
			tgbotapi.NewInlineKeyboardButtonData("📕 PDF", EncodeCallback(ActionExport, "pdf")),
			tgbotapi.NewInlineKeyboardButtonData("📘 Word", EncodeCallback(ActionExport, "docx")),
		),
	)
}
