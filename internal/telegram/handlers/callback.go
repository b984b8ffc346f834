package handlers

import (
	"context"

	"github.com/futig/knowledge-console/internal/telegram/keyboard"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	ratingUp   = 5
	ratingDown = 1
)

// CallbackHandler serves inline keyboard buttons
type CallbackHandler struct {
	actions
}

func NewCallbackHandler(deps Deps) *CallbackHandler {
	return &CallbackHandler{actions: newActions(HandlerKindCallback, deps)}
}

// Handle implements Handler
func (h *CallbackHandler) Handle(ctx context.Context, msg *Message) error {
	data, err := keyboard.ParseCallback(msg.CallbackData)
	if err != nil {
		return err
	}

	ctxzap.Debug(ctx, "callback",
		zap.String("action", data.Action),
		zap.String("value", data.Value),
	)

	switch data.Action {
	case keyboard.ActionSources:
		err = h.sendSources(ctx, msg.ChatID)
	case keyboard.ActionMetrics:
		err = h.sendMetrics(ctx, msg.ChatID)
	case keyboard.ActionExport:
		err = h.exportTranscript(ctx, msg.ChatID, data.Value)
	case keyboard.ActionFeedback:
		rating := ratingDown
		if data.Value == keyboard.FeedbackUp {
			rating = ratingUp
		}
		err = h.submitFeedback(ctx, msg.ChatID, rating, "")
	}

	if err != nil {
		h.HandleError(ctx, msg.ChatID, err)
	}
	return nil
}
