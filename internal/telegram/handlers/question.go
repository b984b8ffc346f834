package handlers

import (
	"context"
	"errors"

	"github.com/futig/knowledge-console/internal/entity"
	"github.com/futig/knowledge-console/internal/telegram/render"
	"github.com/futig/knowledge-console/internal/usecase/query"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// QuestionHandler answers plain text messages from the chat's conversation
type QuestionHandler struct {
	actions
}

func NewQuestionHandler(deps Deps) *QuestionHandler {
	return &QuestionHandler{actions: newActions(HandlerKindText, deps)}
}

// Handle implements Handler
func (h *QuestionHandler) Handle(ctx context.Context, msg *Message) error {
	s := h.deps.Sessions.Ensure(ctx, ChatSessionID(msg.ChatID))

	result, err := whileTyping(ctx, h.deps.Bot, msg.ChatID, func(ctx context.Context) (*query.Result, error) {
		return s.Queries.Ask(ctx, msg.Text)
	})

	switch {
	case errors.Is(err, entity.ErrEmptyQuery):
		return nil
	case errors.Is(err, entity.ErrQueryInFlight):
		h.sendMessage(msg.ChatID, render.MsgQueryPending, nil)
		return nil
	case err != nil:
		// the failure is already recorded as the assistant's reply
		ctxzap.Warn(ctx, "question failed",
			zap.Error(err),
			zap.String("session_id", s.ID),
		)
		reply := entity.ChatMessage{Content: err.Error()}
		if msgs := s.Store.Messages(); len(msgs) > 0 {
			reply = msgs[len(msgs)-1]
		}
		h.sendMessage(msg.ChatID, render.Failure(reply), nil)
		return nil
	}

	ctxzap.Info(ctx, "question answered",
		zap.String("session_id", s.ID),
		zap.Int("sources", len(result.Sources)),
	)
	return h.messageSender.SendCritical(msg.ChatID, render.Answer(result), h.deps.Keyboard.AnswerKeyboard())
}
