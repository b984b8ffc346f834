package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/futig/knowledge-console/internal/entity"
	"github.com/futig/knowledge-console/internal/telegram/render"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// CommandHandler serves slash commands
type CommandHandler struct {
	actions
}

func NewCommandHandler(deps Deps) *CommandHandler {
	return &CommandHandler{actions: newActions(HandlerKindCommand, deps)}
}

// Handle implements Handler
func (h *CommandHandler) Handle(ctx context.Context, msg *Message) error {
	ctx = ctxzap.ToContext(ctx, ctxzap.Extract(ctx).With(zap.String("command", msg.Command)))

	var err error
	switch msg.Command {
	case "start":
		h.deps.Sessions.Ensure(ctx, ChatSessionID(msg.ChatID))
		h.sendMessage(msg.ChatID, render.MsgWelcome, nil)
	case "help":
		h.sendMessage(msg.ChatID, render.MsgHelp, nil)
	case "clear":
		err = h.clear(ctx, msg)
	case "sources":
		err = h.sendSources(ctx, msg.ChatID)
	case "metrics":
		err = h.sendMetrics(ctx, msg.ChatID)
	case "status":
		err = h.status(ctx, msg)
	case "ingest":
		err = h.ingest(ctx, msg)
	case "rebuild":
		err = h.rebuild(ctx, msg)
	case "export":
		if strings.TrimSpace(msg.Args) == "" {
			h.sendMessage(msg.ChatID, render.MsgChooseFormat, h.deps.Keyboard.ExportKeyboard())
			return nil
		}
		err = h.exportTranscript(ctx, msg.ChatID, strings.TrimSpace(msg.Args))
	case "feedback":
		err = h.feedback(ctx, msg)
	default:
		h.sendMessage(msg.ChatID, render.ErrUnknownCommand, nil)
	}

	if err != nil {
		h.HandleError(ctx, msg.ChatID, err)
	}
	return nil
}

func (h *CommandHandler) clear(ctx context.Context, msg *Message) error {
	s := h.deps.Sessions.Ensure(ctx, ChatSessionID(msg.ChatID))
	if err := s.Clear(); err != nil {
		return err
	}
	h.sendMessage(msg.ChatID, render.MsgCleared, nil)
	return nil
}

func (h *CommandHandler) status(ctx context.Context, msg *Message) error {
	status, err := h.deps.Ingest.GetStatus(ctx)
	if err != nil {
		return err
	}
	h.sendMessage(msg.ChatID, render.Status(status), nil)
	return nil
}

func (h *CommandHandler) ingest(ctx context.Context, msg *Message) error {
	paths := strings.Fields(msg.Args)
	if len(paths) == 0 {
		h.sendMessage(msg.ChatID, render.MsgIngestUsage, nil)
		return nil
	}

	resp, err := h.deps.Ingest.IngestByPath(ctx, paths)
	if err != nil {
		return err
	}
	h.sendMessage(msg.ChatID, fmt.Sprintf(render.MsgIngestAccepted, render.Escape(statusLine(resp))), nil)
	return nil
}

func (h *CommandHandler) rebuild(ctx context.Context, msg *Message) error {
	resp, err := h.deps.Ingest.Rebuild(ctx)
	if err != nil {
		return err
	}
	h.sendMessage(msg.ChatID, fmt.Sprintf(render.MsgRebuildStarted, render.Escape(statusLine(resp))), nil)
	return nil
}

func (h *CommandHandler) feedback(ctx context.Context, msg *Message) error {
	ratingArg, comment, _ := strings.Cut(strings.TrimSpace(msg.Args), " ")
	rating, err := strconv.Atoi(ratingArg)
	if err != nil {
		h.sendMessage(msg.ChatID, render.MsgFeedbackUsage, nil)
		return nil
	}

	err = h.submitFeedback(ctx, msg.ChatID, rating, comment)
	if errors.Is(err, entity.ErrValidation) {
		h.sendMessage(msg.ChatID, render.MsgFeedbackUsage, nil)
		return nil
	}
	return err
}

func statusLine(resp *entity.StatusResponse) string {
	if resp.Message == "" {
		return resp.Status
	}
	return resp.Status + " - " + resp.Message
}
