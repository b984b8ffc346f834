package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/futig/knowledge-console/internal/entity"
	"github.com/futig/knowledge-console/internal/pkg/formatter"
	"github.com/futig/knowledge-console/internal/telegram/keyboard"
	"github.com/futig/knowledge-console/internal/telegram/render"
	"go.uber.org/zap"
)

// Deps holds everything the chat handlers need
type Deps struct {
	Bot         BotAPI
	Sessions    SessionRegistry
	Ingest      IngestClient
	Validator   UploadValidator
	Feedback    FeedbackSubmitter
	Formatters  *formatter.Factory
	Keyboard    *keyboard.Builder
	MaxFileSize int64
	Logger      *zap.Logger
}

// actions are the operations reachable both by command and by button
type actions struct {
	BaseHandler
	deps Deps
}

func newActions(kind string, deps Deps) actions {
	if deps.Keyboard == nil {
		deps.Keyboard = keyboard.NewBuilder()
	}
	if deps.Formatters == nil {
		deps.Formatters = formatter.NewFactory()
	}
	return actions{
		BaseHandler: BaseHandler{
			kind:          kind,
			messageSender: NewMessageSender(deps.Bot, deps.Logger),
		},
		deps: deps,
	}
}

func (a *actions) sendSources(ctx context.Context, chatID int64) error {
	s := a.deps.Sessions.Ensure(ctx, ChatSessionID(chatID))
	latest := s.Queries.Latest()
	if latest == nil {
		a.sendMessage(chatID, render.MsgNoAnswerYet, nil)
		return nil
	}
	a.sendMessage(chatID, render.Sources(latest), nil)
	return nil
}

func (a *actions) sendMetrics(ctx context.Context, chatID int64) error {
	s := a.deps.Sessions.Ensure(ctx, ChatSessionID(chatID))
	latest := s.Queries.Latest()
	if latest == nil {
		a.sendMessage(chatID, render.MsgNoAnswerYet, nil)
		return nil
	}
	a.sendMessage(chatID, render.Metrics(latest), nil)
	return nil
}

func (a *actions) exportTranscript(ctx context.Context, chatID int64, rawFormat string) error {
	format, err := entity.ParseExportFormat(rawFormat)
	if err != nil {
		return err
	}

	s := a.deps.Sessions.Ensure(ctx, ChatSessionID(chatID))
	messages := s.Store.Messages()
	if len(messages) == 0 {
		a.sendMessage(chatID, render.MsgEmptyTranscript, nil)
		return nil
	}

	f, err := a.deps.Formatters.Create(format)
	if err != nil {
		return err
	}

	transcript := &entity.Transcript{
		SessionID:  s.ID,
		ExportedAt: time.Now(),
		Messages:   messages,
	}
	data, err := f.Format(transcript)
	if err != nil {
		return fmt.Errorf("format transcript: %w", err)
	}

	return a.messageSender.SendDocument(chatID, formatter.FileName(transcript, f), data)
}

func (a *actions) submitFeedback(ctx context.Context, chatID int64, rating int, comment string) error {
	s := a.deps.Sessions.Ensure(ctx, ChatSessionID(chatID))
	latest := s.Queries.Latest()
	if latest == nil {
		a.sendMessage(chatID, render.MsgNoAnswerYet, nil)
		return nil
	}

	req := &entity.FeedbackRequest{
		InteractionID: latest.InteractionID(s.ID),
		Rating:        rating,
	}
	if c := strings.TrimSpace(comment); c != "" {
		req.Comment = &c
	}

	if _, err := a.deps.Feedback.Submit(ctx, req); err != nil {
		return err
	}
	a.sendMessage(chatID, render.MsgFeedbackThanks, nil)
	return nil
}
