package handlers

import (
	"context"

	"github.com/futig/knowledge-console/internal/entity"
	"github.com/futig/knowledge-console/internal/usecase/ingest"
	"github.com/futig/knowledge-console/internal/usecase/session"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// BotAPI is the part of *tgbotapi.BotAPI the handlers use
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// SessionRegistry hands out the per-chat session
type SessionRegistry interface {
	Ensure(ctx context.Context, id string) *session.Session
	End(ctx context.Context, id string) error
}

// IngestClient defines the ingestion operations available from chat
type IngestClient interface {
	IngestByPath(ctx context.Context, paths []string, opts ...ingest.Option) (*entity.StatusResponse, error)
	IngestUpload(ctx context.Context, files []entity.FileData, opts ...ingest.Option) (*entity.IngestUploadResponse, error)
	Rebuild(ctx context.Context) (*entity.StatusResponse, error)
	GetStatus(ctx context.Context) (*entity.IngestStatus, error)
}

type UploadValidator interface {
	ValidateUpload(files []entity.FileData) error
}

type FeedbackSubmitter interface {
	Submit(ctx context.Context, req *entity.FeedbackRequest) (*entity.StatusResponse, error)
}
