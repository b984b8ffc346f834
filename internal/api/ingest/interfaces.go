package ingest

import (
	"context"

	"github.com/futig/knowledge-console/internal/entity"
	"github.com/futig/knowledge-console/internal/usecase/ingest"
)

type IngestClient interface {
	IngestByPath(ctx context.Context, paths []string, opts ...ingest.Option) (*entity.StatusResponse, error)
	IngestUpload(ctx context.Context, files []entity.FileData, opts ...ingest.Option) (*entity.IngestUploadResponse, error)
	Rebuild(ctx context.Context) (*entity.StatusResponse, error)
	GetStatus(ctx context.Context) (*entity.IngestStatus, error)
	CachedStatus() (*entity.IngestStatus, bool)
}

type UploadValidator interface {
	ValidateUpload(files []entity.FileData) error
}
