package ingest

import (
	"context"

	"github.com/futig/knowledge-console/internal/entity"
)

type Backend interface {
	Ingest(ctx context.Context, req *entity.IngestRequest) (*entity.StatusResponse, error)
	IngestUpload(ctx context.Context, req *entity.IngestUploadRequest) (*entity.IngestUploadResponse, error)
	Rebuild(ctx context.Context) (*entity.StatusResponse, error)
	IngestStatus(ctx context.Context) (*entity.IngestStatus, error)
}
