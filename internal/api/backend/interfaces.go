package backend

import (
	"context"

	"github.com/futig/knowledge-console/internal/entity"
)

type HealthChecker interface {
	Health(ctx context.Context) (*entity.StatusResponse, error)
	BaseURL() string
}

type FeedbackSubmitter interface {
	Submit(ctx context.Context, req *entity.FeedbackRequest) (*entity.StatusResponse, error)
}
