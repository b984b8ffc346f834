package feedback

import (
	"context"

	"github.com/futig/knowledge-console/internal/entity"
	"github.com/futig/knowledge-console/internal/pkg/validator"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

type Backend interface {
	Feedback(ctx context.Context, req *entity.FeedbackRequest) (*entity.StatusResponse, error)
}

// Usecase forwards answer ratings to the backend.
type Usecase struct {
	backend Backend
}

func NewUsecase(backend Backend) *Usecase {
	return &Usecase{backend: backend}
}

// Submit validates the rating locally; an invalid request never reaches the backend.
func (uc *Usecase) Submit(ctx context.Context, req *entity.FeedbackRequest) (*entity.StatusResponse, error) {
	if err := validator.ValidateFeedback(req); err != nil {
		return nil, err
	}

	resp, err := uc.backend.Feedback(ctx, req)
	if err != nil {
		return nil, err
	}

	ctxzap.Info(ctx, "feedback submitted",
		zap.String("interaction_id", req.InteractionID),
		zap.Int("rating", req.Rating),
	)
	return resp, nil
}
