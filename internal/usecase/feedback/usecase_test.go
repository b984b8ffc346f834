package feedback

import (
	"context"
	"errors"
	"testing"

	"github.com/futig/knowledge-console/internal/entity"
)

type recordingBackend struct {
	requests []*entity.FeedbackRequest
}

func (b *recordingBackend) Feedback(ctx context.Context, req *entity.FeedbackRequest) (*entity.StatusResponse, error) {
	b.requests = append(b.requests, req)
	return &entity.StatusResponse{Status: "ok"}, nil
}

func TestSubmit(t *testing.T) {
	backend := &recordingBackend{}
	uc := NewUsecase(backend)

	resp, err := uc.Submit(context.Background(), &entity.FeedbackRequest{InteractionID: "abc", Rating: 5})
	if err != nil || resp.Status != "ok" {
		t.Fatalf("submit failed: %v %+v", err, resp)
	}

	_, err = uc.Submit(context.Background(), &entity.FeedbackRequest{InteractionID: "abc", Rating: 9})
	if !errors.Is(err, entity.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(backend.requests) != 1 {
		t.Errorf("invalid feedback reached the backend: %d calls", len(backend.requests))
	}
}
