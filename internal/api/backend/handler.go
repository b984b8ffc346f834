package backend

import (
	"encoding/json"
	"net/http"

	"github.com/futig/knowledge-console/internal/entity"
	"github.com/futig/knowledge-console/internal/pkg/logger"
	"github.com/futig/knowledge-console/internal/pkg/response"
)

type HealthDTO struct {
	Backend string `json:"backend"`
	Status  string `json:"status"`
}

type Handler struct {
	health   HealthChecker
	feedback FeedbackSubmitter
}

func NewHandler(health HealthChecker, feedback FeedbackSubmitter) *Handler {
	return &Handler{
		health:   health,
		feedback: feedback,
	}
}

// Health handles GET /backend/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "BackendHealth")

	resp, err := h.health.Health(ctx)
	if err != nil {
		response.HandleError(ctx, w, err)
		return
	}
	response.Success(w, HealthDTO{Backend: h.health.BaseURL(), Status: resp.Status})
}

// Feedback handles POST /feedback
func (h *Handler) Feedback(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "Feedback")

	var req entity.FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	resp, err := h.feedback.Submit(ctx, &req)
	if err != nil {
		response.HandleError(ctx, w, err)
		return
	}

	response.Success(w, resp)
}
