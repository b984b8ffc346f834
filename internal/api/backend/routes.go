package backend

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers backend passthrough routes
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/backend/health", h.Health)
	r.Post("/feedback", h.Feedback)
}
