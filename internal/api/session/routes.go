package session

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers session routes
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.CreateSession)
		r.Get("/{id}", h.GetSession)
		r.Delete("/{id}", h.EndSession)
		r.Post("/{id}/clear", h.ClearSession)
		r.Get("/{id}/messages", h.GetMessages)
		r.Post("/{id}/messages", h.Ask)
		r.Post("/{id}/search", h.Search)
		r.Get("/{id}/sources", h.GetSources)
		r.Get("/{id}/export", h.Export)
	})
}
