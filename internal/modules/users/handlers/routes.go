package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all user routes
func (h *UserHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleCreate)
		r.Delete("/{id}", h.HandleDelete)
	})
}
