package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all exception routes
func (h *ExceptionHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/exceptions", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleCreate)
		r.Delete("/{id}", h.HandleDelete)
	})
}
