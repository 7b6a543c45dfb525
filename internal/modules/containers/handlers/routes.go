package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all container routes
func (h *ContainerHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/containers", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleCreate)
		r.Get("/{id}", h.HandleGet)
		r.Put("/{id}", h.HandleUpdate)
		r.Delete("/{id}", h.HandleDelete)
		r.Get("/{id}/exceptions", h.HandleListExceptions)
		r.Post("/{id}/assess", h.HandleAssess) // On-demand risk assessment
	})
}
