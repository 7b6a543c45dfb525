package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all analytics routes
func (h *AnalyticsHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/analytics", func(r chi.Router) {
		r.Get("/fleet", h.HandleFleetStats)
		r.Get("/hot", h.HandleHotContainers)
	})
}
