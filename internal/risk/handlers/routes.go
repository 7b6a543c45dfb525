package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all risk routes
func (h *RiskHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/risk", func(r chi.Router) {
		r.Post("/assess", h.HandleAssessAll)
		r.Get("/summary", h.HandleSummary)
	})
}
