package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all notification routes
func (h *NotificationHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Get("/unread-count", h.HandleUnreadCount)
		r.Post("/read-all", h.HandleMarkAllRead)
		r.Post("/{id}/read", h.HandleMarkRead)
	})
}
