// Package handlers provides HTTP handlers for user notifications.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/harborline/harborwatch/internal/modules/notifications"
)

// NotificationHandlers contains HTTP handlers for the notifications API
type NotificationHandlers struct {
	log  zerolog.Logger
	repo *notifications.Repository
}

// NewNotificationHandlers creates a new notification handlers instance
func NewNotificationHandlers(repo *notifications.Repository, log zerolog.Logger) *NotificationHandlers {
	return &NotificationHandlers{
		repo: repo,
		log:  log.With().Str("handler", "notifications").Logger(),
	}
}

// HandleList returns a user's notifications, newest first
// GET /api/notifications?user_id=...&unread=true
func (h *NotificationHandlers) HandleList(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	unreadOnly := r.URL.Query().Get("unread") == "true"

	list, err := h.repo.ListForUser(userID, unreadOnly)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to list notifications")
		h.writeError(w, http.StatusInternalServerError, "Failed to list notifications")
		return
	}

	h.writeData(w, http.StatusOK, list)
}

// HandleUnreadCount returns the user's unread notification count
// GET /api/notifications/unread-count?user_id=...
func (h *NotificationHandlers) HandleUnreadCount(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	count, err := h.repo.UnreadCount(userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to count unread notifications")
		h.writeError(w, http.StatusInternalServerError, "Failed to count unread notifications")
		return
	}

	h.writeData(w, http.StatusOK, map[string]int{"unread": count})
}

// HandleMarkRead marks one notification as read
// POST /api/notifications/{id}/read
func (h *NotificationHandlers) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.repo.MarkRead(id); err != nil {
		h.writeError(w, http.StatusNotFound, "Notification not found")
		return
	}

	h.writeData(w, http.StatusOK, map[string]string{"status": "read"})
}

// HandleMarkAllRead marks all of a user's notifications as read
// POST /api/notifications/read-all
func (h *NotificationHandlers) HandleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		h.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	updated, err := h.repo.MarkAllRead(req.UserID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", req.UserID).Msg("Failed to mark all notifications read")
		h.writeError(w, http.StatusInternalServerError, "Failed to mark all notifications read")
		return
	}

	h.writeData(w, http.StatusOK, map[string]int{"updated": updated})
}

// writeJSON writes a JSON response
func (h *NotificationHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeData wraps a payload in the standard response envelope
func (h *NotificationHandlers) writeData(w http.ResponseWriter, status int, data interface{}) {
	h.writeJSON(w, status, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// writeError writes an error response
func (h *NotificationHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{
		"error": message,
	})
}
