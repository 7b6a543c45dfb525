// Package handlers provides HTTP handlers for dashboard users.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/harborline/harborwatch/internal/domain"
	"github.com/harborline/harborwatch/internal/modules/users"
)

// UserHandlers contains HTTP handlers for the users API
type UserHandlers struct {
	log  zerolog.Logger
	repo *users.Repository
}

// NewUserHandlers creates a new user handlers instance
func NewUserHandlers(repo *users.Repository, log zerolog.Logger) *UserHandlers {
	return &UserHandlers{
		repo: repo,
		log:  log.With().Str("handler", "users").Logger(),
	}
}

// HandleList returns all users
// GET /api/users
func (h *UserHandlers) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.GetAll()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list users")
		h.writeError(w, http.StatusInternalServerError, "Failed to list users")
		return
	}

	h.writeData(w, http.StatusOK, list)
}

// HandleCreate registers a new user
// POST /api/users
func (h *UserHandlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" {
		h.writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	created, err := h.repo.Create(domain.User{Email: req.Email, Name: req.Name})
	if err != nil {
		h.log.Error().Err(err).Str("email", req.Email).Msg("Failed to create user")
		h.writeError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	h.writeData(w, http.StatusCreated, created)
}

// HandleDelete removes a user
// DELETE /api/users/{id}
func (h *UserHandlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.repo.Delete(id); err != nil {
		h.writeError(w, http.StatusNotFound, "User not found")
		return
	}

	h.writeData(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// writeJSON writes a JSON response
func (h *UserHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeData wraps a payload in the standard response envelope
func (h *UserHandlers) writeData(w http.ResponseWriter, status int, data interface{}) {
	h.writeJSON(w, status, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// writeError writes an error response
func (h *UserHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{
		"error": message,
	})
}
