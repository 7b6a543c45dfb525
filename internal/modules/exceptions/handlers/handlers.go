// Package handlers provides HTTP handlers for operational exceptions.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/harborline/harborwatch/internal/domain"
	"github.com/harborline/harborwatch/internal/modules/exceptions"
)

// ExceptionHandlers contains HTTP handlers for the exceptions API
type ExceptionHandlers struct {
	log  zerolog.Logger
	repo *exceptions.Repository
}

// NewExceptionHandlers creates a new exception handlers instance
func NewExceptionHandlers(repo *exceptions.Repository, log zerolog.Logger) *ExceptionHandlers {
	return &ExceptionHandlers{
		repo: repo,
		log:  log.With().Str("handler", "exceptions").Logger(),
	}
}

// HandleList returns all exceptions, newest first
// GET /api/exceptions
func (h *ExceptionHandlers) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.List()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list exceptions")
		h.writeError(w, http.StatusInternalServerError, "Failed to list exceptions")
		return
	}

	h.writeData(w, http.StatusOK, list)
}

// HandleCreate raises a manual exception against a container. The category is
// forced to manual - risk-alert exceptions can only come from the engine.
// POST /api/exceptions
func (h *ExceptionHandlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ContainerID string `json:"container_id"`
		Type        string `json:"type"`
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ContainerID == "" || req.Title == "" {
		h.writeError(w, http.StatusBadRequest, "container_id and title are required")
		return
	}

	created, err := h.repo.Create(domain.Exception{
		ContainerID: req.ContainerID,
		Category:    domain.CategoryManual,
		Type:        domain.ExceptionType(req.Type),
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		h.log.Error().Err(err).Str("container_id", req.ContainerID).Msg("Failed to create exception")
		h.writeError(w, http.StatusInternalServerError, "Failed to create exception")
		return
	}

	h.writeData(w, http.StatusCreated, created)
}

// HandleDelete resolves (removes) an exception
// DELETE /api/exceptions/{id}
func (h *ExceptionHandlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.repo.Delete(id); err != nil {
		h.writeError(w, http.StatusNotFound, "Exception not found")
		return
	}

	h.writeData(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// writeJSON writes a JSON response
func (h *ExceptionHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeData wraps a payload in the standard response envelope
func (h *ExceptionHandlers) writeData(w http.ResponseWriter, status int, data interface{}) {
	h.writeJSON(w, status, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// writeError writes an error response
func (h *ExceptionHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{
		"error": message,
	})
}
