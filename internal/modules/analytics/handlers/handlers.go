// Package handlers provides HTTP handlers for fleet analytics.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/harborline/harborwatch/internal/modules/analytics"
)

// AnalyticsHandlers contains HTTP handlers for the analytics API
type AnalyticsHandlers struct {
	log     zerolog.Logger
	service *analytics.Service
}

// NewAnalyticsHandlers creates a new analytics handlers instance
func NewAnalyticsHandlers(service *analytics.Service, log zerolog.Logger) *AnalyticsHandlers {
	return &AnalyticsHandlers{
		service: service,
		log:     log.With().Str("handler", "analytics").Logger(),
	}
}

// HandleFleetStats returns the fleet risk distribution
// GET /api/analytics/fleet
func (h *AnalyticsHandlers) HandleFleetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.FleetStats()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to compute fleet stats")
		h.writeError(w, http.StatusInternalServerError, "Failed to compute fleet stats")
		return
	}

	h.writeData(w, http.StatusOK, stats)
}

// HandleHotContainers returns the highest-risk containers
// GET /api/analytics/hot?limit=10
func (h *AnalyticsHandlers) HandleHotContainers(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		if parsed, err := strconv.Atoi(limitParam); err == nil {
			limit = parsed
		}
	}

	hot, err := h.service.HotContainers(limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to compute hot containers")
		h.writeError(w, http.StatusInternalServerError, "Failed to compute hot containers")
		return
	}

	h.writeData(w, http.StatusOK, hot)
}

// writeJSON writes a JSON response
func (h *AnalyticsHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeData wraps a payload in the standard response envelope
func (h *AnalyticsHandlers) writeData(w http.ResponseWriter, status int, data interface{}) {
	h.writeJSON(w, status, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// writeError writes an error response
func (h *AnalyticsHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{
		"error": message,
	})
}
