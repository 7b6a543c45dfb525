// Package handlers provides HTTP handlers for the risk assessment API.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/harborline/harborwatch/internal/risk"
)

// BulkAssessor runs a full sweep over the active containers
type BulkAssessor interface {
	AssessAll() (risk.BulkResult, error)
}

// RiskCounter reports container counts per risk bucket
type RiskCounter interface {
	CountByRiskLevel() (map[string]int, error)
}

// RiskHandlers contains HTTP handlers for the risk API
type RiskHandlers struct {
	log      zerolog.Logger
	assessor BulkAssessor
	counter  RiskCounter
}

// NewRiskHandlers creates a new risk handlers instance
func NewRiskHandlers(assessor BulkAssessor, counter RiskCounter, log zerolog.Logger) *RiskHandlers {
	return &RiskHandlers{
		assessor: assessor,
		counter:  counter,
		log:      log.With().Str("handler", "risk").Logger(),
	}
}

// HandleAssessAll triggers an immediate bulk assessment sweep
// POST /api/risk/assess
func (h *RiskHandlers) HandleAssessAll(w http.ResponseWriter, r *http.Request) {
	result, err := h.assessor.AssessAll()
	if err != nil {
		h.log.Error().Err(err).Msg("Bulk risk assessment failed")
		h.writeError(w, http.StatusInternalServerError, "Bulk risk assessment failed")
		return
	}

	h.writeData(w, http.StatusOK, result)
}

// HandleSummary returns container counts per risk bucket
// GET /api/risk/summary
func (h *RiskHandlers) HandleSummary(w http.ResponseWriter, r *http.Request) {
	counts, err := h.counter.CountByRiskLevel()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to build risk summary")
		h.writeError(w, http.StatusInternalServerError, "Failed to build risk summary")
		return
	}

	h.writeData(w, http.StatusOK, counts)
}

// writeJSON writes a JSON response
func (h *RiskHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeData wraps a payload in the standard response envelope
func (h *RiskHandlers) writeData(w http.ResponseWriter, status int, data interface{}) {
	h.writeJSON(w, status, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// writeError writes an error response
func (h *RiskHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{
		"error": message,
	})
}
