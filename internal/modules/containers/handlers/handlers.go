// Package handlers provides HTTP handlers for container tracking.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/harborline/harborwatch/internal/domain"
	"github.com/harborline/harborwatch/internal/modules/containers"
	"github.com/harborline/harborwatch/internal/risk"
)

// RiskAssessor runs a single-container assessment with full side effects
type RiskAssessor interface {
	UpdateContainerRisk(c domain.Container) (risk.Assessment, error)
}

// ExceptionLister lists exceptions attached to a container
type ExceptionLister interface {
	ListByContainer(containerID string) ([]domain.Exception, error)
}

// ContainerHandlers contains HTTP handlers for the containers API
type ContainerHandlers struct {
	log        zerolog.Logger
	repo       *containers.Repository
	assessor   RiskAssessor
	exceptions ExceptionLister
}

// NewContainerHandlers creates a new container handlers instance
func NewContainerHandlers(
	repo *containers.Repository,
	assessor RiskAssessor,
	exceptions ExceptionLister,
	log zerolog.Logger,
) *ContainerHandlers {
	return &ContainerHandlers{
		repo:       repo,
		assessor:   assessor,
		exceptions: exceptions,
		log:        log.With().Str("handler", "containers").Logger(),
	}
}

// containerRequest is the mutable subset of a container accepted from clients.
// Risk fields are deliberately absent: they are derived and engine-owned.
type containerRequest struct {
	ContainerNumber string     `json:"container_number"`
	BillOfLading    string     `json:"bill_of_lading"`
	Carrier         string     `json:"carrier"`
	Origin          string     `json:"origin"`
	Destination     string     `json:"destination"`
	VesselName      string     `json:"vessel_name"`
	Terminal        string     `json:"terminal"`
	RailCarrier     string     `json:"rail_carrier"`
	Status          string     `json:"status"`
	ETA             *time.Time `json:"eta"`
	LastFreeDay     *time.Time `json:"last_free_day"`
	HoldTypes       []string   `json:"hold_types"`
}

// HandleList returns tracked containers, optionally only the active ones
// GET /api/containers?active=true
func (h *ContainerHandlers) HandleList(w http.ResponseWriter, r *http.Request) {
	var list []domain.Container
	var err error

	if r.URL.Query().Get("active") == "true" {
		list, err = h.repo.GetAllActive()
	} else {
		list, err = h.repo.List()
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list containers")
		h.writeError(w, http.StatusInternalServerError, "Failed to list containers")
		return
	}

	h.writeData(w, http.StatusOK, list)
}

// HandleGet returns a single container
// GET /api/containers/{id}
func (h *ContainerHandlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	c, err := h.repo.GetByID(chi.URLParam(r, "id"))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get container")
		h.writeError(w, http.StatusInternalServerError, "Failed to get container")
		return
	}
	if c == nil {
		h.writeError(w, http.StatusNotFound, "Container not found")
		return
	}

	h.writeData(w, http.StatusOK, c)
}

// HandleCreate registers a new container for tracking
// POST /api/containers
func (h *ContainerHandlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req containerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ContainerNumber == "" {
		h.writeError(w, http.StatusBadRequest, "container_number is required")
		return
	}

	status := domain.ContainerStatus(req.Status)
	if req.Status != "" && !status.IsValid() {
		h.writeError(w, http.StatusBadRequest, "Invalid status: "+req.Status)
		return
	}

	created, err := h.repo.Create(domain.Container{
		ContainerNumber: req.ContainerNumber,
		BillOfLading:    req.BillOfLading,
		Carrier:         req.Carrier,
		Origin:          req.Origin,
		Destination:     req.Destination,
		VesselName:      req.VesselName,
		Terminal:        req.Terminal,
		RailCarrier:     req.RailCarrier,
		Status:          status,
		ETA:             req.ETA,
		LastFreeDay:     req.LastFreeDay,
		HoldTypes:       req.HoldTypes,
	})
	if err != nil {
		h.log.Error().Err(err).Str("container_number", req.ContainerNumber).Msg("Failed to create container")
		h.writeError(w, http.StatusInternalServerError, "Failed to create container")
		return
	}

	h.writeData(w, http.StatusCreated, created)
}

// HandleUpdate updates a container's tracking fields and re-assesses its risk.
// The re-assessment runs after the write so user edits (a new LFD, a cleared
// hold) are reflected in the risk fields immediately instead of waiting for
// the next sync cycle.
// PUT /api/containers/{id}
func (h *ContainerHandlers) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	existing, err := h.repo.GetByID(chi.URLParam(r, "id"))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get container")
		h.writeError(w, http.StatusInternalServerError, "Failed to get container")
		return
	}
	if existing == nil {
		h.writeError(w, http.StatusNotFound, "Container not found")
		return
	}

	var req containerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	status := domain.ContainerStatus(req.Status)
	if req.Status != "" && !status.IsValid() {
		h.writeError(w, http.StatusBadRequest, "Invalid status: "+req.Status)
		return
	}
	if req.Status == "" {
		status = existing.Status
	}

	updated := *existing
	updated.BillOfLading = req.BillOfLading
	updated.Carrier = req.Carrier
	updated.Origin = req.Origin
	updated.Destination = req.Destination
	updated.VesselName = req.VesselName
	updated.Terminal = req.Terminal
	updated.RailCarrier = req.RailCarrier
	updated.Status = status
	updated.ETA = req.ETA
	updated.LastFreeDay = req.LastFreeDay
	updated.HoldTypes = req.HoldTypes
	updated.UpdatedAt = time.Now()

	if err := h.repo.Update(updated); err != nil {
		h.log.Error().Err(err).Str("container_id", updated.ID).Msg("Failed to update container")
		h.writeError(w, http.StatusInternalServerError, "Failed to update container")
		return
	}

	if h.assessor != nil {
		if _, err := h.assessor.UpdateContainerRisk(updated); err != nil {
			// The update itself succeeded; the next sweep will retry the
			// assessment, so log and keep going.
			h.log.Error().Err(err).Str("container_id", updated.ID).Msg("Post-update risk assessment failed")
		}
	}

	fresh, err := h.repo.GetByID(updated.ID)
	if err != nil || fresh == nil {
		h.log.Error().Err(err).Msg("Failed to reload container after update")
		h.writeError(w, http.StatusInternalServerError, "Failed to reload container")
		return
	}

	h.writeData(w, http.StatusOK, fresh)
}

// HandleDelete removes a container and its exceptions
// DELETE /api/containers/{id}
func (h *ContainerHandlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.repo.Delete(id); err != nil {
		h.log.Error().Err(err).Str("container_id", id).Msg("Failed to delete container")
		h.writeError(w, http.StatusNotFound, "Container not found")
		return
	}

	h.writeData(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// HandleListExceptions returns the exceptions attached to a container
// GET /api/containers/{id}/exceptions
func (h *ContainerHandlers) HandleListExceptions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	c, err := h.repo.GetByID(id)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to get container")
		return
	}
	if c == nil {
		h.writeError(w, http.StatusNotFound, "Container not found")
		return
	}

	list, err := h.exceptions.ListByContainer(id)
	if err != nil {
		h.log.Error().Err(err).Str("container_id", id).Msg("Failed to list container exceptions")
		h.writeError(w, http.StatusInternalServerError, "Failed to list exceptions")
		return
	}

	h.writeData(w, http.StatusOK, list)
}

// HandleAssess runs an on-demand risk assessment for one container
// POST /api/containers/{id}/assess
func (h *ContainerHandlers) HandleAssess(w http.ResponseWriter, r *http.Request) {
	c, err := h.repo.GetByID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to get container")
		return
	}
	if c == nil {
		h.writeError(w, http.StatusNotFound, "Container not found")
		return
	}

	assessment, err := h.assessor.UpdateContainerRisk(*c)
	if err != nil {
		h.log.Error().Err(err).Str("container_id", c.ID).Msg("Risk assessment failed")
		h.writeError(w, http.StatusInternalServerError, "Risk assessment failed")
		return
	}

	h.writeData(w, http.StatusOK, assessment)
}

// Helper methods

// writeJSON writes a JSON response
func (h *ContainerHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeData wraps a payload in the standard response envelope
func (h *ContainerHandlers) writeData(w http.ResponseWriter, status int, data interface{}) {
	h.writeJSON(w, status, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// writeError writes an error response
func (h *ContainerHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{
		"error": message,
	})
}
