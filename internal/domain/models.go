// Package domain provides core domain models and types.
package domain

import "time"

// ContainerStatus represents a container's position in the shipment lifecycle.
// The vocabulary matches the Cargoes Flow milestone codes.
type ContainerStatus string

const (
	StatusBookingConfirmed ContainerStatus = "booking-confirmed"
	StatusGateIn           ContainerStatus = "gate-in"
	StatusLoaded           ContainerStatus = "loaded"
	StatusDeparted         ContainerStatus = "departed"
	StatusInTransit        ContainerStatus = "in-transit"
	StatusArrived          ContainerStatus = "arrived"
	StatusUnloaded         ContainerStatus = "unloaded"
	StatusGateOut          ContainerStatus = "gate-out"
	StatusDelivered        ContainerStatus = "delivered"
	StatusOnRail           ContainerStatus = "on-rail"
	StatusAtTerminal       ContainerStatus = "at-terminal"
	StatusCustomsClearance ContainerStatus = "customs-clearance"
	StatusDelayed          ContainerStatus = "delayed"
)

// AllStatuses lists every valid container status
var AllStatuses = []ContainerStatus{
	StatusBookingConfirmed,
	StatusGateIn,
	StatusLoaded,
	StatusDeparted,
	StatusInTransit,
	StatusArrived,
	StatusUnloaded,
	StatusGateOut,
	StatusDelivered,
	StatusOnRail,
	StatusAtTerminal,
	StatusCustomsClearance,
	StatusDelayed,
}

// ActiveStatuses is the fixed subset of statuses considered "in motion" for
// bulk risk assessment. Deliberately excludes unloaded, gate-out, delivered
// and delayed - delayed containers are still scorable when assessed
// individually, but are not part of the periodic sweep.
var ActiveStatuses = []ContainerStatus{
	StatusBookingConfirmed,
	StatusGateIn,
	StatusLoaded,
	StatusDeparted,
	StatusInTransit,
	StatusArrived,
	StatusAtTerminal,
	StatusOnRail,
	StatusCustomsClearance,
}

// IsValid reports whether the status is part of the known vocabulary
func (s ContainerStatus) IsValid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsActive reports whether the status is in the active assessment set
func (s ContainerStatus) IsActive() bool {
	for _, active := range ActiveStatuses {
		if s == active {
			return true
		}
	}
	return false
}

// Container represents a tracked shipping container.
//
// RiskLevel and RiskReason are derived fields written exclusively by the risk
// engine; every other mutable field is written by the sync path or by user
// edits. The engine's only durable memory of "previous risk" is the stored
// RiskLevel - there is no separate assessment history table.
type Container struct {
	ID              string          `json:"id"`
	ContainerNumber string          `json:"container_number"`
	BillOfLading    string          `json:"bill_of_lading,omitempty"`
	Carrier         string          `json:"carrier,omitempty"`
	Origin          string          `json:"origin,omitempty"`
	Destination     string          `json:"destination,omitempty"`
	VesselName      string          `json:"vessel_name,omitempty"`
	Terminal        string          `json:"terminal,omitempty"`
	RailCarrier     string          `json:"rail_carrier,omitempty"`
	Status          ContainerStatus `json:"status"`
	ETA             *time.Time      `json:"eta,omitempty"`
	LastFreeDay     *time.Time      `json:"last_free_day,omitempty"`
	HoldTypes       []string        `json:"hold_types"`
	RiskLevel       RiskLevel       `json:"risk_level,omitempty"`
	RiskReason      string          `json:"risk_reason,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ExceptionCategory separates engine-owned exceptions from user-raised ones
type ExceptionCategory string

const (
	// CategoryRiskAlert is owned exclusively by the risk engine. The engine
	// keeps at most one live risk-alert exception per container.
	CategoryRiskAlert ExceptionCategory = "risk-alert"
	// CategoryManual covers exceptions raised by users or other flows
	CategoryManual ExceptionCategory = "manual"
)

// ExceptionType classifies what kind of problem an exception describes
type ExceptionType string

const (
	ExceptionDemurrageRisk     ExceptionType = "DEMURRAGE_RISK"
	ExceptionCustomsIssue      ExceptionType = "CUSTOMS_ISSUE"
	ExceptionDelay             ExceptionType = "DELAY"
	ExceptionDocumentationHold ExceptionType = "DOCUMENTATION_HOLD"
	ExceptionRiskEscalation    ExceptionType = "RISK_ESCALATION"
)

// Exception represents an operational exception tied to a container
type Exception struct {
	ID          string            `json:"id"`
	ContainerID string            `json:"container_id"`
	Category    ExceptionCategory `json:"category"`
	Type        ExceptionType     `json:"type"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	CreatedAt   time.Time         `json:"created_at"`
}

// NotificationType classifies risk-escalation notifications
type NotificationType string

const (
	NotificationDemurrageAlert NotificationType = "DEMURRAGE_ALERT"
	NotificationCustomsHold    NotificationType = "CUSTOMS_HOLD"
	NotificationDelay          NotificationType = "DELAY"
	NotificationException      NotificationType = "EXCEPTION"
)

// RiskNotificationTypes lists every notification type the risk engine emits.
// Used by the dismissal path to scope bulk updates to engine-owned records.
var RiskNotificationTypes = []NotificationType{
	NotificationDemurrageAlert,
	NotificationCustomsHold,
	NotificationDelay,
	NotificationException,
}

// EntityTypeContainer is the entity type for container-scoped notifications
const EntityTypeContainer = "CONTAINER"

// Notification represents a per-user notification record
type Notification struct {
	ID         string                 `json:"id"`
	UserID     string                 `json:"user_id"`
	Type       NotificationType       `json:"type"`
	Priority   NotificationPriority   `json:"priority"`
	Title      string                 `json:"title"`
	Message    string                 `json:"message"`
	EntityType string                 `json:"entity_type"`
	EntityID   string                 `json:"entity_id"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	IsRead     bool                   `json:"is_read"`
	ReadAt     *time.Time             `json:"read_at,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}

// User represents a dashboard user. Risk-escalation notifications fan out to
// every user - there is no per-user assignment or role filtering.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
