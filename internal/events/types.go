// Package events provides the in-process event bus feeding the dashboard's
// live event stream.
package events

import "time"

// EventType represents different event types
type EventType string

const (
	RiskChanged      EventType = "RISK_CHANGED"
	ContainerUpdated EventType = "CONTAINER_UPDATED"
	SyncCompleted    EventType = "SYNC_COMPLETED"
	BackupCompleted  EventType = "BACKUP_COMPLETED"
	ErrorOccurred    EventType = "ERROR_OCCURRED"
)

// AllEventTypes lists every event type the stream can carry
var AllEventTypes = []EventType{
	RiskChanged,
	ContainerUpdated,
	SyncCompleted,
	BackupCompleted,
	ErrorOccurred,
}

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Module    string                 `json:"module"`
}
