package events

import (
	"github.com/harborline/harborwatch/internal/domain"
)

// Publisher adapts the bus to the typed publishing interfaces the rest of the
// system expects (the risk engine, the sync service, the backup service).
type Publisher struct {
	bus *Bus
}

// NewPublisher creates a publisher on top of a bus
func NewPublisher(bus *Bus) *Publisher {
	return &Publisher{bus: bus}
}

// RiskChanged publishes a risk level transition for one container
func (p *Publisher) RiskChanged(containerID, containerNumber string, oldLevel, newLevel domain.RiskLevel, score int) {
	p.bus.Emit(RiskChanged, "risk_engine", map[string]interface{}{
		"container_id":     containerID,
		"container_number": containerNumber,
		"old_level":        string(oldLevel),
		"new_level":        string(newLevel),
		"risk_score":       score,
	})
}

// ContainerUpdated publishes a tracking data change for one container
func (p *Publisher) ContainerUpdated(containerID, containerNumber string, status domain.ContainerStatus) {
	p.bus.Emit(ContainerUpdated, "sync", map[string]interface{}{
		"container_id":     containerID,
		"container_number": containerNumber,
		"status":           string(status),
	})
}

// SyncCompleted publishes the outcome of one sync cycle
func (p *Publisher) SyncCompleted(updated, failed int) {
	p.bus.Emit(SyncCompleted, "sync", map[string]interface{}{
		"updated": updated,
		"failed":  failed,
	})
}

// BackupCompleted publishes the outcome of one backup run
func (p *Publisher) BackupCompleted(key string, sizeBytes int64) {
	p.bus.Emit(BackupCompleted, "backup", map[string]interface{}{
		"key":        key,
		"size_bytes": sizeBytes,
	})
}

// Error publishes a module error
func (p *Publisher) Error(module string, err error) {
	p.bus.Emit(ErrorOccurred, module, map[string]interface{}{
		"error": err.Error(),
	})
}
