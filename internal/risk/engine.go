package risk

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/harborline/harborwatch/internal/domain"
)

// ContainerStore is the engine's view of the container record store
type ContainerStore interface {
	GetAllActive() ([]domain.Container, error)
	UpdateRisk(containerID string, level domain.RiskLevel, reason string) error
}

// ExceptionStore is the engine's view of the exception store. The engine only
// ever touches the risk-alert category; exceptions from other flows are
// invisible to it.
type ExceptionStore interface {
	DeleteRiskAlerts(containerID string) error
	Create(exc domain.Exception) (domain.Exception, error)
}

// NotificationStore is the engine's view of the notification store
type NotificationStore interface {
	Create(n domain.Notification) (domain.Notification, error)
	DismissRiskForContainer(containerID string, newLevel domain.RiskLevel) (int, error)
}

// UserDirectory supplies the fan-out target list for escalation notifications
type UserDirectory interface {
	GetAll() ([]domain.User, error)
}

// EventPublisher receives risk transition events for the dashboard stream.
// Optional - a nil publisher disables publishing.
type EventPublisher interface {
	RiskChanged(containerID, containerNumber string, oldLevel, newLevel domain.RiskLevel, score int)
}

// BulkResult summarizes one AssessAll sweep
type BulkResult struct {
	Total     int `json:"total"`
	Assessed  int `json:"assessed"`
	Changed   int `json:"changed"`
	Escalated int `json:"escalated"`
	Failed    int `json:"failed"`
}

// Engine orchestrates risk assessment: it runs the pure scorer, persists the
// derived fields, and performs the transition side effects (exception
// create/dedup, notification fan-out, de-escalation dismissal) exactly once
// per transition. The engine holds no state between calls and is safe to
// re-run; a failed container simply gets re-assessed on the next cycle.
type Engine struct {
	containers    ContainerStore
	exceptions    ExceptionStore
	notifications NotificationStore
	users         UserDirectory
	events        EventPublisher
	now           func() time.Time
	log           zerolog.Logger
}

// NewEngine creates a risk engine
func NewEngine(
	containers ContainerStore,
	exceptions ExceptionStore,
	notifications NotificationStore,
	users UserDirectory,
	log zerolog.Logger,
) *Engine {
	return &Engine{
		containers:    containers,
		exceptions:    exceptions,
		notifications: notifications,
		users:         users,
		now:           time.Now,
		log:           log.With().Str("component", "risk_engine").Logger(),
	}
}

// SetEventPublisher attaches an optional publisher for risk transition events
func (e *Engine) SetEventPublisher(p EventPublisher) {
	e.events = p
}

// SetClock overrides the wall clock (tests only)
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// UpdateContainerRisk assesses one container and applies the full transition
// logic. The risk fields are written unconditionally - every call overwrites
// level and reason even when unchanged. The container is assumed freshly read
// from the store; its stored RiskLevel is the "previous" side of the
// transition comparison.
func (e *Engine) UpdateContainerRisk(c domain.Container) (Assessment, error) {
	now := e.now()
	assessment := Assess(c, now)

	if err := e.containers.UpdateRisk(c.ID, assessment.RiskLevel, assessment.Reason()); err != nil {
		return assessment, fmt.Errorf("failed to persist risk fields for container %s: %w", c.ID, err)
	}

	if err := e.applyTransition(c, assessment, now); err != nil {
		return assessment, err
	}

	return assessment, nil
}

// AssessAll assesses every active container in one sequential sweep.
//
// The store write is skipped for containers whose level is unchanged AND
// whose score is zero - but still performed when the score is nonzero even if
// the bucket did not move, because the reason text may have changed. A
// failure on one container is logged and skipped; it never aborts the rest of
// the sweep.
func (e *Engine) AssessAll() (BulkResult, error) {
	active, err := e.containers.GetAllActive()
	if err != nil {
		return BulkResult{}, fmt.Errorf("failed to load active containers: %w", err)
	}

	result := BulkResult{Total: len(active)}

	for _, c := range active {
		now := e.now()
		assessment := Assess(c, now)
		changed := assessment.RiskLevel != c.RiskLevel

		if changed || assessment.RiskScore > 0 {
			if err := e.containers.UpdateRisk(c.ID, assessment.RiskLevel, assessment.Reason()); err != nil {
				e.log.Error().
					Err(err).
					Str("container_id", c.ID).
					Str("container_number", c.ContainerNumber).
					Msg("Failed to persist risk fields, skipping container")
				result.Failed++
				continue
			}
		}

		if err := e.applyTransition(c, assessment, now); err != nil {
			e.log.Error().
				Err(err).
				Str("container_id", c.ID).
				Str("container_number", c.ContainerNumber).
				Msg("Failed to apply risk transition, skipping container")
			result.Failed++
			continue
		}

		result.Assessed++
		if changed {
			result.Changed++
		}
		if assessment.RiskLevel.Rank() > c.RiskLevel.Rank() {
			result.Escalated++
		}
	}

	e.log.Info().
		Int("total", result.Total).
		Int("assessed", result.Assessed).
		Int("changed", result.Changed).
		Int("escalated", result.Escalated).
		Int("failed", result.Failed).
		Msg("Bulk risk assessment complete")

	return result, nil
}

// applyTransition performs the side effects for one old-level -> new-level
// comparison, in fixed order: exception handling, notification handling,
// dismissal handling. Side effects are independent and not rolled back; an
// error aborts only the remaining side effects for this container.
func (e *Engine) applyTransition(c domain.Container, assessment Assessment, now time.Time) error {
	oldLevel := c.RiskLevel
	newLevel := assessment.RiskLevel
	changed := newLevel != oldLevel
	increased := newLevel.Rank() > oldLevel.Rank()
	decreased := newLevel.Rank() < oldLevel.Rank()

	if assessment.ShouldCreateException && (changed || increased) {
		// Delete-then-insert keeps at most one live risk-alert exception per
		// container no matter how many escalations happen.
		if err := e.exceptions.DeleteRiskAlerts(c.ID); err != nil {
			return fmt.Errorf("failed to delete stale risk alerts for container %s: %w", c.ID, err)
		}

		exc := domain.Exception{
			ID:          uuid.NewString(),
			ContainerID: c.ID,
			Category:    domain.CategoryRiskAlert,
			Type:        ClassifyException(assessment.RiskReasons),
			Title:       strings.ToUpper(string(newLevel)) + " Risk Alert",
			Description: assessment.Description(),
			CreatedAt:   now,
		}
		if _, err := e.exceptions.Create(exc); err != nil {
			return fmt.Errorf("failed to create risk alert for container %s: %w", c.ID, err)
		}

		e.log.Info().
			Str("container_number", c.ContainerNumber).
			Str("exception_type", string(exc.Type)).
			Str("risk_level", string(newLevel)).
			Msg("Risk alert exception created")
	}

	// Notifications require a strict numeric increase, not just a change:
	// dropping from critical to high changes the level but must not re-alert.
	if assessment.ShouldNotify && increased {
		if err := e.notifyAllUsers(c, assessment, now); err != nil {
			return err
		}
	}

	if decreased {
		count, err := e.notifications.DismissRiskForContainer(c.ID, newLevel)
		if err != nil {
			return fmt.Errorf("failed to dismiss notifications for container %s: %w", c.ID, err)
		}
		e.log.Info().
			Str("container_number", c.ContainerNumber).
			Str("old_level", string(oldLevel)).
			Str("new_level", string(newLevel)).
			Int("dismissed", count).
			Msg("Risk de-escalated, notifications dismissed")
	}

	if changed && e.events != nil {
		e.events.RiskChanged(c.ID, c.ContainerNumber, oldLevel, newLevel, assessment.RiskScore)
	}

	return nil
}

// notifyAllUsers fans one escalation notification out to every user. There is
// no assignment or role targeting - a known limitation of the current
// notification model.
func (e *Engine) notifyAllUsers(c domain.Container, assessment Assessment, now time.Time) error {
	users, err := e.users.GetAll()
	if err != nil {
		return fmt.Errorf("failed to list users for notification fan-out: %w", err)
	}

	notificationType := ClassifyNotification(assessment.RiskReasons)
	title := c.ContainerNumber + " - " + strings.ToUpper(string(assessment.RiskLevel)) + " Risk"

	for _, user := range users {
		n := domain.Notification{
			ID:         uuid.NewString(),
			UserID:     user.ID,
			Type:       notificationType,
			Priority:   assessment.NotificationPriority,
			Title:      title,
			Message:    assessment.Description(),
			EntityType: domain.EntityTypeContainer,
			EntityID:   c.ID,
			Metadata: map[string]interface{}{
				"container_number": c.ContainerNumber,
				"risk_level":       string(assessment.RiskLevel),
				"risk_score":       assessment.RiskScore,
				"risk_reasons":     assessment.RiskReasons,
			},
			CreatedAt: now,
		}
		if _, err := e.notifications.Create(n); err != nil {
			return fmt.Errorf("failed to create notification for user %s: %w", user.ID, err)
		}
	}

	e.log.Info().
		Str("container_number", c.ContainerNumber).
		Str("notification_type", string(notificationType)).
		Str("priority", string(assessment.NotificationPriority)).
		Int("recipients", len(users)).
		Msg("Risk escalation notifications sent")

	return nil
}
