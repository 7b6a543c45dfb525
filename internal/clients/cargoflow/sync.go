package cargoflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/harborline/harborwatch/internal/domain"
	"github.com/harborline/harborwatch/internal/risk"
)

// ContainerStore is the sync service's view of container persistence
type ContainerStore interface {
	GetAllActive() ([]domain.Container, error)
	GetByNumber(number string) (*domain.Container, error)
	Update(c domain.Container) error
}

// RiskAssessor runs assessments after tracking data changes
type RiskAssessor interface {
	UpdateContainerRisk(c domain.Container) (risk.Assessment, error)
	AssessAll() (risk.BulkResult, error)
}

// SyncPublisher receives sync lifecycle events. Optional.
type SyncPublisher interface {
	ContainerUpdated(containerID, containerNumber string, status domain.ContainerStatus)
	SyncCompleted(updated, failed int)
}

// SyncResult summarizes one sync cycle
type SyncResult struct {
	Fetched    int             `json:"fetched"`
	Updated    int             `json:"updated"`
	Skipped    int             `json:"skipped"`
	Failed     int             `json:"failed"`
	Assessment risk.BulkResult `json:"assessment"`
}

// SyncService refreshes tracked containers from Cargoes Flow and runs the
// risk engine over the result. One RunCycle is one full poll: fetch, diff
// against snapshots, persist changes, assess.
type SyncService struct {
	client     *Client
	containers ContainerStore
	snapshots  *SnapshotRepository
	assessor   RiskAssessor
	publisher  SyncPublisher
	now        func() time.Time
	log        zerolog.Logger
}

// NewSyncService creates a new sync service
func NewSyncService(
	client *Client,
	containers ContainerStore,
	snapshots *SnapshotRepository,
	assessor RiskAssessor,
	log zerolog.Logger,
) *SyncService {
	return &SyncService{
		client:     client,
		containers: containers,
		snapshots:  snapshots,
		assessor:   assessor,
		now:        time.Now,
		log:        log.With().Str("component", "sync").Logger(),
	}
}

// SetPublisher attaches an optional sync event publisher
func (s *SyncService) SetPublisher(p SyncPublisher) {
	s.publisher = p
}

// SetClock overrides the wall clock (tests only)
func (s *SyncService) SetClock(now func() time.Time) {
	s.now = now
}

// RunCycle performs one full sync: fetch tracking for every active
// container, apply changed payloads, then run the bulk assessment. Without
// credentials the fetch phase is skipped and only the assessment runs, so the
// dashboard still re-scores manually entered data on schedule.
func (s *SyncService) RunCycle(ctx context.Context) (SyncResult, error) {
	result := SyncResult{}

	if s.client.Configured() {
		if err := s.refreshContainers(ctx, &result); err != nil {
			return result, err
		}
	} else {
		s.log.Debug().Msg("Cargoes Flow credentials not configured, skipping fetch phase")
	}

	assessment, err := s.assessor.AssessAll()
	if err != nil {
		return result, fmt.Errorf("bulk assessment failed after sync: %w", err)
	}
	result.Assessment = assessment

	if s.publisher != nil {
		s.publisher.SyncCompleted(result.Updated, result.Failed)
	}

	s.log.Info().
		Int("fetched", result.Fetched).
		Int("updated", result.Updated).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Int("assessed", assessment.Assessed).
		Msg("Sync cycle complete")

	return result, nil
}

// refreshContainers fetches and applies tracking payloads for all active
// containers. Per-container failures are counted and skipped.
func (s *SyncService) refreshContainers(ctx context.Context, result *SyncResult) error {
	active, err := s.containers.GetAllActive()
	if err != nil {
		return fmt.Errorf("failed to load active containers for sync: %w", err)
	}
	if len(active) == 0 {
		return nil
	}

	byNumber := make(map[string]domain.Container, len(active))
	numbers := make([]string, 0, len(active))
	for _, c := range active {
		byNumber[c.ContainerNumber] = c
		numbers = append(numbers, c.ContainerNumber)
	}

	payloads, err := s.client.GetTrackingBatch(ctx, numbers)
	if err != nil {
		return fmt.Errorf("failed to fetch tracking batch: %w", err)
	}
	result.Fetched = len(payloads)

	for i := range payloads {
		payload := &payloads[i]
		number := strings.ToUpper(strings.TrimSpace(payload.ContainerNumber))

		c, ok := byNumber[number]
		if !ok {
			s.log.Warn().Str("container_number", number).Msg("Tracking payload for unknown container")
			continue
		}

		applied, err := s.applyPayload(c, payload)
		if err != nil {
			s.log.Error().Err(err).Str("container_number", number).Msg("Failed to apply tracking payload")
			result.Failed++
			continue
		}

		if applied {
			result.Updated++
		} else {
			result.Skipped++
		}
	}

	return nil
}

// applyPayload writes one payload onto its container unless the snapshot
// cache says the provider hasn't changed anything since last cycle
func (s *SyncService) applyPayload(c domain.Container, payload *TrackingPayload) (bool, error) {
	unchanged, err := s.snapshots.IsUnchanged(c.ContainerNumber, payload)
	if err != nil {
		return false, err
	}
	if unchanged {
		return false, nil
	}

	changed := ApplyTracking(&c, payload, s.now())
	if changed {
		if err := s.containers.Update(c); err != nil {
			return false, err
		}
		if s.publisher != nil {
			s.publisher.ContainerUpdated(c.ID, c.ContainerNumber, c.Status)
		}
	}

	// Save the snapshot even when nothing mapped onto the container, so
	// payload fields we ignore don't force a re-diff every cycle
	if err := s.snapshots.Save(c.ContainerNumber, payload); err != nil {
		return changed, err
	}

	return changed, nil
}

// HandlePush processes one websocket-pushed payload: apply it immediately and
// re-assess just that container. Used as the TrackingHandler for the
// websocket client.
func (s *SyncService) HandlePush(payload *TrackingPayload) {
	number := strings.ToUpper(strings.TrimSpace(payload.ContainerNumber))

	c, err := s.containers.GetByNumber(number)
	if err != nil {
		s.log.Error().Err(err).Str("container_number", number).Msg("Failed to look up pushed container")
		return
	}
	if c == nil {
		s.log.Debug().Str("container_number", number).Msg("Push event for untracked container, ignoring")
		return
	}

	changed := ApplyTracking(c, payload, s.now())
	if changed {
		if err := s.containers.Update(*c); err != nil {
			s.log.Error().Err(err).Str("container_number", number).Msg("Failed to persist pushed update")
			return
		}
		if s.publisher != nil {
			s.publisher.ContainerUpdated(c.ID, c.ContainerNumber, c.Status)
		}
	}

	if err := s.snapshots.Save(number, payload); err != nil {
		s.log.Error().Err(err).Str("container_number", number).Msg("Failed to save push snapshot")
	}

	if changed {
		if _, err := s.assessor.UpdateContainerRisk(*c); err != nil {
			s.log.Error().Err(err).Str("container_number", number).Msg("Post-push risk assessment failed")
		}
	}
}
