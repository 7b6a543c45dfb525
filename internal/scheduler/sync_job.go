package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/harborline/harborwatch/internal/clients/cargoflow"
)

const syncJobTimeout = 10 * time.Minute

// SyncJob runs one Cargoes Flow sync cycle (fetch + assess). A single-flight
// guard skips a tick when the previous cycle is still running, which happens
// when the provider is slow and the interval is short.
type SyncJob struct {
	sync    *cargoflow.SyncService
	running atomic.Bool
	log     zerolog.Logger
}

// NewSyncJob creates a new sync job
func NewSyncJob(sync *cargoflow.SyncService, log zerolog.Logger) *SyncJob {
	return &SyncJob{
		sync: sync,
		log:  log.With().Str("job", "sync_cycle").Logger(),
	}
}

// Name returns the job name
func (j *SyncJob) Name() string {
	return "sync_cycle"
}

// Run executes one sync cycle
func (j *SyncJob) Run() error {
	if !j.running.CompareAndSwap(false, true) {
		j.log.Warn().Msg("Previous sync cycle still running, skipping this tick")
		return nil
	}
	defer j.running.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), syncJobTimeout)
	defer cancel()

	result, err := j.sync.RunCycle(ctx)
	if err != nil {
		return fmt.Errorf("sync cycle failed: %w", err)
	}

	j.log.Info().
		Int("updated", result.Updated).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Int("escalated", result.Assessment.Escalated).
		Msg("Sync cycle finished")

	return nil
}
