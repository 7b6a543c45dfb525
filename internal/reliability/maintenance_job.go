package reliability

import (
	"context"
	"fmt"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/harborline/harborwatch/internal/database"
)

// SnapshotPruner removes stale cache entries. Satisfied by the cargoflow
// snapshot repository.
type SnapshotPruner interface {
	Prune(olderThan time.Time) (int, error)
}

// NotificationPurger removes old read notifications. Satisfied by the
// notifications repository.
type NotificationPurger interface {
	PurgeRead(olderThan time.Time) (int, error)
}

// snapshotMaxAge is how long an untouched api snapshot survives. Containers
// still syncing refresh their snapshot every cycle; anything older than this
// belongs to a delivered or deleted container.
const snapshotMaxAge = 30 * 24 * time.Hour

// notificationMaxAge is how long a read notification is kept before purge
const notificationMaxAge = 90 * 24 * time.Hour

// MaintenanceJob performs nightly database upkeep: integrity checks, WAL
// checkpoints, cache pruning, notification purge and a disk space check
type MaintenanceJob struct {
	databases map[string]*database.DB
	pruner    SnapshotPruner
	purger    NotificationPurger
	dataDir   string
	log       zerolog.Logger
}

// NewMaintenanceJob creates a new maintenance job
func NewMaintenanceJob(
	databases map[string]*database.DB,
	pruner SnapshotPruner,
	purger NotificationPurger,
	dataDir string,
	log zerolog.Logger,
) *MaintenanceJob {
	return &MaintenanceJob{
		databases: databases,
		pruner:    pruner,
		purger:    purger,
		dataDir:   dataDir,
		log:       log.With().Str("job", "daily_maintenance").Logger(),
	}
}

// Name returns the job name
func (j *MaintenanceJob) Name() string {
	return "daily_maintenance"
}

// Run executes the maintenance pass
func (j *MaintenanceJob) Run() error {
	j.log.Info().Msg("Starting daily maintenance")
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	for name, db := range j.databases {
		if err := db.HealthCheck(ctx); err != nil {
			j.log.Error().Err(err).Str("database", name).Msg("Integrity check failed")
			return fmt.Errorf("integrity check failed for %s: %w", name, err)
		}

		// Truncating the WAL keeps the sidecar files from growing unbounded
		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			j.log.Warn().Err(err).Str("database", name).Msg("WAL checkpoint failed")
		}
	}

	if j.pruner != nil {
		pruned, err := j.pruner.Prune(time.Now().Add(-snapshotMaxAge))
		if err != nil {
			j.log.Warn().Err(err).Msg("Snapshot pruning failed")
		} else if pruned > 0 {
			j.log.Info().Int("pruned", pruned).Msg("Pruned stale api snapshots")
		}
	}

	if j.purger != nil {
		purged, err := j.purger.PurgeRead(time.Now().Add(-notificationMaxAge))
		if err != nil {
			j.log.Warn().Err(err).Msg("Notification purge failed")
		} else if purged > 0 {
			j.log.Info().Int("purged", purged).Msg("Purged old read notifications")
		}
	}

	if err := j.checkDiskSpace(); err != nil {
		return err
	}

	j.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Msg("Daily maintenance completed")

	return nil
}

// checkDiskSpace verifies sufficient disk space is available
func (j *MaintenanceJob) checkDiskSpace() error {
	stat := syscall.Statfs_t{}
	if err := syscall.Statfs(j.dataDir, &stat); err != nil {
		return fmt.Errorf("failed to stat filesystem: %w", err)
	}

	availableGB := float64(stat.Bavail*uint64(stat.Bsize)) / 1e9

	if availableGB < 0.5 {
		return fmt.Errorf("only %.2f GB free on data volume", availableGB)
	}
	if availableGB < 5.0 {
		j.log.Warn().Float64("available_gb", availableGB).Msg("Disk space running low")
	}

	return nil
}
