package reliability

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const backupJobTimeout = 30 * time.Minute

// BackupJob runs the daily off-site backup followed by rotation
type BackupJob struct {
	service *BackupService
	log     zerolog.Logger
}

// NewBackupJob creates a new backup job
func NewBackupJob(service *BackupService, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		service: service,
		log:     log.With().Str("job", "daily_backup").Logger(),
	}
}

// Name returns the job name
func (j *BackupJob) Name() string {
	return "daily_backup"
}

// Run executes one backup + rotation pass
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), backupJobTimeout)
	defer cancel()

	if err := j.service.CreateAndUploadBackup(ctx); err != nil {
		return err
	}

	// Rotation failure is not worth failing the job over: the backup itself
	// succeeded and rotation re-runs tomorrow
	if err := j.service.RotateOldBackups(ctx); err != nil {
		j.log.Warn().Err(err).Msg("Backup rotation failed")
	}

	return nil
}
