package scheduler

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// JobRun is the recorded outcome of the most recent run of one job type
type JobRun struct {
	JobType    string    `json:"job_type"`
	LastRun    time.Time `json:"last_run"`
	LastStatus string    `json:"last_status"`
	LastError  string    `json:"last_error,omitempty"`
	RunCount   int       `json:"run_count"`
}

// JobHistoryRepository persists per-job bookkeeping in the cache database.
// One row per job type, overwritten on every run.
type JobHistoryRepository struct {
	db *sql.DB
}

// NewJobHistoryRepository creates a job history repository
func NewJobHistoryRepository(db *sql.DB) *JobHistoryRepository {
	return &JobHistoryRepository{db: db}
}

// Record stores the outcome of one job run
func (r *JobHistoryRepository) Record(jobType string, runErr error) error {
	status := "ok"
	errMsg := ""
	if runErr != nil {
		status = "error"
		errMsg = runErr.Error()
	}

	_, err := r.db.Exec(`
		INSERT INTO job_history (job_type, last_run, last_status, last_error, run_count)
		VALUES (?, ?, ?, ?, 1)
		ON CONFLICT(job_type) DO UPDATE SET
			last_run = excluded.last_run,
			last_status = excluded.last_status,
			last_error = excluded.last_error,
			run_count = run_count + 1
	`, jobType, time.Now().Unix(), status, errMsg)
	if err != nil {
		return fmt.Errorf("failed to record job run: %w", err)
	}

	return nil
}

// Get returns the recorded state for one job type. Returns nil, nil when the
// job has never run.
func (r *JobHistoryRepository) Get(jobType string) (*JobRun, error) {
	var run JobRun
	var lastRun int64

	err := r.db.QueryRow(
		"SELECT job_type, last_run, last_status, last_error, run_count FROM job_history WHERE job_type = ?",
		jobType,
	).Scan(&run.JobType, &lastRun, &run.LastStatus, &run.LastError, &run.RunCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job history: %w", err)
	}

	run.LastRun = time.Unix(lastRun, 0).UTC()
	return &run, nil
}

// List returns the recorded state of every job type
func (r *JobHistoryRepository) List() ([]JobRun, error) {
	rows, err := r.db.Query(
		"SELECT job_type, last_run, last_status, last_error, run_count FROM job_history ORDER BY job_type",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list job history: %w", err)
	}
	defer rows.Close()

	runs := []JobRun{}
	for rows.Next() {
		var run JobRun
		var lastRun int64
		if err := rows.Scan(&run.JobType, &lastRun, &run.LastStatus, &run.LastError, &run.RunCount); err != nil {
			return nil, fmt.Errorf("failed to scan job history row: %w", err)
		}
		run.LastRun = time.Unix(lastRun, 0).UTC()
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate job history rows: %w", err)
	}

	return runs, nil
}
