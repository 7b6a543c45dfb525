package scheduler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apptesting "github.com/harborline/harborwatch/internal/testing"
)

func newTestHistory(t *testing.T) *JobHistoryRepository {
	t.Helper()

	db, cleanup := apptesting.NewTestDB(t, "cache")
	t.Cleanup(cleanup)

	return NewJobHistoryRepository(db.Conn())
}

func TestRecord_FirstRun(t *testing.T) {
	repo := newTestHistory(t)

	require.NoError(t, repo.Record("sync_cycle", nil))

	run, err := repo.Get("sync_cycle")
	require.NoError(t, err)
	require.NotNil(t, run)

	assert.Equal(t, "sync_cycle", run.JobType)
	assert.Equal(t, "ok", run.LastStatus)
	assert.Empty(t, run.LastError)
	assert.Equal(t, 1, run.RunCount)
	assert.False(t, run.LastRun.IsZero())
}

func TestRecord_OverwritesAndCounts(t *testing.T) {
	repo := newTestHistory(t)

	require.NoError(t, repo.Record("sync_cycle", nil))
	require.NoError(t, repo.Record("sync_cycle", errors.New("provider timeout")))

	run, err := repo.Get("sync_cycle")
	require.NoError(t, err)
	require.NotNil(t, run)

	assert.Equal(t, "error", run.LastStatus)
	assert.Equal(t, "provider timeout", run.LastError)
	assert.Equal(t, 2, run.RunCount)

	// A later success clears the error
	require.NoError(t, repo.Record("sync_cycle", nil))

	run, err = repo.Get("sync_cycle")
	require.NoError(t, err)
	assert.Equal(t, "ok", run.LastStatus)
	assert.Empty(t, run.LastError)
	assert.Equal(t, 3, run.RunCount)
}

func TestGet_NeverRun(t *testing.T) {
	repo := newTestHistory(t)

	run, err := repo.Get("daily_backup")
	require.NoError(t, err)
	assert.Nil(t, run)
}

func TestList_SortedByJobType(t *testing.T) {
	repo := newTestHistory(t)

	require.NoError(t, repo.Record("sync_cycle", nil))
	require.NoError(t, repo.Record("daily_backup", nil))
	require.NoError(t, repo.Record("daily_maintenance", errors.New("disk full")))

	runs, err := repo.List()
	require.NoError(t, err)
	require.Len(t, runs, 3)

	assert.Equal(t, "daily_backup", runs[0].JobType)
	assert.Equal(t, "daily_maintenance", runs[1].JobType)
	assert.Equal(t, "sync_cycle", runs[2].JobType)
	assert.Equal(t, "error", runs[1].LastStatus)
}

func TestList_Empty(t *testing.T) {
	repo := newTestHistory(t)

	runs, err := repo.List()
	require.NoError(t, err)
	assert.Empty(t, runs)
}
