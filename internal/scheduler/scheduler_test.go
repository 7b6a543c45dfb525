package scheduler

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apptesting "github.com/harborline/harborwatch/internal/testing"
)

type fakeJob struct {
	name string
	err  error
	runs int
}

func (j *fakeJob) Run() error   { j.runs++; return j.err }
func (j *fakeJob) Name() string { return j.name }

func TestRunNow_RecordsHistory(t *testing.T) {
	db, cleanup := apptesting.NewTestDB(t, "cache")
	t.Cleanup(cleanup)

	history := NewJobHistoryRepository(db.Conn())
	sched := New(history, zerolog.New(nil).Level(zerolog.Disabled))

	job := &fakeJob{name: "sync_cycle"}
	require.NoError(t, sched.RunNow(job))
	assert.Equal(t, 1, job.runs)

	run, err := history.Get("sync_cycle")
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, "ok", run.LastStatus)
}

func TestRunNow_ReturnsAndRecordsFailure(t *testing.T) {
	db, cleanup := apptesting.NewTestDB(t, "cache")
	t.Cleanup(cleanup)

	history := NewJobHistoryRepository(db.Conn())
	sched := New(history, zerolog.New(nil).Level(zerolog.Disabled))

	job := &fakeJob{name: "daily_backup", err: errors.New("bucket unreachable")}
	err := sched.RunNow(job)
	require.Error(t, err)

	run, err := history.Get("daily_backup")
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, "error", run.LastStatus)
	assert.Equal(t, "bucket unreachable", run.LastError)
}

func TestRunNow_WithoutHistory(t *testing.T) {
	sched := New(nil, zerolog.New(nil).Level(zerolog.Disabled))

	job := &fakeJob{name: "sync_cycle"}
	require.NoError(t, sched.RunNow(job))
	assert.Equal(t, 1, job.runs)
}

func TestAddJob_InvalidSchedule(t *testing.T) {
	sched := New(nil, zerolog.New(nil).Level(zerolog.Disabled))

	err := sched.AddJob("not a cron spec", &fakeJob{name: "sync_cycle"})
	assert.Error(t, err)
}
