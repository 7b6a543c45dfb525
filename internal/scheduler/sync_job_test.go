package scheduler

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborline/harborwatch/internal/clients/cargoflow"
	"github.com/harborline/harborwatch/internal/domain"
	"github.com/harborline/harborwatch/internal/risk"
)

// blockingAssessor parks AssessAll until released, so a test can hold a sync
// cycle open while poking the job from another goroutine.
type blockingAssessor struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
	err     error
}

func (a *blockingAssessor) UpdateContainerRisk(c domain.Container) (risk.Assessment, error) {
	return risk.Assessment{}, nil
}

func (a *blockingAssessor) AssessAll() (risk.BulkResult, error) {
	a.calls.Add(1)
	if a.started != nil {
		a.started <- struct{}{}
	}
	if a.release != nil {
		<-a.release
	}
	return risk.BulkResult{}, a.err
}

// newIdleSyncService builds a sync service with no credentials, so a cycle is
// just the bulk assessment.
func newIdleSyncService(assessor cargoflow.RiskAssessor) *cargoflow.SyncService {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	client := cargoflow.NewClient("http://localhost", "", log)
	return cargoflow.NewSyncService(client, nil, nil, assessor, log)
}

func TestSyncJob_SkipsOverlappingRun(t *testing.T) {
	assessor := &blockingAssessor{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	job := NewSyncJob(newIdleSyncService(assessor), zerolog.New(nil).Level(zerolog.Disabled))

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- job.Run()
	}()

	// Wait until the first cycle is inside the assessment
	select {
	case <-assessor.started:
	case <-time.After(5 * time.Second):
		t.Fatal("first cycle never started")
	}

	// A tick while the cycle is open is skipped without touching the service
	require.NoError(t, job.Run())
	assert.Equal(t, int32(1), assessor.calls.Load())

	close(assessor.release)
	select {
	case err := <-firstDone:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("first cycle never finished")
	}

	// Guard is released: the next tick runs a fresh cycle
	require.NoError(t, job.Run())
	assert.Equal(t, int32(2), assessor.calls.Load())
}

func TestSyncJob_GuardClearedAfterFailedCycle(t *testing.T) {
	assessor := &blockingAssessor{err: errors.New("store unavailable")}
	job := NewSyncJob(newIdleSyncService(assessor), zerolog.New(nil).Level(zerolog.Disabled))

	require.Error(t, job.Run())

	// The failed cycle must not leave the guard set
	assessor.err = nil
	require.NoError(t, job.Run())
	assert.Equal(t, int32(2), assessor.calls.Load())
}
