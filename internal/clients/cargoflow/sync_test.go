package cargoflow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborline/harborwatch/internal/domain"
	"github.com/harborline/harborwatch/internal/risk"
	apptesting "github.com/harborline/harborwatch/internal/testing"
)

type fakeContainerStore struct {
	active  []domain.Container
	updates []domain.Container
}

func (f *fakeContainerStore) GetAllActive() ([]domain.Container, error) {
	return f.active, nil
}

func (f *fakeContainerStore) GetByNumber(number string) (*domain.Container, error) {
	for _, c := range f.active {
		if c.ContainerNumber == number {
			found := c
			return &found, nil
		}
	}
	return nil, nil
}

func (f *fakeContainerStore) Update(c domain.Container) error {
	f.updates = append(f.updates, c)
	return nil
}

type fakeAssessor struct {
	singleCalls []string
	bulkCalls   int
}

func (f *fakeAssessor) UpdateContainerRisk(c domain.Container) (risk.Assessment, error) {
	f.singleCalls = append(f.singleCalls, c.ContainerNumber)
	return risk.Assessment{}, nil
}

func (f *fakeAssessor) AssessAll() (risk.BulkResult, error) {
	f.bulkCalls++
	return risk.BulkResult{Total: len(f.singleCalls) + 1, Assessed: 1}, nil
}

type syncFixture struct {
	service  *SyncService
	store    *fakeContainerStore
	assessor *fakeAssessor
	requests *int
}

func newSyncFixture(t *testing.T, payloads []TrackingPayload) syncFixture {
	t.Helper()

	log := zerolog.New(nil).Level(zerolog.Disabled)

	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		assert.Equal(t, "test-key", r.Header.Get("X-DPW-ApiKey"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"shipments": payloads})
	}))
	t.Cleanup(server.Close)

	db, cleanup := apptesting.NewTestDB(t, "cache")
	t.Cleanup(cleanup)

	store := &fakeContainerStore{
		active: []domain.Container{
			{
				ID:              "c-1",
				ContainerNumber: "MSKU1234567",
				Status:          domain.StatusLoaded,
				UpdatedAt:       time.Now().Add(-time.Hour),
			},
		},
	}
	assessor := &fakeAssessor{}

	service := NewSyncService(
		NewClient(server.URL, "test-key", log),
		store,
		NewSnapshotRepository(db.Conn(), log),
		assessor,
		log,
	)

	return syncFixture{service: service, store: store, assessor: assessor, requests: &requests}
}

func TestRunCycle_AppliesChangedPayloads(t *testing.T) {
	f := newSyncFixture(t, []TrackingPayload{
		{ContainerNumber: "MSKU1234567", Milestone: "VESSEL_DEPARTED", Carrier: "Maersk"},
	})

	result, err := f.service.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Fetched)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, 1, f.assessor.bulkCalls)

	require.Len(t, f.store.updates, 1)
	assert.Equal(t, domain.StatusDeparted, f.store.updates[0].Status)
	assert.Equal(t, "Maersk", f.store.updates[0].Carrier)
}

func TestRunCycle_SecondCycleSkipsUnchangedPayload(t *testing.T) {
	f := newSyncFixture(t, []TrackingPayload{
		{ContainerNumber: "MSKU1234567", Milestone: "VESSEL_DEPARTED"},
	})

	_, err := f.service.RunCycle(context.Background())
	require.NoError(t, err)

	result, err := f.service.RunCycle(context.Background())
	require.NoError(t, err)

	// Identical payload hits the snapshot cache and writes nothing
	assert.Equal(t, 0, result.Updated)
	assert.Equal(t, 1, result.Skipped)
	assert.Len(t, f.store.updates, 1)

	// The assessment sweep still runs every cycle
	assert.Equal(t, 2, f.assessor.bulkCalls)
}

func TestRunCycle_UnknownPayloadIgnored(t *testing.T) {
	f := newSyncFixture(t, []TrackingPayload{
		{ContainerNumber: "XXXX0000000", Milestone: "VESSEL_DEPARTED"},
	})

	result, err := f.service.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Fetched)
	assert.Equal(t, 0, result.Updated)
	assert.Empty(t, f.store.updates)
}

func TestRunCycle_WithoutCredentialsOnlyAssesses(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)

	db, cleanup := apptesting.NewTestDB(t, "cache")
	t.Cleanup(cleanup)

	store := &fakeContainerStore{}
	assessor := &fakeAssessor{}
	service := NewSyncService(
		NewClient("http://unused.example.com", "", log),
		store,
		NewSnapshotRepository(db.Conn(), log),
		assessor,
		log,
	)

	result, err := service.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, result.Fetched)
	assert.Equal(t, 1, assessor.bulkCalls)
}

func TestHandlePush_AppliesAndReassesses(t *testing.T) {
	f := newSyncFixture(t, nil)

	f.service.HandlePush(&TrackingPayload{
		ContainerNumber: "msku1234567",
		Milestone:       "VESSEL_ARRIVED",
	})

	require.Len(t, f.store.updates, 1)
	assert.Equal(t, domain.StatusArrived, f.store.updates[0].Status)
	assert.Equal(t, []string{"MSKU1234567"}, f.assessor.singleCalls)
}

func TestHandlePush_UntrackedContainerIgnored(t *testing.T) {
	f := newSyncFixture(t, nil)

	f.service.HandlePush(&TrackingPayload{
		ContainerNumber: "XXXX0000000",
		Milestone:       "VESSEL_ARRIVED",
	})

	assert.Empty(t, f.store.updates)
	assert.Empty(t, f.assessor.singleCalls)
}
