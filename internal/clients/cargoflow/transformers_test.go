package cargoflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/harborline/harborwatch/internal/domain"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func int64Ptr(v int64) *int64 { return &v }

func TestApplyTracking_MapsFields(t *testing.T) {
	c := domain.Container{
		ID:              "c-1",
		ContainerNumber: "MSKU1234567",
		Status:          domain.StatusLoaded,
		UpdatedAt:       testNow.Add(-24 * time.Hour),
	}

	eta := testNow.Add(72 * time.Hour).Unix()
	payload := &TrackingPayload{
		ContainerNumber: "MSKU1234567",
		Carrier:         "Maersk",
		VesselName:      "Emma Maersk",
		Milestone:       "VESSEL_DEPARTED",
		ETA:             int64Ptr(eta),
		Holds:           []string{"customs"},
	}

	changed := ApplyTracking(&c, payload, testNow)

	assert.True(t, changed)
	assert.Equal(t, domain.StatusDeparted, c.Status)
	assert.Equal(t, "Maersk", c.Carrier)
	assert.Equal(t, "Emma Maersk", c.VesselName)
	assert.Equal(t, eta, c.ETA.Unix())
	assert.Equal(t, []string{"customs"}, c.HoldTypes)
	assert.True(t, c.UpdatedAt.Equal(testNow))
}

func TestApplyTracking_NoChangeLeavesUpdatedAt(t *testing.T) {
	before := testNow.Add(-72 * time.Hour)
	c := domain.Container{
		ContainerNumber: "MSKU1234567",
		Carrier:         "Maersk",
		Status:          domain.StatusInTransit,
		UpdatedAt:       before,
	}

	// Same carrier, same (mapped) status, nothing else set
	payload := &TrackingPayload{
		ContainerNumber: "MSKU1234567",
		Carrier:         "Maersk",
		Milestone:       "IN_TRANSIT",
	}

	changed := ApplyTracking(&c, payload, testNow)

	// updated_at must keep aging toward the stale-tracking rule
	assert.False(t, changed)
	assert.True(t, c.UpdatedAt.Equal(before))
}

func TestApplyTracking_UnknownMilestoneKeepsStatus(t *testing.T) {
	c := domain.Container{
		ContainerNumber: "MSKU1234567",
		Status:          domain.StatusInTransit,
	}

	payload := &TrackingPayload{
		ContainerNumber: "MSKU1234567",
		Milestone:       "SOMETHING_NEW",
	}

	changed := ApplyTracking(&c, payload, testNow)

	assert.False(t, changed)
	assert.Equal(t, domain.StatusInTransit, c.Status)
}

func TestApplyTracking_EmptyFieldsDoNotClear(t *testing.T) {
	c := domain.Container{
		ContainerNumber: "MSKU1234567",
		Carrier:         "Maersk",
		Terminal:        "APM Terminal Rotterdam",
		Status:          domain.StatusArrived,
	}

	payload := &TrackingPayload{
		ContainerNumber: "MSKU1234567",
		Milestone:       "VESSEL_ARRIVED",
	}

	changed := ApplyTracking(&c, payload, testNow)

	assert.False(t, changed)
	assert.Equal(t, "Maersk", c.Carrier)
	assert.Equal(t, "APM Terminal Rotterdam", c.Terminal)
}

func TestApplyTracking_HoldsCleared(t *testing.T) {
	c := domain.Container{
		ContainerNumber: "MSKU1234567",
		Status:          domain.StatusAtTerminal,
		HoldTypes:       []string{"customs"},
	}

	// An explicit empty hold list clears the stored holds
	payload := &TrackingPayload{
		ContainerNumber: "MSKU1234567",
		Milestone:       "AT_TERMINAL",
		Holds:           []string{},
	}

	changed := ApplyTracking(&c, payload, testNow)

	assert.True(t, changed)
	assert.Empty(t, c.HoldTypes)
}
