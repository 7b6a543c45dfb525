package cargoflow

import (
	"time"

	"github.com/harborline/harborwatch/internal/domain"
)

// milestoneToStatus maps Cargoes Flow milestone codes to the internal status
// vocabulary. Unknown milestones leave the stored status untouched rather
// than guessing.
var milestoneToStatus = map[string]domain.ContainerStatus{
	"BOOKING_CONFIRMED": domain.StatusBookingConfirmed,
	"GATE_IN":           domain.StatusGateIn,
	"LOADED":            domain.StatusLoaded,
	"VESSEL_DEPARTED":   domain.StatusDeparted,
	"IN_TRANSIT":        domain.StatusInTransit,
	"VESSEL_ARRIVED":    domain.StatusArrived,
	"UNLOADED":          domain.StatusUnloaded,
	"GATE_OUT":          domain.StatusGateOut,
	"DELIVERED":         domain.StatusDelivered,
	"ON_RAIL":           domain.StatusOnRail,
	"AT_TERMINAL":       domain.StatusAtTerminal,
	"CUSTOMS_HOLD":      domain.StatusCustomsClearance,
	"CUSTOMS_CLEARANCE": domain.StatusCustomsClearance,
	"DELAYED":           domain.StatusDelayed,
}

// ApplyTracking maps a tracking payload onto an existing container record and
// reports whether anything changed. Risk fields are never touched here - the
// engine owns them. UpdatedAt is only advanced when the payload actually
// moved some field, so an unchanged container keeps aging toward the
// stale-tracking rule.
func ApplyTracking(c *domain.Container, payload *TrackingPayload, now time.Time) bool {
	changed := false

	setString := func(dst *string, src string) {
		if src != "" && src != *dst {
			*dst = src
			changed = true
		}
	}

	setString(&c.BillOfLading, payload.BillOfLading)
	setString(&c.Carrier, payload.Carrier)
	setString(&c.Origin, payload.Origin)
	setString(&c.Destination, payload.Destination)
	setString(&c.VesselName, payload.VesselName)
	setString(&c.Terminal, payload.Terminal)
	setString(&c.RailCarrier, payload.RailCarrier)

	if status, ok := milestoneToStatus[payload.Milestone]; ok && status != c.Status {
		c.Status = status
		changed = true
	}

	if payload.ETA != nil {
		eta := time.Unix(*payload.ETA, 0).UTC()
		if c.ETA == nil || !c.ETA.Equal(eta) {
			c.ETA = &eta
			changed = true
		}
	}

	if payload.LastFreeDay != nil {
		lfd := time.Unix(*payload.LastFreeDay, 0).UTC()
		if c.LastFreeDay == nil || !c.LastFreeDay.Equal(lfd) {
			c.LastFreeDay = &lfd
			changed = true
		}
	}

	if payload.Holds != nil && !equalStrings(c.HoldTypes, payload.Holds) {
		c.HoldTypes = payload.Holds
		changed = true
	}

	if changed {
		c.UpdatedAt = now
	}

	return changed
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
