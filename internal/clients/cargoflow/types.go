// Package cargoflow provides client functionality for the Cargoes Flow
// tracking API: REST polling, websocket push events, and the payload snapshot
// cache used to skip no-op updates.
package cargoflow

import "time"

// TrackingPayload is one container's tracking state as reported by the
// Cargoes Flow API
type TrackingPayload struct {
	ContainerNumber string   `json:"containerNumber" msgpack:"container_number"`
	BillOfLading    string   `json:"blNumber,omitempty" msgpack:"bill_of_lading"`
	Carrier         string   `json:"carrierName,omitempty" msgpack:"carrier"`
	Origin          string   `json:"originPort,omitempty" msgpack:"origin"`
	Destination     string   `json:"destinationPort,omitempty" msgpack:"destination"`
	VesselName      string   `json:"vesselName,omitempty" msgpack:"vessel_name"`
	Terminal        string   `json:"terminalName,omitempty" msgpack:"terminal"`
	RailCarrier     string   `json:"railCarrier,omitempty" msgpack:"rail_carrier"`
	Milestone       string   `json:"milestone" msgpack:"milestone"`
	ETA             *int64   `json:"eta,omitempty" msgpack:"eta"`           // unix seconds
	LastFreeDay     *int64   `json:"lastFreeDay,omitempty" msgpack:"lfd"`   // unix seconds
	Holds           []string `json:"holds,omitempty" msgpack:"holds"`
	EventTime       *int64   `json:"eventTime,omitempty" msgpack:"event_time"`
}

// EventTimestamp returns the payload's event time, or the zero time when the
// provider omitted it
func (p *TrackingPayload) EventTimestamp() time.Time {
	if p.EventTime == nil {
		return time.Time{}
	}
	return time.Unix(*p.EventTime, 0).UTC()
}
