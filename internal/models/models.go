// Package models defines the wire and in-memory data shapes shared across
// the stream bus, the processor pipeline, and the HTTP scope API.
package models

import "time"

// VehicleStatus is the enumerated operating status of a vehicle.
type VehicleStatus string

const (
	StatusInService    VehicleStatus = "in_service"
	StatusOutOfService VehicleStatus = "out_of_service"
	StatusLayover      VehicleStatus = "layover"
	StatusDeadhead     VehicleStatus = "deadhead"
)

func (s VehicleStatus) Valid() bool {
	switch s {
	case StatusInService, StatusOutOfService, StatusLayover, StatusDeadhead, "":
		return true
	default:
		return false
	}
}

// Coordinate is a WGS-84 lat/lng pair.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// BBox is a geographic bounding box. Zoom is a rendering hint only; it is
// never part of scope identity.
type BBox struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
	Zoom  *int    `json:"zoom,omitempty"`
}

// Contains reports whether the coordinate lies within the box, inclusive
// of all four edges.
func (b BBox) Contains(c Coordinate) bool {
	return c.Lat >= b.South && c.Lat <= b.North && c.Lng >= b.West && c.Lng <= b.East
}

// VehiclePosition is the authoritative state of one vehicle at a point in
// time, as carried in upsert events and in frames.
type VehiclePosition struct {
	ID           string        `json:"id"`
	Coordinate   Coordinate    `json:"coordinate"`
	UpdatedAt    time.Time     `json:"updatedAt"`
	TripID       string        `json:"tripId,omitempty"`
	RouteID      string        `json:"routeId,omitempty"`
	Bearing      *float64      `json:"bearing,omitempty"`
	SpeedMps     *float64      `json:"speedMps,omitempty"`
	Status       VehicleStatus `json:"status,omitempty"`
	VehicleLabel string        `json:"vehicleLabel,omitempty"`
}

// EventKind tags the variant carried by an EventEnvelope's data field.
type EventKind string

const (
	KindVehicleUpsert EventKind = "vehicle.upsert"
	KindVehicleRemove EventKind = "vehicle.remove"
)

// SchemaVersion is the only envelope schema version this system speaks.
const SchemaVersion = "1"

// VehicleUpsertEvent carries a full vehicle position to be inserted or
// overwritten.
type VehicleUpsertEvent struct {
	Kind    EventKind       `json:"kind"`
	At      time.Time       `json:"at"`
	CityID  string          `json:"cityId"`
	Source  string          `json:"source"`
	Payload VehiclePosition `json:"payload"`
}

// VehicleRemovePayload identifies the vehicle to drop.
type VehicleRemovePayload struct {
	ID string `json:"id"`
}

// VehicleRemoveEvent carries a vehicle id to be dropped from city state.
type VehicleRemoveEvent struct {
	Kind    EventKind            `json:"kind"`
	At      time.Time            `json:"at"`
	CityID  string               `json:"cityId"`
	Source  string               `json:"source"`
	Payload VehicleRemovePayload `json:"payload"`
}

// Event is the common interface implemented by both validated event
// variants, so the processor can dispatch on Kind without type-switching
// on the envelope shape itself.
type Event interface {
	EventKind() EventKind
	EventCityID() string
}

func (e VehicleUpsertEvent) EventKind() EventKind { return KindVehicleUpsert }
func (e VehicleUpsertEvent) EventCityID() string  { return e.CityID }
func (e VehicleRemoveEvent) EventKind() EventKind { return KindVehicleRemove }
func (e VehicleRemoveEvent) EventCityID() string  { return e.CityID }

// EventEnvelope is the wrapper stored as the "json" field of every stream
// entry. Data holds a concrete VehicleUpsertEvent or VehicleRemoveEvent
// when building an envelope to publish; on decode, callers go through
// internal/validator instead of unmarshalling into this type directly,
// since the wire payload is untyped until classified.
type EventEnvelope struct {
	SchemaVersion string `json:"schemaVersion"`
	Data          any    `json:"data"`
}

// ScopeDefinition is a named viewport: a city plus a normalized bbox.
type ScopeDefinition struct {
	ID              string    `json:"id"`
	CityID          string    `json:"cityId"`
	BBox            BBox      `json:"bbox"`
	CreatedAt       time.Time `json:"createdAt"`
	LastAccessedAt  time.Time `json:"lastAccessedAt,omitempty"`
	ExternalKeyUsed bool      `json:"-"`
}

// ScopedTrainsFrame is the latest vehicle snapshot for one scope.
type ScopedTrainsFrame struct {
	ScopeID  string            `json:"scopeId"`
	BBox     BBox              `json:"bbox"`
	CityID   string            `json:"cityId"`
	At       time.Time         `json:"at"`
	Checksum string            `json:"checksum,omitempty"`
	Vehicles []VehiclePosition `json:"vehicles"`
}
