// Package validator parses an untyped wire envelope and classifies it
// into a recognized models.Event variant, the way the teacher's webhook
// handlers validate incoming payloads before touching business state.
package validator

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sambitmohanty1/transit-dispatch/internal/models"
)

// Result is the outcome of validating one envelope.
type Result struct {
	OK     bool
	Event  models.Event
	CityID string
	Errors []string
}

type rawEnvelope struct {
	SchemaVersion string          `json:"schemaVersion"`
	Data          json.RawMessage `json:"data"`
}

type rawData struct {
	Kind    string          `json:"kind"`
	At      string          `json:"at"`
	CityID  string          `json:"cityId"`
	Source  string          `json:"source"`
	Payload json.RawMessage `json:"payload"`
}

type rawPosition struct {
	ID         string             `json:"id"`
	Coordinate models.Coordinate  `json:"coordinate"`
	UpdatedAt  string             `json:"updatedAt"`
	TripID     string             `json:"tripId"`
	RouteID    string             `json:"routeId"`
	Bearing    *float64           `json:"bearing"`
	SpeedMps   *float64           `json:"speedMps"`
	Status     models.VehicleStatus `json:"status"`
	Label      string             `json:"vehicleLabel"`
}

type rawRemovePayload struct {
	ID string `json:"id"`
}

// ValidateBytes parses raw JSON bytes (as carried in a stream entry's
// "json" field) into a classified event.
func ValidateBytes(body []byte) Result {
	var env rawEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fail("malformed envelope JSON: " + err.Error())
	}
	return Validate(env)
}

func Validate(env rawEnvelope) Result {
	if env.SchemaVersion != models.SchemaVersion {
		return fail(fmt.Sprintf("unsupported schemaVersion %q", env.SchemaVersion))
	}
	if len(env.Data) == 0 {
		return fail("missing data")
	}

	var rd rawData
	if err := json.Unmarshal(env.Data, &rd); err != nil {
		return fail("malformed data: " + err.Error())
	}

	var errorsList []string

	if rd.CityID == "" {
		errorsList = append(errorsList, "missing cityId")
	}
	if rd.Source == "" {
		errorsList = append(errorsList, "missing source")
	}

	at, err := parseTimestamp(rd.At)
	if err != nil {
		errorsList = append(errorsList, "malformed at: "+err.Error())
	}

	switch models.EventKind(rd.Kind) {
	case models.KindVehicleUpsert:
		pos, posErrs := validatePosition(rd.Payload)
		errorsList = append(errorsList, posErrs...)
		if len(errorsList) > 0 {
			return Result{OK: false, Errors: errorsList}
		}
		return Result{
			OK: true,
			Event: models.VehicleUpsertEvent{
				Kind: models.KindVehicleUpsert, At: at, CityID: rd.CityID, Source: rd.Source, Payload: pos,
			},
			CityID: rd.CityID,
		}

	case models.KindVehicleRemove:
		var rp rawRemovePayload
		if err := json.Unmarshal(rd.Payload, &rp); err != nil {
			errorsList = append(errorsList, "malformed payload: "+err.Error())
		} else if rp.ID == "" {
			errorsList = append(errorsList, "missing payload.id")
		}
		if len(errorsList) > 0 {
			return Result{OK: false, Errors: errorsList}
		}
		return Result{
			OK: true,
			Event: models.VehicleRemoveEvent{
				Kind: models.KindVehicleRemove, At: at, CityID: rd.CityID, Source: rd.Source,
				Payload: models.VehicleRemovePayload{ID: rp.ID},
			},
			CityID: rd.CityID,
		}

	default:
		errorsList = append(errorsList, fmt.Sprintf("unknown kind %q", rd.Kind))
		return Result{OK: false, Errors: errorsList}
	}
}

func validatePosition(raw json.RawMessage) (models.VehiclePosition, []string) {
	var rp rawPosition
	if err := json.Unmarshal(raw, &rp); err != nil {
		return models.VehiclePosition{}, []string{"malformed payload: " + err.Error()}
	}

	var errorsList []string
	if rp.ID == "" {
		errorsList = append(errorsList, "missing payload.id")
	}
	if !rp.Coordinate.Valid() {
		errorsList = append(errorsList, "payload.coordinate out of range")
	}

	updatedAt, err := parseTimestamp(rp.UpdatedAt)
	if err != nil {
		errorsList = append(errorsList, "malformed payload.updatedAt: "+err.Error())
	}
	if updatedAt.Year() < 1800 || updatedAt.Year() > 9999 {
		errorsList = append(errorsList, "payload.updatedAt year out of range")
	}

	if rp.Bearing != nil && (*rp.Bearing < 0 || *rp.Bearing >= 360) {
		errorsList = append(errorsList, "payload.bearing out of range")
	}
	if rp.SpeedMps != nil && *rp.SpeedMps < 0 {
		errorsList = append(errorsList, "payload.speedMps must be >= 0")
	}
	if !rp.Status.Valid() {
		errorsList = append(errorsList, fmt.Sprintf("payload.status %q is not a recognized status", rp.Status))
	}

	if len(errorsList) > 0 {
		return models.VehiclePosition{}, errorsList
	}

	return models.VehiclePosition{
		ID:           rp.ID,
		Coordinate:   rp.Coordinate,
		UpdatedAt:    updatedAt,
		TripID:       rp.TripID,
		RouteID:      rp.RouteID,
		Bearing:      rp.Bearing,
		SpeedMps:     rp.SpeedMps,
		Status:       rp.Status,
		VehicleLabel: rp.Label,
	}, nil
}

// parseTimestamp accepts only ISO-8601 UTC, Z-suffixed timestamps, per
// spec's VehiclePosition.updatedAt constraint.
func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if s[len(s)-1] != 'Z' {
		return time.Time{}, fmt.Errorf("timestamp must be Z-suffixed UTC")
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func fail(msg string) Result {
	return Result{OK: false, Errors: []string{msg}}
}
