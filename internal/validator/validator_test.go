package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sambitmohanty1/transit-dispatch/internal/models"
)

func validUpsertJSON() []byte {
	return []byte(`{
		"schemaVersion": "1",
		"data": {
			"kind": "vehicle.upsert",
			"at": "2026-08-01T12:00:00Z",
			"cityId": "nyc",
			"source": "gtfs-rt",
			"payload": {
				"id": "bus-1",
				"coordinate": {"lat": 40.7, "lng": -74.0},
				"updatedAt": "2026-08-01T12:00:00Z",
				"bearing": 90,
				"speedMps": 5.5,
				"status": "in_service"
			}
		}
	}`)
}

func TestValidateBytes_ValidUpsert(t *testing.T) {
	result := ValidateBytes(validUpsertJSON())
	require.True(t, result.OK, result.Errors)
	assert.Equal(t, "nyc", result.CityID)

	ev, ok := result.Event.(models.VehicleUpsertEvent)
	require.True(t, ok)
	assert.Equal(t, "bus-1", ev.Payload.ID)
	assert.Equal(t, models.StatusInService, ev.Payload.Status)
}

func TestValidateBytes_ValidRemove(t *testing.T) {
	body := []byte(`{
		"schemaVersion": "1",
		"data": {
			"kind": "vehicle.remove",
			"at": "2026-08-01T12:00:00Z",
			"cityId": "nyc",
			"source": "gtfs-rt",
			"payload": {"id": "bus-1"}
		}
	}`)

	result := ValidateBytes(body)
	require.True(t, result.OK, result.Errors)

	ev, ok := result.Event.(models.VehicleRemoveEvent)
	require.True(t, ok)
	assert.Equal(t, "bus-1", ev.Payload.ID)
}

func TestValidateBytes_RejectsMalformedJSON(t *testing.T) {
	result := ValidateBytes([]byte(`not json`))
	assert.False(t, result.OK)
	require.Len(t, result.Errors, 1)
}

func TestValidateBytes_RejectsUnsupportedSchemaVersion(t *testing.T) {
	result := ValidateBytes([]byte(`{"schemaVersion":"2","data":{}}`))
	assert.False(t, result.OK)
	assert.Contains(t, result.Errors[0], "unsupported schemaVersion")
}

func TestValidateBytes_RejectsUnknownKind(t *testing.T) {
	body := []byte(`{"schemaVersion":"1","data":{"kind":"vehicle.teleport","cityId":"nyc","source":"x","at":"2026-08-01T12:00:00Z","payload":{}}}`)
	result := ValidateBytes(body)
	assert.False(t, result.OK)
	assert.Contains(t, result.Errors[0], "unknown kind")
}

func TestValidateBytes_RejectsNonZSuffixedTimestamp(t *testing.T) {
	body := []byte(`{"schemaVersion":"1","data":{"kind":"vehicle.remove","cityId":"nyc","source":"x","at":"2026-08-01T12:00:00","payload":{"id":"bus-1"}}}`)
	result := ValidateBytes(body)
	assert.False(t, result.OK)
	assert.Contains(t, result.Errors[0], "malformed at")
}

func TestValidateBytes_RejectsBearingOutOfRange(t *testing.T) {
	body := []byte(`{
		"schemaVersion": "1",
		"data": {
			"kind": "vehicle.upsert", "at": "2026-08-01T12:00:00Z", "cityId": "nyc", "source": "x",
			"payload": {"id": "bus-1", "coordinate": {"lat": 1, "lng": 1}, "updatedAt": "2026-08-01T12:00:00Z", "bearing": 360}
		}
	}`)
	result := ValidateBytes(body)
	assert.False(t, result.OK)
	assert.Contains(t, result.Errors, "payload.bearing out of range")
}

func TestValidateBytes_RejectsUnrecognizedStatus(t *testing.T) {
	body := []byte(`{
		"schemaVersion": "1",
		"data": {
			"kind": "vehicle.upsert", "at": "2026-08-01T12:00:00Z", "cityId": "nyc", "source": "x",
			"payload": {"id": "bus-1", "coordinate": {"lat": 1, "lng": 1}, "updatedAt": "2026-08-01T12:00:00Z", "status": "teleporting"}
		}
	}`)
	result := ValidateBytes(body)
	assert.False(t, result.OK)
}

func TestValidateBytes_RejectsMissingCityID(t *testing.T) {
	body := []byte(`{"schemaVersion":"1","data":{"kind":"vehicle.remove","source":"x","at":"2026-08-01T12:00:00Z","payload":{"id":"bus-1"}}}`)
	result := ValidateBytes(body)
	assert.False(t, result.OK)
	assert.Contains(t, result.Errors, "missing cityId")
}
