package framecompute

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sambitmohanty1/transit-dispatch/internal/models"
	"github.com/sambitmohanty1/transit-dispatch/internal/scopestore"
)

func TestComputer_ComputeFrames_FiltersByScopeBBox(t *testing.T) {
	store := scopestore.NewStore(time.Minute, zap.NewNop())
	store.UpsertScope(models.ScopeDefinition{
		ID: "s1", CityID: "nyc",
		BBox: models.BBox{South: 0, West: 0, North: 10, East: 10},
	}, 0)

	vehicles := map[string]models.VehiclePosition{
		"inside":  {ID: "inside", Coordinate: models.Coordinate{Lat: 5, Lng: 5}},
		"outside": {ID: "outside", Coordinate: models.Coordinate{Lat: 50, Lng: 50}},
	}

	c := NewComputer(store)
	result := c.ComputeFrames("nyc", vehicles, func(def models.ScopeDefinition) bool { return def.CityID == "nyc" })

	assert.Equal(t, 1, result.ScopesProcessed)
	assert.Equal(t, 1, result.VehiclesIncluded)
	assert.Empty(t, result.Errors)

	frame, ok := store.GetFrame("s1")
	require.True(t, ok)
	require.Len(t, frame.Vehicles, 1)
	assert.Equal(t, "inside", frame.Vehicles[0].ID)
}

func TestComputer_ComputeFrames_SkipsScopesFailingFilter(t *testing.T) {
	store := scopestore.NewStore(time.Minute, zap.NewNop())
	store.UpsertScope(models.ScopeDefinition{ID: "other-city", CityID: "sf"}, 0)

	c := NewComputer(store)
	result := c.ComputeFrames("nyc", map[string]models.VehiclePosition{}, func(def models.ScopeDefinition) bool {
		return def.CityID == "nyc"
	})

	assert.Equal(t, 0, result.ScopesProcessed)
	_, ok := store.GetFrame("other-city")
	assert.False(t, ok)
}

func TestComputer_ComputeFrames_RemovalShrinksFrame(t *testing.T) {
	store := scopestore.NewStore(time.Minute, zap.NewNop())
	store.UpsertScope(models.ScopeDefinition{
		ID: "s1", CityID: "nyc",
		BBox: models.BBox{South: 0, West: 0, North: 10, East: 10},
	}, 0)
	c := NewComputer(store)

	vehicles := map[string]models.VehiclePosition{
		"a": {ID: "a", Coordinate: models.Coordinate{Lat: 1, Lng: 1}},
		"b": {ID: "b", Coordinate: models.Coordinate{Lat: 2, Lng: 2}},
	}
	c.ComputeFrames("nyc", vehicles, func(def models.ScopeDefinition) bool { return true })
	frame, _ := store.GetFrame("s1")
	require.Len(t, frame.Vehicles, 2)

	delete(vehicles, "b")
	c.ComputeFrames("nyc", vehicles, func(def models.ScopeDefinition) bool { return true })
	frame, _ = store.GetFrame("s1")
	require.Len(t, frame.Vehicles, 1)
	assert.Equal(t, "a", frame.Vehicles[0].ID)
}
