// Package framecompute recomputes scoped frames for a city whenever its
// vehicle state changes, writing results back into the scope store.
package framecompute

import (
	"fmt"
	"time"

	"github.com/sambitmohanty1/transit-dispatch/internal/models"
	"github.com/sambitmohanty1/transit-dispatch/internal/scopestore"
)

// ScopeFilter decides whether a scope participates in one computation
// pass; the typical filter is "same cityId".
type ScopeFilter func(models.ScopeDefinition) bool

// Result summarizes one computation pass, per spec §4.5.
type Result struct {
	ScopesProcessed  int
	VehiclesIncluded int
	ProcessingTimeMs int64
	Errors           []string
}

// Computer produces and stores one frame per active scope that passes
// the filter.
type Computer struct {
	store *scopestore.Store
}

func NewComputer(store *scopestore.Store) *Computer {
	return &Computer{store: store}
}

// Store exposes the backing scope store for callers that need to report
// on it directly (e.g. the processor's scopes_active gauge) without
// duplicating a reference to it.
func (c *Computer) Store() *scopestore.Store {
	return c.store
}

// ComputeFrames iterates active scopes via the store, applies filter,
// and for each included scope writes a frame filtered to that scope's
// bbox.
func (c *Computer) ComputeFrames(cityID string, vehicles map[string]models.VehiclePosition, filter ScopeFilter) Result {
	start := time.Now()
	result := Result{}

	c.store.ForEachActiveScope(func(def models.ScopeDefinition) {
		if !filter(def) {
			return
		}

		func() {
			defer func() {
				if r := recover(); r != nil {
					result.Errors = append(result.Errors, fmt.Sprintf("scope %s: %v", def.ID, r))
				}
			}()

			filtered := filterByBBox(vehicles, def.BBox)
			frame := models.ScopedTrainsFrame{
				ScopeID:  def.ID,
				BBox:     def.BBox,
				CityID:   def.CityID,
				At:       time.Now().UTC(),
				Vehicles: filtered,
			}
			c.store.SetFrame(frame, 0)

			result.ScopesProcessed++
			result.VehiclesIncluded += len(filtered)
		}()
	})

	result.ProcessingTimeMs = time.Since(start).Milliseconds()
	return result
}

func filterByBBox(vehicles map[string]models.VehiclePosition, bbox models.BBox) []models.VehiclePosition {
	out := make([]models.VehiclePosition, 0, len(vehicles))
	for _, v := range vehicles {
		if bbox.Contains(v.Coordinate) {
			out = append(out, v)
		}
	}
	return out
}
