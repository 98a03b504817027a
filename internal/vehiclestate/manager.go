// Package vehiclestate keeps the authoritative per-city vehicle map, the
// way the teacher's RetryService keeps its activeJobs map: one outer
// mutex guarding a map of maps, sized for a single writer (the
// processor) plus a periodic cleanup task.
package vehiclestate

import (
	"sync"
	"time"

	"github.com/sambitmohanty1/transit-dispatch/internal/models"
)

type record struct {
	position    models.VehiclePosition
	lastUpdated time.Time
}

// Manager is the in-memory vehicle-state store for all cities.
type Manager struct {
	mu    sync.RWMutex
	byCity map[string]map[string]record
}

func NewManager() *Manager {
	return &Manager{byCity: make(map[string]map[string]record)}
}

// UpsertVehicle inserts or overwrites a vehicle's position. Last writer
// wins.
func (m *Manager) UpsertVehicle(cityID, id string, position models.VehiclePosition) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bucket, ok := m.byCity[cityID]
	if !ok {
		bucket = make(map[string]record)
		m.byCity[cityID] = bucket
	}
	bucket[id] = record{position: position, lastUpdated: position.UpdatedAt}
}

// RemoveVehicle deletes a vehicle from a city's bucket, dropping the
// bucket itself once empty.
func (m *Manager) RemoveVehicle(cityID, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bucket, ok := m.byCity[cityID]
	if !ok {
		return
	}
	delete(bucket, id)
	if len(bucket) == 0 {
		delete(m.byCity, cityID)
	}
}

// GetVehiclesForCity returns a copy of the city's vehicle-id -> position
// map, without the internal lastUpdated side field.
func (m *Manager) GetVehiclesForCity(cityID string) map[string]models.VehiclePosition {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bucket := m.byCity[cityID]
	out := make(map[string]models.VehiclePosition, len(bucket))
	for id, r := range bucket {
		out[id] = r.position
	}
	return out
}

// GetVehiclesInBBox returns the positions within a city that lie inside
// bbox, inclusive on all four edges.
func (m *Manager) GetVehiclesInBBox(cityID string, bbox models.BBox) []models.VehiclePosition {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bucket := m.byCity[cityID]
	out := make([]models.VehiclePosition, 0, len(bucket))
	for _, r := range bucket {
		if bbox.Contains(r.position.Coordinate) {
			out = append(out, r.position)
		}
	}
	return out
}

// Cleanup removes vehicles whose lastUpdated is older than maxAge,
// dropping any city bucket left empty.
func (m *Manager) Cleanup(maxAge time.Duration) (removed int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	for cityID, bucket := range m.byCity {
		for id, r := range bucket {
			if r.lastUpdated.Before(cutoff) {
				delete(bucket, id)
				removed++
			}
		}
		if len(bucket) == 0 {
			delete(m.byCity, cityID)
		}
	}
	return removed
}

// Stats is a point-in-time snapshot of tracked vehicle counts.
type Stats struct {
	TotalVehicles int
	PerCity       map[string]int
}

// GetStats returns totals and per-city counts for observability.
func (m *Manager) GetStats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := Stats{PerCity: make(map[string]int, len(m.byCity))}
	for cityID, bucket := range m.byCity {
		stats.PerCity[cityID] = len(bucket)
		stats.TotalVehicles += len(bucket)
	}
	return stats
}
