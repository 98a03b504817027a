// Package scopestore holds TTL-indexed scope definitions and their
// latest computed frames, the way the teacher's RetryService.activeJobs
// map is guarded by a single RWMutex — except here there are two
// independently-locked maps, since the HTTP API reads while the
// processor writes.
package scopestore

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sambitmohanty1/transit-dispatch/internal/models"
)

// DefaultTTL is the store-wide default TTL NewStore falls back to when
// given a non-positive one. UpsertScope/SetFrame calls without a TTL use
// the store-wide default.
const DefaultTTL = 2 * time.Minute

type scopeEntry struct {
	def       models.ScopeDefinition
	expiresAt time.Time
}

type frameEntry struct {
	frame     models.ScopedTrainsFrame
	expiresAt time.Time
}

// Store holds scope definitions and scoped frames behind independent
// mutexes, with lazy expiration on access.
type Store struct {
	logger *zap.Logger

	defMu sync.RWMutex
	defs  map[string]scopeEntry

	frameMu sync.RWMutex
	frames  map[string]frameEntry

	defaultTTL time.Duration
}

func NewStore(defaultTTL time.Duration, logger *zap.Logger) *Store {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &Store{
		logger:     logger,
		defs:       make(map[string]scopeEntry),
		frames:     make(map[string]frameEntry),
		defaultTTL: defaultTTL,
	}
}

// UpsertScope writes or refreshes a scope definition's expiry.
func (s *Store) UpsertScope(def models.ScopeDefinition, ttl time.Duration) {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	s.defMu.Lock()
	s.defs[def.ID] = scopeEntry{def: def, expiresAt: time.Now().Add(ttl)}
	s.defMu.Unlock()

	s.logger.Debug("scope created", zap.String("scopeId", def.ID), zap.String("cityId", def.CityID))
}

// GetScope returns the definition, or ok=false if missing or expired.
// An expired entry is deleted as a side effect.
func (s *Store) GetScope(id string) (models.ScopeDefinition, bool) {
	s.defMu.RLock()
	entry, found := s.defs[id]
	s.defMu.RUnlock()

	if !found {
		return models.ScopeDefinition{}, false
	}
	if time.Now().After(entry.expiresAt) {
		s.defMu.Lock()
		delete(s.defs, id)
		s.defMu.Unlock()
		return models.ScopeDefinition{}, false
	}
	return entry.def, true
}

// TouchScope updates LastAccessedAt for observability only; it never
// affects TTL (see SPEC_FULL.md §3 — the "refresh on POST only" decision).
func (s *Store) TouchScope(id string) {
	s.defMu.Lock()
	defer s.defMu.Unlock()
	entry, found := s.defs[id]
	if !found {
		return
	}
	entry.def.LastAccessedAt = time.Now().UTC()
	s.defs[id] = entry
}

// SetFrame writes or refreshes a frame's expiry.
func (s *Store) SetFrame(frame models.ScopedTrainsFrame, ttl time.Duration) {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	s.frameMu.Lock()
	s.frames[frame.ScopeID] = frameEntry{frame: frame, expiresAt: time.Now().Add(ttl)}
	s.frameMu.Unlock()

	s.logger.Debug("frame updated", zap.String("scopeId", frame.ScopeID), zap.Int("vehicles", len(frame.Vehicles)))
}

// GetFrame returns the frame, or ok=false if missing or expired. An
// expired entry is deleted as a side effect.
func (s *Store) GetFrame(id string) (models.ScopedTrainsFrame, bool) {
	s.frameMu.RLock()
	entry, found := s.frames[id]
	s.frameMu.RUnlock()

	if !found {
		return models.ScopedTrainsFrame{}, false
	}
	if time.Now().After(entry.expiresAt) {
		s.frameMu.Lock()
		delete(s.frames, id)
		s.frameMu.Unlock()
		return models.ScopedTrainsFrame{}, false
	}
	return entry.frame, true
}

// ForEachActiveScope iterates definitions, skipping (and lazily deleting)
// expired entries, and invoking visit for each live one.
func (s *Store) ForEachActiveScope(visit func(models.ScopeDefinition)) {
	now := time.Now()

	s.defMu.RLock()
	live := make([]models.ScopeDefinition, 0, len(s.defs))
	expired := make([]string, 0)
	for id, entry := range s.defs {
		if now.After(entry.expiresAt) {
			expired = append(expired, id)
			continue
		}
		live = append(live, entry.def)
	}
	s.defMu.RUnlock()

	if len(expired) > 0 {
		s.defMu.Lock()
		for _, id := range expired {
			delete(s.defs, id)
		}
		s.defMu.Unlock()
	}

	for _, def := range live {
		visit(def)
	}
}

// ActiveScopeCount reports the number of non-expired scope definitions,
// for metrics.
func (s *Store) ActiveScopeCount() int {
	count := 0
	s.ForEachActiveScope(func(models.ScopeDefinition) { count++ })
	return count
}
