// Package store holds the operator's live view of active emergencies and
// ambulance positions. It is fed exclusively by realtime channel callbacks
// and read by the UI and the dispatch selector.
package store

import (
	"sync"

	"github.com/resqlabs/console/core/model"
)

// Store is the single source of truth for what the operator currently sees.
// Writes come from one goroutine (the channel handler); the mutex makes the
// read-only views safe from any other goroutine.
type Store struct {
	mu          sync.RWMutex
	emergencies []model.Emergency
	selected    *model.Emergency
	positions   map[int64]model.AmbulancePosition
}

// New creates an empty Store.
func New() *Store {
	return &Store{positions: make(map[int64]model.AmbulancePosition)}
}

// AddEmergency inserts the emergency at the front of the queue. An emergency
// whose identity is already present is a no-op; callers refreshing fields
// must use UpdateEmergency. Returns whether the entry was inserted.
func (s *Store) AddEmergency(e model.Emergency) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.emergencies {
		if s.emergencies[i].ID == e.ID {
			return false
		}
	}
	s.emergencies = append([]model.Emergency{e}, s.emergencies...)
	return true
}

// UpdateEmergency merges the patch into the matching entry. Unknown ids are
// a no-op. When the selected emergency has this identity the selection is
// refreshed so observers never see a stale value. Returns whether an entry
// was updated.
func (s *Store) UpdateEmergency(id int64, p model.EmergencyPatch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.emergencies {
		if s.emergencies[i].ID != id {
			continue
		}
		s.emergencies[i].Apply(p)
		if s.selected != nil && s.selected.ID == id {
			merged := s.emergencies[i]
			s.selected = &merged
		}
		return true
	}
	return false
}

// RemoveEmergency deletes the matching entry and clears the selection if it
// pointed at that identity. Returns whether an entry was removed.
func (s *Store) RemoveEmergency(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.emergencies {
		if s.emergencies[i].ID != id {
			continue
		}
		s.emergencies = append(s.emergencies[:i], s.emergencies[i+1:]...)
		if s.selected != nil && s.selected.ID == id {
			s.selected = nil
		}
		return true
	}
	return false
}

// SelectEmergency sets the single active pointer. Passing nil clears it.
func (s *Store) SelectEmergency(e *model.Emergency) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e == nil {
		s.selected = nil
		return
	}
	cp := *e
	s.selected = &cp
}

// Selected returns a copy of the currently selected emergency, or nil.
func (s *Store) Selected() *model.Emergency {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selected == nil {
		return nil
	}
	cp := *s.selected
	return &cp
}

// Emergency returns a copy of the entry with the given identity.
func (s *Store) Emergency(id int64) (model.Emergency, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.emergencies {
		if s.emergencies[i].ID == id {
			return s.emergencies[i], true
		}
	}
	return model.Emergency{}, false
}

// Emergencies returns the active emergencies in newest-first order.
func (s *Store) Emergencies() []model.Emergency {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Emergency, len(s.emergencies))
	copy(out, s.emergencies)
	return out
}

// RecordPosition upserts a single ambulance position, latest wins.
func (s *Store) RecordPosition(id int64, lat, lon float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[id] = model.AmbulancePosition{AmbulanceID: id, Lat: lat, Lon: lon}
}

// SetPositions replaces the whole position map with the given snapshot.
func (s *Store) SetPositions(positions []model.AmbulancePosition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions = make(map[int64]model.AmbulancePosition, len(positions))
	for _, p := range positions {
		s.positions[p.AmbulanceID] = p
	}
}

// Positions returns a copy of the known ambulance positions keyed by unit id.
func (s *Store) Positions() map[int64]model.AmbulancePosition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]model.AmbulancePosition, len(s.positions))
	for k, v := range s.positions {
		out[k] = v
	}
	return out
}

// Clear empties both collections and the selection. Used on session and
// logout boundaries.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emergencies = nil
	s.selected = nil
	s.positions = make(map[int64]model.AmbulancePosition)
}
