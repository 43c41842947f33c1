// Package selector recommends exactly one ambulance to dispatch for a
// given emergency. It performs no I/O and never mutates the live store.
package selector

import (
	"errors"

	"github.com/resqlabs/console/core/geo"
	"github.com/resqlabs/console/core/model"
)

var (
	// ErrNoMatchingUnit is returned when no available unit of the required
	// category exists in the fleet snapshot.
	ErrNoMatchingUnit = errors.New("no matching unit available")

	// ErrSuggestedUnavailable is returned when the server-suggested unit is
	// absent from the available fleet snapshot. This signals a consistency
	// problem between the triage response and the live fleet; it must not
	// be papered over with a locally computed alternative.
	ErrSuggestedUnavailable = errors.New("suggested unit unavailable")
)

// Selection is the recommended dispatch target. DistanceKm is measured from
// the emergency location; Recommended reports whether the unit matches the
// server-suggested identity.
type Selection struct {
	Ambulance   model.Ambulance
	DistanceKm  float64
	Recommended bool
}

// Selector tracks the server-suggested unit and the operator's current
// choice for one dispatch flow.
type Selector struct {
	suggestedID int64
	selected    *model.Ambulance
}

// New creates a Selector. A zero suggestedID means the backend supplied no
// suggestion and the selector falls back to local nearest-unit inference.
func New(suggestedID int64) *Selector {
	return &Selector{suggestedID: suggestedID}
}

// Recommend picks the unit to present to the operator. With a server
// suggestion present it locates that identity in the filtered snapshot and
// fails hard when absent; otherwise it selects the nearest available unit
// of the required category, ties broken by first-encountered order.
func (s *Selector) Recommend(e model.Emergency, fleet []model.Ambulance) (Selection, error) {
	candidates := filter(fleet, e.Category)

	if s.suggestedID != 0 {
		for _, a := range candidates {
			if a.ID == s.suggestedID {
				sel := Selection{
					Ambulance:   a,
					DistanceKm:  geo.DistanceKm(e.Location.Lat, e.Location.Lon, a.Location.Lat, a.Location.Lon),
					Recommended: true,
				}
				s.selected = &sel.Ambulance
				return sel, nil
			}
		}
		return Selection{}, ErrSuggestedUnavailable
	}

	if len(candidates) == 0 {
		return Selection{}, ErrNoMatchingUnit
	}
	best := candidates[0]
	bestDist := geo.DistanceKm(e.Location.Lat, e.Location.Lon, best.Location.Lat, best.Location.Lon)
	for _, a := range candidates[1:] {
		d := geo.DistanceKm(e.Location.Lat, e.Location.Lon, a.Location.Lat, a.Location.Lon)
		if d < bestDist {
			best, bestDist = a, d
		}
	}
	s.selected = &best
	return Selection{Ambulance: best, DistanceKm: bestDist, Recommended: s.IsRecommended(best.ID)}, nil
}

// Select records an operator override (e.g. a map click) as the active
// selection without re-running the filtering logic.
func (s *Selector) Select(a model.Ambulance) {
	cp := a
	s.selected = &cp
}

// Selected returns a copy of the active selection, or nil.
func (s *Selector) Selected() *model.Ambulance {
	if s.selected == nil {
		return nil
	}
	cp := *s.selected
	return &cp
}

// IsRecommended reports whether the given unit is the server-suggested one.
func (s *Selector) IsRecommended(id int64) bool {
	return s.suggestedID != 0 && id == s.suggestedID
}

func filter(fleet []model.Ambulance, category model.AmbulanceCategory) []model.Ambulance {
	out := make([]model.Ambulance, 0, len(fleet))
	for _, a := range fleet {
		if a.Available && a.Category == category {
			out = append(out, a)
		}
	}
	return out
}
