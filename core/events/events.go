// Package events defines the notifications published on the internal event
// bus so UI consumers can react to live state changes without polling.
package events

import (
	"github.com/resqlabs/console/core/model"
	"github.com/resqlabs/console/core/realtime"
)

// EmergencyAdded is published when a new request enters the live store.
type EmergencyAdded struct {
	Emergency model.Emergency
}

// EmergencyUpdated is published after a partial update was merged.
type EmergencyUpdated struct {
	Emergency model.Emergency
}

// EmergencyRemoved is published when an entry leaves the live store.
type EmergencyRemoved struct {
	ID int64
}

// PositionsUpdated is published after ambulance positions changed.
type PositionsUpdated struct {
	Count int
}

// ConnStateChanged is published on realtime connection transitions.
type ConnStateChanged struct {
	State realtime.ConnState
	Err   error
}

// DispatchCompleted is published after a dispatch was confirmed.
type DispatchCompleted struct {
	EmergencyID int64
	AmbulanceID int64
}
