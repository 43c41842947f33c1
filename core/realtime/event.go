package realtime

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/resqlabs/console/core/model"
)

// Wire message type identifiers used by the push channel.
const (
	TypeNewRequest       = "nueva_solicitud"
	TypeEmergencyUpdated = "emergencia_actualizada"
	TypeFleetInfo        = "info_ambulancias"
	TypePosition         = "ubicacion_ambulancia"
)

var (
	// ErrMissingEmergencyID is returned when an update frame carries no identity.
	ErrMissingEmergencyID = errors.New("emergency update without id")
	// ErrMissingAmbulanceID is returned when a position frame carries no unit id.
	ErrMissingAmbulanceID = errors.New("position update without id_ambulancia")
)

// Event is a decoded push-channel message.
type Event interface {
	EventType() string
}

// NewRequestEvent announces a new emergency request.
type NewRequestEvent struct {
	Emergency model.Emergency
}

func (NewRequestEvent) EventType() string { return TypeNewRequest }

// EmergencyUpdatedEvent carries a partial update for an existing emergency.
type EmergencyUpdatedEvent struct {
	ID    int64
	Patch model.EmergencyPatch
}

func (EmergencyUpdatedEvent) EventType() string { return TypeEmergencyUpdated }

// FleetInfoEvent is a bulk snapshot of ambulance positions.
type FleetInfoEvent struct {
	EmergencyID int64
	Positions   []model.AmbulancePosition
}

func (FleetInfoEvent) EventType() string { return TypeFleetInfo }

// PositionEvent updates the position of a single ambulance.
type PositionEvent struct {
	Position model.AmbulancePosition
}

func (PositionEvent) EventType() string { return TypePosition }

// UnknownEvent carries a message whose type is not recognized. The raw frame
// is retained so consumers can inspect it; the store ignores it.
type UnknownEvent struct {
	Type string
	Raw  json.RawMessage
}

func (e UnknownEvent) EventType() string { return e.Type }

// Decode parses a raw frame into a typed event. Messages with an unknown
// type decode into UnknownEvent rather than failing; malformed frames and
// frames missing required identities return an error and must be dropped by
// the caller.
func Decode(data []byte) (Event, error) {
	var env struct {
		Type        string                    `json:"type"`
		Data        json.RawMessage           `json:"data"`
		EmergencyID int64                     `json:"emergencia_id"`
		Ambulances  []model.AmbulancePosition `json:"ambulancias"`
		AmbulanceID *int64                    `json:"id_ambulancia"`
		Lat         float64                   `json:"latitud"`
		Lon         float64                   `json:"longitud"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	switch env.Type {
	case TypeNewRequest:
		var e model.Emergency
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		e.Normalize()
		return NewRequestEvent{Emergency: e}, nil

	case TypeEmergencyUpdated:
		var id struct {
			ID *int64 `json:"id"`
		}
		if err := json.Unmarshal(env.Data, &id); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		if id.ID == nil {
			return nil, ErrMissingEmergencyID
		}
		var p model.EmergencyPatch
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return EmergencyUpdatedEvent{ID: *id.ID, Patch: p}, nil

	case TypeFleetInfo:
		return FleetInfoEvent{EmergencyID: env.EmergencyID, Positions: env.Ambulances}, nil

	case TypePosition:
		if env.AmbulanceID == nil {
			return nil, ErrMissingAmbulanceID
		}
		return PositionEvent{Position: model.AmbulancePosition{
			AmbulanceID: *env.AmbulanceID,
			Lat:         env.Lat,
			Lon:         env.Lon,
		}}, nil

	default:
		return UnknownEvent{Type: env.Type, Raw: append(json.RawMessage(nil), data...)}, nil
	}
}
