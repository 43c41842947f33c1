package session

import (
	"context"

	"github.com/resqlabs/console/core/model"
)

// RoomCredentials grants access to the call/media room for an emergency.
type RoomCredentials struct {
	Room      string `json:"room"`
	ServerURL string `json:"server_url"`
	Token     string `json:"token"`
}

// TriageForm captures the operator's assessment of a request.
type TriageForm struct {
	RequestID   int64
	RequesterID int64
	Category    model.AmbulanceCategory
	Priority    model.Priority
	Description string
}

// TriageResult is the backend confirmation of a triage submission. The
// suggested ambulance id is zero when the backend made no suggestion.
type TriageResult struct {
	Emergency            model.Emergency
	SuggestedAmbulanceID int64
}

// DispatchRequest asks the backend to commit an ambulance to an emergency.
type DispatchRequest struct {
	EmergencyID         int64 `json:"emergencia_id"`
	AmbulanceID         int64 `json:"ambulancia_id"`
	AmbulanceOperatorID int64 `json:"operador_ambulancia_id"`
	OperatorID          int64 `json:"operador_emergencia_id"`
}

// RoomAPI obtains call-room credentials from the media collaborator.
type RoomAPI interface {
	JoinRoom(ctx context.Context, room string) (RoomCredentials, error)
}

// TriageAPI submits triage assessments to the backend.
type TriageAPI interface {
	SubmitTriage(ctx context.Context, operatorID int64, form TriageForm) (TriageResult, error)
}

// DispatchAPI commits dispatch decisions to the backend.
type DispatchAPI interface {
	DispatchAmbulance(ctx context.Context, req DispatchRequest) error
}

// FleetAPI fetches the current fleet snapshot.
type FleetAPI interface {
	Ambulances(ctx context.Context) ([]model.Ambulance, error)
}
