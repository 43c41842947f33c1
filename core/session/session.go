// Package session drives the operator workflow for a single emergency:
// joining the call room, submitting the triage assessment and confirming
// the dispatch. Transitions are strictly ordered; skipping a step is an
// error rather than a silent repair.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/resqlabs/console/core/logger"
	"github.com/resqlabs/console/core/model"
)

// State is the current workflow step.
type State string

const (
	StateIdle            State = "idle"
	StateJoined          State = "joined"
	StateTriaged         State = "triaged"
	StateDispatchPending State = "dispatch_pending"
	StateDispatched      State = "dispatched"
	StateError           State = "error"
)

var (
	// ErrInvalidTransition is returned when an operation is attempted out
	// of order, e.g. dispatching before triage.
	ErrInvalidTransition = errors.New("invalid workflow transition")

	// ErrValidation wraps local form validation failures. Nothing is sent
	// to the backend when validation fails.
	ErrValidation = errors.New("validation failed")

	// ErrNoOperator is returned when the chosen unit has no ambulance
	// operator assigned; the backend rejects such dispatches, so the
	// session refuses them locally.
	ErrNoOperator = errors.New("selected unit has no operator assigned")
)

// Session is the per-emergency workflow state machine. It is not safe for
// concurrent use; the console drives it from a single goroutine.
type Session struct {
	rooms    RoomAPI
	triage   TriageAPI
	dispatch DispatchAPI
	log      logger.Logger

	id         string
	operatorID int64
	state      State
	lastErr    error

	room      RoomCredentials
	emergency model.Emergency
	suggested int64
}

// New creates an idle session for the given console operator.
func New(operatorID int64, rooms RoomAPI, triage TriageAPI, dispatch DispatchAPI, log logger.Logger) *Session {
	return &Session{
		rooms:      rooms,
		triage:     triage,
		dispatch:   dispatch,
		log:        log,
		id:         uuid.NewString(),
		operatorID: operatorID,
		state:      StateIdle,
	}
}

// ID is the correlation identifier carried through logs for this workflow.
func (s *Session) ID() string { return s.id }

// State returns the current workflow step.
func (s *Session) State() State { return s.state }

// Err returns the failure that moved the session into StateError, or nil.
func (s *Session) Err() error { return s.lastErr }

// Emergency returns the emergency confirmed by triage. Zero value before
// triage succeeded.
func (s *Session) Emergency() model.Emergency { return s.emergency }

// SuggestedAmbulanceID returns the backend suggestion from triage, zero
// when none was made.
func (s *Session) SuggestedAmbulanceID() int64 { return s.suggested }

// Room returns the credentials obtained by Join.
func (s *Session) Room() RoomCredentials { return s.room }

// Join attaches the operator to the emergency call room. A failed join
// leaves the session idle so the operator can retry.
func (s *Session) Join(ctx context.Context, room string) error {
	if s.state != StateIdle {
		return fmt.Errorf("%w: join from %s", ErrInvalidTransition, s.state)
	}
	creds, err := s.rooms.JoinRoom(ctx, room)
	if err != nil {
		s.log.Warnf("room join failed: %v", err)
		return fmt.Errorf("joining room %q: %w", room, err)
	}
	s.room = creds
	s.state = StateJoined
	s.log.Infof("session %s joined room %s", s.id, creds.Room)
	return nil
}

// Triage validates the form locally and submits it. On success the session
// carries the confirmed emergency and the suggested unit forward and moves
// straight to dispatch_pending. A backend failure moves the session to
// StateError with the cause preserved.
func (s *Session) Triage(ctx context.Context, form TriageForm) error {
	if s.state != StateJoined {
		return fmt.Errorf("%w: triage from %s", ErrInvalidTransition, s.state)
	}
	if err := validateTriage(form); err != nil {
		return err
	}
	res, err := s.triage.SubmitTriage(ctx, s.operatorID, form)
	if err != nil {
		s.fail(fmt.Errorf("submitting triage for request %d: %w", form.RequestID, err))
		return s.lastErr
	}
	res.Emergency.Normalize()
	s.emergency = res.Emergency
	s.suggested = res.SuggestedAmbulanceID
	s.state = StateTriaged
	// unit selection follows immediately, there is no operator step between
	s.state = StateDispatchPending
	s.log.Infof("triage accepted: emergency=%d suggested=%d", res.Emergency.ID, res.SuggestedAmbulanceID)
	return nil
}

// Dispatch commits the chosen unit. The unit must carry an assigned
// ambulance operator; otherwise the request is refused locally. On success
// the workflow completes and the carried triage context is cleared.
func (s *Session) Dispatch(ctx context.Context, unit model.Ambulance) error {
	if s.state != StateDispatchPending {
		return fmt.Errorf("%w: dispatch from %s", ErrInvalidTransition, s.state)
	}
	if unit.OperatorID <= 0 {
		return fmt.Errorf("%w: unit %d", ErrNoOperator, unit.ID)
	}
	req := DispatchRequest{
		EmergencyID:         s.emergency.ID,
		AmbulanceID:         unit.ID,
		AmbulanceOperatorID: unit.OperatorID,
		OperatorID:          s.operatorID,
	}
	if err := s.dispatch.DispatchAmbulance(ctx, req); err != nil {
		s.fail(fmt.Errorf("dispatching unit %d for emergency %d: %w", unit.ID, s.emergency.ID, err))
		return s.lastErr
	}
	s.log.Infof("dispatch confirmed: emergency=%d ambulance=%d", s.emergency.ID, unit.ID)
	s.emergency = model.Emergency{}
	s.suggested = 0
	s.state = StateDispatched
	return nil
}

// Reset returns the session to idle so a new emergency can be handled.
func (s *Session) Reset() {
	s.state = StateIdle
	s.lastErr = nil
	s.room = RoomCredentials{}
	s.emergency = model.Emergency{}
	s.suggested = 0
}

func (s *Session) fail(err error) {
	s.state = StateError
	s.lastErr = err
	s.log.Errorf("workflow failed: %v", err)
}

func validateTriage(f TriageForm) error {
	if f.RequestID <= 0 {
		return fmt.Errorf("%w: missing request id", ErrValidation)
	}
	if f.RequesterID <= 0 {
		return fmt.Errorf("%w: missing requester id", ErrValidation)
	}
	if !f.Category.Valid() {
		return fmt.Errorf("%w: unknown ambulance category %q", ErrValidation, f.Category)
	}
	if !f.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrValidation, f.Priority)
	}
	if f.Description == "" {
		return fmt.Errorf("%w: empty description", ErrValidation)
	}
	return nil
}
