package app

import (
	"context"
	"testing"
	"time"

	"github.com/resqlabs/console/core/events"
	coremetrics "github.com/resqlabs/console/core/metrics"
	"github.com/resqlabs/console/core/model"
	"github.com/resqlabs/console/core/realtime"
	"github.com/resqlabs/console/core/session"
	"github.com/resqlabs/console/infra/logger"
	"github.com/resqlabs/console/internal/eventbus"
)

type fakeChannel struct {
	handlers realtime.Handlers
	state    realtime.ConnState
	sent     []any
}

func (f *fakeChannel) Connect(_ context.Context, h realtime.Handlers) error {
	f.handlers = h
	f.state = realtime.StateConnected
	if h.OnConnect != nil {
		h.OnConnect()
	}
	return nil
}

func (f *fakeChannel) Disconnect()               { f.state = realtime.StateDisconnected }
func (f *fakeChannel) Send(payload any)          { f.sent = append(f.sent, payload) }
func (f *fakeChannel) State() realtime.ConnState { return f.state }
func (f *fakeChannel) push(ev realtime.Event)    { f.handlers.OnMessage(ev) }

type countingSink struct {
	coremetrics.NopSink
	dispatches []coremetrics.DispatchRecord
}

func (c *countingSink) RecordDispatch(rec coremetrics.DispatchRecord) error {
	c.dispatches = append(c.dispatches, rec)
	return nil
}

func newTestService(ch realtime.Channel, sink coremetrics.MetricsSink) *Service {
	return newService(ch, nil, sink, logger.NopLogger{}, 3)
}

func decodeOrFatal(t *testing.T, raw string) realtime.Event {
	t.Helper()
	ev, err := realtime.Decode([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return ev
}

func drain(t *testing.T, ch <-chan eventbus.Event) eventbus.Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(time.Second):
		t.Fatal("no bus event")
		return nil
	}
}

func TestRequestThenUpdateKeepsSingleEntry(t *testing.T) {
	fc := &fakeChannel{}
	svc := newTestService(fc, coremetrics.NopSink{})
	sub := svc.Bus().Subscribe()
	if err := fc.Connect(context.Background(), realtime.Handlers{OnMessage: svc.handleEvent}); err != nil {
		t.Fatalf("connect: %v", err)
	}

	fc.push(decodeOrFatal(t, `{"type":"nueva_solicitud","data":{"id":42,"nivelPrioridad":"HIGH","solicitante":{"nombre":"Ana"}}}`))
	if added, ok := drain(t, sub).(events.EmergencyAdded); !ok || added.Emergency.ID != 42 {
		t.Fatalf("expected EmergencyAdded for 42")
	}

	fc.push(decodeOrFatal(t, `{"type":"emergencia_actualizada","data":{"id":42,"estado":"ASSIGNED"}}`))
	upd, ok := drain(t, sub).(events.EmergencyUpdated)
	if !ok {
		t.Fatal("expected EmergencyUpdated")
	}
	if upd.Emergency.Status != model.StatusAssigned {
		t.Fatalf("status not merged: %+v", upd.Emergency)
	}
	if upd.Emergency.Requester.Name != "Ana" {
		t.Fatalf("untouched fields must survive the patch: %+v", upd.Emergency)
	}

	list := svc.Store.Emergencies()
	if len(list) != 1 || list[0].Status != model.StatusAssigned {
		t.Fatalf("store should hold one updated entry, got %+v", list)
	}
}

func TestDuplicateRequestIgnored(t *testing.T) {
	fc := &fakeChannel{}
	svc := newTestService(fc, coremetrics.NopSink{})
	sub := svc.Bus().Subscribe()
	fc.handlers = realtime.Handlers{OnMessage: svc.handleEvent}

	raw := `{"type":"nueva_solicitud","data":{"id":42}}`
	fc.push(decodeOrFatal(t, raw))
	drain(t, sub)
	fc.push(decodeOrFatal(t, raw))

	if len(svc.Store.Emergencies()) != 1 {
		t.Fatalf("duplicate must not create a second entry")
	}
	select {
	case e := <-sub:
		t.Fatalf("duplicate must not publish, got %#v", e)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestUpdateForUnknownEmergencyIgnored(t *testing.T) {
	fc := &fakeChannel{}
	svc := newTestService(fc, coremetrics.NopSink{})
	sub := svc.Bus().Subscribe()
	fc.handlers = realtime.Handlers{OnMessage: svc.handleEvent}

	fc.push(decodeOrFatal(t, `{"type":"emergencia_actualizada","data":{"id":99,"estado":"RESOLVED"}}`))
	if len(svc.Store.Emergencies()) != 0 {
		t.Fatal("unknown update must not create entries")
	}
	select {
	case e := <-sub:
		t.Fatalf("unknown update must not publish, got %#v", e)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestFleetAndPositionEvents(t *testing.T) {
	fc := &fakeChannel{}
	svc := newTestService(fc, coremetrics.NopSink{})
	fc.handlers = realtime.Handlers{OnMessage: svc.handleEvent}

	fc.push(decodeOrFatal(t, `{"type":"info_ambulancias","emergencia_id":42,"ambulancias":[{"id":1,"latitud":4.6,"longitud":-74.1},{"id":2,"latitud":4.7,"longitud":-74.2}]}`))
	if got := svc.Store.Positions(); len(got) != 2 {
		t.Fatalf("snapshot not applied: %v", got)
	}

	fc.push(decodeOrFatal(t, `{"type":"ubicacion_ambulancia","id_ambulancia":1,"latitud":5.0,"longitud":-74.0}`))
	pos := svc.Store.Positions()[1]
	if pos.Lat != 5.0 {
		t.Fatalf("latest position must win: %+v", pos)
	}
}

func TestUnknownMessageTypeIgnored(t *testing.T) {
	fc := &fakeChannel{}
	svc := newTestService(fc, coremetrics.NopSink{})
	fc.handlers = realtime.Handlers{OnMessage: svc.handleEvent}
	fc.push(decodeOrFatal(t, `{"type":"chat_mensaje","data":{"texto":"hola"}}`))
	if len(svc.Store.Emergencies()) != 0 || len(svc.Store.Positions()) != 0 {
		t.Fatal("unknown type must not touch the store")
	}
}

type stubRooms struct{}

func (stubRooms) JoinRoom(_ context.Context, room string) (session.RoomCredentials, error) {
	return session.RoomCredentials{Room: room, Token: "jwt"}, nil
}

type stubTriage struct{ suggested int64 }

func (s stubTriage) SubmitTriage(_ context.Context, _ int64, form session.TriageForm) (session.TriageResult, error) {
	return session.TriageResult{
		Emergency:            model.Emergency{ID: form.RequestID, Category: form.Category, Priority: form.Priority},
		SuggestedAmbulanceID: s.suggested,
	}, nil
}

type stubDispatch struct{ got session.DispatchRequest }

func (s *stubDispatch) DispatchAmbulance(_ context.Context, req session.DispatchRequest) error {
	s.got = req
	return nil
}

func TestConfirmDispatchRecordsAndPublishes(t *testing.T) {
	fc := &fakeChannel{}
	sink := &countingSink{}
	svc := newTestService(fc, sink)
	sub := svc.Bus().Subscribe()

	dp := &stubDispatch{}
	sess := session.New(3, stubRooms{}, stubTriage{suggested: 6}, dp, logger.NopLogger{})
	if err := sess.Join(context.Background(), "sala-42"); err != nil {
		t.Fatalf("join: %v", err)
	}
	form := session.TriageForm{
		RequestID:   42,
		RequesterID: 7,
		Category:    model.CategoryBasic,
		Priority:    model.PriorityHigh,
		Description: "fall with head injury",
	}
	if err := sess.Triage(context.Background(), form); err != nil {
		t.Fatalf("triage: %v", err)
	}

	unit := model.Ambulance{ID: 6, OperatorID: 11, Available: true, Category: model.CategoryBasic}
	if err := svc.ConfirmDispatch(context.Background(), sess, unit); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	if dp.got.EmergencyID != 42 || dp.got.AmbulanceID != 6 {
		t.Fatalf("dispatch request wrong: %+v", dp.got)
	}
	if len(sink.dispatches) != 1 || !sink.dispatches[0].Succeeded || !sink.dispatches[0].Suggested {
		t.Fatalf("dispatch record wrong: %+v", sink.dispatches)
	}
	done, ok := drain(t, sub).(events.DispatchCompleted)
	if !ok || done.EmergencyID != 42 || done.AmbulanceID != 6 {
		t.Fatalf("completion not published: %#v", done)
	}
}
