package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/resqlabs/console/core/model"
	"github.com/resqlabs/console/core/session"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL, Token: "secret"}, nil), srv
}

func TestSubmitTriageWrappedResponse(t *testing.T) {
	var gotBody map[string]any
	var gotAuth string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/valoraciones" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"emergencia":            map[string]any{"id": 42, "nivelPrioridad": "HIGH"},
			"id_ambulancia_cercana": 6,
		})
	}))

	form := session.TriageForm{
		RequestID:   42,
		RequesterID: 7,
		Category:    model.CategoryBasic,
		Priority:    model.PriorityHigh,
		Description: "chest pain",
	}
	res, err := c.SubmitTriage(context.Background(), 3, form)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Emergency.ID != 42 || res.SuggestedAmbulanceID != 6 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("missing bearer token, got %q", gotAuth)
	}
	if gotBody["solicitud_id"].(float64) != 42 || gotBody["id_operador"].(float64) != 3 {
		t.Fatalf("request body wrong: %v", gotBody)
	}
	if gotBody["solicitante_id"].(float64) != 7 {
		t.Fatalf("requester id missing: %v", gotBody)
	}
}

func TestSubmitTriageDirectResponse(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"id": 42, "prioridad": "critical"})
	}))
	res, err := c.SubmitTriage(context.Background(), 3, session.TriageForm{RequestID: 42})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Emergency.ID != 42 || res.Emergency.Priority != model.PriorityHigh {
		t.Fatalf("direct response not normalized: %+v", res.Emergency)
	}
	if res.SuggestedAmbulanceID != 0 {
		t.Fatalf("unexpected suggestion: %d", res.SuggestedAmbulanceID)
	}
}

func TestSubmitTriageServerError(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no medic on shift", http.StatusConflict)
	}))
	_, err := c.SubmitTriage(context.Background(), 3, session.TriageForm{RequestID: 42})
	if err == nil {
		t.Fatal("expected error on 409")
	}
}

func TestDispatchAmbulance(t *testing.T) {
	var got session.DispatchRequest
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/despachos" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	req := session.DispatchRequest{EmergencyID: 42, AmbulanceID: 6, AmbulanceOperatorID: 11, OperatorID: 3}
	if err := c.DispatchAmbulance(context.Background(), req); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if got != req {
		t.Fatalf("request body mismatch: got %+v want %+v", got, req)
	}
}

func TestAmbulances(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ambulancias" || r.Method != http.MethodGet {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": 1, "placa": "ABC123", "tipoAmbulancia": "BASIC", "disponibilidad": true},
		})
	}))
	fleet, err := c.Ambulances(context.Background())
	if err != nil {
		t.Fatalf("ambulances: %v", err)
	}
	if len(fleet) != 1 || fleet[0].Plate != "ABC123" || !fleet[0].Available {
		t.Fatalf("unexpected fleet: %+v", fleet)
	}
}

func TestActiveRooms(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/salas/activas" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode([]map[string]any{{"room": "sala-42", "emergencia_id": 42}})
	}))
	rooms, err := c.ActiveRooms(context.Background())
	if err != nil {
		t.Fatalf("active rooms: %v", err)
	}
	if len(rooms) != 1 || rooms[0].Room != "sala-42" || rooms[0].EmergencyID != 42 {
		t.Fatalf("unexpected rooms: %+v", rooms)
	}
}

func TestJoinRoom(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/salas/sala-42/unirse" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]string{"server_url": "wss://media", "token": "jwt"})
	}))
	creds, err := c.JoinRoom(context.Background(), "sala-42")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if creds.Room != "sala-42" || creds.Token != "jwt" || creds.ServerURL != "wss://media" {
		t.Fatalf("unexpected credentials: %+v", creds)
	}
}
