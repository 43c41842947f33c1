// Package rest implements the backend HTTP API used by the operator
// workflow: triage submission, dispatch confirmation, fleet and call-room
// lookups.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/resqlabs/console/core/model"
	"github.com/resqlabs/console/core/session"
	"github.com/resqlabs/console/infra/logger"
)

// Config defines the backend API connection parameters.
type Config struct {
	BaseURL        string `json:"base_url"`
	Token          string `json:"token"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// SetDefaults fills unset fields with their defaults.
func (c *Config) SetDefaults() {
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 10
	}
}

// Validate checks the configuration for completeness.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("rest: base_url is required")
	}
	return nil
}

// Client talks to the dispatch backend. It implements session.RoomAPI,
// session.TriageAPI, session.DispatchAPI and session.FleetAPI.
type Client struct {
	base   string
	token  string
	client *http.Client
	log    logger.Logger
}

// New creates a backend client.
func New(cfg Config, log logger.Logger) *Client {
	cfg.SetDefaults()
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Client{
		base:   strings.TrimRight(cfg.BaseURL, "/"),
		token:  cfg.Token,
		client: &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		log:    log,
	}
}

type triagePayload struct {
	RequestID   int64  `json:"solicitud_id"`
	Category    string `json:"tipoAmbulancia"`
	Priority    string `json:"nivelPrioridad"`
	Description string `json:"descripcion"`
	OperatorID  int64  `json:"id_operador"`
	RequesterID int64  `json:"solicitante_id"`
}

// triageResponse mirrors the backend reply, which either wraps the created
// emergency or returns it directly.
type triageResponse struct {
	Emergency   *model.Emergency `json:"emergencia"`
	SuggestedID int64            `json:"id_ambulancia_cercana"`
}

// SubmitTriage posts the operator's assessment and returns the confirmed
// emergency together with the backend's suggested unit, if any.
func (c *Client) SubmitTriage(ctx context.Context, operatorID int64, form session.TriageForm) (session.TriageResult, error) {
	payload := triagePayload{
		RequestID:   form.RequestID,
		Category:    string(form.Category),
		Priority:    string(form.Priority),
		Description: form.Description,
		OperatorID:  operatorID,
		RequesterID: form.RequesterID,
	}
	body, err := c.post(ctx, "/valoraciones", payload)
	if err != nil {
		return session.TriageResult{}, err
	}

	var wrapped triageResponse
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Emergency != nil {
		wrapped.Emergency.Normalize()
		return session.TriageResult{Emergency: *wrapped.Emergency, SuggestedAmbulanceID: wrapped.SuggestedID}, nil
	}
	var e model.Emergency
	if err := json.Unmarshal(body, &e); err != nil {
		return session.TriageResult{}, fmt.Errorf("decoding triage response: %w", err)
	}
	e.Normalize()
	return session.TriageResult{Emergency: e}, nil
}

// DispatchAmbulance commits the dispatch decision.
func (c *Client) DispatchAmbulance(ctx context.Context, req session.DispatchRequest) error {
	_, err := c.post(ctx, "/despachos", req)
	return err
}

// Ambulances fetches the current fleet snapshot.
func (c *Client) Ambulances(ctx context.Context) ([]model.Ambulance, error) {
	body, err := c.get(ctx, "/ambulancias")
	if err != nil {
		return nil, err
	}
	var fleet []model.Ambulance
	if err := json.Unmarshal(body, &fleet); err != nil {
		return nil, fmt.Errorf("decoding fleet: %w", err)
	}
	return fleet, nil
}

// ActiveRoom is a call room currently awaiting an operator.
type ActiveRoom struct {
	Room        string `json:"room"`
	EmergencyID int64  `json:"emergencia_id,omitempty"`
}

// ActiveRooms lists the call rooms with a caller waiting.
func (c *Client) ActiveRooms(ctx context.Context) ([]ActiveRoom, error) {
	body, err := c.get(ctx, "/salas/activas")
	if err != nil {
		return nil, err
	}
	var rooms []ActiveRoom
	if err := json.Unmarshal(body, &rooms); err != nil {
		return nil, fmt.Errorf("decoding active rooms: %w", err)
	}
	return rooms, nil
}

// JoinRoom requests call-room credentials for the given room.
func (c *Client) JoinRoom(ctx context.Context, room string) (session.RoomCredentials, error) {
	body, err := c.post(ctx, "/salas/"+url.PathEscape(room)+"/unirse", struct{}{})
	if err != nil {
		return session.RoomCredentials{}, err
	}
	var creds session.RoomCredentials
	if err := json.Unmarshal(body, &creds); err != nil {
		return session.RoomCredentials{}, fmt.Errorf("decoding room credentials: %w", err)
	}
	if creds.Room == "" {
		creds.Room = room
	}
	return creds, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Warnf("%s %s returned %d", req.Method, req.URL.Path, resp.StatusCode)
		return nil, fmt.Errorf("%s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, truncate(body, 256))
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
