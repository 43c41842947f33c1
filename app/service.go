// Package app wires the console together: the realtime channel feeding the
// live store, the backend API behind the operator workflow and the
// observability sinks.
package app

import (
	"context"
	"fmt"

	"github.com/resqlabs/console/config"
	"github.com/resqlabs/console/core/events"
	"github.com/resqlabs/console/core/geo"
	coremetrics "github.com/resqlabs/console/core/metrics"
	"github.com/resqlabs/console/core/model"
	"github.com/resqlabs/console/core/realtime"
	"github.com/resqlabs/console/core/selector"
	"github.com/resqlabs/console/core/session"
	"github.com/resqlabs/console/core/store"
	"github.com/resqlabs/console/infra/logger"
	"github.com/resqlabs/console/infra/metrics"
	"github.com/resqlabs/console/infra/rest"
	"github.com/resqlabs/console/infra/ws"
	"github.com/resqlabs/console/internal/eventbus"
)

// Service orchestrates the operator console.
type Service struct {
	Store   *store.Store
	Channel realtime.Channel
	API     *rest.Client

	bus         eventbus.EventBus
	sink        coremetrics.MetricsSink
	log         logger.Logger
	operatorID  int64
	promEnabled bool
	promAddr    string
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("console")

	var sinks []coremetrics.MetricsSink
	if cfg.Metrics.PromEnabled {
		sink, err := metrics.NewPromSink(nil)
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.Influx.URL != "" {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(cfg.Metrics.Influx))
	}
	var sink coremetrics.MetricsSink = coremetrics.NopSink{}
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = metrics.NewMultiSink(sinks...)
	}

	channel := ws.New(cfg.Realtime, sink, logger.New("ws-channel"))
	api := rest.New(cfg.API, logger.New("rest-client"))

	svc := newService(channel, api, sink, logg, cfg.Operator.ID)
	svc.promEnabled = cfg.Metrics.PromEnabled
	svc.promAddr = cfg.Metrics.PromAddr
	return svc, nil
}

func newService(channel realtime.Channel, api *rest.Client, sink coremetrics.MetricsSink, log logger.Logger, operatorID int64) *Service {
	return &Service{
		Store:      store.New(),
		Channel:    channel,
		API:        api,
		bus:        eventbus.New(),
		sink:       sink,
		log:        log,
		operatorID: operatorID,
	}
}

// Bus exposes the notification bus for UI consumers.
func (s *Service) Bus() eventbus.EventBus { return s.bus }

// NewSession starts an operator workflow backed by the REST client.
func (s *Service) NewSession() *session.Session {
	return session.New(s.operatorID, s.API, s.API, s.API, logger.New("session"))
}

// NewSelector builds a dispatch selector seeded with the backend suggestion
// carried by the given workflow session.
func (s *Service) NewSelector(sess *session.Session) *selector.Selector {
	return selector.New(sess.SuggestedAmbulanceID())
}

// ConfirmDispatch commits the unit through the workflow session, records
// the outcome and publishes the completion on the bus.
func (s *Service) ConfirmDispatch(ctx context.Context, sess *session.Session, unit model.Ambulance) error {
	emergency := sess.Emergency()
	distance := geo.DistanceKm(emergency.Location.Lat, emergency.Location.Lon, unit.Location.Lat, unit.Location.Lon)
	suggested := unit.ID == sess.SuggestedAmbulanceID() && unit.ID != 0

	err := sess.Dispatch(ctx, unit)
	rec := coremetrics.DispatchRecord{
		EmergencyID: emergency.ID,
		AmbulanceID: unit.ID,
		DistanceKm:  distance,
		Suggested:   suggested,
		Succeeded:   err == nil,
	}
	if rerr := s.sink.RecordDispatch(rec); rerr != nil {
		s.log.Warnf("recording dispatch: %v", rerr)
	}
	if err != nil {
		return err
	}
	s.bus.Publish(events.DispatchCompleted{EmergencyID: emergency.ID, AmbulanceID: unit.ID})
	return nil
}

// Run connects the realtime channel and blocks until the context is
// cancelled.
func (s *Service) Run(ctx context.Context) error {
	if s.promEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.promAddr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	err := s.Channel.Connect(ctx, realtime.Handlers{
		OnMessage: s.handleEvent,
		OnConnect: func() {
			s.bus.Publish(events.ConnStateChanged{State: realtime.StateConnected})
		},
		OnDisconnect: func() {
			s.bus.Publish(events.ConnStateChanged{State: s.Channel.State()})
		},
		OnError: func(err error) {
			s.bus.Publish(events.ConnStateChanged{State: realtime.StateFailed, Err: err})
		},
	})
	if err != nil {
		s.log.Errorf("realtime connect: %v", err)
	}

	<-ctx.Done()
	s.Close()
	return nil
}

// Close disconnects the channel and closes the bus. Safe to call more than
// once.
func (s *Service) Close() {
	s.Channel.Disconnect()
	s.bus.Close()
}

// handleEvent applies a decoded realtime event to the live store and
// notifies bus subscribers.
func (s *Service) handleEvent(ev realtime.Event) {
	switch e := ev.(type) {
	case realtime.NewRequestEvent:
		if s.Store.AddEmergency(e.Emergency) {
			s.log.Infof("new request %d (%s)", e.Emergency.ID, e.Emergency.Priority)
			s.bus.Publish(events.EmergencyAdded{Emergency: e.Emergency})
		}
	case realtime.EmergencyUpdatedEvent:
		if !s.Store.UpdateEmergency(e.ID, e.Patch) {
			s.log.Debugf("update for unknown emergency %d ignored", e.ID)
			return
		}
		if updated, ok := s.Store.Emergency(e.ID); ok {
			s.bus.Publish(events.EmergencyUpdated{Emergency: updated})
		}
	case realtime.FleetInfoEvent:
		s.Store.SetPositions(e.Positions)
		s.bus.Publish(events.PositionsUpdated{Count: len(e.Positions)})
	case realtime.PositionEvent:
		s.Store.RecordPosition(e.Position.AmbulanceID, e.Position.Lat, e.Position.Lon)
		s.bus.Publish(events.PositionsUpdated{Count: 1})
	case realtime.UnknownEvent:
		s.log.Debugf("ignoring message type %q", e.Type)
	}
}
