// Package metrics provides the observability sinks for the console:
// Prometheus counters for channel traffic and an InfluxDB sink for
// dispatch history.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/resqlabs/console/core/metrics"
)

var stateValues = map[string]float64{
	"disconnected": 0,
	"connecting":   1,
	"connected":    2,
	"reconnecting": 3,
	"failed":       4,
}

// PromSink records console activity in Prometheus metrics.
type PromSink struct {
	messages   *prometheus.CounterVec
	dropped    *prometheus.CounterVec
	reconnects prometheus.Counter
	connState  prometheus.Gauge
	dispatches *prometheus.CounterVec
}

// NewPromSink registers console metrics on the provided Prometheus
// registerer. If reg is nil, the default registerer is used. Collectors
// already registered are reused.
func NewPromSink(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	messages := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "console_messages_total",
		Help: "Total realtime messages received, by wire type",
	}, []string{"type"})
	dropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "console_dropped_frames_total",
		Help: "Total frames dropped before delivery, by reason",
	}, []string{"reason"})
	reconnects := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "console_reconnect_attempts_total",
		Help: "Total websocket reconnect attempts",
	})
	connState := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "console_connection_state",
		Help: "Connection state (0 disconnected, 2 connected, 4 failed)",
	})
	dispatches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "console_dispatches_total",
		Help: "Total dispatch confirmations, by outcome and suggestion",
	}, []string{"succeeded", "suggested"})

	s := &PromSink{
		messages:   messages,
		dropped:    dropped,
		reconnects: reconnects,
		connState:  connState,
		dispatches: dispatches,
	}
	if err := register(reg, &s.messages); err != nil {
		return nil, err
	}
	if err := register(reg, &s.dropped); err != nil {
		return nil, err
	}
	if err := reg.Register(reconnects); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			s.reconnects = are.ExistingCollector.(prometheus.Counter)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(connState); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			s.connState = are.ExistingCollector.(prometheus.Gauge)
		} else {
			return nil, err
		}
	}
	if err := register(reg, &s.dispatches); err != nil {
		return nil, err
	}
	return s, nil
}

func register(reg prometheus.Registerer, cv **prometheus.CounterVec) error {
	if err := reg.Register(*cv); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			*cv = are.ExistingCollector.(*prometheus.CounterVec)
			return nil
		}
		return err
	}
	return nil
}

// RecordMessage counts a received realtime message.
func (s *PromSink) RecordMessage(msgType string) {
	s.messages.WithLabelValues(msgType).Inc()
}

// RecordDroppedFrame counts a dropped frame.
func (s *PromSink) RecordDroppedFrame(reason string) {
	s.dropped.WithLabelValues(reason).Inc()
}

// RecordReconnect counts a reconnect attempt.
func (s *PromSink) RecordReconnect(int) {
	s.reconnects.Inc()
}

// RecordConnState reports the current connection state as a gauge value.
func (s *PromSink) RecordConnState(state string) {
	if v, ok := stateValues[state]; ok {
		s.connState.Set(v)
	}
}

// RecordDispatch counts the dispatch confirmation.
func (s *PromSink) RecordDispatch(rec coremetrics.DispatchRecord) error {
	s.dispatches.WithLabelValues(
		strconv.FormatBool(rec.Succeeded),
		strconv.FormatBool(rec.Suggested),
	).Inc()
	return nil
}
