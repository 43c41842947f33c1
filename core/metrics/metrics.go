package metrics

import "time"

// DispatchRecord describes a completed dispatch confirmation to be recorded.
type DispatchRecord struct {
	EmergencyID int64
	AmbulanceID int64
	DistanceKm  float64
	Suggested   bool
	Succeeded   bool
	Timestamp   time.Time
}

// MetricsSink records console events for observability purposes.
type MetricsSink interface {
	// RecordMessage counts a decoded realtime message by wire type.
	RecordMessage(msgType string)
	// RecordDroppedFrame counts a frame dropped before dispatching to
	// handlers, labelled with the drop reason.
	RecordDroppedFrame(reason string)
	// RecordReconnect counts a reconnect attempt.
	RecordReconnect(attempt int)
	// RecordConnState reports a connection state transition.
	RecordConnState(state string)
	// RecordDispatch records the outcome of a dispatch confirmation.
	RecordDispatch(rec DispatchRecord) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordMessage(string)              {}
func (NopSink) RecordDroppedFrame(string)         {}
func (NopSink) RecordReconnect(int)               {}
func (NopSink) RecordConnState(string)            {}
func (NopSink) RecordDispatch(DispatchRecord) error { return nil }
