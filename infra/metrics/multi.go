package metrics

import coremetrics "github.com/resqlabs/console/core/metrics"

// MultiSink fans every record out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

func (m *MultiSink) RecordMessage(msgType string) {
	for _, s := range m.Sinks {
		s.RecordMessage(msgType)
	}
}

func (m *MultiSink) RecordDroppedFrame(reason string) {
	for _, s := range m.Sinks {
		s.RecordDroppedFrame(reason)
	}
}

func (m *MultiSink) RecordReconnect(attempt int) {
	for _, s := range m.Sinks {
		s.RecordReconnect(attempt)
	}
}

func (m *MultiSink) RecordConnState(state string) {
	for _, s := range m.Sinks {
		s.RecordConnState(state)
	}
}

// RecordDispatch forwards the record to all sinks, returning the first
// error encountered.
func (m *MultiSink) RecordDispatch(rec coremetrics.DispatchRecord) error {
	var first error
	for _, s := range m.Sinks {
		if err := s.RecordDispatch(rec); err != nil && first == nil {
			first = err
		}
	}
	return first
}
