package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/resqlabs/console/core/metrics"
	"github.com/resqlabs/console/infra/logger"
)

// InfluxConfig defines the InfluxDB connection for dispatch history.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes dispatch confirmations to InfluxDB. Channel counters
// are ignored here; they belong to the Prometheus sink.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a sink for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a
// NopSink when the health check fails, so a missing history store never
// blocks the console.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

func (s *InfluxSink) RecordMessage(string)      {}
func (s *InfluxSink) RecordDroppedFrame(string) {}
func (s *InfluxSink) RecordReconnect(int)       {}
func (s *InfluxSink) RecordConnState(string)    {}

// RecordDispatch writes the dispatch confirmation as a point.
func (s *InfluxSink) RecordDispatch(rec coremetrics.DispatchRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	p := write.NewPointWithMeasurement("dispatch").
		AddTag("ambulance_id", strconv.FormatInt(rec.AmbulanceID, 10)).
		AddTag("suggested", strconv.FormatBool(rec.Suggested)).
		AddTag("succeeded", strconv.FormatBool(rec.Succeeded)).
		AddField("emergency_id", rec.EmergencyID).
		AddField("distance_km", round3(rec.DistanceKm)).
		SetTime(ts)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying InfluxDB client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
