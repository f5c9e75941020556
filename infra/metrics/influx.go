package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/actsched/core/metrics"
	"github.com/kilianp07/actsched/infra/logger"
)

// InfluxConfig locates the InfluxDB bucket receiving job results.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes schedule job results to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
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

// Close releases the underlying HTTP client.
func (s *InfluxSink) Close() { s.client.Close() }

// RecordJobResult writes one schedule_job point per job.
func (s *InfluxSink) RecordJobResult(r coremetrics.JobResult) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, jobPoint(r))
}

// RecordBatch writes one schedule_batch point per batch.
func (s *InfluxSink) RecordBatch(b coremetrics.BatchSummary) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("schedule_batch").
		AddTag("run_id", b.RunID).
		AddTag("component", "batch").
		AddField("total", b.Total).
		AddField("succeeded", b.Succeeded).
		AddField("failed", b.Failed).
		AddField("workers", b.Workers).
		AddField("elapsed_ms", round3(float64(b.Elapsed.Microseconds())/1000)).
		SetTime(b.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

func jobPoint(r coremetrics.JobResult) *write.Point {
	return write.NewPointWithMeasurement("schedule_job").
		AddTag("run_id", r.RunID).
		AddTag("person_id", r.PersonID).
		AddTag("succeeded", strconv.FormatBool(r.Succeeded)).
		AddTag("reason", r.Reason.String()).
		AddTag("component", "batch").
		AddField("optimal", r.Optimal).
		AddField("activities", r.Activities).
		AddField("utility", round3(r.Utility)).
		AddField("gap", round3(r.Gap)).
		AddField("nodes", r.Nodes).
		AddField("elapsed_ms", round3(float64(r.Elapsed.Microseconds())/1000)).
		SetTime(r.Time)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
