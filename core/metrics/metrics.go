package metrics

import (
	"time"

	"github.com/kilianp07/actsched/core/model"
)

// JobResult is the observable outcome of one person's job.
type JobResult struct {
	RunID      string
	PersonID   string
	Succeeded  bool
	Reason     model.FailureReason
	Optimal    bool
	Activities int
	Utility    float64
	Gap        float64
	Nodes      int
	Elapsed    time.Duration
	Time       time.Time
}

// MetricsSink records job results for observability purposes.
type MetricsSink interface {
	RecordJobResult(res JobResult) error
}

// BatchSummary captures the totals of a finished batch.
type BatchSummary struct {
	RunID     string
	Total     int
	Succeeded int
	Failed    int
	Workers   int
	Elapsed   time.Duration
	Time      time.Time
}

// BatchRecorder records batch summaries.
type BatchRecorder interface {
	RecordBatch(sum BatchSummary) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordJobResult(JobResult) error { return nil }
func (NopSink) RecordBatch(BatchSummary) error  { return nil }
