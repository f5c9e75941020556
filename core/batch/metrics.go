package batch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	jobsTotal   *prometheus.CounterVec
	jobLatency  *prometheus.HistogramVec
	jobsRunning prometheus.Gauge
	batchSize   prometheus.Gauge
	batchesRun  prometheus.Counter
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, *prometheus.HistogramVec, prometheus.Gauge, prometheus.Gauge, prometheus.Counter) {
	total := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schedule_jobs_total",
			Help: "Number of finished schedule jobs by state and failure reason",
		},
		[]string{"state", "reason"},
	)
	lat := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "schedule_job_duration_seconds",
			Help:    "Wall-clock time of a schedule job from formulation to extraction",
			Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"state"},
	)
	running := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "schedule_jobs_running",
			Help: "Number of schedule jobs currently being solved",
		},
	)
	size := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "schedule_batch_size",
			Help: "Number of persons in the last submitted batch",
		},
	)
	batches := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "schedule_batches_total",
			Help: "Number of batches run",
		},
	)
	return total, lat, running, size, batches
}

func init() {
	jobsTotal, jobLatency, jobsRunning, batchSize, batchesRun = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers batch metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(jobsTotal, jobLatency, jobsRunning, batchSize, batchesRun)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	jobsTotal, jobLatency, jobsRunning, batchSize, batchesRun = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
