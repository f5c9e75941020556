package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/actsched/core/metrics"
)

// PromSink records schedule job results in Prometheus metrics.
type PromSink struct {
	results    *prometheus.CounterVec
	utility    prometheus.Histogram
	activities prometheus.Histogram
	nodes      prometheus.Histogram
	lastBatch  *prometheus.GaugeVec
}

// NewPromSink registers schedule metrics on the default Prometheus registerer.
// The HTTP endpoint is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered by a previous sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "schedule_results_total",
			Help: "Total number of schedule job results",
		}, []string{"succeeded", "reason", "optimal"}),
		utility: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "schedule_utility",
			Help:    "Utility of generated schedules",
			Buckets: prometheus.LinearBuckets(-50, 25, 12),
		}),
		activities: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "schedule_activities",
			Help:    "Number of activities in generated schedules",
			Buckets: prometheus.LinearBuckets(0, 1, 12),
		}),
		nodes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "schedule_search_nodes",
			Help:    "Branch-and-bound nodes explored per job",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}),
		lastBatch: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "schedule_last_batch_jobs",
			Help: "Job counts of the last finished batch",
		}, []string{"outcome"}),
	}
	var err error
	if s.results, err = register(reg, s.results); err != nil {
		return nil, err
	}
	if s.utility, err = register(reg, s.utility); err != nil {
		return nil, err
	}
	if s.activities, err = register(reg, s.activities); err != nil {
		return nil, err
	}
	if s.nodes, err = register(reg, s.nodes); err != nil {
		return nil, err
	}
	if s.lastBatch, err = register(reg, s.lastBatch); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordJobResult counts the result and observes the schedule statistics of
// successful jobs.
func (s *PromSink) RecordJobResult(r coremetrics.JobResult) error {
	s.results.WithLabelValues(strconv.FormatBool(r.Succeeded), r.Reason.String(), strconv.FormatBool(r.Optimal)).Inc()
	s.nodes.Observe(float64(r.Nodes))
	if r.Succeeded {
		s.utility.Observe(r.Utility)
		s.activities.Observe(float64(r.Activities))
	}
	return nil
}

// RecordBatch sets the job counts of the last batch.
func (s *PromSink) RecordBatch(b coremetrics.BatchSummary) error {
	s.lastBatch.WithLabelValues("total").Set(float64(b.Total))
	s.lastBatch.WithLabelValues("succeeded").Set(float64(b.Succeeded))
	s.lastBatch.WithLabelValues("failed").Set(float64(b.Failed))
	return nil
}
