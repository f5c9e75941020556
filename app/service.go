// Package app wires configuration, the batch orchestrator and the result
// outputs into a runnable service.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/actsched/config"
	"github.com/kilianp07/actsched/core/batch"
	"github.com/kilianp07/actsched/core/events"
	"github.com/kilianp07/actsched/core/extract"
	"github.com/kilianp07/actsched/core/formulate"
	coremetrics "github.com/kilianp07/actsched/core/metrics"
	"github.com/kilianp07/actsched/core/milp"
	"github.com/kilianp07/actsched/core/model"
	"github.com/kilianp07/actsched/core/monitoring"
	"github.com/kilianp07/actsched/core/solver"
	"github.com/kilianp07/actsched/core/utility"
	"github.com/kilianp07/actsched/infra/logger"
	"github.com/kilianp07/actsched/infra/metrics"
	"github.com/kilianp07/actsched/infra/mqtt"
	"github.com/kilianp07/actsched/infra/store"
	"github.com/kilianp07/actsched/internal/eventbus"
	"github.com/kilianp07/actsched/scenario"
)

// Service runs batches described by scenario files and forwards the results
// to the configured store and publisher.
type Service struct {
	cfg        *config.Config
	formulator *formulate.Formulator
	orch       *batch.Orchestrator
	store      store.Store
	pub        mqtt.Publisher
	bus        *eventbus.TypedBus[events.JobEvent]
	progress   *eventbus.TypedBus[events.ProgressEvent]
	onProgress func(events.ProgressEvent)
	log        logger.Logger
}

// Option customises a Service.
type Option func(*options)

type options struct {
	pub    mqtt.Publisher
	store  store.Store
	sink     coremetrics.MetricsSink
	logger   logger.Logger
	progress func(events.ProgressEvent)
}

// WithPublisher replaces the MQTT client built from the configuration.
func WithPublisher(p mqtt.Publisher) Option { return func(o *options) { o.pub = p } }

// WithStore replaces the store built from the configuration.
func WithStore(s store.Store) Option { return func(o *options) { o.store = s } }

// WithSink replaces the metrics sinks built from the configuration.
func WithSink(s coremetrics.MetricsSink) Option { return func(o *options) { o.sink = s } }

// WithLogger sets the service logger.
func WithLogger(l logger.Logger) Option { return func(o *options) { o.logger = l } }

// WithProgress registers fn to receive the periodic batch progress. It runs
// on a single goroutine and must not block for long.
func WithProgress(fn func(events.ProgressEvent)) Option {
	return func(o *options) { o.progress = fn }
}

// New creates a Service from the configuration.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	logg := o.logger
	if logg == nil {
		logg = logger.New("service")
	}

	uc, err := cfg.Model.UtilityConfig()
	if err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}
	eval, err := utility.NewEvaluator(uc)
	if err != nil {
		return nil, fmt.Errorf("evaluator: %w", err)
	}
	backend, err := milp.NewBackend(cfg.Solver.BackendConfig())
	if err != nil {
		return nil, fmt.Errorf("solver backend: %w", err)
	}

	sink := o.sink
	if sink == nil {
		if sink, err = coremetrics.NewMetricsSink(cfg.Metrics.Sinks); err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
	}

	st := o.store
	if st == nil {
		if st, err = store.New(cfg.Store.ModuleConfig()); err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
	}

	pub := o.pub
	if pub == nil && cfg.MQTT.Enabled {
		client, err := mqtt.NewPahoClient(cfg.MQTT)
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		pub = client
	}

	formulator := formulate.New(eval, cfg.Model.FormulateConfig())
	bus := eventbus.NewTypedBuffered[events.JobEvent](256)
	progress := eventbus.NewTypedBuffered[events.ProgressEvent](16)
	orch, err := batch.New(batch.Config{
		Workers:          cfg.Batch.Workers,
		JobTimeLimit:     cfg.Solver.TimeLimit(),
		GapTolerance:     cfg.Solver.GapTolerance,
		ProgressInterval: cfg.Batch.ProgressInterval(),
	}, batch.Deps{
		Formulator: formulator,
		Adapter:    solver.NewAdapter(backend, cfg.Solver.Options(), logger.New("solver")),
		Extractor:  extract.New(eval, cfg.Model.ExtractOptions()),
		Sink:       sink,
		Bus:        bus,
		Progress:   progress,
		Logger:     logg,
	})
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	return &Service{
		cfg:        cfg,
		formulator: formulator,
		orch:       orch,
		store:      st,
		pub:        pub,
		bus:        bus,
		progress:   progress,
		onProgress: o.progress,
		log:        logg,
	}, nil
}

// Run loads the scenario at path and solves it. When a Prometheus port is
// configured, /metrics is served until ctx is canceled.
func (s *Service) Run(ctx context.Context, scenarioPath string) (*batch.Result, error) {
	sc, err := scenario.Load(scenarioPath)
	if err != nil {
		return nil, fmt.Errorf("load scenario: %w", err)
	}
	if port := s.cfg.Metrics.PrometheusPort; port != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, ":"+port); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	return s.RunScenario(ctx, sc)
}

// RunScenario solves every person of sc, then stores and publishes the
// result. Output failures are returned along with the result.
func (s *Service) RunScenario(ctx context.Context, sc *scenario.Scenario) (*batch.Result, error) {
	s.log.Infof("scenario %q: %d persons", sc.Name, len(sc.Persons))

	sub := s.bus.Subscribe()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ev := range sub {
			if ev.State.Terminal() {
				s.log.Debugf("job %s %s (%s) in %s", ev.PersonID, ev.State, ev.Reason, ev.Elapsed.Round(time.Microsecond))
			}
		}
	}()
	stopProgress := s.watchProgress()
	res, err := s.orch.RunBatch(ctx, sc.Persons, sc.Matrix, sc.Groups)
	stopProgress()
	s.bus.Unsubscribe(sub)
	wg.Wait()
	if err != nil {
		return nil, err
	}
	reportFailures(res)

	// outputs still run after cancellation so CANCELED jobs are recorded
	outCtx := context.WithoutCancel(ctx)
	var errs []error
	if err := store.AppendResult(outCtx, s.store, res, time.Now()); err != nil {
		errs = append(errs, fmt.Errorf("store: %w", err))
	}
	if s.pub != nil {
		if err := mqtt.PublishResult(outCtx, s.pub, res); err != nil {
			errs = append(errs, fmt.Errorf("publish: %w", err))
		}
	}
	return res, errors.Join(errs...)
}

// watchProgress forwards batch progress to the logger and the WithProgress
// callback until the returned function is called.
func (s *Service) watchProgress() (stop func()) {
	sub := s.progress.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range sub {
			if ev.Total > 0 {
				s.log.Debugf("run %s: %d/%d schedules (%.0f%%)", ev.RunID, ev.Done, ev.Total, 100*float64(ev.Done)/float64(ev.Total))
			}
			if s.onProgress != nil {
				s.onProgress(ev)
			}
		}
	}()
	return func() {
		s.progress.Unsubscribe(sub)
		<-done
	}
}

// reportFailures forwards solver and extraction failures to the error
// monitor. Infeasible, timed out and malformed jobs are expected outcomes.
func reportFailures(res *batch.Result) {
	for _, id := range res.PersonIDs() {
		j := res.Jobs[id]
		if j.Reason != model.ReasonSolverError && j.Reason != model.ReasonExtractionError {
			continue
		}
		err := j.Err
		if err == nil {
			err = fmt.Errorf("job %s failed: %s", id, j.Reason)
		}
		monitoring.CaptureException(err, map[string]string{
			"run_id":    res.RunID,
			"person_id": id,
			"reason":    j.Reason.String(),
		})
	}
}

// Issue is a person whose inputs cannot be formulated.
type Issue struct {
	PersonID string
	Err      error
}

// Validate formulates every person of sc without solving and returns the
// persons with malformed inputs.
func (s *Service) Validate(sc *scenario.Scenario) []Issue {
	var issues []Issue
	for _, p := range sc.Persons {
		if _, err := s.formulator.Formulate(p, sc.Matrix, sc.Groups); err != nil {
			issues = append(issues, Issue{PersonID: p.ID, Err: err})
		}
	}
	return issues
}

// Store returns the result store.
func (s *Service) Store() store.Store { return s.store }

// Close releases the store and disconnects the publisher.
func (s *Service) Close() error {
	if s.pub != nil {
		s.pub.Disconnect()
	}
	return s.store.Close()
}
