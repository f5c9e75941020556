// Package batch solves many independent person schedules on a bounded pool
// of workers and collects exactly one result per person.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/actsched/core/events"
	"github.com/kilianp07/actsched/core/extract"
	"github.com/kilianp07/actsched/core/formulate"
	"github.com/kilianp07/actsched/core/logger"
	coremetrics "github.com/kilianp07/actsched/core/metrics"
	"github.com/kilianp07/actsched/core/model"
	"github.com/kilianp07/actsched/core/solver"
	"github.com/kilianp07/actsched/core/travel"
	"github.com/kilianp07/actsched/internal/eventbus"
)

var (
	// ErrInvalidWorkers is returned when the worker count is below one.
	ErrInvalidWorkers = errors.New("batch: worker count must be at least 1")
	// ErrDuplicatePerson is returned when two persons share an id.
	ErrDuplicatePerson = errors.New("batch: duplicate person id")
)

// Config bounds the pool and every job.
type Config struct {
	Workers int
	// JobTimeLimit is the per-job solve deadline, zero for none.
	JobTimeLimit time.Duration
	GapTolerance float64
	// ProgressInterval enables periodic progress logs when positive.
	ProgressInterval time.Duration
}

// Deps are the collaborators of an Orchestrator. Sink, Bus, Progress and
// Logger are optional.
type Deps struct {
	Formulator *formulate.Formulator
	Adapter    *solver.Adapter
	Extractor  *extract.Extractor
	Sink       coremetrics.MetricsSink
	Bus        *eventbus.TypedBus[events.JobEvent]
	Progress   *eventbus.TypedBus[events.ProgressEvent]
	Logger     logger.Logger
}

// Orchestrator owns the worker pool lifecycle of each batch.
type Orchestrator struct {
	cfg  Config
	deps Deps
	log  logger.Logger
}

// New validates cfg and returns an Orchestrator.
func New(cfg Config, deps Deps) (*Orchestrator, error) {
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWorkers, cfg.Workers)
	}
	if deps.Formulator == nil || deps.Adapter == nil || deps.Extractor == nil {
		return nil, errors.New("batch: formulator, adapter and extractor are required")
	}
	if deps.Sink == nil {
		deps.Sink = coremetrics.NopSink{}
	}
	return &Orchestrator{cfg: cfg, deps: deps, log: logger.OrNop(deps.Logger)}, nil
}

// freezer is implemented by providers that can be made read-only.
type freezer interface{ Freeze() }

// RunBatch solves every person and returns one JobResult per person. A
// failing job never affects the others. The only errors are batch-level:
// duplicate person ids or a fault of the pool itself. When ctx is canceled,
// jobs that have not finished are reported as CANCELED.
func (o *Orchestrator) RunBatch(ctx context.Context, persons []model.PersonInstance, provider travel.Provider, groups model.ScoringGroups) (*Result, error) {
	seen := make(map[string]bool, len(persons))
	for _, p := range persons {
		if seen[p.ID] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicatePerson, p.ID)
		}
		seen[p.ID] = true
	}
	if f, ok := provider.(freezer); ok {
		f.Freeze()
	}

	start := time.Now()
	runID := uuid.NewString()
	total := len(persons)
	results := make([]*JobResult, total)
	for i, p := range persons {
		results[i] = &JobResult{PersonID: p.ID, State: events.JobPending, Activities: len(p.Activities)}
		o.publish(runID, results[i])
	}
	batchSize.Set(float64(total))
	batchesRun.Inc()
	o.log.Infof("batch %s: %d persons on %d workers", runID, total, o.cfg.Workers)

	var done atomic.Int64
	stopProgress := o.reportProgress(ctx, runID, &done, total)

	jobs := make(chan int)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(jobs)
		for i := range persons {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return nil
			}
		}
		return nil
	})
	for w := 0; w < o.cfg.Workers; w++ {
		g.Go(func() error {
			for i := range jobs {
				if ctx.Err() != nil {
					continue
				}
				results[i].State = events.JobRunning
				o.publish(runID, results[i])
				jobsRunning.Inc()
				*results[i] = o.runJob(ctx, persons[i], provider, groups)
				jobsRunning.Dec()
				o.finish(runID, results[i])
				done.Add(1)
			}
			return nil
		})
	}
	err := g.Wait()
	stopProgress()
	if err != nil {
		return nil, fmt.Errorf("batch %s: worker pool: %w", runID, err)
	}

	res := &Result{RunID: runID, Jobs: make(map[string]*JobResult, total), Elapsed: time.Since(start)}
	succeeded := 0
	for _, r := range results {
		if !r.State.Terminal() {
			r.State = events.JobFailed
			r.Reason = model.ReasonCanceled
			r.Err = ctx.Err()
			o.finish(runID, r)
		}
		if r.State == events.JobSucceeded {
			succeeded++
		}
		res.Jobs[r.PersonID] = r
	}
	if br, ok := o.deps.Sink.(coremetrics.BatchRecorder); ok {
		if err := br.RecordBatch(coremetrics.BatchSummary{
			RunID: runID, Total: total, Succeeded: succeeded, Failed: total - succeeded,
			Workers: o.cfg.Workers, Elapsed: res.Elapsed, Time: time.Now(),
		}); err != nil {
			o.log.Warnf("record batch %s: %v", runID, err)
		}
	}
	o.log.Infof("batch %s: %d of %d schedules generated in %s", runID, succeeded, total, res.Elapsed.Round(time.Millisecond))
	return res, nil
}

// runJob runs formulate, solve and extract for one person. Panics are
// contained to the job and reported as solver errors.
func (o *Orchestrator) runJob(ctx context.Context, p model.PersonInstance, provider travel.Provider, groups model.ScoringGroups) (res JobResult) {
	start := time.Now()
	res = JobResult{PersonID: p.ID, Activities: len(p.Activities)}
	defer func() {
		if r := recover(); r != nil {
			res.State = events.JobFailed
			res.Reason = model.ReasonSolverError
			res.Err = fmt.Errorf("job %s panicked: %v", p.ID, r)
			logger.Errorw(o.log, "solver_error", map[string]any{"person": p.ID, "panic": fmt.Sprint(r)})
		}
		res.Elapsed = time.Since(start)
	}()
	fail := func(reason model.FailureReason, err error) JobResult {
		res.State = events.JobFailed
		res.Reason = reason
		res.Err = err
		return res
	}

	inst, err := o.deps.Formulator.Formulate(p, provider, groups)
	if err != nil {
		logger.Warnw(o.log, "malformed_input", map[string]any{"person": p.ID, "error": err.Error()})
		if model.IsMalformed(err) {
			return fail(model.ReasonMalformedInput, err)
		}
		return fail(model.ReasonSolverError, err)
	}
	out := o.deps.Adapter.Solve(ctx, inst, o.cfg.JobTimeLimit, o.cfg.GapTolerance)
	res.Nodes = out.Nodes
	sched, err := o.deps.Extractor.Extract(inst, out)
	if err != nil {
		var oe *extract.OutcomeError
		if errors.As(err, &oe) {
			return fail(oe.Reason(), err)
		}
		logger.Errorw(o.log, "extraction_error", map[string]any{"person": p.ID, "error": err.Error()})
		return fail(model.ReasonExtractionError, err)
	}
	res.State = events.JobSucceeded
	res.Schedule = sched
	return res
}

func (o *Orchestrator) publish(runID string, r *JobResult) {
	if o.deps.Bus == nil {
		return
	}
	o.deps.Bus.Publish(events.JobEvent{
		RunID: runID, PersonID: r.PersonID, State: r.State, Reason: r.Reason,
		Err: r.Err, Schedule: r.Schedule, Elapsed: r.Elapsed, Time: time.Now(),
	})
}

// finish records a terminal job in the collectors, the sink and the bus.
func (o *Orchestrator) finish(runID string, r *JobResult) {
	jobsTotal.WithLabelValues(r.State.String(), r.Reason.String()).Inc()
	jobLatency.WithLabelValues(r.State.String()).Observe(r.Elapsed.Seconds())
	jr := coremetrics.JobResult{
		RunID:      runID,
		PersonID:   r.PersonID,
		Succeeded:  r.State == events.JobSucceeded,
		Reason:     r.Reason,
		Activities: r.Activities,
		Nodes:      r.Nodes,
		Elapsed:    r.Elapsed,
		Time:       time.Now(),
	}
	if s := r.Schedule; s != nil {
		jr.Optimal = s.Optimal
		jr.Utility = s.Utility
		jr.Gap = s.Gap
		jr.Activities = len(s.Activities)
	}
	if err := o.deps.Sink.RecordJobResult(jr); err != nil {
		o.log.Warnf("record job %s: %v", r.PersonID, err)
	}
	o.publish(runID, r)
}

// reportProgress logs the number of finished jobs every ProgressInterval
// until the returned stop function is called.
func (o *Orchestrator) reportProgress(ctx context.Context, runID string, done *atomic.Int64, total int) (stop func()) {
	if o.cfg.ProgressInterval <= 0 {
		return func() {}
	}
	quit := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		t := time.NewTicker(o.cfg.ProgressInterval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				n := int(done.Load())
				o.log.Infof("solved %d of %d schedules", n, total)
				if o.deps.Progress != nil {
					o.deps.Progress.Publish(events.ProgressEvent{RunID: runID, Done: n, Total: total, Time: time.Now()})
				}
			case <-quit:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return func() {
		close(quit)
		<-stopped
	}
}
