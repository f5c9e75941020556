// Package solver runs formulated instances on a MILP backend under a time
// limit and classifies the result.
package solver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/actsched/core/formulate"
	"github.com/kilianp07/actsched/core/logger"
	"github.com/kilianp07/actsched/core/milp"
)

// gracePeriod is how long the watchdog waits for a stopped backend to hand
// back its incumbent.
var gracePeriod = 100 * time.Millisecond

// Adapter hands instances to a backend. It is safe for concurrent use when
// the backend is.
type Adapter struct {
	backend milp.Backend
	opts    milp.Options
	log     logger.Logger
}

// NewAdapter returns an Adapter solving with backend. opts supplies the
// node limit and tolerances; the gap tolerance is set per call.
func NewAdapter(backend milp.Backend, opts milp.Options, log logger.Logger) *Adapter {
	return &Adapter{backend: backend, opts: opts.WithDefaults(), log: logger.OrNop(log)}
}

// Backend returns the name of the backend.
func (a *Adapter) Backend() string { return a.backend.Name() }

type solveResult struct {
	res milp.Result
	err error
}

// Solve runs inst with a timeLimit deadline (zero means none) and relative
// gap tolerance. The deadline is enforced here even when the backend ignores
// its context: Solve then returns StatusTimedOut while the backend session is
// still released once the backend returns. An empty instance is solved
// without touching the backend.
func (a *Adapter) Solve(ctx context.Context, inst *formulate.Instance, timeLimit time.Duration, gap float64) Outcome {
	start := time.Now()
	out := Outcome{PersonID: inst.Person.ID}
	if inst.Empty() {
		out.Status = StatusOptimal
		out.Assignment = []float64{}
		return out
	}
	parent := ctx
	if timeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeLimit)
		defer cancel()
	}

	sess, err := a.backend.Acquire(ctx)
	if err != nil {
		out.Elapsed = time.Since(start)
		if ctx.Err() != nil {
			return a.stopped(parent, out, ctx.Err())
		}
		return a.failed(out, fmt.Errorf("acquire %s session: %w", a.backend.Name(), err))
	}

	opts := a.opts
	opts.GapTolerance = gap
	done := make(chan solveResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- solveResult{err: fmt.Errorf("backend panic: %v", r)}
			}
		}()
		defer func() {
			if err := sess.Close(); err != nil {
				a.log.Warnf("release %s session for %s: %v", a.backend.Name(), inst.Person.ID, err)
			}
		}()
		res, err := sess.Solve(ctx, inst.Problem, opts)
		done <- solveResult{res: res, err: err}
	}()

	var r solveResult
	select {
	case r = <-done:
	case <-ctx.Done():
		// a backend honouring ctx returns its incumbent right away
		select {
		case r = <-done:
		case <-time.After(gracePeriod):
			out.Elapsed = time.Since(start)
			return a.stopped(parent, out, ctx.Err())
		}
	}
	out.Elapsed = time.Since(start)
	return a.classify(parent, inst, out, r)
}

func (a *Adapter) classify(parent context.Context, inst *formulate.Instance, out Outcome, r solveResult) Outcome {
	res := r.res
	out.Nodes = res.Nodes
	if r.err != nil {
		if errors.Is(r.err, context.DeadlineExceeded) || errors.Is(r.err, context.Canceled) {
			return a.stopped(parent, out, r.err)
		}
		return a.failed(out, r.err)
	}
	switch res.Status {
	case milp.StatusOptimal, milp.StatusFeasible:
		if n := len(inst.Problem.Vars); len(res.X) != n {
			return a.failed(out, fmt.Errorf("backend returned %d values for %d variables", len(res.X), n))
		}
		out.Status = StatusOptimal
		if res.Status == milp.StatusFeasible {
			out.Status = StatusFeasible
		}
		out.Assignment = res.X
		out.Objective = res.Objective
		out.Gap = res.Gap
		a.log.Debugw("solved", map[string]any{
			"person": out.PersonID, "status": out.Status.String(), "objective": out.Objective,
			"gap": out.Gap, "nodes": out.Nodes, "elapsed_ms": out.Elapsed.Milliseconds(),
		})
	case milp.StatusInfeasible:
		out.Status = StatusInfeasible
		logger.Warnw(a.log, "infeasible", map[string]any{"person": out.PersonID, "nodes": out.Nodes})
	default:
		return a.stopped(parent, out, context.DeadlineExceeded)
	}
	return out
}

// stopped reports a solve interrupted by a limit or by cancellation of the
// caller's context.
func (a *Adapter) stopped(parent context.Context, out Outcome, cause error) Outcome {
	out.Err = cause
	if parent.Err() != nil {
		out.Status = StatusCanceled
		out.Err = parent.Err()
		return out
	}
	out.Status = StatusTimedOut
	logger.Warnw(a.log, "timed_out", map[string]any{"person": out.PersonID, "elapsed_ms": out.Elapsed.Milliseconds()})
	return out
}

func (a *Adapter) failed(out Outcome, err error) Outcome {
	out.Status = StatusSolverError
	out.Err = err
	logger.Errorw(a.log, "solver_error", map[string]any{"person": out.PersonID, "error": err.Error()})
	return out
}
