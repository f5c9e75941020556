package milp

import (
	"context"
	"errors"
	"time"
)

// Status is the termination state reported by a backend.
type Status int

const (
	// StatusOptimal means the incumbent is proven optimal within the gap tolerance.
	StatusOptimal Status = iota
	// StatusFeasible means a limit stopped the search with an incumbent.
	StatusFeasible
	// StatusInfeasible means no assignment satisfies the constraints.
	StatusInfeasible
	// StatusNoSolution means a limit stopped the search before any incumbent.
	StatusNoSolution
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusFeasible:
		return "feasible"
	case StatusInfeasible:
		return "infeasible"
	case StatusNoSolution:
		return "no_solution"
	default:
		return "unknown"
	}
}

var (
	// ErrNumerical reports a failure of the underlying linear algebra.
	ErrNumerical = errors.New("milp: numerical failure")
	// ErrUnbounded reports an unbounded relaxation, which indicates a modelling bug.
	ErrUnbounded = errors.New("milp: relaxation is unbounded")
	// ErrSessionClosed is returned when a closed session is used.
	ErrSessionClosed = errors.New("milp: session closed")
)

// Options tune a solve.
type Options struct {
	// GapTolerance is the relative optimality gap at which the search stops.
	GapTolerance float64
	// MaxNodes bounds the number of explored nodes. Zero means unlimited.
	MaxNodes int
	// IntegralityTolerance is the distance to an integer under which a
	// binary is considered integral.
	IntegralityTolerance float64
	// Tolerance is passed to the simplex method.
	Tolerance float64
}

// WithDefaults fills unset fields.
func (o Options) WithDefaults() Options {
	if o.IntegralityTolerance <= 0 {
		o.IntegralityTolerance = 1e-6
	}
	if o.Tolerance <= 0 {
		o.Tolerance = 1e-8
	}
	if o.GapTolerance < 0 {
		o.GapTolerance = 0
	}
	return o
}

// Result is the outcome of a backend solve.
type Result struct {
	Status    Status
	X         []float64
	Objective float64
	// Bound is the best proven bound on the objective.
	Bound   float64
	Gap     float64
	Nodes   int
	Elapsed time.Duration
}

// Backend is a MILP solving capability. Acquire reserves solver resources
// (a licence slot); the returned Session must be closed on every path.
type Backend interface {
	Name() string
	Acquire(ctx context.Context) (Session, error)
}

// Session solves problems with resources held by a Backend.
type Session interface {
	// Solve runs until optimality, infeasibility, a limit in opts, or ctx
	// cancellation, in which case the best incumbent found so far is
	// returned as StatusFeasible.
	Solve(ctx context.Context, p *Problem, opts Options) (Result, error)
	Close() error
}
