package solver

import (
	"time"

	"github.com/kilianp07/actsched/core/model"
)

// Status is the outcome class of a solve.
type Status int

const (
	StatusOptimal Status = iota
	StatusFeasible
	StatusInfeasible
	StatusTimedOut
	StatusSolverError
	StatusCanceled
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "OPTIMAL"
	case StatusFeasible:
		return "FEASIBLE"
	case StatusInfeasible:
		return "INFEASIBLE"
	case StatusTimedOut:
		return "TIMED_OUT"
	case StatusSolverError:
		return "SOLVER_ERROR"
	case StatusCanceled:
		return "CANCELED"
	default:
		return "UNKNOWN"
	}
}

// Outcome is the tagged result of Adapter.Solve. Assignment is set only for
// StatusOptimal and StatusFeasible.
type Outcome struct {
	PersonID   string
	Status     Status
	Assignment []float64
	Objective  float64
	Gap        float64
	Nodes      int
	Elapsed    time.Duration
	// Err describes a solver error or the context error that stopped the
	// solve.
	Err error
}

// HasAssignment reports whether the outcome carries a solution to extract.
func (o Outcome) HasAssignment() bool {
	return (o.Status == StatusOptimal || o.Status == StatusFeasible) && o.Assignment != nil
}

// Reason maps the outcome onto the failure reason reported to callers.
func (o Outcome) Reason() model.FailureReason {
	switch o.Status {
	case StatusInfeasible:
		return model.ReasonInfeasible
	case StatusTimedOut:
		return model.ReasonTimedOut
	case StatusSolverError:
		return model.ReasonSolverError
	case StatusCanceled:
		return model.ReasonCanceled
	default:
		return model.ReasonNone
	}
}
