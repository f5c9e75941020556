package formulate

import (
	"fmt"
	"math"

	"github.com/kilianp07/actsched/core/milp"
	"github.com/kilianp07/actsched/core/model"
	"github.com/kilianp07/actsched/core/travel"
	"github.com/kilianp07/actsched/core/utility"
)

// Arc endpoints for the virtual day start and day end.
const (
	Origin = -1
	Sink   = -2
)

// ConstraintKind tags the families of constraints in an Instance.
type ConstraintKind string

const (
	KindSelection  ConstraintKind = "selection"
	KindDuration   ConstraintKind = "duration"
	KindWindow     ConstraintKind = "window"
	KindBudget     ConstraintKind = "budget"
	KindFlow       ConstraintKind = "flow"
	KindOriginLeg  ConstraintKind = "origin-leg"
	KindAdjacent   ConstraintKind = "adjacent"
	KindReturnLeg  ConstraintKind = "return-leg"
	KindTravel     ConstraintKind = "travel"
	KindDeviation  ConstraintKind = "deviation"
	KindPenaltyCut ConstraintKind = "penalty"
)

// ActivityVars maps one schedulable activity to its decision variables.
type ActivityVars struct {
	Activity model.Activity
	Params   model.ScoringGroupParameters
	// Select holds one binary per option, in option order.
	Select    []int
	Start     int
	Duration  int
	TravelIn  int
	TravelOut int // -1 when the person has no home location

	WindowStart float64
	WindowEnd   float64
	MinDuration float64
	MaxDuration float64

	Deviations []Deviation
}

// Deviation is a penalised deviation from a preferred start or duration.
type Deviation struct {
	Side    string // early, late, short or long
	Dev     int
	Penalty int // -1 when the penalty is charged on Dev directly
}

// Option returns the index of o among the activity options, or -1.
func (av ActivityVars) Option(o model.ActivityOption) int {
	for k, c := range av.Activity.Options {
		if c == o {
			return k
		}
	}
	return -1
}

// Arc is an immediate-successor binary between two activity slots. From
// and To index Instance.Activities or are Origin/Sink.
type Arc struct {
	From, To int
	Var      int
}

// Instance is the optimisation problem of one person together with the
// mapping needed to read a solution back. It is owned by a single
// formulate-solve-extract pipeline and never shared.
type Instance struct {
	Person     model.PersonInstance
	Problem    *milp.Problem
	Activities []ActivityVars
	// Skipped lists activities without options; they never appear in a
	// schedule.
	Skipped []model.Activity
	Arcs    []Arc
	Travel  travel.Provider
	Groups  model.ScoringGroups

	TimeBigM   float64
	MaxTravel  float64
	TimeBudget float64

	eval *utility.Evaluator
}

// Empty reports whether nothing can be scheduled, in which case the
// instance is trivially solved by the empty schedule.
func (in *Instance) Empty() bool { return len(in.Activities) == 0 }

// NumConstraints returns the number of constraints of the given kind.
func (in *Instance) NumConstraints(kind ConstraintKind) int {
	n := 0
	for _, c := range in.Problem.Constraints {
		if c.Tag == string(kind) {
			n++
		}
	}
	return n
}

func (in *Instance) activity(id string) (int, bool) {
	for i, av := range in.Activities {
		if av.Activity.ID == id {
			return i, true
		}
	}
	return -1, false
}

// Encode returns the variable assignment that represents s. It is the
// inverse of schedule extraction and lets callers check a known schedule
// against the model or warm-start a backend.
func (in *Instance) Encode(s *model.GeneratedSchedule) ([]float64, error) {
	p := in.Problem
	x := make([]float64, len(p.Vars))
	for i, v := range p.Vars {
		x[i] = v.Lower
	}
	order := make([]int, 0, len(s.Activities))
	for _, sa := range s.Activities {
		i, ok := in.activity(sa.ActivityID)
		if !ok {
			return nil, fmt.Errorf("activity %s is not schedulable", sa.ActivityID)
		}
		av := in.Activities[i]
		k := av.Option(sa.Option)
		if k < 0 {
			return nil, fmt.Errorf("activity %s has no option %s", sa.ActivityID, sa.Option)
		}
		x[av.Select[k]] = 1
		x[av.Start] = sa.Start
		x[av.Duration] = sa.Duration
		x[av.TravelIn] = sa.TravelTime
		order = append(order, i)
	}
	if n := len(order); n > 0 && in.Activities[order[n-1]].TravelOut >= 0 {
		x[in.Activities[order[n-1]].TravelOut] = s.ReturnTravel
	}

	prev := Origin
	for _, i := range order {
		if err := in.setArc(x, prev, i); err != nil {
			return nil, err
		}
		prev = i
	}
	if err := in.setArc(x, prev, Sink); err != nil {
		return nil, err
	}

	for _, i := range order {
		av := in.Activities[i]
		a := av.Activity
		start, dur := x[av.Start], x[av.Duration]
		for _, d := range av.Deviations {
			var dev float64
			switch d.Side {
			case "early":
				dev = a.PreferredStart - start
			case "late":
				dev = start - a.PreferredStart
			case "short":
				dev = a.PreferredDuration - dur
			case "long":
				dev = dur - a.PreferredDuration
			}
			dev = math.Max(dev, 0)
			x[d.Dev] = dev
			if d.Penalty >= 0 {
				pen := 0.0
				for _, seg := range in.eval.Segments(p.Vars[d.Dev].Upper) {
					pen = math.Max(pen, seg.At(dev))
				}
				x[d.Penalty] = pen
			}
		}
	}
	return x, nil
}

func (in *Instance) setArc(x []float64, from, to int) error {
	for _, a := range in.Arcs {
		if a.From == from && a.To == to {
			x[a.Var] = 1
			return nil
		}
	}
	return fmt.Errorf("no arc from %d to %d", from, to)
}
