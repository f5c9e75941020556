// Package extract decodes solved instances into schedules and re-checks
// every schedule invariant independently of the solver.
package extract

import (
	"fmt"
	"math"

	"github.com/kilianp07/actsched/core/formulate"
	"github.com/kilianp07/actsched/core/model"
	"github.com/kilianp07/actsched/core/solver"
	"github.com/kilianp07/actsched/core/utility"
)

// Options tune the decoding.
type Options struct {
	// SelectionThreshold is the value above which a binary counts as set.
	SelectionThreshold float64
	// TimeTolerance, in minutes, absorbs solver round-off in time checks.
	TimeTolerance float64
	// MinActivityDuration is the shortest allowed duration of any activity.
	MinActivityDuration float64
}

// WithDefaults fills unset fields.
func (o Options) WithDefaults() Options {
	if o.SelectionThreshold <= 0 || o.SelectionThreshold >= 1 {
		o.SelectionThreshold = 0.5
	}
	if o.TimeTolerance <= 0 {
		o.TimeTolerance = 0.01
	}
	if o.MinActivityDuration <= 0 {
		o.MinActivityDuration = formulate.DefaultMinActivityDuration
	}
	return o
}

// Extractor turns outcomes into schedules.
type Extractor struct {
	eval *utility.Evaluator
	opts Options
}

// New returns an Extractor scoring schedules with eval.
func New(eval *utility.Evaluator, opts Options) *Extractor {
	return &Extractor{eval: eval, opts: opts.WithDefaults()}
}

// Extract decodes out into the schedule of inst.Person. Outcomes without an
// assignment yield an *OutcomeError; assignments that violate a schedule
// invariant yield an *ExtractionError.
func (x *Extractor) Extract(inst *formulate.Instance, out solver.Outcome) (*model.GeneratedSchedule, error) {
	person := inst.Person
	if out.PersonID != person.ID {
		return nil, &ExtractionError{PersonID: person.ID, Violations: []string{
			fmt.Sprintf("outcome belongs to person %q", out.PersonID),
		}}
	}
	if !out.HasAssignment() {
		return nil, &OutcomeError{PersonID: person.ID, Status: out.Status, Err: out.Err}
	}
	sched := &model.GeneratedSchedule{
		PersonID: person.ID,
		Optimal:  out.Status == solver.StatusOptimal,
		Gap:      out.Gap,
	}
	if inst.Empty() {
		sched.Activities = []model.ScheduledActivity{}
		return sched, nil
	}
	xs := out.Assignment
	if len(xs) != len(inst.Problem.Vars) {
		return nil, &ExtractionError{PersonID: person.ID, Violations: []string{
			fmt.Sprintf("assignment has %d values for %d variables", len(xs), len(inst.Problem.Vars)),
		}}
	}

	var bad []string
	for _, av := range inst.Activities {
		chosen := -1
		for k, v := range av.Select {
			if xs[v] <= x.opts.SelectionThreshold {
				continue
			}
			if chosen >= 0 {
				bad = append(bad, fmt.Sprintf("activity %s: options %d and %d both selected", av.Activity.ID, chosen, k))
			}
			chosen = k
		}
		if chosen < 0 {
			continue
		}
		sched.Activities = append(sched.Activities, model.ScheduledActivity{
			ActivityID: av.Activity.ID,
			Type:       av.Activity.Type,
			Option:     av.Activity.Options[chosen],
			Start:      snap(xs[av.Start]),
			Duration:   snap(xs[av.Duration]),
		})
	}
	if len(bad) > 0 {
		return nil, &ExtractionError{PersonID: person.ID, Violations: bad}
	}
	sched.Sort()
	if err := x.fillTravel(inst, sched); err != nil {
		return nil, err
	}
	if err := Validate(person, sched, inst.Travel, inst.Groups, x.opts); err != nil {
		return nil, err
	}
	sched.Utility = x.Utility(person, sched, inst.Groups)
	return sched, nil
}

// fillTravel recomputes travel times from the provider along the extracted
// order.
func (x *Extractor) fillTravel(inst *formulate.Instance, s *model.GeneratedSchedule) error {
	prev := inst.Person.Home
	for i := range s.Activities {
		sa := &s.Activities[i]
		if prev != "" {
			t, ok := inst.Travel.TravelTime(prev, sa.Option.Location, sa.Option.Mode)
			if !ok {
				return &ExtractionError{PersonID: s.PersonID, Violations: []string{
					fmt.Sprintf("no travel time from %q to %q by %q", prev, sa.Option.Location, sa.Option.Mode),
				}}
			}
			sa.TravelTime = t
		}
		prev = sa.Option.Location
	}
	home := inst.Person.Home
	if n := len(s.Activities); n > 0 && home != "" {
		last := s.Activities[n-1].Option
		t, ok := inst.Travel.TravelTime(last.Location, home, last.Mode)
		if !ok {
			return &ExtractionError{PersonID: s.PersonID, Violations: []string{
				fmt.Sprintf("no travel time from %q home by %q", last.Location, last.Mode),
			}}
		}
		s.ReturnTravel = t
	}
	return nil
}

// Utility evaluates s exactly: activity utilities minus the travel
// disutility of every inbound leg and of the return leg.
func (x *Extractor) Utility(person model.PersonInstance, s *model.GeneratedSchedule, groups model.ScoringGroups) float64 {
	var total float64
	for i, sa := range s.Activities {
		a, _ := person.Activity(sa.ActivityID)
		p, _ := groups.Get(a.ScoringGroup)
		total += x.eval.Utility(a, sa.Option, sa.Start, sa.Duration, p)
		total -= x.eval.TravelDisutility(p, sa.TravelTime)
		if i == len(s.Activities)-1 {
			total -= x.eval.TravelDisutility(p, s.ReturnTravel)
		}
	}
	return total
}

func snap(v float64) float64 {
	const q = 1e6
	return math.Round(v*q) / q
}
