// Package formulate turns a person's activity set into a mixed-integer
// program whose optimum is the best feasible day schedule.
package formulate

import (
	"fmt"
	"math"

	"github.com/kilianp07/actsched/core/milp"
	"github.com/kilianp07/actsched/core/model"
	"github.com/kilianp07/actsched/core/travel"
	"github.com/kilianp07/actsched/core/utility"
)

// DefaultMinActivityDuration is the shortest duration of a selected activity
// when the configuration does not set one.
const DefaultMinActivityDuration = 5.0

// Config tunes the formulation.
type Config struct {
	// MinActivityDuration applies to every selected activity in addition to
	// its own MinDuration.
	MinActivityDuration float64
}

// Formulator builds one Instance per person. It holds no per-person state
// and may be shared by concurrent workers.
type Formulator struct {
	eval *utility.Evaluator
	cfg  Config
}

// New returns a Formulator scoring with eval.
func New(eval *utility.Evaluator, cfg Config) *Formulator {
	if cfg.MinActivityDuration <= 0 {
		cfg.MinActivityDuration = DefaultMinActivityDuration
	}
	return &Formulator{eval: eval, cfg: cfg}
}

// Evaluator returns the utility evaluator used for the objective.
func (f *Formulator) Evaluator() *utility.Evaluator { return f.eval }

// Formulate builds the optimisation instance of person. It fails only with a
// *model.MalformedInputError when the person references a scoring group,
// location or travel triple that is not available.
func (f *Formulator) Formulate(person model.PersonInstance, provider travel.Provider, groups model.ScoringGroups) (*Instance, error) {
	if err := person.Validate(); err != nil {
		return nil, model.Malformed(person.ID, "%v", err)
	}
	b := &builder{
		f:        f,
		person:   person,
		provider: provider,
		inst: &Instance{
			Person:  person,
			Problem: milp.NewProblem("schedule-"+person.ID, true),
			Travel:  provider,
			Groups:  groups,
			eval:    f.eval,
		},
	}
	if err := b.resolve(groups); err != nil {
		return nil, err
	}
	if b.inst.Empty() {
		return b.inst, nil
	}
	b.build()
	return b.inst, nil
}

type builder struct {
	f        *Formulator
	person   model.PersonInstance
	provider travel.Provider
	inst     *Instance

	// legs[i][j][a][b] is the travel time from option a of activity i to
	// option b of activity j, using the mode of b.
	legs [][][][]float64
	// fromHome[j][b] and toHome[i][a]; nil when the person has no home.
	fromHome [][]float64
	toHome   [][]float64
}

// resolve checks every reference and collects windows and travel times.
func (b *builder) resolve(groups model.ScoringGroups) error {
	p := b.person
	id := p.ID
	home := p.Home
	if home != "" && !b.provider.HasLocation(home) {
		return model.Malformed(id, "home location %q is not in the travel matrix", home)
	}
	for _, a := range p.Activities {
		params, ok := groups.Get(a.ScoringGroup)
		if !ok {
			return model.Malformed(id, "activity %s references unknown scoring group %q", a.ID, a.ScoringGroup)
		}
		for _, o := range a.Options {
			if !b.provider.HasLocation(o.Location) {
				return model.Malformed(id, "activity %s references unknown location %q", a.ID, o.Location)
			}
		}
		if !a.HasOptions() {
			b.inst.Skipped = append(b.inst.Skipped, a)
			continue
		}
		ws, we := p.DayStart, p.DayEnd
		if params.HasWindow() {
			ws, we = math.Max(ws, params.FeasibleStart), math.Min(we, params.FeasibleEnd)
		}
		if we <= ws {
			return model.Malformed(id, "activity %s: window of group %q does not intersect the day window", a.ID, a.ScoringGroup)
		}
		maxDur := we - ws
		if a.MaxDuration > 0 {
			maxDur = math.Min(maxDur, a.MaxDuration)
		}
		b.inst.Activities = append(b.inst.Activities, ActivityVars{
			Activity:    a,
			Params:      params,
			TravelOut:   -1,
			WindowStart: ws,
			WindowEnd:   we,
			MinDuration: math.Max(a.MinDuration, b.f.cfg.MinActivityDuration),
			MaxDuration: maxDur,
		})
	}
	return b.lookupTravel()
}

func (b *builder) lookupTravel() error {
	acts := b.inst.Activities
	id := b.person.ID
	lookup := func(from, to, mode string) (float64, error) {
		t, ok := b.provider.TravelTime(from, to, mode)
		if !ok {
			return 0, model.Malformed(id, "no travel time from %q to %q by %q", from, to, mode)
		}
		b.inst.MaxTravel = math.Max(b.inst.MaxTravel, t)
		return t, nil
	}
	var err error
	b.legs = make([][][][]float64, len(acts))
	for i := range acts {
		b.legs[i] = make([][][]float64, len(acts))
		for j := range acts {
			if i == j {
				continue
			}
			from, to := acts[i].Activity.Options, acts[j].Activity.Options
			b.legs[i][j] = make([][]float64, len(from))
			for a := range from {
				b.legs[i][j][a] = make([]float64, len(to))
				for o := range to {
					if b.legs[i][j][a][o], err = lookup(from[a].Location, to[o].Location, to[o].Mode); err != nil {
						return err
					}
				}
			}
		}
	}
	home := b.person.Home
	if home == "" {
		return nil
	}
	b.fromHome = make([][]float64, len(acts))
	b.toHome = make([][]float64, len(acts))
	for i := range acts {
		opts := acts[i].Activity.Options
		b.fromHome[i] = make([]float64, len(opts))
		b.toHome[i] = make([]float64, len(opts))
		for a, o := range opts {
			if b.fromHome[i][a], err = lookup(home, o.Location, o.Mode); err != nil {
				return err
			}
			if b.toHome[i][a], err = lookup(o.Location, home, o.Mode); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *builder) build() {
	inst := b.inst
	p := inst.Problem
	horizon := b.person.Horizon()
	inst.TimeBigM = horizon + inst.MaxTravel
	inst.TimeBudget = b.person.TimeBudget
	if inst.TimeBudget <= 0 {
		inst.TimeBudget = horizon
	}

	for i := range inst.Activities {
		b.addActivity(&inst.Activities[i])
	}

	budget := milp.Constraint{Name: "budget", Tag: string(KindBudget), Sense: milp.LessEq, RHS: inst.TimeBudget}
	for _, av := range inst.Activities {
		budget.Terms = append(budget.Terms, milp.Term{Var: av.Duration, Coef: 1})
	}
	p.AddConstraint(budget)

	b.addArcs()
	for i := range inst.Activities {
		b.addDeviation(&inst.Activities[i])
	}
}

// addActivity creates the selection, timing and travel variables of one
// activity with their local constraints.
func (b *builder) addActivity(av *ActivityVars) {
	p := b.inst.Problem
	a := av.Activity
	for k, o := range a.Options {
		lower := 0.0
		if a.Mandatory() && len(a.Options) == 1 {
			lower = 1
		}
		v := p.AddVar(fmt.Sprintf("y[%s,%d:%s]", a.ID, k, o), milp.Binary, lower, 1)
		av.Select = append(av.Select, v)
		p.AddObjective(v, b.f.eval.Terms(o, av.Params).Fixed)
	}
	av.Start = p.AddVar("start["+a.ID+"]", milp.Continuous, av.WindowStart, av.WindowEnd)
	av.Duration = p.AddVar("dur["+a.ID+"]", milp.Continuous, 0, av.MaxDuration)
	av.TravelIn = p.AddVar("tin["+a.ID+"]", milp.Continuous, 0, b.inst.MaxTravel)
	p.AddObjective(av.TravelIn, -av.Params.TravelPenalty)
	if b.person.Home != "" {
		av.TravelOut = p.AddVar("tout["+a.ID+"]", milp.Continuous, 0, b.inst.MaxTravel)
		p.AddObjective(av.TravelOut, -av.Params.TravelPenalty)
	}

	sel := milp.Constraint{Name: "select[" + a.ID + "]", Tag: string(KindSelection), Sense: milp.LessEq, RHS: 1}
	if a.Mandatory() {
		sel.Sense = milp.Equal
	}
	sel.Terms = b.selected(av, 1)
	p.AddConstraint(sel)

	p.AddConstraint(milp.Constraint{
		Name:  "dur-max[" + a.ID + "]",
		Tag:   string(KindDuration),
		Terms: append([]milp.Term{{Var: av.Duration, Coef: 1}}, b.selected(av, -av.MaxDuration)...),
		Sense: milp.LessEq,
	})
	p.AddConstraint(milp.Constraint{
		Name:  "dur-min[" + a.ID + "]",
		Tag:   string(KindDuration),
		Terms: append([]milp.Term{{Var: av.Duration, Coef: 1}}, b.selected(av, -av.MinDuration)...),
		Sense: milp.GreaterEq,
	})
	p.AddConstraint(milp.Constraint{
		Name:  "window[" + a.ID + "]",
		Tag:   string(KindWindow),
		Terms: []milp.Term{{Var: av.Start, Coef: 1}, {Var: av.Duration, Coef: 1}},
		Sense: milp.LessEq,
		RHS:   av.WindowEnd,
	})
}

// selected returns coef * sum of the activity's selection binaries.
func (b *builder) selected(av *ActivityVars, coef float64) []milp.Term {
	ts := make([]milp.Term, len(av.Select))
	for k, v := range av.Select {
		ts[k] = milp.Term{Var: v, Coef: coef}
	}
	return ts
}

//gocyclo:ignore
func (b *builder) addArcs() {
	inst := b.inst
	p := inst.Problem
	acts := inst.Activities
	n := len(acts)
	bigM := inst.TimeBigM
	maxT := inst.MaxTravel
	hasHome := b.person.Home != ""
	name := func(i int) string {
		switch i {
		case Origin:
			return "O"
		case Sink:
			return "D"
		}
		return acts[i].Activity.ID
	}
	in := make([][]milp.Term, n)
	out := make([][]milp.Term, n)
	var originOut, sinkIn []milp.Term
	addArc := func(from, to int) int {
		v := p.AddBinary(fmt.Sprintf("x[%s,%s]", name(from), name(to)))
		inst.Arcs = append(inst.Arcs, Arc{From: from, To: to, Var: v})
		if from == Origin {
			originOut = append(originOut, milp.Term{Var: v, Coef: 1})
		} else {
			out[from] = append(out[from], milp.Term{Var: v, Coef: 1})
		}
		if to == Sink {
			sinkIn = append(sinkIn, milp.Term{Var: v, Coef: 1})
		} else {
			in[to] = append(in[to], milp.Term{Var: v, Coef: 1})
		}
		return v
	}

	addArc(Origin, Sink)
	for j := range acts {
		x := addArc(Origin, j)
		if !hasHome {
			continue
		}
		bj := &acts[j]
		// day start + travel(home -> j) <= start(j)
		p.AddConstraint(milp.Constraint{
			Name:  "origin[" + name(j) + "]",
			Tag:   string(KindOriginLeg),
			Terms: []milp.Term{{Var: bj.TravelIn, Coef: 1}, {Var: bj.Start, Coef: -1}, {Var: x, Coef: bigM}},
			Sense: milp.LessEq,
			RHS:   bigM - b.person.DayStart,
		})
		for o, t := range b.fromHome[j] {
			if t <= 0 {
				continue
			}
			p.AddConstraint(milp.Constraint{
				Name: fmt.Sprintf("travel[O,%s,%d]", name(j), o),
				Tag:  string(KindTravel),
				Terms: []milp.Term{
					{Var: bj.TravelIn, Coef: 1}, {Var: x, Coef: -maxT}, {Var: bj.Select[o], Coef: -maxT},
				},
				Sense: milp.GreaterEq,
				RHS:   t - 2*maxT,
			})
		}
	}
	for i := range acts {
		ai := &acts[i]
		for j := range acts {
			if i == j {
				continue
			}
			bj := &acts[j]
			x := addArc(i, j)
			// end(i) + travel(i -> j) <= start(j)
			p.AddConstraint(milp.Constraint{
				Name: "adjacent[" + name(i) + "," + name(j) + "]",
				Tag:  string(KindAdjacent),
				Terms: []milp.Term{
					{Var: ai.Start, Coef: 1}, {Var: ai.Duration, Coef: 1}, {Var: bj.TravelIn, Coef: 1},
					{Var: bj.Start, Coef: -1}, {Var: x, Coef: bigM},
				},
				Sense: milp.LessEq,
				RHS:   bigM,
			})
			for a := range ai.Select {
				for o := range bj.Select {
					t := b.legs[i][j][a][o]
					if t <= 0 {
						continue
					}
					p.AddConstraint(milp.Constraint{
						Name: fmt.Sprintf("travel[%s,%d,%s,%d]", name(i), a, name(j), o),
						Tag:  string(KindTravel),
						Terms: []milp.Term{
							{Var: bj.TravelIn, Coef: 1}, {Var: x, Coef: -maxT},
							{Var: ai.Select[a], Coef: -maxT}, {Var: bj.Select[o], Coef: -maxT},
						},
						Sense: milp.GreaterEq,
						RHS:   t - 3*maxT,
					})
				}
			}
		}
	}
	for i := range acts {
		x := addArc(i, Sink)
		if !hasHome {
			continue
		}
		ai := &acts[i]
		// end(i) + travel(i -> home) <= day end
		p.AddConstraint(milp.Constraint{
			Name: "return[" + name(i) + "]",
			Tag:  string(KindReturnLeg),
			Terms: []milp.Term{
				{Var: ai.Start, Coef: 1}, {Var: ai.Duration, Coef: 1}, {Var: ai.TravelOut, Coef: 1}, {Var: x, Coef: bigM},
			},
			Sense: milp.LessEq,
			RHS:   b.person.DayEnd + bigM,
		})
		for a, t := range b.toHome[i] {
			if t <= 0 {
				continue
			}
			p.AddConstraint(milp.Constraint{
				Name: fmt.Sprintf("travel[%s,%d,D]", name(i), a),
				Tag:  string(KindTravel),
				Terms: []milp.Term{
					{Var: ai.TravelOut, Coef: 1}, {Var: x, Coef: -maxT}, {Var: ai.Select[a], Coef: -maxT},
				},
				Sense: milp.GreaterEq,
				RHS:   t - 2*maxT,
			})
		}
	}

	for i := range acts {
		sel := b.selected(&acts[i], -1)
		p.AddConstraint(milp.Constraint{Name: "flow-in[" + name(i) + "]", Tag: string(KindFlow), Terms: append(in[i], sel...), Sense: milp.Equal})
		p.AddConstraint(milp.Constraint{Name: "flow-out[" + name(i) + "]", Tag: string(KindFlow), Terms: append(out[i], sel...), Sense: milp.Equal})
	}
	p.AddConstraint(milp.Constraint{Name: "flow-origin", Tag: string(KindFlow), Terms: originOut, Sense: milp.Equal, RHS: 1})
	p.AddConstraint(milp.Constraint{Name: "flow-sink", Tag: string(KindFlow), Terms: sinkIn, Sense: milp.Equal, RHS: 1})
}

// addDeviation adds the start and duration deviation variables of one
// activity and their penalties. Deviations are forced to zero when the
// activity is skipped.
func (b *builder) addDeviation(av *ActivityVars) {
	a := av.Activity
	pr := av.Params
	pref := a.PreferredStart
	prefDur := a.PreferredDuration

	// early: dev >= pref - start - maxEarly*(1-s)
	if maxEarly := pref - av.WindowStart; pr.PenaltyEarly > 0 && maxEarly > 0 {
		b.deviation(av, "early", pr.PenaltyEarly, maxEarly,
			[]milp.Term{{Var: av.Start, Coef: 1}}, -maxEarly, pref-maxEarly)
	}
	// late: dev >= start - pref - maxLate*(1-s)
	if maxLate := av.WindowEnd - pref; pr.PenaltyLate > 0 && maxLate > 0 {
		b.deviation(av, "late", pr.PenaltyLate, maxLate,
			[]milp.Term{{Var: av.Start, Coef: -1}}, -maxLate, -pref-maxLate)
	}
	// short: dev >= prefDur*s - dur
	if pr.PenaltyShort > 0 && prefDur > 0 {
		b.deviation(av, "short", pr.PenaltyShort, prefDur,
			[]milp.Term{{Var: av.Duration, Coef: 1}}, -prefDur, 0)
	}
	// long: dev >= dur - prefDur, dur is zero when skipped
	if maxLong := av.MaxDuration - prefDur; pr.PenaltyLong > 0 && maxLong > 0 {
		b.deviation(av, "long", pr.PenaltyLong, maxLong,
			[]milp.Term{{Var: av.Duration, Coef: -1}}, 0, -prefDur)
	}
}

// deviation adds dev in [0, maxDev] with dev + terms + selCoef*s >= rhs and
// charges coef * penalty(dev) in the objective.
func (b *builder) deviation(av *ActivityVars, side string, coef, maxDev float64, terms []milp.Term, selCoef, rhs float64) {
	p := b.inst.Problem
	id := av.Activity.ID
	dev := p.AddVar(side+"["+id+"]", milp.Continuous, 0, maxDev)
	row := append([]milp.Term{{Var: dev, Coef: 1}}, terms...)
	if selCoef != 0 {
		row = append(row, b.selected(av, selCoef)...)
	}
	p.AddConstraint(milp.Constraint{Name: side + "[" + id + "]", Tag: string(KindDeviation), Terms: row, Sense: milp.GreaterEq, RHS: rhs})

	segs := b.f.eval.Segments(maxDev)
	if len(segs) == 1 && segs[0].Slope == 1 && segs[0].Intercept == 0 {
		av.Deviations = append(av.Deviations, Deviation{Side: side, Dev: dev, Penalty: -1})
		p.AddObjective(dev, -coef)
		return
	}
	top := 0.0
	for _, s := range segs {
		top = math.Max(top, s.At(maxDev))
	}
	pen := p.AddVar("pen-"+side+"["+id+"]", milp.Continuous, 0, top)
	av.Deviations = append(av.Deviations, Deviation{Side: side, Dev: dev, Penalty: pen})
	for k, s := range segs {
		p.AddConstraint(milp.Constraint{
			Name:  fmt.Sprintf("pen-%s[%s,%d]", side, id, k),
			Tag:   string(KindPenaltyCut),
			Terms: []milp.Term{{Var: pen, Coef: 1}, {Var: dev, Coef: -s.Slope}},
			Sense: milp.GreaterEq,
			RHS:   s.Intercept,
		})
	}
	p.AddObjective(pen, -coef)
}
