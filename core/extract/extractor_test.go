package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/actsched/core/formulate"
	"github.com/kilianp07/actsched/core/milp"
	"github.com/kilianp07/actsched/core/model"
	"github.com/kilianp07/actsched/core/solver"
	"github.com/kilianp07/actsched/core/utility"
	"github.com/kilianp07/actsched/internal/fixtures"
)

type pipeline struct {
	f *formulate.Formulator
	a *solver.Adapter
	x *Extractor
}

func newPipeline(t *testing.T) pipeline {
	t.Helper()
	eval, err := utility.NewEvaluator(utility.Config{})
	require.NoError(t, err)
	return pipeline{
		f: formulate.New(eval, formulate.Config{}),
		a: solver.NewAdapter(milp.NewBranchAndBound(2), milp.Options{}, nil),
		x: New(eval, Options{}),
	}
}

func (p pipeline) run(t *testing.T, person model.PersonInstance) (*model.GeneratedSchedule, error) {
	t.Helper()
	inst, err := p.f.Formulate(person, fixtures.Matrix(), fixtures.Groups())
	require.NoError(t, err)
	out := p.a.Solve(context.Background(), inst, 30*time.Second, 0)
	return p.x.Extract(inst, out)
}

func TestPipeline_WorkThenLeisure(t *testing.T) {
	p := newPipeline(t)
	s, err := p.run(t, fixtures.WorkLeisure("p1"))
	require.NoError(t, err)

	require.Len(t, s.Activities, 2)
	work, leisure := s.Activities[0], s.Activities[1]
	assert.Equal(t, "work", work.ActivityID)
	assert.InDelta(t, 480, work.Start, 1e-4)
	assert.InDelta(t, 540, work.Duration, 1e-4)

	assert.Equal(t, "leisure", leisure.ActivityID)
	assert.Equal(t, "park", leisure.Option.Location)
	assert.InDelta(t, 1080, leisure.Start, 1e-4)
	assert.InDelta(t, 120, leisure.Duration, 1e-4)
	assert.Equal(t, 30.0, leisure.TravelTime)
	assert.GreaterOrEqual(t, leisure.Start, work.End()+leisure.TravelTime-1e-6)

	assert.InDelta(t, 58.5, s.Utility, 1e-4)
	assert.True(t, s.Optimal)
	assert.NoError(t, Validate(fixtures.WorkLeisure("p1"), s, fixtures.Matrix(), fixtures.Groups(), Options{}))
}

func TestPipeline_Idempotent(t *testing.T) {
	p := newPipeline(t)
	first, err := p.run(t, fixtures.WorkLeisure("p1"))
	require.NoError(t, err)
	second, err := p.run(t, fixtures.WorkLeisure("p1"))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPipeline_HomeLegs(t *testing.T) {
	p := newPipeline(t)
	s, err := p.run(t, fixtures.SingleErrand("p2"))
	require.NoError(t, err)
	require.Len(t, s.Activities, 1)
	assert.Equal(t, 5.0, s.Activities[0].TravelTime)
	assert.Equal(t, 5.0, s.ReturnTravel)
	assert.InDelta(t, 600, s.Activities[0].Start, 1e-4)
	assert.InDelta(t, 5, s.Utility, 1e-6)
}

func TestPipeline_Infeasible(t *testing.T) {
	p := newPipeline(t)

	_, err := p.run(t, fixtures.OverlappingErrands("p3"))
	var oe *OutcomeError
	require.True(t, errors.As(err, &oe), "got %v", err)
	assert.Equal(t, model.ReasonInfeasible, oe.Reason())

	// the mandatory errand needs 120 minutes
	short := fixtures.SingleErrand("p4")
	short.TimeBudget = 60
	_, err = p.run(t, short)
	require.True(t, errors.As(err, &oe), "got %v", err)
	assert.Equal(t, model.ReasonInfeasible, oe.Reason())
}

func TestPipeline_EmptyPerson(t *testing.T) {
	p := newPipeline(t)
	s, err := p.run(t, fixtures.Empty("p5"))
	require.NoError(t, err)
	assert.True(t, s.Empty())
	assert.Zero(t, s.Utility)
	assert.True(t, s.Optimal)
}

func TestExtract_FromEncodedSchedule(t *testing.T) {
	eval, err := utility.NewEvaluator(utility.Config{})
	require.NoError(t, err)
	inst, err := formulate.New(eval, formulate.Config{}).Formulate(fixtures.WorkLeisure("p1"), fixtures.Matrix(), fixtures.Groups())
	require.NoError(t, err)
	x := New(eval, Options{})

	w, l := fixtures.Work(), fixtures.Leisure()
	sched := func(k int, start float64) *model.GeneratedSchedule {
		return &model.GeneratedSchedule{PersonID: "p1", Activities: []model.ScheduledActivity{
			{ActivityID: w.ID, Option: w.Options[0], Start: 480, Duration: 540},
			{ActivityID: l.ID, Option: l.Options[k], Start: start, Duration: 120},
		}}
	}

	xs, err := inst.Encode(sched(1, 1110))
	require.NoError(t, err)
	s, err := x.Extract(inst, solver.Outcome{PersonID: "p1", Status: solver.StatusFeasible, Assignment: xs, Gap: 0.1})
	require.NoError(t, err)
	assert.Equal(t, "cinema", s.Activities[1].Option.Location)
	assert.Equal(t, 90.0, s.Activities[1].TravelTime)
	assert.False(t, s.Optimal)
	assert.Equal(t, 0.1, s.Gap)
	assert.InDelta(t, 50+12-0.05*90-0.1*30, s.Utility, 1e-9)

	// the cinema cannot be reached by 18:00
	xs, err = inst.Encode(sched(1, 1080))
	require.NoError(t, err)
	_, err = x.Extract(inst, solver.Outcome{PersonID: "p1", Status: solver.StatusOptimal, Assignment: xs})
	var ee *ExtractionError
	require.True(t, errors.As(err, &ee), "got %v", err)
	assert.NotEmpty(t, ee.Violations)

	// two options of the same activity
	xs, err = inst.Encode(sched(0, 1080))
	require.NoError(t, err)
	xs[inst.Activities[1].Select[2]] = 1
	_, err = x.Extract(inst, solver.Outcome{PersonID: "p1", Status: solver.StatusOptimal, Assignment: xs})
	require.True(t, errors.As(err, &ee))
	assert.Contains(t, ee.Error(), "both selected")

	// outcome of another person
	_, err = x.Extract(inst, solver.Outcome{PersonID: "p9", Status: solver.StatusOptimal, Assignment: xs})
	require.True(t, errors.As(err, &ee))
}

func TestExtract_PropagatesOutcome(t *testing.T) {
	eval, err := utility.NewEvaluator(utility.Config{})
	require.NoError(t, err)
	inst, err := formulate.New(eval, formulate.Config{}).Formulate(fixtures.WorkLeisure("p1"), fixtures.Matrix(), fixtures.Groups())
	require.NoError(t, err)

	for _, st := range []solver.Status{solver.StatusInfeasible, solver.StatusTimedOut, solver.StatusSolverError, solver.StatusCanceled} {
		_, err := New(eval, Options{}).Extract(inst, solver.Outcome{PersonID: "p1", Status: st, Err: milp.ErrNumerical})
		var oe *OutcomeError
		require.True(t, errors.As(err, &oe))
		assert.Equal(t, st, oe.Status)
		assert.Equal(t, solver.Outcome{Status: st}.Reason(), oe.Reason())
		assert.ErrorIs(t, err, milp.ErrNumerical)
	}
}

func TestValidate(t *testing.T) {
	person := fixtures.WorkLeisure("p1")
	w, l := fixtures.Work(), fixtures.Leisure()
	valid := func() *model.GeneratedSchedule {
		return &model.GeneratedSchedule{PersonID: "p1", Activities: []model.ScheduledActivity{
			{ActivityID: w.ID, Option: w.Options[0], Start: 480, Duration: 540},
			{ActivityID: l.ID, Option: l.Options[0], Start: 1080, Duration: 120, TravelTime: 30},
		}}
	}
	require.NoError(t, Validate(person, valid(), fixtures.Matrix(), fixtures.Groups(), Options{}))

	cases := map[string]func(s *model.GeneratedSchedule){
		"missing mandatory": func(s *model.GeneratedSchedule) { s.Activities = s.Activities[1:]; s.Activities[0].TravelTime = 0 },
		"overlap":           func(s *model.GeneratedSchedule) { s.Activities[1].Start = 1030 },
		"foreign option":    func(s *model.GeneratedSchedule) { s.Activities[1].Option.Location = "office" },
		"wrong travel":      func(s *model.GeneratedSchedule) { s.Activities[1].TravelTime = 5 },
		"outside window":    func(s *model.GeneratedSchedule) { s.Activities[0].Start = 470 },
		"too short":         func(s *model.GeneratedSchedule) { s.Activities[1].Duration = 2 },
		"duplicate":         func(s *model.GeneratedSchedule) { s.Activities = append(s.Activities, s.Activities[1]) },
		"other person":      func(s *model.GeneratedSchedule) { s.PersonID = "p2" },
		"unknown activity":  func(s *model.GeneratedSchedule) { s.Activities[1].ActivityID = "gym" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			s := valid()
			mutate(s)
			err := Validate(person, s, fixtures.Matrix(), fixtures.Groups(), Options{})
			var ee *ExtractionError
			require.True(t, errors.As(err, &ee), "got %v", err)
		})
	}

	t.Run("budget", func(t *testing.T) {
		p := person
		p.TimeBudget = 600
		err := Validate(p, valid(), fixtures.Matrix(), fixtures.Groups(), Options{})
		assert.ErrorContains(t, err, "time budget")
	})
}
