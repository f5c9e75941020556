package formulate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/actsched/core/model"
	"github.com/kilianp07/actsched/core/utility"
	"github.com/kilianp07/actsched/internal/fixtures"
)

func newFormulator(t *testing.T, shape utility.Shape) *Formulator {
	t.Helper()
	eval, err := utility.NewEvaluator(utility.Config{Shape: shape})
	require.NoError(t, err)
	return New(eval, Config{})
}

func TestFormulate_Structure(t *testing.T) {
	f := newFormulator(t, utility.ShapeLinear)
	inst, err := f.Formulate(fixtures.WorkLeisure("p1"), fixtures.Matrix(), fixtures.Groups())
	require.NoError(t, err)
	require.NoError(t, inst.Problem.Validate())

	require.Len(t, inst.Activities, 2)
	assert.False(t, inst.Empty())
	assert.Len(t, inst.Activities[0].Select, 1)
	assert.Len(t, inst.Activities[1].Select, 3)
	// origin->sink, 2 origin arcs, 2 adjacent arcs, 2 sink arcs
	assert.Len(t, inst.Arcs, 7)
	assert.Equal(t, 2, inst.NumConstraints(KindSelection))
	assert.Equal(t, 2, inst.NumConstraints(KindAdjacent))
	assert.Zero(t, inst.NumConstraints(KindOriginLeg))
	assert.Zero(t, inst.NumConstraints(KindReturnLeg))
	assert.Equal(t, 1, inst.NumConstraints(KindBudget))
	assert.Equal(t, 6, inst.NumConstraints(KindFlow))
	assert.Equal(t, 4, inst.NumConstraints(KindDeviation))
	assert.Zero(t, inst.NumConstraints(KindPenaltyCut))
	assert.InDelta(t, 90, inst.MaxTravel, 1e-9)
	assert.InDelta(t, 1440+90, inst.TimeBigM, 1e-9)

	work := inst.Activities[0]
	assert.Equal(t, 480.0, work.WindowStart)
	assert.Equal(t, 1020.0, work.WindowEnd)
	assert.Equal(t, 540.0, work.MaxDuration)
	assert.Equal(t, 1.0, inst.Problem.Vars[work.Select[0]].Lower, "single mandatory option is fixed")
	assert.Empty(t, work.Deviations)
	assert.Equal(t, -1, work.TravelOut)
}

func TestFormulate_HomeLegs(t *testing.T) {
	f := newFormulator(t, utility.ShapeLinear)
	inst, err := f.Formulate(fixtures.OverlappingErrands("p1"), fixtures.Matrix(), fixtures.Groups())
	require.NoError(t, err)
	assert.Equal(t, 2, inst.NumConstraints(KindOriginLeg))
	assert.Equal(t, 2, inst.NumConstraints(KindReturnLeg))
	for _, av := range inst.Activities {
		assert.GreaterOrEqual(t, av.TravelOut, 0)
	}
	// home->x, x->home for both errands, bank<->post both ways
	assert.Equal(t, 6, inst.NumConstraints(KindTravel))
}

func TestFormulate_Malformed(t *testing.T) {
	f := newFormulator(t, utility.ShapeLinear)
	cases := map[string]func(p *model.PersonInstance){
		"unknown group": func(p *model.PersonInstance) { p.Activities[1].ScoringGroup = "nope" },
		"unknown location": func(p *model.PersonInstance) {
			p.Activities[1].Options[0].Location = "moon"
		},
		"unknown home":      func(p *model.PersonInstance) { p.Home = "castle" },
		"missing mode":      func(p *model.PersonInstance) { p.Activities[1].Options[0].Mode = "bike" },
		"empty day":         func(p *model.PersonInstance) { p.DayEnd = p.DayStart },
		"duplicate id":      func(p *model.PersonInstance) { p.Activities[1].ID = p.Activities[0].ID },
		"window outside day": func(p *model.PersonInstance) { p.DayEnd = 400 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := fixtures.WorkLeisure("bad")
			mutate(&p)
			inst, err := f.Formulate(p, fixtures.Matrix(), fixtures.Groups())
			require.Error(t, err)
			assert.Nil(t, inst)
			assert.True(t, model.IsMalformed(err), "got %v", err)
		})
	}
}

func TestFormulate_EmptyAndOptionless(t *testing.T) {
	f := newFormulator(t, utility.ShapeLinear)

	inst, err := f.Formulate(fixtures.Empty("e"), fixtures.Matrix(), fixtures.Groups())
	require.NoError(t, err)
	assert.True(t, inst.Empty())
	assert.Empty(t, inst.Problem.Vars)

	p := fixtures.WorkLeisure("o")
	p.Activities[1].Options = nil
	inst, err = f.Formulate(p, fixtures.Matrix(), fixtures.Groups())
	require.NoError(t, err)
	require.Len(t, inst.Activities, 1)
	require.Len(t, inst.Skipped, 1)
	assert.Equal(t, "leisure", inst.Skipped[0].ID)

	p.Activities[0].Options = nil
	inst, err = f.Formulate(p, fixtures.Matrix(), fixtures.Groups())
	require.NoError(t, err)
	assert.True(t, inst.Empty())
}

func TestFormulate_NonLinearShapesAddCuts(t *testing.T) {
	f := newFormulator(t, utility.ShapeQuadratic)
	inst, err := f.Formulate(fixtures.WorkLeisure("q"), fixtures.Matrix(), fixtures.Groups())
	require.NoError(t, err)
	// four penalised sides, DefaultQuadraticSegments+1 tangents each
	assert.Equal(t, 4*(utility.DefaultQuadraticSegments+1), inst.NumConstraints(KindPenaltyCut))
	for _, d := range inst.Activities[1].Deviations {
		assert.GreaterOrEqual(t, d.Penalty, 0)
	}
}

func workThenLeisure(k int, start, travel float64) *model.GeneratedSchedule {
	w, l := fixtures.Work(), fixtures.Leisure()
	return &model.GeneratedSchedule{
		PersonID: "p1",
		Activities: []model.ScheduledActivity{
			{ActivityID: w.ID, Option: w.Options[0], Start: 480, Duration: 540},
			{ActivityID: l.ID, Option: l.Options[k], Start: start, Duration: 120, TravelTime: travel},
		},
	}
}

// Known-feasible schedules must satisfy every row, which shows the big-M
// constants never cut a valid schedule, and the objective must equal the
// exact utility.
func TestEncode_FeasibleSchedulesSatisfyModel(t *testing.T) {
	for _, shape := range []utility.Shape{utility.ShapeLinear, utility.ShapeQuadratic} {
		f := newFormulator(t, shape)
		inst, err := f.Formulate(fixtures.WorkLeisure("p1"), fixtures.Matrix(), fixtures.Groups())
		require.NoError(t, err)

		cases := []struct {
			name  string
			sched *model.GeneratedSchedule
			want  float64
		}{
			{"park", workThenLeisure(0, 1080, 30), 50 + 10 - 0.05*30},
			{"cafe", workThenLeisure(2, 1080, 10), 50 + 8 - 0.05*10},
			{"skip", &model.GeneratedSchedule{PersonID: "p1", Activities: workThenLeisure(0, 0, 0).Activities[:1]}, 50},
		}
		if shape == utility.ShapeLinear {
			cases = append(cases, struct {
				name  string
				sched *model.GeneratedSchedule
				want  float64
			}{"cinema late", workThenLeisure(1, 1110, 90), 50 + 12 - 0.05*90 - 0.1*30})
		}
		for _, tc := range cases {
			x, err := inst.Encode(tc.sched)
			require.NoError(t, err, tc.name)
			assert.Empty(t, inst.Problem.Violations(x, 1e-9), "%s/%s", shape, tc.name)
			assert.InDelta(t, tc.want, inst.Problem.Evaluate(x), 1e-6, "%s/%s", shape, tc.name)
		}
	}
}

func TestEncode_TravelConflictViolatesModel(t *testing.T) {
	f := newFormulator(t, utility.ShapeLinear)
	inst, err := f.Formulate(fixtures.WorkLeisure("p1"), fixtures.Matrix(), fixtures.Groups())
	require.NoError(t, err)

	// the cinema is 90 minutes from the office, so 18:00 is unreachable
	x, err := inst.Encode(workThenLeisure(1, 1080, 90))
	require.NoError(t, err)
	assert.NotEmpty(t, inst.Problem.Violations(x, 1e-9))

	// understating the travel time violates the travel lower bound instead
	x, err = inst.Encode(workThenLeisure(1, 1080, 60))
	require.NoError(t, err)
	assert.NotEmpty(t, inst.Problem.Violations(x, 1e-9))
}

func TestEncode_UnknownOption(t *testing.T) {
	f := newFormulator(t, utility.ShapeLinear)
	inst, err := f.Formulate(fixtures.WorkLeisure("p1"), fixtures.Matrix(), fixtures.Groups())
	require.NoError(t, err)
	s := workThenLeisure(0, 1080, 30)
	s.Activities[1].Option.Location = "moon"
	_, err = inst.Encode(s)
	assert.Error(t, err)
}
