package model

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailureReasonText(t *testing.T) {
	b, err := json.Marshal(map[string]FailureReason{"p1": ReasonTimedOut, "p2": ReasonCanceled})
	require.NoError(t, err)
	assert.JSONEq(t, `{"p1":"TIMED_OUT","p2":"CANCELED"}`, string(b))

	var back map[string]FailureReason
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, ReasonTimedOut, back["p1"])

	var r FailureReason
	assert.Error(t, r.UnmarshalText([]byte("LATE")))
	assert.Equal(t, "UNKNOWN", FailureReason(42).String())
}

func TestIsMalformed(t *testing.T) {
	err := Malformed("p1", "unknown scoring group %q", "gym")
	assert.EqualError(t, err, `malformed input for person p1: unknown scoring group "gym"`)
	assert.True(t, IsMalformed(fmt.Errorf("formulate: %w", err)))
	assert.False(t, IsMalformed(fmt.Errorf("boom")))
}

func TestActivityValidate(t *testing.T) {
	opt := []ActivityOption{{Location: "office", Mode: "car"}}
	tests := []struct {
		name string
		act  Activity
		want string
	}{
		{"ok", Activity{ID: "work", PreferredDuration: 60, Options: opt}, ""},
		{"id", Activity{Options: opt}, "activity id is required"},
		{"negative", Activity{ID: "a", MinDuration: -1}, "negative duration"},
		{"max below min", Activity{ID: "a", MinDuration: 60, MaxDuration: 30}, "below min duration"},
		{"option", Activity{ID: "a", Options: []ActivityOption{{Location: "office"}}}, "needs a location and a mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.act.Validate()
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestActivityMandatory(t *testing.T) {
	a := Activity{ID: "a", Options: []ActivityOption{{Location: "x", Mode: "walk"}}}
	assert.True(t, a.Mandatory())
	a.Skippable = true
	assert.False(t, a.Mandatory())
	assert.False(t, Activity{ID: "b"}.Mandatory())
}

func TestPersonValidate(t *testing.T) {
	p := PersonInstance{ID: "p", DayEnd: MinutesPerDay, Activities: []Activity{{ID: "a"}, {ID: "b"}}}
	require.NoError(t, p.Validate())
	assert.Equal(t, float64(MinutesPerDay), p.Horizon())
	_, ok := p.Activity("b")
	assert.True(t, ok)

	p.Activities = append(p.Activities, Activity{ID: "a"})
	assert.ErrorContains(t, p.Validate(), "duplicate activity id a")

	assert.ErrorContains(t, PersonInstance{ID: "p", DayStart: 600, DayEnd: 600}.Validate(), "empty day window")
	assert.ErrorContains(t, PersonInstance{ID: "p", DayEnd: 10, TimeBudget: -1}.Validate(), "negative time budget")
}

func TestGeneratedSchedule(t *testing.T) {
	s := GeneratedSchedule{
		Activities: []ScheduledActivity{
			{ActivityID: "leisure", Start: 1080, Duration: 120, TravelTime: 30},
			{ActivityID: "work", Start: 480, Duration: 540, TravelTime: 20},
		},
		ReturnTravel: 15,
	}
	s.Sort()
	assert.Equal(t, "work", s.Activities[0].ActivityID)
	assert.Equal(t, 1020.0, s.Activities[0].End())
	assert.Equal(t, 660.0, s.TotalDuration())
	assert.Equal(t, 65.0, s.TotalTravel())
	assert.False(t, s.Empty())
}

func TestScoringGroups(t *testing.T) {
	g := ScoringGroups{"leisure": {Name: "leisure", ModeConstants: map[string]float64{"walk": 1.5}}, "work": {FeasibleStart: 480, FeasibleEnd: 1020}}
	p, ok := g.Get("leisure")
	require.True(t, ok)
	assert.False(t, p.HasWindow())
	assert.Equal(t, 1.5, p.ModeConstant("walk"))
	assert.Zero(t, p.ModeConstant("car"))
	assert.True(t, g["work"].HasWindow())
	_, ok = g.Get("gym")
	assert.False(t, ok)
}
