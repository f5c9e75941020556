package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/actsched/core/batch"
	"github.com/kilianp07/actsched/core/events"
	"github.com/kilianp07/actsched/core/model"
)

func sampleResult() *batch.Result {
	return &batch.Result{RunID: "run-1", Jobs: map[string]*batch.JobResult{
		"alice": {
			PersonID: "alice",
			State:    events.JobSucceeded,
			Schedule: &model.GeneratedSchedule{PersonID: "alice", Activities: []model.ScheduledActivity{
				{ActivityID: "leisure", Type: "leisure", Option: model.ActivityOption{Location: "park", Mode: "car"}, Start: 1080, Duration: 120, TravelTime: 30},
				{ActivityID: "work", Type: "work", Option: model.ActivityOption{Location: "office", Mode: "car"}, Start: 480, Duration: 540},
			}},
		},
		"bob": {PersonID: "bob", State: events.JobFailed, Reason: model.ReasonInfeasible},
	}}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleResult()))

	recs, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 4)
	assert.Equal(t, CSVHeader, recs[0])
	assert.Equal(t, []string{"alice", "work", "work", "office", "car", "480", "540", "0", "NONE"}, recs[1])
	assert.Equal(t, []string{"alice", "leisure", "leisure", "park", "car", "1080", "120", "30", "NONE"}, recs[2])
	assert.Equal(t, "bob", recs[3][0])
	assert.Equal(t, "INFEASIBLE", recs[3][8])
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleResult()))

	var doc Document
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "run-1", doc.RunID)
	require.Len(t, doc.Rows, 2)
	assert.Equal(t, "office", doc.Rows[0].Location)
	assert.Equal(t, model.ReasonInfeasible, doc.Failed["bob"])
}

func TestWriteMATSimPlans(t *testing.T) {
	res := sampleResult()
	res.Jobs["alice"].Schedule.ReturnTravel = 15

	var buf bytes.Buffer
	require.NoError(t, WriteMATSimPlans(&buf, res, map[string]string{"alice": "home"}))
	assert.Contains(t, buf.String(), "population_v6.dtd")

	var pop matsimPopulation
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &pop))
	require.Len(t, pop.Persons, 1, "failed persons have no plan")
	plan := pop.Persons[0].Plan
	assert.Equal(t, "alice", pop.Persons[0].ID)
	assert.Equal(t, "yes", plan.Selected)

	var kinds []string
	for _, e := range plan.Elements {
		kinds = append(kinds, e.XMLName.Local)
	}
	assert.Equal(t, []string{"activity", "leg", "activity", "leg", "activity", "leg", "activity"}, kinds)

	els := plan.Elements
	assert.Equal(t, HomeActivity, els[0].Type)
	assert.Equal(t, "08:00:00", els[0].End)
	assert.Equal(t, "office", els[2].Facility)
	assert.Equal(t, "17:00:00", els[2].End)
	assert.Equal(t, "00:30:00", els[3].TravTime)
	assert.Equal(t, "car", els[3].Mode)
	assert.Equal(t, "park", els[4].Facility)
	assert.Equal(t, "18:00:00", els[4].Start)
	assert.Equal(t, "00:15:00", els[5].TravTime)
	assert.Equal(t, "home", els[6].Facility)
	assert.Equal(t, "20:15:00", els[6].Start)
}

func TestWriteMATSimPlans_NoHome(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMATSimPlans(&buf, sampleResult(), nil))

	var pop matsimPopulation
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &pop))
	require.Len(t, pop.Persons, 1)
	els := pop.Persons[0].Plan.Elements
	require.Len(t, els, 3)
	assert.Equal(t, "work", els[0].Type)
	assert.Equal(t, "leg", els[1].XMLName.Local)
	assert.Equal(t, "leisure", els[2].Type)
}

func TestMATSimTime(t *testing.T) {
	assert.Equal(t, "00:00:00", matsimTime(0))
	assert.Equal(t, "07:30:30", matsimTime(450.5))
	assert.Equal(t, "25:00:00", matsimTime(1500))
}
