package batch

import (
	"sort"
	"time"

	"github.com/kilianp07/actsched/core/events"
	"github.com/kilianp07/actsched/core/model"
)

// JobResult is the terminal state of one person's job.
type JobResult struct {
	PersonID   string
	State      events.JobState
	Schedule   *model.GeneratedSchedule
	Reason     model.FailureReason
	Err        error
	Activities int
	Nodes      int
	Elapsed    time.Duration
}

// Result holds one JobResult per submitted person, keyed by person id.
type Result struct {
	RunID   string
	Jobs    map[string]*JobResult
	Elapsed time.Duration
}

// Succeeded returns the generated schedules by person id.
func (r *Result) Succeeded() map[string]*model.GeneratedSchedule {
	out := make(map[string]*model.GeneratedSchedule)
	for id, j := range r.Jobs {
		if j.State == events.JobSucceeded {
			out[id] = j.Schedule
		}
	}
	return out
}

// Failed returns the failure reasons by person id.
func (r *Result) Failed() map[string]model.FailureReason {
	out := make(map[string]model.FailureReason)
	for id, j := range r.Jobs {
		if j.State != events.JobSucceeded {
			out[id] = j.Reason
		}
	}
	return out
}

// PersonIDs returns the ids of all jobs in lexical order.
func (r *Result) PersonIDs() []string {
	ids := make([]string, 0, len(r.Jobs))
	for id := range r.Jobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SolverTime pairs the size of a person's activity set with the time spent
// on the job.
type SolverTime struct {
	PersonID   string
	Activities int
	Elapsed    time.Duration
}

// SolverTimes returns the solve time of every job, ordered by person id.
func (r *Result) SolverTimes() []SolverTime {
	out := make([]SolverTime, 0, len(r.Jobs))
	for _, id := range r.PersonIDs() {
		j := r.Jobs[id]
		out = append(out, SolverTime{PersonID: id, Activities: j.Activities, Elapsed: j.Elapsed})
	}
	return out
}

// Row is one scheduled activity in the flattened result table.
type Row struct {
	PersonID   string  `json:"person_id"`
	ActivityID string  `json:"activity_id"`
	Type       string  `json:"type"`
	Location   string  `json:"location"`
	Mode       string  `json:"mode"`
	Start      float64 `json:"start"`
	Duration   float64 `json:"duration"`
	TravelTime float64 `json:"travel_time"`
}

// Rows flattens every generated schedule, ordered by person then start.
func (r *Result) Rows() []Row {
	var rows []Row
	for _, id := range r.PersonIDs() {
		j := r.Jobs[id]
		if j.Schedule == nil {
			continue
		}
		for _, a := range j.Schedule.Activities {
			rows = append(rows, Row{
				PersonID:   id,
				ActivityID: a.ActivityID,
				Type:       a.Type,
				Location:   a.Option.Location,
				Mode:       a.Option.Mode,
				Start:      a.Start,
				Duration:   a.Duration,
				TravelTime: a.TravelTime,
			})
		}
	}
	sort.SliceStable(rows, func(i, k int) bool {
		if rows[i].PersonID != rows[k].PersonID {
			return rows[i].PersonID < rows[k].PersonID
		}
		return rows[i].Start < rows[k].Start
	})
	return rows
}
