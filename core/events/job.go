package events

import (
	"time"

	"github.com/kilianp07/actsched/core/model"
)

// JobState is the lifecycle state of one person's job.
type JobState int

const (
	JobPending JobState = iota
	JobRunning
	JobSucceeded
	JobFailed
)

func (s JobState) String() string {
	switch s {
	case JobPending:
		return "PENDING"
	case JobRunning:
		return "RUNNING"
	case JobSucceeded:
		return "SUCCEEDED"
	case JobFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether no further transition can happen.
func (s JobState) Terminal() bool { return s == JobSucceeded || s == JobFailed }

// JobEvent is published on every job state transition. Schedule is set
// when State is JobSucceeded.
type JobEvent struct {
	RunID    string
	PersonID string
	State    JobState
	Reason   model.FailureReason
	Err      error
	Schedule *model.GeneratedSchedule
	Elapsed  time.Duration
	Time     time.Time
}

// ProgressEvent reports how many jobs of a batch have finished.
type ProgressEvent struct {
	RunID string
	Done  int
	Total int
	Time  time.Time
}
