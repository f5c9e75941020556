package model

import "sort"

// ScheduledActivity is one realised entry of a generated schedule.
type ScheduledActivity struct {
	ActivityID string         `json:"activity_id"`
	Type       string         `json:"type"`
	Option     ActivityOption `json:"option"`
	Start      float64        `json:"start"`
	Duration   float64        `json:"duration"`
	TravelTime float64        `json:"travel_time"` // travel from the previous location
}

// End returns the end time of the activity.
func (s ScheduledActivity) End() float64 { return s.Start + s.Duration }

// GeneratedSchedule is the ordered day plan returned for one person.
type GeneratedSchedule struct {
	PersonID     string              `json:"person_id"`
	Activities   []ScheduledActivity `json:"activities"`
	ReturnTravel float64             `json:"return_travel"` // travel from the last activity back home
	Utility      float64             `json:"utility"`
	Optimal      bool                `json:"optimal"`
	Gap          float64             `json:"gap"`
}

// Sort orders the activities by start time.
func (s *GeneratedSchedule) Sort() {
	sort.SliceStable(s.Activities, func(i, j int) bool {
		return s.Activities[i].Start < s.Activities[j].Start
	})
}

// TotalDuration returns the sum of all activity durations.
func (s GeneratedSchedule) TotalDuration() float64 {
	var total float64
	for _, a := range s.Activities {
		total += a.Duration
	}
	return total
}

// TotalTravel returns the travel time of the whole day including the
// return leg.
func (s GeneratedSchedule) TotalTravel() float64 {
	total := s.ReturnTravel
	for _, a := range s.Activities {
		total += a.TravelTime
	}
	return total
}

// Empty reports whether no activity was scheduled.
func (s GeneratedSchedule) Empty() bool { return len(s.Activities) == 0 }
