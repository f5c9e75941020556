package model

import "fmt"

// MinutesPerDay is the default length of the scheduling day.
const MinutesPerDay = 24 * 60

// PersonInstance is the complete input of one optimisation run. A zero
// TimeBudget leaves the total duration bounded by the day window alone.
type PersonInstance struct {
	ID         string     `json:"id"`
	Home       string     `json:"home,omitempty"` // origin and final destination of the day, optional
	DayStart   float64    `json:"day_start"`
	DayEnd     float64    `json:"day_end"`
	TimeBudget float64    `json:"time_budget"` // bound on the sum of activity durations, 0 for the day window only
	Activities []Activity `json:"activities"`
}

// Horizon returns the length of the day window.
func (p PersonInstance) Horizon() float64 { return p.DayEnd - p.DayStart }

// Activity returns the activity with the given id.
func (p PersonInstance) Activity(id string) (Activity, bool) {
	for _, a := range p.Activities {
		if a.ID == id {
			return a, true
		}
	}
	return Activity{}, false
}

// Validate checks the person-level fields and every activity.
func (p PersonInstance) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("person id is required")
	}
	if p.DayEnd <= p.DayStart {
		return fmt.Errorf("empty day window [%.1f, %.1f]", p.DayStart, p.DayEnd)
	}
	if p.TimeBudget < 0 {
		return fmt.Errorf("negative time budget %.1f", p.TimeBudget)
	}
	seen := make(map[string]bool, len(p.Activities))
	for _, a := range p.Activities {
		if err := a.Validate(); err != nil {
			return err
		}
		if seen[a.ID] {
			return fmt.Errorf("duplicate activity id %s", a.ID)
		}
		seen[a.ID] = true
	}
	return nil
}
