package model

import "fmt"

// ActivityOption is one realizable instantiation of an activity: a location
// reached with a given travel mode.
type ActivityOption struct {
	Location string  `json:"location"`
	Mode     string  `json:"mode"`
	Utility  float64 `json:"utility"` // fixed utility offset of choosing this option
}

// String returns "location/mode".
func (o ActivityOption) String() string {
	return o.Location + "/" + o.Mode
}

// Activity is one candidate activity a person may perform during the day.
// Times and durations are expressed in minutes since midnight.
type Activity struct {
	ID                string           `json:"id"`
	Type              string           `json:"type"`
	PreferredStart    float64          `json:"preferred_start"`
	PreferredDuration float64          `json:"preferred_duration"`
	MinDuration       float64          `json:"min_duration,omitempty"`
	MaxDuration       float64          `json:"max_duration,omitempty"` // 0 means bounded by the day window
	ScoringGroup      string           `json:"scoring_group"`
	Skippable         bool             `json:"skippable"`
	Options           []ActivityOption `json:"options"`
}

// HasOptions reports whether the activity can be realised at all. Activities
// without options are always skipped.
func (a Activity) HasOptions() bool { return len(a.Options) > 0 }

// Mandatory reports whether the activity has to appear in every schedule.
func (a Activity) Mandatory() bool { return a.HasOptions() && !a.Skippable }

// Validate checks the internal consistency of the activity, independently
// of the travel matrix and scoring groups.
func (a Activity) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("activity id is required")
	}
	if a.PreferredDuration < 0 || a.MinDuration < 0 || a.MaxDuration < 0 {
		return fmt.Errorf("activity %s: negative duration", a.ID)
	}
	if a.MaxDuration > 0 && a.MaxDuration < a.MinDuration {
		return fmt.Errorf("activity %s: max duration %.1f below min duration %.1f", a.ID, a.MaxDuration, a.MinDuration)
	}
	for i, o := range a.Options {
		if o.Location == "" || o.Mode == "" {
			return fmt.Errorf("activity %s: option %d needs a location and a mode", a.ID, i)
		}
	}
	return nil
}
