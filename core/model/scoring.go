package model

// ScoringGroupParameters holds the utility coefficients shared by all
// activities referencing the same scoring group. Penalties are expressed per
// unit of the configured deviation shape (minutes for the linear shape).
type ScoringGroupParameters struct {
	Name          string  `json:"name"`
	Constant      float64 `json:"constant"`
	PenaltyEarly  float64 `json:"penalty_early"`
	PenaltyLate   float64 `json:"penalty_late"`
	PenaltyShort  float64 `json:"penalty_short"`
	PenaltyLong   float64 `json:"penalty_long"`
	TravelPenalty float64 `json:"travel_penalty"` // utility lost per minute of travel
	// ModeConstants adds a fixed utility per travel mode.
	ModeConstants map[string]float64 `json:"mode_constants,omitempty"`
	// FeasibleStart and FeasibleEnd restrict when activities of this group
	// may take place. Both zero means the person's day window.
	FeasibleStart float64 `json:"feasible_start"`
	FeasibleEnd   float64 `json:"feasible_end"`
}

// HasWindow reports whether the group restricts the feasible time window.
func (p ScoringGroupParameters) HasWindow() bool {
	return p.FeasibleStart != 0 || p.FeasibleEnd != 0
}

// ModeConstant returns the fixed utility of the given mode, zero when unset.
func (p ScoringGroupParameters) ModeConstant(mode string) float64 {
	return p.ModeConstants[mode]
}

// ScoringGroups indexes scoring group parameters by name. It is loaded once
// per run and shared read-only across solves.
type ScoringGroups map[string]ScoringGroupParameters

// Get returns the parameters of the named group.
func (g ScoringGroups) Get(name string) (ScoringGroupParameters, bool) {
	p, ok := g[name]
	return p, ok
}
