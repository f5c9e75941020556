package config

import (
	"fmt"

	"github.com/kilianp07/actsched/core/extract"
	"github.com/kilianp07/actsched/core/formulate"
	"github.com/kilianp07/actsched/core/utility"
)

// PiecewiseConfig defines a piecewise-linear deviation penalty.
type PiecewiseConfig struct {
	Breakpoints []float64 `json:"breakpoints"`
	Slopes      []float64 `json:"slopes"`
}

// ModelConfig tunes the formulation and the extraction of schedules.
type ModelConfig struct {
	// PenaltyShape is linear, quadratic or piecewise_linear.
	PenaltyShape        string          `json:"penalty_shape"`
	QuadraticSegments   int             `json:"quadratic_segments"`
	Piecewise           PiecewiseConfig `json:"piecewise"`
	SelectionThreshold  float64         `json:"selection_threshold"`
	MinActivityDuration float64         `json:"min_activity_duration"`
	TimeTolerance       float64         `json:"time_tolerance"`
}

// SetDefaults applies sane defaults.
func (c *ModelConfig) SetDefaults() {
	if c.PenaltyShape == "" {
		c.PenaltyShape = string(utility.ShapeLinear)
	}
	if c.MinActivityDuration == 0 {
		c.MinActivityDuration = formulate.DefaultMinActivityDuration
	}
}

// Validate checks the penalty curve and the tolerances.
func (c ModelConfig) Validate() error {
	uc, err := c.UtilityConfig()
	if err != nil {
		return err
	}
	if err := uc.Validate(); err != nil {
		return err
	}
	if c.SelectionThreshold < 0 || c.SelectionThreshold >= 1 {
		return fmt.Errorf("selection_threshold must be in [0, 1)")
	}
	if c.MinActivityDuration < 0 || c.TimeTolerance < 0 {
		return fmt.Errorf("min_activity_duration and time_tolerance must not be negative")
	}
	return nil
}

// UtilityConfig returns the evaluator configuration.
func (c ModelConfig) UtilityConfig() (utility.Config, error) {
	shape, err := utility.ParseShape(c.PenaltyShape)
	if err != nil {
		return utility.Config{}, err
	}
	return utility.Config{
		Shape:             shape,
		QuadraticSegments: c.QuadraticSegments,
		Breakpoints:       c.Piecewise.Breakpoints,
		Slopes:            c.Piecewise.Slopes,
	}, nil
}

// FormulateConfig returns the formulator configuration.
func (c ModelConfig) FormulateConfig() formulate.Config {
	return formulate.Config{MinActivityDuration: c.MinActivityDuration}
}

// ExtractOptions returns the extractor options.
func (c ModelConfig) ExtractOptions() extract.Options {
	return extract.Options{
		SelectionThreshold:  c.SelectionThreshold,
		TimeTolerance:       c.TimeTolerance,
		MinActivityDuration: c.MinActivityDuration,
	}
}
