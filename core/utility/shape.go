package utility

import (
	"fmt"
	"strings"
)

// Shape selects the deviation cost curve applied to early/late start and
// short/long duration deviations.
type Shape string

const (
	ShapeLinear          Shape = "linear"
	ShapeQuadratic       Shape = "quadratic"
	ShapePiecewiseLinear Shape = "piecewise_linear"
)

// ParseShape converts a configuration value into a Shape.
func ParseShape(s string) (Shape, error) {
	switch Shape(strings.ToLower(strings.TrimSpace(s))) {
	case "", ShapeLinear:
		return ShapeLinear, nil
	case ShapeQuadratic:
		return ShapeQuadratic, nil
	case ShapePiecewiseLinear, "piecewise", "pwl":
		return ShapePiecewiseLinear, nil
	default:
		return "", fmt.Errorf("unknown penalty shape %q", s)
	}
}

// Config describes the deviation cost curve.
type Config struct {
	Shape Shape `json:"shape"`
	// QuadraticSegments is the number of tangent lines used to approximate
	// the quadratic curve.
	QuadraticSegments int `json:"quadratic_segments"`
	// Breakpoints and Slopes define the piecewise-linear curve: between
	// Breakpoints[k] and Breakpoints[k+1] the cost grows by Slopes[k] per
	// minute. Breakpoints must start at 0 and slopes must not decrease.
	Breakpoints []float64 `json:"breakpoints"`
	Slopes      []float64 `json:"slopes"`
}

// DefaultQuadraticSegments is used when QuadraticSegments is not set.
const DefaultQuadraticSegments = 16

// Validate checks the curve definition.
func (c Config) Validate() error {
	switch c.Shape {
	case "", ShapeLinear:
		return nil
	case ShapeQuadratic:
		if c.QuadraticSegments < 0 {
			return fmt.Errorf("quadratic segments must be positive")
		}
		return nil
	case ShapePiecewiseLinear:
		if len(c.Breakpoints) == 0 || len(c.Breakpoints) != len(c.Slopes) {
			return fmt.Errorf("piecewise shape needs as many slopes as breakpoints")
		}
		if c.Breakpoints[0] != 0 {
			return fmt.Errorf("first breakpoint must be 0")
		}
		for i := range c.Breakpoints {
			if c.Slopes[i] < 0 {
				return fmt.Errorf("slope %d is negative", i)
			}
			if i == 0 {
				continue
			}
			if c.Breakpoints[i] <= c.Breakpoints[i-1] {
				return fmt.Errorf("breakpoints must be strictly increasing")
			}
			if c.Slopes[i] < c.Slopes[i-1] {
				return fmt.Errorf("slopes must be non-decreasing to keep the penalty convex")
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown penalty shape %q", c.Shape)
	}
}
