// Package utility scores activities and exposes the linear pieces the
// formulator needs to keep the objective solvable by a MILP backend.
package utility

import (
	"math"

	"github.com/kilianp07/actsched/core/model"
)

// Segment is one line of a convex max-of-lines approximation:
// value(dev) = Slope*dev + Intercept.
type Segment struct {
	Slope     float64
	Intercept float64
}

// At evaluates the segment.
func (s Segment) At(dev float64) float64 { return s.Slope*dev + s.Intercept }

// Terms is the linearizable form of an activity option's utility.
// Utility = Fixed - Early*P(early) - Late*P(late) - Short*P(short) - Long*P(long)
// where P is the shape curve.
type Terms struct {
	Fixed  float64
	Early  float64
	Late   float64
	Short  float64
	Long   float64
	Travel float64 // disutility per minute of travel
}

// Evaluator computes activity utilities for one shape configuration.
// It is stateless after construction and safe for concurrent use.
type Evaluator struct {
	cfg Config
}

// NewEvaluator validates cfg and returns an Evaluator.
func NewEvaluator(cfg Config) (*Evaluator, error) {
	if cfg.Shape == "" {
		cfg.Shape = ShapeLinear
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Shape == ShapeQuadratic && cfg.QuadraticSegments == 0 {
		cfg.QuadraticSegments = DefaultQuadraticSegments
	}
	return &Evaluator{cfg: cfg}, nil
}

// Shape returns the configured deviation curve.
func (e *Evaluator) Shape() Shape { return e.cfg.Shape }

// Exact reports whether Segments reproduces Penalty without approximation.
func (e *Evaluator) Exact() bool { return e.cfg.Shape != ShapeQuadratic }

// Penalty returns the unit cost of a deviation. Negative deviations cost
// nothing; the curve is non-decreasing in dev.
func (e *Evaluator) Penalty(dev float64) float64 {
	if dev <= 0 {
		return 0
	}
	switch e.cfg.Shape {
	case ShapeQuadratic:
		return dev * dev
	case ShapePiecewiseLinear:
		var total float64
		bp := e.cfg.Breakpoints
		for k := range bp {
			if dev <= bp[k] {
				break
			}
			upper := dev
			if k+1 < len(bp) && bp[k+1] < dev {
				upper = bp[k+1]
			}
			total += e.cfg.Slopes[k] * (upper - bp[k])
		}
		return total
	default:
		return dev
	}
}

// Segments returns the lines whose pointwise maximum approximates Penalty
// on [0, maxDev]. Every line passes through or below the origin, so the
// maximum of the lines and zero is zero for a zero deviation.
func (e *Evaluator) Segments(maxDev float64) []Segment {
	switch e.cfg.Shape {
	case ShapeQuadratic:
		n := e.cfg.QuadraticSegments
		if maxDev <= 0 {
			return []Segment{{}}
		}
		segs := make([]Segment, 0, n+1)
		for k := 0; k <= n; k++ {
			t := maxDev * float64(k) / float64(n)
			segs = append(segs, Segment{Slope: 2 * t, Intercept: -t * t})
		}
		return segs
	case ShapePiecewiseLinear:
		segs := make([]Segment, len(e.cfg.Breakpoints))
		for k, b := range e.cfg.Breakpoints {
			s := e.cfg.Slopes[k]
			segs[k] = Segment{Slope: s, Intercept: e.Penalty(b) - s*b}
		}
		return segs
	default:
		return []Segment{{Slope: 1}}
	}
}

// Approx evaluates the max-of-lines approximation at dev.
func (e *Evaluator) Approx(dev, maxDev float64) float64 {
	if dev <= 0 {
		return 0
	}
	best := 0.0
	for _, s := range e.Segments(maxDev) {
		best = math.Max(best, s.At(dev))
	}
	return best
}

// Terms returns the linearizable coefficients for choosing option o of
// activity a.
func (e *Evaluator) Terms(o model.ActivityOption, p model.ScoringGroupParameters) Terms {
	return Terms{
		Fixed:  o.Utility + p.Constant + p.ModeConstant(o.Mode),
		Early:  p.PenaltyEarly,
		Late:   p.PenaltyLate,
		Short:  p.PenaltyShort,
		Long:   p.PenaltyLong,
		Travel: p.TravelPenalty,
	}
}

// Utility returns the utility of performing activity a with option o,
// starting at start for duration minutes. Travel is scored separately by
// TravelDisutility.
func (e *Evaluator) Utility(a model.Activity, o model.ActivityOption, start, duration float64, p model.ScoringGroupParameters) float64 {
	t := e.Terms(o, p)
	return t.Fixed -
		t.Early*e.Penalty(a.PreferredStart-start) -
		t.Late*e.Penalty(start-a.PreferredStart) -
		t.Short*e.Penalty(a.PreferredDuration-duration) -
		t.Long*e.Penalty(duration-a.PreferredDuration)
}

// TravelDisutility returns the utility lost by travelling minutes to reach
// (or leave) an activity of group p.
func (e *Evaluator) TravelDisutility(p model.ScoringGroupParameters, minutes float64) float64 {
	return p.TravelPenalty * minutes
}
