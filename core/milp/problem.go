// Package milp models mixed-integer linear programs and solves them with a
// branch-and-bound search over gonum simplex relaxations.
package milp

import (
	"fmt"
	"math"
)

// VarKind distinguishes continuous from binary variables.
type VarKind int

const (
	Continuous VarKind = iota
	Binary
)

// Var is a decision variable with finite or infinite bounds.
type Var struct {
	Name  string
	Kind  VarKind
	Lower float64
	Upper float64
}

// Sense is the relation of a linear constraint.
type Sense int

const (
	LessEq Sense = iota
	GreaterEq
	Equal
)

func (s Sense) String() string {
	switch s {
	case LessEq:
		return "<="
	case GreaterEq:
		return ">="
	default:
		return "="
	}
}

// Term is coefficient * variable.
type Term struct {
	Var  int
	Coef float64
}

// Constraint is sum(Terms) Sense RHS. Tag groups constraints of the same
// family for diagnostics.
type Constraint struct {
	Name  string
	Tag   string
	Terms []Term
	Sense Sense
	RHS   float64
}

// Problem is a linear objective over Vars subject to Constraints.
type Problem struct {
	Name           string
	Maximize       bool
	Vars           []Var
	Constraints    []Constraint
	Objective      []Term
	ObjectiveConst float64
}

// NewProblem returns an empty problem.
func NewProblem(name string, maximize bool) *Problem {
	return &Problem{Name: name, Maximize: maximize}
}

// AddVar appends a variable and returns its index.
func (p *Problem) AddVar(name string, kind VarKind, lower, upper float64) int {
	if kind == Binary {
		lower, upper = math.Max(lower, 0), math.Min(upper, 1)
	}
	p.Vars = append(p.Vars, Var{Name: name, Kind: kind, Lower: lower, Upper: upper})
	return len(p.Vars) - 1
}

// AddBinary appends a 0/1 variable.
func (p *Problem) AddBinary(name string) int { return p.AddVar(name, Binary, 0, 1) }

// AddConstraint appends c. Terms referencing the same variable are merged
// and zero coefficients dropped.
func (p *Problem) AddConstraint(c Constraint) {
	c.Terms = compact(c.Terms)
	p.Constraints = append(p.Constraints, c)
}

// AddObjective adds coef*v to the objective.
func (p *Problem) AddObjective(v int, coef float64) {
	if coef == 0 {
		return
	}
	p.Objective = append(p.Objective, Term{Var: v, Coef: coef})
}

// NumBinaries returns the number of binary variables.
func (p *Problem) NumBinaries() int {
	n := 0
	for _, v := range p.Vars {
		if v.Kind == Binary {
			n++
		}
	}
	return n
}

// Evaluate returns the objective value at x.
func (p *Problem) Evaluate(x []float64) float64 {
	total := p.ObjectiveConst
	for _, t := range p.Objective {
		total += t.Coef * x[t.Var]
	}
	return total
}

// Validate checks indexes and bounds.
func (p *Problem) Validate() error {
	n := len(p.Vars)
	for i, v := range p.Vars {
		if math.IsNaN(v.Lower) || math.IsNaN(v.Upper) || v.Lower > v.Upper {
			return fmt.Errorf("variable %d (%s): invalid bounds [%v, %v]", i, v.Name, v.Lower, v.Upper)
		}
		if math.IsInf(v.Lower, -1) {
			return fmt.Errorf("variable %d (%s): lower bound must be finite", i, v.Name)
		}
	}
	check := func(ts []Term, where string) error {
		for _, t := range ts {
			if t.Var < 0 || t.Var >= n {
				return fmt.Errorf("%s references unknown variable %d", where, t.Var)
			}
			if math.IsNaN(t.Coef) || math.IsInf(t.Coef, 0) {
				return fmt.Errorf("%s has a non-finite coefficient", where)
			}
		}
		return nil
	}
	if err := check(p.Objective, "objective"); err != nil {
		return err
	}
	for i, c := range p.Constraints {
		if err := check(c.Terms, fmt.Sprintf("constraint %d (%s)", i, c.Name)); err != nil {
			return err
		}
		if math.IsNaN(c.RHS) || math.IsInf(c.RHS, 0) {
			return fmt.Errorf("constraint %d (%s) has a non-finite rhs", i, c.Name)
		}
	}
	return nil
}

// Violations lists the bounds, integrality and constraints violated by x.
func (p *Problem) Violations(x []float64, tol float64) []string {
	var out []string
	if len(x) != len(p.Vars) {
		return []string{fmt.Sprintf("assignment has %d values for %d variables", len(x), len(p.Vars))}
	}
	for i, v := range p.Vars {
		if x[i] < v.Lower-tol || x[i] > v.Upper+tol {
			out = append(out, fmt.Sprintf("%s=%v outside [%v, %v]", v.Name, x[i], v.Lower, v.Upper))
		}
		if v.Kind == Binary && math.Abs(x[i]-math.Round(x[i])) > tol {
			out = append(out, fmt.Sprintf("%s=%v not integral", v.Name, x[i]))
		}
	}
	for _, c := range p.Constraints {
		lhs := 0.0
		for _, t := range c.Terms {
			lhs += t.Coef * x[t.Var]
		}
		scale := tol * math.Max(1, math.Abs(c.RHS))
		ok := true
		switch c.Sense {
		case LessEq:
			ok = lhs <= c.RHS+scale
		case GreaterEq:
			ok = lhs >= c.RHS-scale
		case Equal:
			ok = math.Abs(lhs-c.RHS) <= scale
		}
		if !ok {
			out = append(out, fmt.Sprintf("%s: %v %s %v", c.Name, lhs, c.Sense, c.RHS))
		}
	}
	return out
}

func compact(ts []Term) []Term {
	if len(ts) < 2 {
		if len(ts) == 1 && ts[0].Coef == 0 {
			return nil
		}
		return ts
	}
	idx := make(map[int]int, len(ts))
	out := make([]Term, 0, len(ts))
	for _, t := range ts {
		if i, ok := idx[t.Var]; ok {
			out[i].Coef += t.Coef
			continue
		}
		idx[t.Var] = len(out)
		out = append(out, t)
	}
	res := out[:0]
	for _, t := range out {
		if t.Coef != 0 {
			res = append(res, t)
		}
	}
	return res
}
