package milp

import (
	"math"
	"strconv"
	"strings"
)

const (
	fixedEps = 1e-12
	feasTol  = 1e-7
)

type relaxation struct {
	feasible bool
	x        []float64
	obj      float64
}

// lpSolve points to the LP routine. Tests override it to simulate numerical
// failures.
var lpSolve = solveLP

// solveRelaxation solves the LP relaxation of p under the node bounds lb/ub.
// Fixed variables are substituted, the remaining ones shifted to start at
// zero, and the rows presolved before the simplex runs.
//
//gocyclo:ignore
func solveRelaxation(p *Problem, lb, ub []float64, tol float64) (relaxation, error) {
	n := len(p.Vars)
	col := make([]int, n)
	var free []int
	for j := 0; j < n; j++ {
		if ub[j]-lb[j] > fixedEps {
			col[j] = len(free)
			free = append(free, j)
		} else {
			col[j] = -1
		}
	}

	sign := 1.0
	if p.Maximize {
		sign = -1
	}
	cost := make([]float64, len(free))
	for _, t := range p.Objective {
		if c := col[t.Var]; c >= 0 {
			cost[c] += sign * t.Coef
		}
	}

	rows := make([]lpRow, 0, len(p.Constraints)+len(free))
	for _, c := range p.Constraints {
		r := make([]float64, len(free))
		h := c.RHS
		for _, t := range c.Terms {
			h -= t.Coef * lb[t.Var]
			if k := col[t.Var]; k >= 0 {
				r[k] += t.Coef
			}
		}
		rows = append(rows, lpRow{coef: r, sense: c.Sense, rhs: h})
	}
	for k, j := range free {
		if math.IsInf(ub[j], 1) {
			continue
		}
		r := make([]float64, len(free))
		r[k] = 1
		rows = append(rows, lpRow{coef: r, sense: LessEq, rhs: ub[j] - lb[j]})
	}

	rows, ok := presolve(rows)
	if !ok {
		return relaxation{}, nil
	}

	x := make([]float64, n)
	copy(x, lb)

	// Columns that appear in no row sit at their lower bound unless the
	// objective pushes them up without limit.
	used := make([]bool, len(free))
	for _, r := range rows {
		for k, v := range r.coef {
			if v != 0 {
				used[k] = true
			}
		}
	}
	keep := make([]int, 0, len(free))
	for k := range free {
		if used[k] {
			keep = append(keep, k)
			continue
		}
		if cost[k] < 0 {
			return relaxation{}, ErrUnbounded
		}
	}
	if len(keep) == 0 {
		return relaxation{feasible: true, x: x, obj: p.Evaluate(x)}, nil
	}
	if len(keep) < len(free) {
		for i, r := range rows {
			c := make([]float64, len(keep))
			for ci, k := range keep {
				c[ci] = r.coef[k]
			}
			rows[i].coef = c
		}
	}
	c := make([]float64, len(keep))
	for i, k := range keep {
		c[i] = cost[k]
	}

	sol, err := lpSolve(c, rows, tol)
	if err != nil {
		return relaxation{}, err
	}
	switch sol.status {
	case lpInfeasible:
		return relaxation{}, nil
	case lpUnbounded:
		return relaxation{}, ErrUnbounded
	}
	for i, k := range keep {
		j := free[k]
		x[j] = math.Min(ub[j], math.Max(lb[j], lb[j]+sol.y[i]))
	}
	return relaxation{feasible: true, x: x, obj: p.Evaluate(x)}, nil
}

// presolve drops empty rows, merges rows with proportional coefficients into
// their tightest bounds and turns a matching pair of opposite inequalities
// into one equality. It reports false when the rows are contradictory.
//
//gocyclo:ignore
func presolve(rows []lpRow) ([]lpRow, bool) {
	type bounds struct {
		coef   []float64
		lo, hi float64
		eq     float64
		hasEq  bool
	}
	merged := make(map[string]*bounds)
	var order []*bounds
	for _, r := range rows {
		lead := 0.0
		for _, v := range r.coef {
			if v != 0 {
				lead = v
				break
			}
		}
		if lead == 0 {
			slack := feasTol * math.Max(1, math.Abs(r.rhs))
			switch r.sense {
			case LessEq:
				if r.rhs < -slack {
					return nil, false
				}
			case GreaterEq:
				if r.rhs > slack {
					return nil, false
				}
			case Equal:
				if math.Abs(r.rhs) > slack {
					return nil, false
				}
			}
			continue
		}

		// scale so the leading coefficient is one; a negative scale swaps
		// the inequality direction
		f := 1 / lead
		coef := make([]float64, len(r.coef))
		for k, v := range r.coef {
			coef[k] = v * f
		}
		rhs := r.rhs * f
		sense := r.sense
		if f < 0 && sense != Equal {
			if sense == LessEq {
				sense = GreaterEq
			} else {
				sense = LessEq
			}
		}

		key := rowKey(coef)
		b, seen := merged[key]
		if !seen {
			b = &bounds{coef: coef, lo: math.Inf(-1), hi: math.Inf(1)}
			merged[key] = b
			order = append(order, b)
		}
		switch sense {
		case LessEq:
			b.hi = math.Min(b.hi, rhs)
		case GreaterEq:
			b.lo = math.Max(b.lo, rhs)
		case Equal:
			if b.hasEq && math.Abs(b.eq-rhs) > feasTol*math.Max(1, math.Abs(rhs)) {
				return nil, false
			}
			b.eq, b.hasEq = rhs, true
		}
	}

	out := make([]lpRow, 0, len(order))
	for _, b := range order {
		if b.hasEq {
			slack := feasTol * math.Max(1, math.Abs(b.eq))
			if b.eq < b.lo-slack || b.eq > b.hi+slack {
				return nil, false
			}
			out = append(out, lpRow{coef: b.coef, sense: Equal, rhs: b.eq})
			continue
		}
		if !math.IsInf(b.lo, -1) && !math.IsInf(b.hi, 1) {
			slack := feasTol * math.Max(1, math.Max(math.Abs(b.lo), math.Abs(b.hi)))
			if b.lo > b.hi+slack {
				return nil, false
			}
			if b.hi-b.lo <= slack {
				out = append(out, lpRow{coef: b.coef, sense: Equal, rhs: b.hi})
				continue
			}
		}
		if !math.IsInf(b.hi, 1) {
			out = append(out, lpRow{coef: b.coef, sense: LessEq, rhs: b.hi})
		}
		if !math.IsInf(b.lo, -1) {
			out = append(out, lpRow{coef: b.coef, sense: GreaterEq, rhs: b.lo})
		}
	}
	return out, true
}

func rowKey(coef []float64) string {
	var sb strings.Builder
	for k, v := range coef {
		if v == 0 {
			continue
		}
		sb.WriteString(strconv.Itoa(k))
		sb.WriteByte(':')
		sb.WriteString(strconv.FormatFloat(v, 'g', 12, 64))
		sb.WriteByte(';')
	}
	return sb.String()
}
