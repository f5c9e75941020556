package milp

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	pivotTol         = 1e-9
	zeroTol          = 1e-11
	roundoffTol      = 1e-7 // negative right-hand sides above -roundoffTol are reset to zero
	degenerateStreak = 50   // degenerate pivots after which Bland's rule takes over
)

type lpStatus int

const (
	lpOptimal lpStatus = iota
	lpInfeasible
	lpUnbounded
)

// lpRow is coef·y Sense rhs over variables y >= 0.
type lpRow struct {
	coef  []float64
	sense Sense
	rhs   float64
}

type lpResult struct {
	status lpStatus
	y      []float64
	// infeasibility is the phase one residual, zero when feasible.
	infeasibility float64
}

// tableau is a dense simplex tableau. Row m holds the reduced costs and, in
// the last column, the negated objective value.
type tableau struct {
	t      *mat.Dense
	m, n   int
	basis  []int
	banned []bool
	active []bool
	tol    float64
}

// solveLP minimises cost·y subject to rows and y >= 0 with a two-phase
// simplex. Phase one minimises the sum of artificial variables, so a node is
// only declared infeasible when that sum stays positive.
//
//gocyclo:ignore
func solveLP(cost []float64, rows []lpRow, tol float64) (lpResult, error) {
	n0 := len(cost)
	m := len(rows)
	norm := make([]lpRow, m)
	var nSlack, nArt int
	scale := 1.0
	for i, r := range rows {
		c := append([]float64(nil), r.coef...)
		s, h := r.sense, r.rhs
		if h < 0 {
			floats.Scale(-1, c)
			h = -h
			switch s {
			case LessEq:
				s = GreaterEq
			case GreaterEq:
				s = LessEq
			}
		}
		norm[i] = lpRow{coef: c, sense: s, rhs: h}
		scale = math.Max(scale, h)
		switch s {
		case LessEq:
			nSlack++
		case GreaterEq:
			nSlack++
			nArt++
		case Equal:
			nArt++
		}
	}
	artStart := n0 + nSlack
	n := artStart + nArt
	tb := &tableau{
		t:      mat.NewDense(m+1, n+1, nil),
		m:      m,
		n:      n,
		basis:  make([]int, m),
		banned: make([]bool, n),
		active: make([]bool, m),
		tol:    tol,
	}
	slack, art := n0, artStart
	for i, r := range norm {
		row := tb.t.RawRowView(i)
		copy(row, r.coef)
		row[n] = r.rhs
		tb.active[i] = true
		switch r.sense {
		case LessEq:
			row[slack] = 1
			tb.basis[i] = slack
			slack++
		case GreaterEq:
			row[slack] = -1
			slack++
			row[art] = 1
			tb.basis[i] = art
			art++
		case Equal:
			row[art] = 1
			tb.basis[i] = art
			art++
		}
	}
	maxIter := 50*(m+n) + 1000

	if nArt > 0 {
		obj := tb.t.RawRowView(m)
		for j := artStart; j < n; j++ {
			obj[j] = 1
		}
		for i := 0; i < m; i++ {
			if tb.basis[i] >= artStart {
				floats.AddScaled(obj, -1, tb.t.RawRowView(i))
			}
		}
		if _, err := tb.optimize(maxIter); err != nil {
			return lpResult{}, err
		}
		if w := -obj[n]; w > feasTol*scale {
			return lpResult{status: lpInfeasible, infeasibility: w}, nil
		}
		tb.dropArtificials(artStart)
		for j := artStart; j < n; j++ {
			tb.banned[j] = true
		}
	}

	obj := tb.t.RawRowView(m)
	for j := range obj {
		obj[j] = 0
	}
	copy(obj, cost)
	for i := 0; i < m; i++ {
		if !tb.active[i] {
			continue
		}
		if b := tb.basis[i]; b < n0 && cost[b] != 0 {
			floats.AddScaled(obj, -cost[b], tb.t.RawRowView(i))
		}
	}
	st, err := tb.optimize(maxIter)
	if err != nil || st == lpUnbounded {
		return lpResult{status: st}, err
	}

	y := make([]float64, n0)
	for i := 0; i < m; i++ {
		if b := tb.basis[i]; tb.active[i] && b < n0 {
			y[b] = math.Max(0, tb.t.At(i, n))
		}
	}
	return lpResult{status: lpOptimal, y: y}, nil
}

// optimize pivots until no reduced cost is negative. Dantzig's rule picks
// the entering column until pivots stall, then Bland's rule prevents
// cycling.
func (tb *tableau) optimize(maxIter int) (lpStatus, error) {
	obj := tb.t.RawRowView(tb.m)
	streak := 0
	for iter := 0; iter < maxIter; iter++ {
		bland := streak > degenerateStreak
		enter := -1
		best := -tb.tol
		for j := 0; j < tb.n; j++ {
			if tb.banned[j] || obj[j] >= -tb.tol {
				continue
			}
			if bland {
				enter = j
				break
			}
			if obj[j] < best {
				best, enter = obj[j], j
			}
		}
		if enter < 0 {
			return lpOptimal, nil
		}

		leave := -1
		ratio := math.Inf(1)
		for i := 0; i < tb.m; i++ {
			if !tb.active[i] {
				continue
			}
			a := tb.t.At(i, enter)
			if a <= pivotTol {
				continue
			}
			r := tb.t.At(i, tb.n) / a
			if r < ratio-zeroTol || (r <= ratio+zeroTol && leave >= 0 && tb.basis[i] < tb.basis[leave]) {
				leave, ratio = i, r
			}
		}
		if leave < 0 {
			return lpUnbounded, nil
		}
		if ratio <= zeroTol {
			streak++
		} else {
			streak = 0
		}
		tb.pivot(leave, enter)
		if v := obj[tb.n]; math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%w: non-finite objective after pivot", ErrNumerical)
		}
	}
	return 0, fmt.Errorf("%w: simplex iteration limit reached", ErrNumerical)
}

func (tb *tableau) pivot(r, c int) {
	pr := tb.t.RawRowView(r)
	floats.Scale(1/pr[c], pr)
	pr[c] = 1
	for i := 0; i <= tb.m; i++ {
		if i == r || (i < tb.m && !tb.active[i]) {
			continue
		}
		row := tb.t.RawRowView(i)
		f := row[c]
		if f == 0 {
			continue
		}
		floats.AddScaled(row, -f, pr)
		row[c] = 0
		for j, v := range row {
			if math.Abs(v) < zeroTol {
				row[j] = 0
			}
		}
		if i < tb.m && row[tb.n] < 0 && row[tb.n] > -roundoffTol {
			row[tb.n] = 0
		}
	}
	tb.basis[r] = c
}

// dropArtificials pivots the artificial variables left in the basis at zero
// onto structural or slack columns. Rows where no such column exists are
// linear combinations of other rows and are removed.
func (tb *tableau) dropArtificials(artStart int) {
	for i := 0; i < tb.m; i++ {
		if !tb.active[i] || tb.basis[i] < artStart {
			continue
		}
		row := tb.t.RawRowView(i)
		best, col := pivotTol, -1
		for j := 0; j < artStart; j++ {
			if a := math.Abs(row[j]); a > best {
				best, col = a, j
			}
		}
		if col < 0 {
			tb.active[i] = false
			continue
		}
		row[tb.n] = 0
		tb.pivot(i, col)
	}
}
