package milp

import (
	"context"
	"math"
	"sync"
	"time"
)

// BranchAndBound is a depth-first branch-and-bound MILP backend. Each node
// relaxation is solved with the gonum simplex method. The number of
// concurrent sessions is bounded by a fixed pool of slots, mirroring the
// licence limits of commercial solvers.
type BranchAndBound struct {
	slots chan struct{}
}

// NewBranchAndBound returns a backend allowing maxSessions concurrent
// sessions. A non-positive value allows one session.
func NewBranchAndBound(maxSessions int) *BranchAndBound {
	if maxSessions <= 0 {
		maxSessions = 1
	}
	return &BranchAndBound{slots: make(chan struct{}, maxSessions)}
}

// Name implements Backend.
func (b *BranchAndBound) Name() string { return "bnb" }

// InUse returns the number of sessions currently holding a slot.
func (b *BranchAndBound) InUse() int { return len(b.slots) }

// Acquire blocks until a slot is free or ctx is done.
func (b *BranchAndBound) Acquire(ctx context.Context) (Session, error) {
	select {
	case b.slots <- struct{}{}:
		return &bnbSession{release: func() { <-b.slots }}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type bnbSession struct {
	mu      sync.Mutex
	closed  bool
	release func()
}

// Close returns the slot. It is safe to call more than once.
func (s *bnbSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.release()
	return nil
}

type node struct {
	lb, ub []float64
	bound  float64 // relaxation value of the parent, in maximisation sense
}

// Solve implements Session.
//
//gocyclo:ignore
func (s *bnbSession) Solve(ctx context.Context, p *Problem, opts Options) (Result, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return Result{}, ErrSessionClosed
	}
	if err := p.Validate(); err != nil {
		return Result{}, err
	}
	opts = opts.WithDefaults()
	start := time.Now()

	sense := 1.0
	if !p.Maximize {
		sense = -1
	}
	root := node{lb: make([]float64, len(p.Vars)), ub: make([]float64, len(p.Vars)), bound: math.Inf(1)}
	for i, v := range p.Vars {
		root.lb[i], root.ub[i] = v.Lower, v.Upper
		if v.Kind == Binary {
			root.lb[i] = math.Max(0, math.Ceil(v.Lower-opts.IntegralityTolerance))
			root.ub[i] = math.Min(1, math.Floor(v.Upper+opts.IntegralityTolerance))
			if root.lb[i] > root.ub[i] {
				return Result{Status: StatusInfeasible, Elapsed: time.Since(start)}, nil
			}
		}
	}

	var (
		stack     = []node{root}
		incumbent []float64
		incScore  = math.Inf(-1)
		nodes     int
		limited   bool
		// best bound among subtrees discarded within the gap tolerance
		prunedBound = math.Inf(-1)
	)
	pruned := func(bound float64) bool {
		if incumbent == nil || bound > incScore+gapSlack(incScore, opts.GapTolerance) {
			return false
		}
		prunedBound = math.Max(prunedBound, bound)
		return true
	}

	for len(stack) > 0 {
		if ctx.Err() != nil || (opts.MaxNodes > 0 && nodes >= opts.MaxNodes) {
			limited = true
			break
		}
		nd := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if pruned(nd.bound) {
			continue
		}
		nodes++
		rel, err := solveRelaxation(p, nd.lb, nd.ub, opts.Tolerance)
		if err != nil {
			return Result{Nodes: nodes, Elapsed: time.Since(start)}, err
		}
		if !rel.feasible {
			continue
		}
		score := sense * rel.obj
		if pruned(score) {
			continue
		}
		j := mostFractional(p, rel.x, opts.IntegralityTolerance)
		if j < 0 {
			x := roundBinaries(p, rel.x)
			incumbent = x
			incScore = sense * p.Evaluate(x)
			continue
		}
		down := node{lb: clone(nd.lb), ub: clone(nd.ub), bound: score}
		down.ub[j] = 0
		up := node{lb: clone(nd.lb), ub: clone(nd.ub), bound: score}
		up.lb[j] = 1
		// The child closest to the relaxation value is explored first.
		if rel.x[j] >= 0.5 {
			stack = append(stack, down, up)
		} else {
			stack = append(stack, up, down)
		}
	}

	res := Result{Nodes: nodes, Elapsed: time.Since(start)}
	bound := math.Max(incScore, prunedBound)
	for _, nd := range stack {
		bound = math.Max(bound, nd.bound)
	}
	if incumbent == nil {
		if limited {
			res.Status = StatusNoSolution
		} else {
			res.Status = StatusInfeasible
		}
		return res, nil
	}
	res.X = incumbent
	res.Objective = sense * incScore
	res.Bound = sense * bound
	res.Gap = relGap(incScore, bound)
	res.Status = StatusOptimal
	if limited && res.Gap > opts.GapTolerance {
		res.Status = StatusFeasible
	}
	return res, nil
}

// gapSlack is the absolute improvement a node must promise over the
// incumbent to be worth exploring.
func gapSlack(inc, gap float64) float64 {
	scale := math.Max(1, math.Abs(inc))
	return math.Max(gap*scale, 1e-9*scale)
}

func relGap(inc, bound float64) float64 {
	if math.IsInf(bound, 1) {
		return math.Inf(1)
	}
	g := (bound - inc) / math.Max(1, math.Abs(inc))
	if g < 0 {
		return 0
	}
	return g
}

func mostFractional(p *Problem, x []float64, tol float64) int {
	best, bestDist := -1, tol
	for i, v := range p.Vars {
		if v.Kind != Binary {
			continue
		}
		f := x[i] - math.Floor(x[i])
		d := math.Min(f, 1-f)
		if d > bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func roundBinaries(p *Problem, x []float64) []float64 {
	out := clone(x)
	for i, v := range p.Vars {
		if v.Kind == Binary {
			out[i] = math.Round(out[i])
		}
	}
	return out
}

func clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
