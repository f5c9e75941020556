package milp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(sense Sense, rhs float64, coef ...float64) lpRow {
	return lpRow{coef: coef, sense: sense, rhs: rhs}
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func TestSolveLP_Basic(t *testing.T) {
	// min -x - y  s.t. x + y <= 4, x <= 3, y <= 3
	cost := []float64{-1, -1}
	res, err := solveLP(cost, []lpRow{
		row(LessEq, 4, 1, 1),
		row(LessEq, 3, 1, 0),
		row(LessEq, 3, 0, 1),
	}, 1e-8)
	require.NoError(t, err)
	require.Equal(t, lpOptimal, res.status)
	assert.InDelta(t, -4, dot(cost, res.y), 1e-9)
}

func TestSolveLP_RedundantEqualities(t *testing.T) {
	// the three equalities have rank one; phase one must leave a zero
	// artificial in the basis and drop its row
	cost := []float64{1, 0}
	res, err := solveLP(cost, []lpRow{
		row(Equal, 2, 1, 1),
		row(Equal, 2, 1, 1),
		row(Equal, 4, 2, 2),
		row(GreaterEq, 0, 1, -1),
	}, 1e-8)
	require.NoError(t, err)
	require.Equal(t, lpOptimal, res.status)
	assert.InDelta(t, 1, res.y[0], 1e-9)
	assert.InDelta(t, 1, res.y[1], 1e-9)
}

func TestSolveLP_Infeasible(t *testing.T) {
	res, err := solveLP([]float64{0, 0}, []lpRow{
		row(GreaterEq, 5, 1, 1),
		row(LessEq, 1, 1, 0),
		row(LessEq, 1, 0, 1),
	}, 1e-8)
	require.NoError(t, err)
	assert.Equal(t, lpInfeasible, res.status)
	assert.InDelta(t, 3, res.infeasibility, 1e-9)
}

func TestSolveLP_Unbounded(t *testing.T) {
	res, err := solveLP([]float64{-1, 0}, []lpRow{row(LessEq, 1, 1, -1)}, 1e-8)
	require.NoError(t, err)
	assert.Equal(t, lpUnbounded, res.status)
}

func TestSolveLP_NegativeRHS(t *testing.T) {
	// -x <= -2 is x >= 2
	res, err := solveLP([]float64{1}, []lpRow{row(LessEq, -2, -1)}, 1e-8)
	require.NoError(t, err)
	require.Equal(t, lpOptimal, res.status)
	assert.InDelta(t, 2, res.y[0], 1e-9)
}

func TestSolveLP_BealeCycling(t *testing.T) {
	// Beale's example cycles under Dantzig's rule without an anti-cycling
	// fallback.
	cost := []float64{-0.75, 20, -0.5, 6}
	res, err := solveLP(cost, []lpRow{
		row(LessEq, 0, 0.25, -8, -1, 9),
		row(LessEq, 0, 0.5, -12, -0.5, 3),
		row(LessEq, 1, 0, 0, 1, 0),
	}, 1e-8)
	require.NoError(t, err)
	require.Equal(t, lpOptimal, res.status)
	assert.InDelta(t, -1.25, dot(cost, res.y), 1e-9)
}

func TestPresolve(t *testing.T) {
	t.Run("mirrored inequalities become an equality", func(t *testing.T) {
		out, ok := presolve([]lpRow{
			row(LessEq, 3, 1, 2),
			row(LessEq, -3, -1, -2),
		})
		require.True(t, ok)
		require.Len(t, out, 1)
		assert.Equal(t, Equal, out[0].sense)
		assert.InDelta(t, 3, out[0].rhs, 1e-12)
	})
	t.Run("scaled duplicates merge to the tightest bound", func(t *testing.T) {
		out, ok := presolve([]lpRow{
			row(LessEq, 10, 2, 2),
			row(LessEq, 4, 1, 1),
		})
		require.True(t, ok)
		require.Len(t, out, 1)
		assert.Equal(t, LessEq, out[0].sense)
		assert.InDelta(t, 4, out[0].rhs, 1e-12)
	})
	t.Run("contradictory bounds", func(t *testing.T) {
		_, ok := presolve([]lpRow{
			row(GreaterEq, 5, 1, 1),
			row(LessEq, 4, 1, 1),
		})
		assert.False(t, ok)
	})
	t.Run("contradictory equalities", func(t *testing.T) {
		_, ok := presolve([]lpRow{
			row(Equal, 1, 1, 0),
			row(Equal, 4, 2, 0),
		})
		assert.False(t, ok)
	})
	t.Run("empty rows", func(t *testing.T) {
		out, ok := presolve([]lpRow{row(LessEq, 0, 0, 0), row(GreaterEq, -1, 0, 0)})
		require.True(t, ok)
		assert.Empty(t, out)

		_, ok = presolve([]lpRow{row(Equal, 2, 0, 0)})
		assert.False(t, ok)
	})
}
