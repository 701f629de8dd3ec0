package optimization

import (
	"errors"
	"math"
	"testing"

	"github.com/quantfolio/quantcore/internal/quanterr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestSolveRiskParity_InverseVolatility(t *testing.T) {
	p := &Problem{
		Assets: []string{"A", "B"},
		Mu:     []float64{0.05, 0.05},
		Cov: mat.NewSymDense(2, []float64{
			0.04, 0.0,
			0.0, 0.16,
		}),
		MinWeight: 0,
		MaxWeight: 1,
	}

	w, err := solveRiskParity(p, Objective{})
	require.NoError(t, err)

	// Vols 0.2 and 0.4: inverse-vol weights are 2/3 and 1/3.
	assert.InDelta(t, 2.0/3.0, w[0], 1e-9)
	assert.InDelta(t, 1.0/3.0, w[1], 1e-9)
}

func TestSolveEqualWeight(t *testing.T) {
	p := &Problem{
		Assets:    []string{"A", "B", "C", "D"},
		Mu:        make([]float64, 4),
		Cov:       mat.NewSymDense(4, nil),
		MinWeight: 0,
		MaxWeight: 1,
	}

	w, err := solveEqualWeight(p, Objective{})
	require.NoError(t, err)
	for i := range w {
		assert.InDelta(t, 0.25, w[i], 1e-12)
	}
}

func TestFinalizeCandidate_RejectsNonFinite(t *testing.T) {
	p := &Problem{
		Assets:    []string{"A", "B"},
		MinWeight: 0,
		MaxWeight: 1,
	}

	_, err := finalizeCandidate("bfgs_penalty", []float64{0.5, math.NaN()}, p)
	require.Error(t, err)

	var divergence *quanterr.OptimizationDivergenceError
	require.True(t, errors.As(err, &divergence))
	assert.Equal(t, "bfgs_penalty", divergence.Strategy)
}

func TestClipRenormalize_RedistributesByHeadroom(t *testing.T) {
	w := []float64{0.5, 0.7}
	require.NoError(t, clipRenormalize(w, 0, 0.6))

	sum := w[0] + w[1]
	assert.InDelta(t, 1.0, sum, WeightTolerance)
	for i, v := range w {
		assert.GreaterOrEqual(t, v, 0.0, "weight %d", i)
		assert.LessOrEqual(t, v, 0.6+WeightTolerance, "weight %d", i)
	}
}

func TestClipRenormalize_FailsWithoutCapacity(t *testing.T) {
	// Both weights pinned at the cap: the deficit cannot be absorbed.
	w := []float64{0.4, 0.4}
	err := clipRenormalize(w, 0, 0.4)
	assert.Error(t, err)
}

func TestCheckWeights(t *testing.T) {
	assert.NoError(t, checkWeights([]float64{0.5, 0.5}, 0, 1))
	assert.Error(t, checkWeights([]float64{0.6, 0.6}, 0, 1), "sum above budget")
	assert.Error(t, checkWeights([]float64{1.2, -0.2}, 0, 1), "bounds violated")
}

func TestFallbackChain_Order(t *testing.T) {
	chain := fallbackChain()
	require.Len(t, chain, 4)
	assert.Equal(t, "bfgs_penalty", chain[0].name)
	assert.Equal(t, "nelder_mead", chain[1].name)
	assert.Equal(t, "risk_parity", chain[2].name)
	assert.Equal(t, "equal_weight", chain[3].name)
}
