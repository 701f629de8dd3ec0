package optimization

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/quantfolio/quantcore/internal/quanterr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func newTestOptimizer(t *testing.T) *Optimizer {
	t.Helper()
	return NewOptimizer(NewFactory(testObjectiveTunables(t)), testLogger())
}

func assertFeasible(t *testing.T, result *Result, p *Problem) {
	t.Helper()
	sum := 0.0
	for _, asset := range p.Assets {
		w, ok := result.Weights[asset]
		require.True(t, ok, "missing weight for %s", asset)
		assert.GreaterOrEqual(t, w, p.MinWeight-WeightTolerance)
		assert.LessOrEqual(t, w, p.MaxWeight+WeightTolerance)
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 10*WeightTolerance, "budget constraint")
}

func TestOptimizer_SharpeTiltsTowardBetterAsset(t *testing.T) {
	opt := newTestOptimizer(t)

	// A has a higher return and a lower variance: any sensible solve must
	// weight it above B.
	p := &Problem{
		Assets: []string{"A", "B"},
		Mu:     []float64{0.010, 0.002},
		Cov: mat.NewSymDense(2, []float64{
			0.0016, 0.0004,
			0.0004, 0.0100,
		}),
		MinWeight:    0,
		MaxWeight:    1,
		RiskFreeRate: 0.001,
		Kind:         ObjectiveSharpeRatio,
	}

	result, err := opt.Solve(context.Background(), p)
	require.NoError(t, err)

	assertFeasible(t, result, p)
	assert.Greater(t, result.Weights["A"], result.Weights["B"])
	assert.NotEmpty(t, result.SolverUsed)
	assert.Equal(t, "sharpe_ratio", result.Objective)
}

func TestOptimizer_DividendYieldConcentratesOnHighestYield(t *testing.T) {
	opt := newTestOptimizer(t)

	p := &Problem{
		Assets: []string{"A", "B", "C"},
		Mu:     []float64{0.01, 0.01, 0.01},
		Cov: mat.NewSymDense(3, []float64{
			0.01, 0, 0,
			0, 0.01, 0,
			0, 0, 0.01,
		}),
		Yields:    []float64{0.01, 0.05, 0.03},
		MinWeight: 0,
		MaxWeight: 0.8,
		Kind:      ObjectiveDividendYield,
	}

	result, err := opt.Solve(context.Background(), p)
	require.NoError(t, err)

	assertFeasible(t, result, p)
	// The linear objective should push B toward its cap, with the rest
	// mostly in the next-best yielder.
	assert.Greater(t, result.Weights["B"], 0.6)
	assert.Greater(t, result.Weights["B"], result.Weights["C"])
	assert.Greater(t, result.Weights["C"], result.Weights["A"])
}

func TestOptimizer_InfeasibleMinWeight(t *testing.T) {
	opt := newTestOptimizer(t)

	p := &Problem{
		Assets:    []string{"A", "B", "C"},
		Mu:        []float64{0.01, 0.01, 0.01},
		Cov:       mat.NewSymDense(3, nil),
		MinWeight: 0.5,
		MaxWeight: 1,
		Kind:      ObjectiveSharpeRatio,
	}

	_, err := opt.Solve(context.Background(), p)
	require.Error(t, err)

	var constraint *quanterr.InvalidConstraintError
	require.True(t, errors.As(err, &constraint))
	assert.Equal(t, 3, constraint.NumAssets)
}

func TestOptimizer_InfeasibleMaxWeight(t *testing.T) {
	opt := newTestOptimizer(t)

	p := &Problem{
		Assets:    []string{"A", "B", "C"},
		Mu:        []float64{0.01, 0.01, 0.01},
		Cov:       mat.NewSymDense(3, nil),
		MinWeight: 0,
		MaxWeight: 0.2,
		Kind:      ObjectiveSharpeRatio,
	}

	_, err := opt.Solve(context.Background(), p)
	require.Error(t, err)

	var constraint *quanterr.InvalidConstraintError
	assert.True(t, errors.As(err, &constraint))
}

func TestOptimizer_SingleAsset(t *testing.T) {
	opt := newTestOptimizer(t)

	p := &Problem{
		Assets:       []string{"ONLY"},
		Mu:           []float64{0.02},
		Cov:          mat.NewSymDense(1, []float64{0.04}),
		MinWeight:    0,
		MaxWeight:    1,
		RiskFreeRate: 0.005,
		Kind:         ObjectiveSharpeRatio,
	}

	result, err := opt.Solve(context.Background(), p)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, result.Weights["ONLY"], WeightTolerance)
	assert.InDelta(t, 0.02, result.ExpectedReturn, 1e-9)
	assert.InDelta(t, 0.2, result.Volatility, 1e-9)
}

func TestOptimizer_Deterministic(t *testing.T) {
	opt := newTestOptimizer(t)

	p := &Problem{
		Assets: []string{"A", "B", "C"},
		Mu:     []float64{0.008, 0.005, 0.011},
		Cov: mat.NewSymDense(3, []float64{
			0.0025, 0.0004, 0.0002,
			0.0004, 0.0049, 0.0006,
			0.0002, 0.0006, 0.0081,
		}),
		MinWeight:    0,
		MaxWeight:    1,
		RiskFreeRate: 0.002,
		Kind:         ObjectiveSharpeRatio,
	}

	first, err := opt.Solve(context.Background(), p)
	require.NoError(t, err)
	second, err := opt.Solve(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, first.SolverUsed, second.SolverUsed)
	for asset, w := range first.Weights {
		assert.InDelta(t, w, second.Weights[asset], 1e-12, "weight for %s", asset)
	}
	assert.InDelta(t, first.SharpeRatio, second.SharpeRatio, 1e-12)
}

func TestOptimizer_DimensionMismatch(t *testing.T) {
	opt := newTestOptimizer(t)

	_, err := opt.Solve(context.Background(), &Problem{
		Assets:    []string{"A", "B"},
		Mu:        []float64{0.01},
		Cov:       mat.NewSymDense(2, nil),
		MinWeight: 0,
		MaxWeight: 1,
	})
	assert.Error(t, err)
}

func TestOptimizer_CancelledContext(t *testing.T) {
	opt := newTestOptimizer(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := opt.Solve(ctx, &Problem{
		Assets:    []string{"A"},
		Mu:        []float64{0.01},
		Cov:       mat.NewSymDense(1, []float64{0.04}),
		MinWeight: 0,
		MaxWeight: 1,
		Kind:      ObjectiveSharpeRatio,
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOptimizer_MaxSharpeWeightsOrdering(t *testing.T) {
	opt := newTestOptimizer(t)

	mu := []float64{0.012, 0.003}
	cov := mat.NewSymDense(2, []float64{
		0.0016, 0.0002,
		0.0002, 0.0144,
	})

	w, err := opt.MaxSharpeWeights(context.Background(), mu, cov, 0, 1, 0.001)
	require.NoError(t, err)
	require.Len(t, w, 2)

	sum := w[0] + w[1]
	assert.InDelta(t, 1.0, sum, 10*WeightTolerance)
	assert.Greater(t, w[0], w[1], "weights must come back in input order")
}

func TestOptimizer_NearSingularCovarianceStillSolves(t *testing.T) {
	opt := newTestOptimizer(t)

	// Two nearly identical assets plus a diversifier. The matrix is close to
	// singular but the chain must still deliver a feasible allocation.
	eps := 1e-10
	p := &Problem{
		Assets: []string{"A", "A2", "B"},
		Mu:     []float64{0.008, 0.008, 0.004},
		Cov: mat.NewSymDense(3, []float64{
			0.0025, 0.0025 - eps, 0.0003,
			0.0025 - eps, 0.0025, 0.0003,
			0.0003, 0.0003, 0.0049,
		}),
		MinWeight:    0,
		MaxWeight:    1,
		RiskFreeRate: 0.001,
		Kind:         ObjectiveSharpeRatio,
	}

	result, err := opt.Solve(context.Background(), p)
	require.NoError(t, err)
	assertFeasible(t, result, p)
	assert.False(t, math.IsNaN(result.SharpeRatio))
}
