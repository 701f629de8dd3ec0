// Package optimization solves constrained portfolio weight allocation.
//
// The solver is an explicit ordered fallback chain: a gradient penalty-method
// solve first, a derivative-free simplex solve second, then the risk-parity
// heuristic, and finally equal weighting. The strategy that produced the
// returned weights is always recorded in the result; silent substitution is
// treated as a correctness bug.
package optimization

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Problem is a request-scoped weight allocation problem. All slices are
// ordered by Assets.
type Problem struct {
	Assets []string
	Mu     []float64     // expected per-period returns, signal-adjusted
	Cov    *mat.SymDense // regularized covariance

	Yields  []float64 // current dividend yields, used by income objectives
	Growths []float64 // forecast dividend growth, used by income objectives
	Quality []float64 // fundamentals quality scores in [0,1], used by balanced

	MinWeight    float64
	MaxWeight    float64
	RiskFreeRate float64

	Kind          ObjectiveKind
	ShrinkageUsed float64
}

func (p *Problem) dim() int { return len(p.Assets) }

// covSlice materializes the covariance as row slices for diagnostics.
func (p *Problem) covSlice() [][]float64 {
	n := p.dim()
	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		out[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			out[i][j] = p.Cov.At(i, j)
		}
	}
	return out
}

// Result is the outcome of a solved allocation. Created once per request and
// read-only afterward.
type Result struct {
	Weights        map[string]float64 `json:"weights"`
	ExpectedReturn float64            `json:"expected_return"`
	Volatility     float64            `json:"volatility"`
	SharpeRatio    float64            `json:"sharpe_ratio"`
	ShrinkageUsed  float64            `json:"shrinkage_used"`
	Objective      string             `json:"objective_name"`
	SolverUsed     string             `json:"solver_used"`
}

// WeightTolerance is the budget-constraint tolerance: weights must sum to 1
// within this bound, and stay within their bounds by the same margin.
const WeightTolerance = 1e-6

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func sqrtNonNeg(v float64) float64 {
	return math.Sqrt(math.Max(v, 0))
}
