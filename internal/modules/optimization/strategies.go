package optimization

import (
	"fmt"
	"math"

	"github.com/quantfolio/quantcore/internal/quanterr"
	"gonum.org/v1/gonum/optimize"
)

// Solver iteration caps. Every solver call is hard-bounded; a request-level
// timeout cancels before starting additional work, never mid-convergence.
const (
	gradientIterationCap = 500
	simplexIterationCap  = 2000
	penaltyWeight        = 1000.0
)

// strategy is one step of the ordered fallback chain. solve returns a weight
// vector or a typed divergence error consumed by the orchestrator.
type strategy struct {
	name  string
	solve func(p *Problem, obj Objective) ([]float64, error)
}

// fallbackChain returns the ordered strategy list. The orchestrator stops at
// the first success and records which strategy was used.
func fallbackChain() []strategy {
	return []strategy{
		{name: "bfgs_penalty", solve: solveBFGS},
		{name: "nelder_mead", solve: solveNelderMead},
		{name: "risk_parity", solve: solveRiskParity},
		{name: "equal_weight", solve: solveEqualWeight},
	}
}

// penaltyProblem wraps an objective with bound projection and a quadratic
// penalty on the budget constraint, the same construction the gradient and
// simplex solvers share.
func penaltyProblem(p *Problem, obj Objective, withGrad bool) optimize.Problem {
	n := p.dim()

	project := func(x []float64) []float64 {
		proj := make([]float64, n)
		for i := range x {
			proj[i] = clamp(x[i], p.MinWeight, p.MaxWeight)
		}
		return proj
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			xp := project(x)
			v := obj.Func(xp)

			sum := 0.0
			for i := 0; i < n; i++ {
				sum += xp[i]
			}
			return v + penaltyWeight*(sum-1.0)*(sum-1.0)
		},
	}

	if withGrad && obj.Grad != nil {
		problem.Grad = func(grad, x []float64) {
			xp := project(x)
			obj.Grad(grad, xp)

			sum := 0.0
			for i := 0; i < n; i++ {
				sum += xp[i]
			}
			for i := 0; i < n; i++ {
				grad[i] += 2 * penaltyWeight * (sum - 1.0)
			}
		}
	}

	return problem
}

func equalStart(n int) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = 1.0 / float64(n)
	}
	return x
}

var acceptableStatuses = map[optimize.Status]bool{
	optimize.Success:             true,
	optimize.GradientThreshold:   true,
	optimize.FunctionConvergence: true,
	optimize.StepConvergence:     true,
}

// solveBFGS is the primary gradient-based penalty-method solve.
func solveBFGS(p *Problem, obj Objective) ([]float64, error) {
	problem := penaltyProblem(p, obj, true)
	settings := &optimize.Settings{MajorIterations: gradientIterationCap}

	result, err := optimize.Minimize(problem, equalStart(p.dim()), settings, &optimize.BFGS{})
	if err != nil {
		return nil, &quanterr.OptimizationDivergenceError{Strategy: "bfgs_penalty", Detail: err.Error()}
	}
	if !acceptableStatuses[result.Status] {
		return nil, &quanterr.OptimizationDivergenceError{
			Strategy: "bfgs_penalty",
			Detail:   fmt.Sprintf("did not converge: status=%v", result.Status),
		}
	}

	return finalizeCandidate("bfgs_penalty", result.X, p)
}

// solveNelderMead retries with a derivative-free simplex method when the
// gradient solve diverges.
func solveNelderMead(p *Problem, obj Objective) ([]float64, error) {
	problem := penaltyProblem(p, obj, false)
	settings := &optimize.Settings{MajorIterations: simplexIterationCap}

	result, err := optimize.Minimize(problem, equalStart(p.dim()), settings, &optimize.NelderMead{})
	if err != nil {
		return nil, &quanterr.OptimizationDivergenceError{Strategy: "nelder_mead", Detail: err.Error()}
	}
	if !acceptableStatuses[result.Status] {
		return nil, &quanterr.OptimizationDivergenceError{
			Strategy: "nelder_mead",
			Detail:   fmt.Sprintf("did not converge: status=%v", result.Status),
		}
	}

	return finalizeCandidate("nelder_mead", result.X, p)
}

// solveRiskParity weights assets inversely to their volatility.
func solveRiskParity(p *Problem, _ Objective) ([]float64, error) {
	n := p.dim()
	w := make([]float64, n)
	for i := 0; i < n; i++ {
		vol := math.Sqrt(math.Max(p.Cov.At(i, i), volatilityFloor))
		w[i] = 1.0 / vol
	}
	normalize(w)
	return finalizeCandidate("risk_parity", w, p)
}

// solveEqualWeight is the final fallback. Given a feasible bound precheck,
// 1/n always lies inside [min, max].
func solveEqualWeight(p *Problem, _ Objective) ([]float64, error) {
	return finalizeCandidate("equal_weight", equalStart(p.dim()), p)
}

// finalizeCandidate clips a raw solver output to bounds, restores the budget
// constraint, and validates the result. Any violation becomes a typed
// divergence error for the chain.
func finalizeCandidate(name string, x []float64, p *Problem) ([]float64, error) {
	w := make([]float64, len(x))
	copy(w, x)

	for i := range w {
		if math.IsNaN(w[i]) || math.IsInf(w[i], 0) {
			return nil, &quanterr.OptimizationDivergenceError{Strategy: name, Detail: "non-finite weight"}
		}
	}

	if err := clipRenormalize(w, p.MinWeight, p.MaxWeight); err != nil {
		return nil, &quanterr.OptimizationDivergenceError{Strategy: name, Detail: err.Error()}
	}
	if err := checkWeights(w, p.MinWeight, p.MaxWeight); err != nil {
		return nil, &quanterr.OptimizationDivergenceError{Strategy: name, Detail: err.Error()}
	}
	return w, nil
}

// clipRenormalize clips weights to bounds and redistributes the budget
// residual across assets with remaining headroom until the sum hits 1.
func clipRenormalize(w []float64, minW, maxW float64) error {
	const maxPasses = 100

	for i := range w {
		w[i] = clamp(w[i], minW, maxW)
	}

	for pass := 0; pass < maxPasses; pass++ {
		sum := 0.0
		for _, v := range w {
			sum += v
		}
		residual := 1.0 - sum
		if math.Abs(residual) <= 1e-12 {
			return nil
		}

		// Capacity to absorb the residual without leaving the bounds.
		var capacity float64
		for _, v := range w {
			if residual > 0 {
				capacity += maxW - v
			} else {
				capacity += v - minW
			}
		}
		if capacity <= 0 {
			return fmt.Errorf("cannot redistribute budget residual %.6g within bounds", residual)
		}

		for i := range w {
			var headroom float64
			if residual > 0 {
				headroom = maxW - w[i]
			} else {
				headroom = w[i] - minW
			}
			w[i] = clamp(w[i]+residual*headroom/capacity, minW, maxW)
		}
	}

	sum := 0.0
	for _, v := range w {
		sum += v
	}
	if math.Abs(sum-1.0) > WeightTolerance {
		return fmt.Errorf("budget constraint not satisfied after redistribution: sum=%.8f", sum)
	}
	return nil
}

// checkWeights validates the budget and bound constraints within tolerance.
func checkWeights(w []float64, minW, maxW float64) error {
	sum := 0.0
	for i, v := range w {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("weight %d is non-finite", i)
		}
		if v < minW-WeightTolerance || v > maxW+WeightTolerance {
			return fmt.Errorf("weight %d = %.8f outside bounds [%.4f, %.4f]", i, v, minW, maxW)
		}
		sum += v
	}
	if math.Abs(sum-1.0) > WeightTolerance {
		return fmt.Errorf("weights sum to %.8f, want 1", sum)
	}
	return nil
}

func normalize(w []float64) {
	sum := 0.0
	for _, v := range w {
		sum += v
	}
	if sum <= 0 {
		return
	}
	for i := range w {
		w[i] /= sum
	}
}
