package optimization

import (
	"context"
	"fmt"

	"github.com/quantfolio/quantcore/internal/quanterr"
	"github.com/quantfolio/quantcore/pkg/formulas"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

// Optimizer solves constrained weight allocation problems via the ordered
// fallback chain.
type Optimizer struct {
	factory    *Factory
	strategies []strategy
	log        zerolog.Logger
}

// NewOptimizer creates an optimizer with the default fallback chain.
func NewOptimizer(factory *Factory, log zerolog.Logger) *Optimizer {
	return &Optimizer{
		factory:    factory,
		strategies: fallbackChain(),
		log:        log.With().Str("component", "optimizer").Logger(),
	}
}

// Solve returns a constraint-satisfying allocation or a typed error. The
// returned result always names the strategy that produced it.
func (o *Optimizer) Solve(ctx context.Context, p *Problem) (*Result, error) {
	n := p.dim()
	if n == 0 {
		return nil, fmt.Errorf("no assets provided")
	}
	if len(p.Mu) != n {
		return nil, fmt.Errorf("expected returns length %d does not match %d assets", len(p.Mu), n)
	}
	if p.Cov.SymmetricDim() != n {
		return nil, fmt.Errorf("covariance dimension %d does not match %d assets", p.Cov.SymmetricDim(), n)
	}

	if err := checkFeasibleBounds(p.MinWeight, p.MaxWeight, n); err != nil {
		return nil, err
	}

	obj, err := o.factory.Build(p)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for _, st := range o.strategies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		w, err := st.solve(p, obj)
		if err != nil {
			o.log.Debug().
				Str("strategy", st.name).
				Err(err).
				Msg("Strategy failed, trying next fallback")
			lastErr = err
			continue
		}

		if st.name != o.strategies[0].name {
			o.log.Info().
				Str("solver_used", st.name).
				Str("objective", obj.Name).
				Msg("Solved via fallback strategy")
		}

		return o.buildResult(p, obj, st.name, w), nil
	}

	if lastErr == nil {
		lastErr = &quanterr.OptimizationDivergenceError{Strategy: "none", Detail: "no strategy attempted"}
	}
	return nil, lastErr
}

// MaxSharpeWeights solves a pure max-Sharpe allocation. Used by the shrinkage
// selector's out-of-sample scoring.
func (o *Optimizer) MaxSharpeWeights(ctx context.Context, mu []float64, cov *mat.SymDense, minWeight, maxWeight, riskFreeRate float64) ([]float64, error) {
	assets := make([]string, len(mu))
	for i := range assets {
		assets[i] = fmt.Sprintf("a%d", i)
	}

	result, err := o.Solve(ctx, &Problem{
		Assets:       assets,
		Mu:           mu,
		Cov:          cov,
		MinWeight:    minWeight,
		MaxWeight:    maxWeight,
		RiskFreeRate: riskFreeRate,
		Kind:         ObjectiveSharpeRatio,
	})
	if err != nil {
		return nil, err
	}

	w := make([]float64, len(mu))
	for i, asset := range assets {
		w[i] = result.Weights[asset]
	}
	return w, nil
}

func (o *Optimizer) buildResult(p *Problem, obj Objective, solverUsed string, w []float64) *Result {
	weights := make(map[string]float64, p.dim())
	for i, asset := range p.Assets {
		weights[asset] = w[i]
	}

	expected := formulas.PortfolioReturn(w, p.Mu)
	volatility := formulas.PortfolioVolatility(w, p.covSlice())

	sharpe := 0.0
	if volatility > 0 {
		sharpe = (expected - p.RiskFreeRate) / volatility
	}

	return &Result{
		Weights:        weights,
		ExpectedReturn: expected,
		Volatility:     volatility,
		SharpeRatio:    sharpe,
		ShrinkageUsed:  p.ShrinkageUsed,
		Objective:      obj.Name,
		SolverUsed:     solverUsed,
	}
}

// checkFeasibleBounds rejects bound configurations that cannot satisfy the
// budget constraint before any solver runs.
func checkFeasibleBounds(minW, maxW float64, n int) error {
	if minW < 0 || maxW > 1 || minW > maxW {
		return &quanterr.InvalidConstraintError{
			MinWeight: minW, MaxWeight: maxW, NumAssets: n,
			Reason: "bounds must satisfy 0 <= min <= max <= 1",
		}
	}
	if minW*float64(n) > 1+WeightTolerance {
		return &quanterr.InvalidConstraintError{
			MinWeight: minW, MaxWeight: maxW, NumAssets: n,
			Reason: fmt.Sprintf("min_weight * %d = %.4f exceeds budget", n, minW*float64(n)),
		}
	}
	if maxW*float64(n) < 1-WeightTolerance {
		return &quanterr.InvalidConstraintError{
			MinWeight: minW, MaxWeight: maxW, NumAssets: n,
			Reason: fmt.Sprintf("max_weight * %d = %.4f cannot reach budget", n, maxW*float64(n)),
		}
	}
	return nil
}
