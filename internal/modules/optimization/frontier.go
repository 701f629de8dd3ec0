package optimization

import (
	"context"
	"fmt"
	"sync"

	"github.com/quantfolio/quantcore/internal/quanterr"
	"github.com/quantfolio/quantcore/internal/work"
	"gonum.org/v1/gonum/optimize"
)

// FrontierPoint is one solved point on the efficient frontier.
type FrontierPoint struct {
	TargetReturn   float64            `json:"target_return"`
	ExpectedReturn float64            `json:"expected_return"`
	Volatility     float64            `json:"volatility"`
	Weights        map[string]float64 `json:"weights"`
}

// Frontier generates an efficient frontier by solving a minimum-variance
// allocation at evenly spaced target returns between the lowest and highest
// attainable expected return. Each point is an independent solve dispatched
// to the worker pool; points that fail to converge are skipped.
func (o *Optimizer) Frontier(ctx context.Context, p *Problem, points int, pool *work.Pool) ([]FrontierPoint, error) {
	if points < 2 {
		return nil, fmt.Errorf("frontier requires at least 2 points, got %d", points)
	}
	if err := checkFeasibleBounds(p.MinWeight, p.MaxWeight, p.dim()); err != nil {
		return nil, err
	}

	lo, hi := p.Mu[0], p.Mu[0]
	for _, m := range p.Mu {
		if m < lo {
			lo = m
		}
		if m > hi {
			hi = m
		}
	}

	results := make([]*FrontierPoint, points)
	var wg sync.WaitGroup

	for i := 0; i < points; i++ {
		if ctx.Err() != nil {
			break
		}

		i := i
		target := lo + (hi-lo)*float64(i)/float64(points-1)
		wg.Add(1)
		err := pool.Submit(ctx, func() {
			defer wg.Done()
			point, err := o.solveFrontierPoint(p, target)
			if err != nil {
				o.log.Debug().
					Float64("target_return", target).
					Err(err).
					Msg("Frontier point failed, skipping")
				return
			}
			results[i] = point
		})
		if err != nil {
			wg.Done()
			break
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	frontier := make([]FrontierPoint, 0, points)
	for _, r := range results {
		if r != nil {
			frontier = append(frontier, *r)
		}
	}
	if len(frontier) == 0 {
		return nil, fmt.Errorf("no frontier point converged")
	}

	o.log.Info().
		Int("requested", points).
		Int("solved", len(frontier)).
		Msg("Generated efficient frontier")

	return frontier, nil
}

// solveFrontierPoint minimizes portfolio variance with a quadratic penalty
// pinning the expected return at the target.
func (o *Optimizer) solveFrontierPoint(p *Problem, target float64) (*FrontierPoint, error) {
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

			var variance, ret, sum float64
			for i := 0; i < n; i++ {
				ret += p.Mu[i] * xp[i]
				sum += xp[i]
				for j := 0; j < n; j++ {
					variance += xp[i] * xp[j] * p.Cov.At(i, j)
				}
			}

			obj := variance
			obj += penaltyWeight * (sum - 1.0) * (sum - 1.0)
			obj += penaltyWeight * (ret - target) * (ret - target)
			return obj
		},
		Grad: func(grad, x []float64) {
			xp := project(x)

			var ret, sum float64
			for i := 0; i < n; i++ {
				ret += p.Mu[i] * xp[i]
				sum += xp[i]
			}

			for i := 0; i < n; i++ {
				grad[i] = 0
				for j := 0; j < n; j++ {
					grad[i] += 2 * p.Cov.At(i, j) * xp[j]
				}
				grad[i] += 2 * penaltyWeight * (sum - 1.0)
				grad[i] += 2 * penaltyWeight * (ret - target) * p.Mu[i]
			}
		},
	}

	settings := &optimize.Settings{MajorIterations: gradientIterationCap}
	result, err := optimize.Minimize(problem, equalStart(n), settings, &optimize.BFGS{})
	if err != nil || !acceptableStatuses[result.Status] {
		// Retry derivative-free before giving up on the point.
		simplex := optimize.Problem{Func: problem.Func}
		result, err = optimize.Minimize(simplex, equalStart(n), &optimize.Settings{MajorIterations: simplexIterationCap}, &optimize.NelderMead{})
		if err != nil {
			return nil, &quanterr.OptimizationDivergenceError{Strategy: "frontier", Detail: err.Error()}
		}
		if !acceptableStatuses[result.Status] {
			return nil, &quanterr.OptimizationDivergenceError{
				Strategy: "frontier",
				Detail:   fmt.Sprintf("did not converge: status=%v", result.Status),
			}
		}
	}

	w, err := finalizeCandidate("frontier", result.X, p)
	if err != nil {
		return nil, err
	}

	weights := make(map[string]float64, n)
	var expected float64
	for i, asset := range p.Assets {
		weights[asset] = w[i]
		expected += p.Mu[i] * w[i]
	}

	var variance float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			variance += w[i] * w[j] * p.Cov.At(i, j)
		}
	}

	return &FrontierPoint{
		TargetReturn:   target,
		ExpectedReturn: expected,
		Volatility:     sqrtNonNeg(variance),
		Weights:        weights,
	}, nil
}
