package covariance

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/quantfolio/quantcore/internal/config"
	"github.com/quantfolio/quantcore/internal/work"
	"github.com/quantfolio/quantcore/pkg/formulas"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

// Method is the closed set of shrinkage selection modes.
type Method int

const (
	// MethodAuto selects lambda via walk-forward validation.
	MethodAuto Method = iota
	// MethodFixed uses the documented academic-standard constant.
	MethodFixed
	// MethodCustom uses a caller-supplied lambda.
	MethodCustom
)

// ParseMethod parses a shrinkage method name, rejecting unknown values.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "auto":
		return MethodAuto, nil
	case "fixed":
		return MethodFixed, nil
	case "custom":
		return MethodCustom, nil
	default:
		return 0, fmt.Errorf("unknown shrinkage method %q", s)
	}
}

// String returns the wire name of the method.
func (m Method) String() string {
	switch m {
	case MethodAuto:
		return "auto"
	case MethodFixed:
		return "fixed"
	case MethodCustom:
		return "custom"
	default:
		return fmt.Sprintf("method(%d)", int(m))
	}
}

// SharpeSolver solves a max-Sharpe weight allocation for the selector's
// out-of-sample scoring. Implemented by the optimization module.
type SharpeSolver interface {
	MaxSharpeWeights(ctx context.Context, mu []float64, cov *mat.SymDense, minWeight, maxWeight, riskFreeRate float64) ([]float64, error)
}

// Selection describes the lambda chosen for a request and how it was chosen.
type Selection struct {
	Lambda        float64
	Method        Method
	HeldOutSharpe float64 // only meaningful for auto mode
	FellBack      bool    // auto mode fell back to the fixed constant
}

// Selector picks the shrinkage parameter for an optimization request.
type Selector struct {
	estimator *Estimator
	builder   *Builder
	solver    SharpeSolver
	pool      *work.Pool
	tunables  config.ShrinkageTunables
	log       zerolog.Logger
}

// NewSelector creates a shrinkage selector.
func NewSelector(estimator *Estimator, builder *Builder, solver SharpeSolver, pool *work.Pool, tunables config.ShrinkageTunables, log zerolog.Logger) *Selector {
	return &Selector{
		estimator: estimator,
		builder:   builder,
		solver:    solver,
		pool:      pool,
		tunables:  tunables,
		log:       log.With().Str("component", "shrinkage_selector").Logger(),
	}
}

// SelectParams carries the request-scoped inputs for selection.
type SelectParams struct {
	Assets       []string
	Returns      map[string][]float64
	Method       Method
	CustomLambda float64 // used only with MethodCustom
	MinWeight    float64
	MaxWeight    float64
	RiskFreeRate float64
}

// Select returns the shrinkage parameter for the request. Fixed and custom
// modes pass through; auto mode runs a walk-forward grid search maximizing
// held-out Sharpe, falling back to the fixed constant when the held-out
// window is too short.
func (s *Selector) Select(ctx context.Context, params SelectParams) (Selection, error) {
	switch params.Method {
	case MethodFixed:
		return Selection{Lambda: s.tunables.FixedLambda, Method: MethodFixed}, nil
	case MethodCustom:
		if params.CustomLambda < 0 || params.CustomLambda > 1 {
			return Selection{}, fmt.Errorf("custom shrinkage %.4f outside [0,1]", params.CustomLambda)
		}
		return Selection{Lambda: params.CustomLambda, Method: MethodCustom}, nil
	case MethodAuto:
		return s.selectAuto(ctx, params)
	default:
		return Selection{}, fmt.Errorf("unknown shrinkage method %v", params.Method)
	}
}

type gridResult struct {
	lambda float64
	sharpe float64
	err    error
}

func (s *Selector) selectAuto(ctx context.Context, params SelectParams) (Selection, error) {
	obs := seriesLength(params.Assets, params.Returns)
	estObs := int(float64(obs) * s.tunables.EstimationFraction)
	holdout := obs - estObs

	if holdout < s.tunables.MinHoldout || estObs < s.tunables.MinObservations {
		s.log.Info().
			Int("observations", obs).
			Int("holdout", holdout).
			Float64("fallback_lambda", s.tunables.FixedLambda).
			Msg("Held-out window too short, falling back to fixed shrinkage")
		return Selection{Lambda: s.tunables.FixedLambda, Method: MethodAuto, FellBack: true}, nil
	}

	estReturns := sliceReturns(params.Assets, params.Returns, 0, estObs)
	holdReturns := sliceReturns(params.Assets, params.Returns, estObs, obs)

	sample, err := s.estimator.Estimate(params.Assets, estReturns)
	if err != nil {
		return Selection{}, fmt.Errorf("estimation window: %w", err)
	}

	candidates := s.gridCandidates()
	results := make([]gridResult, len(candidates))

	var wg sync.WaitGroup
	for i, lambda := range candidates {
		// A cancelled request stops scheduling further grid points; points
		// already running finish and their results are discarded below.
		if ctx.Err() != nil {
			break
		}

		i, lambda := i, lambda
		wg.Add(1)
		err := s.pool.Submit(ctx, func() {
			defer wg.Done()
			sharpe, err := s.evaluateCandidate(ctx, sample, lambda, params, holdReturns)
			results[i] = gridResult{lambda: lambda, sharpe: sharpe, err: err}
		})
		if err != nil {
			wg.Done()
			break
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return Selection{}, err
	}

	// Pick the maximum held-out Sharpe; near-equal maxima resolve toward the
	// smaller lambda because candidates are iterated in ascending order.
	const tieEpsilon = 1e-9
	best := gridResult{err: fmt.Errorf("no candidate evaluated")}
	evaluated := 0
	for _, r := range results {
		if r.err != nil {
			continue
		}
		evaluated++
		if best.err != nil || r.sharpe > best.sharpe+tieEpsilon {
			best = r
		}
	}

	if best.err != nil {
		s.log.Warn().
			Int("grid_size", len(candidates)).
			Msg("All grid candidates failed, falling back to fixed shrinkage")
		return Selection{Lambda: s.tunables.FixedLambda, Method: MethodAuto, FellBack: true}, nil
	}

	s.log.Info().
		Float64("lambda", best.lambda).
		Float64("held_out_sharpe", best.sharpe).
		Int("evaluated", evaluated).
		Int("grid_size", len(candidates)).
		Msg("Selected shrinkage via walk-forward validation")

	return Selection{Lambda: best.lambda, Method: MethodAuto, HeldOutSharpe: best.sharpe}, nil
}

// evaluateCandidate builds the shrunk covariance on the estimation window,
// solves a max-Sharpe allocation, and scores its realized Sharpe on the
// held-out window.
func (s *Selector) evaluateCandidate(ctx context.Context, sample *Sample, lambda float64, params SelectParams, holdReturns map[string][]float64) (float64, error) {
	cov, err := s.builder.Build(sample, lambda)
	if err != nil {
		return 0, err
	}

	weights, err := s.solver.MaxSharpeWeights(ctx, sample.Mean, cov, params.MinWeight, params.MaxWeight, params.RiskFreeRate)
	if err != nil {
		return 0, err
	}

	holdoutLen := seriesLength(params.Assets, holdReturns)
	realized := make([]float64, holdoutLen)
	for t := 0; t < holdoutLen; t++ {
		for i, asset := range params.Assets {
			realized[t] += weights[i] * holdReturns[asset][t]
		}
	}

	return formulas.SharpeRatio(realized, params.RiskFreeRate), nil
}

func (s *Selector) gridCandidates() []float64 {
	var out []float64
	for lambda := 0.0; lambda < 1.0+1e-12; lambda += s.tunables.GridStep {
		out = append(out, math.Min(lambda, 1.0))
	}
	// Make sure 1.0 itself is always part of the grid.
	if out[len(out)-1] < 1.0 {
		out = append(out, 1.0)
	}
	return out
}

func seriesLength(assets []string, returns map[string][]float64) int {
	if len(assets) == 0 {
		return 0
	}
	return len(returns[assets[0]])
}

func sliceReturns(assets []string, returns map[string][]float64, from, to int) map[string][]float64 {
	out := make(map[string][]float64, len(assets))
	for _, asset := range assets {
		out[asset] = returns[asset][from:to]
	}
	return out
}
