package portfolio

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/quantfolio/quantcore/internal/config"
	"github.com/quantfolio/quantcore/internal/modules/covariance"
	"github.com/quantfolio/quantcore/internal/modules/forecast"
	"github.com/quantfolio/quantcore/internal/modules/optimization"
	"github.com/quantfolio/quantcore/internal/modules/signals"
	"github.com/quantfolio/quantcore/internal/work"
	"github.com/rs/zerolog"
)

// Service wires the quant core together. Each invocation is a self-contained
// synchronous computation over request-scoped data; the service itself holds
// no mutable cross-request state and is safe for concurrent use.
type Service struct {
	estimator  *covariance.Estimator
	builder    *covariance.Builder
	selector   *covariance.Selector
	optimizer  *optimization.Optimizer
	blender    *signals.Blender
	forecaster *forecast.Forecaster
	pool       *work.Pool
	tunables   config.Tunables
	log        zerolog.Logger
}

// NewService constructs the full pipeline from configuration. The worker
// pool bounds the parallelism of grid search and frontier generation.
func NewService(cfg *config.Config, pool *work.Pool, log zerolog.Logger) *Service {
	t := cfg.Tunables

	estimator := covariance.NewEstimator(t.Shrinkage.MinObservations, log)
	builder := covariance.NewBuilder(t.Shrinkage, log)
	optimizer := optimization.NewOptimizer(optimization.NewFactory(t.Objective), log)
	selector := covariance.NewSelector(estimator, builder, optimizer, pool, t.Shrinkage, log)
	blender := signals.NewBlender(t.Signals)
	confidence := forecast.NewConfidenceEstimator(t.Confidence)
	forecaster := forecast.NewForecaster(blender, confidence, t.Forecast, log)

	return &Service{
		estimator:  estimator,
		builder:    builder,
		selector:   selector,
		optimizer:  optimizer,
		blender:    blender,
		forecaster: forecaster,
		pool:       pool,
		tunables:   t,
		log:        log.With().Str("component", "portfolio_service").Logger(),
	}
}

// Optimize runs the full allocation pipeline: sample estimation, shrinkage
// selection, regularization, signal adjustment of expected returns, and the
// constrained solve with its fallback chain.
func (s *Service) Optimize(ctx context.Context, req *Request) (*optimization.Result, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	reqLog := s.log.With().Str("request_id", uuid.NewString()).Logger()

	kind, err := optimization.ParseObjective(req.Config.Objective)
	if err != nil {
		return nil, err
	}

	problem, selection, err := s.buildProblem(ctx, req, kind)
	if err != nil {
		return nil, err
	}

	if err := s.attachIncomeInputs(problem, kind, req); err != nil {
		return nil, err
	}

	result, err := s.optimizer.Solve(ctx, problem)
	if err != nil {
		return nil, err
	}

	reqLog.Info().
		Str("objective", result.Objective).
		Str("solver_used", result.SolverUsed).
		Str("shrinkage_method", selection.Method.String()).
		Float64("shrinkage_used", result.ShrinkageUsed).
		Float64("expected_return", result.ExpectedReturn).
		Float64("volatility", result.Volatility).
		Msg("Optimization complete")

	return result, nil
}

// buildProblem runs the covariance pipeline and assembles the allocation
// problem with signal-adjusted expected returns.
func (s *Service) buildProblem(ctx context.Context, req *Request, kind optimization.ObjectiveKind) (*optimization.Problem, covariance.Selection, error) {
	method, err := covariance.ParseMethod(req.Config.ShrinkageMethod)
	if err != nil {
		return nil, covariance.Selection{}, err
	}

	sample, err := s.estimator.Estimate(req.Assets, req.ReturnHistory)
	if err != nil {
		return nil, covariance.Selection{}, err
	}

	selectParams := covariance.SelectParams{
		Assets:       req.Assets,
		Returns:      req.ReturnHistory,
		Method:       method,
		MinWeight:    req.Config.MinWeight,
		MaxWeight:    req.Config.MaxWeight,
		RiskFreeRate: req.Config.RiskFreeRate,
	}
	if req.Config.ShrinkageValue != nil {
		selectParams.CustomLambda = *req.Config.ShrinkageValue
	}

	selection, err := s.selector.Select(ctx, selectParams)
	if err != nil {
		return nil, covariance.Selection{}, err
	}

	cov, err := s.builder.Build(sample, selection.Lambda)
	if err != nil {
		return nil, covariance.Selection{}, err
	}

	// Signal-adjusted expected returns: absent signals contribute exactly
	// zero, never a synthetic neutral value.
	mu := make([]float64, len(req.Assets))
	for i, asset := range req.Assets {
		mu[i] = sample.Mean[i] + s.blender.ReturnAdjustment(req.Sentiment[asset])
	}

	return &optimization.Problem{
		Assets:        req.Assets,
		Mu:            mu,
		Cov:           cov,
		MinWeight:     req.Config.MinWeight,
		MaxWeight:     req.Config.MaxWeight,
		RiskFreeRate:  req.Config.RiskFreeRate,
		Kind:          kind,
		ShrinkageUsed: selection.Lambda,
	}, selection, nil
}

// attachIncomeInputs fills the yield, growth and quality vectors required by
// the income and balanced objectives.
func (s *Service) attachIncomeInputs(problem *optimization.Problem, kind optimization.ObjectiveKind, req *Request) error {
	needYields := kind == optimization.ObjectiveDividendYield || kind == optimization.ObjectiveBalanced
	needGrowths := kind == optimization.ObjectiveDividendGrowth || kind == optimization.ObjectiveBalanced

	if needYields {
		if err := requireYields(req); err != nil {
			return err
		}
		problem.Yields = make([]float64, len(req.Assets))
		for i, asset := range req.Assets {
			problem.Yields[i] = req.Yields[asset]
		}
	}

	if needGrowths {
		if err := requireDividends(req); err != nil {
			return err
		}
		problem.Growths = make([]float64, len(req.Assets))
		for i, asset := range req.Assets {
			base, err := s.forecaster.BaseGrowth(asset, req.Dividends[asset])
			if err != nil {
				return err
			}
			problem.Growths[i] = base
		}
	}

	if kind == optimization.ObjectiveBalanced {
		problem.Quality = make([]float64, len(req.Assets))
		for i, asset := range req.Assets {
			problem.Quality[i] = forecast.QualityScore(req.Fundamentals[asset])
		}
	}

	return nil
}

// Forecast produces the dividend growth path with confidence bands for every
// asset in the request.
func (s *Service) Forecast(ctx context.Context, req *Request) (ForecastResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if err := requireDividends(req); err != nil {
		return nil, err
	}

	reqLog := s.log.With().Str("request_id", uuid.NewString()).Logger()

	level := req.Config.ConfidenceLevel
	if level == 0 {
		level = 0.95
	}

	result := make(ForecastResult, len(req.Assets))
	for _, asset := range req.Assets {
		periods, err := s.forecaster.Forecast(ctx, forecast.Input{
			Asset:           asset,
			Dividends:       req.Dividends[asset],
			Fundamentals:    req.Fundamentals[asset],
			Signal:          req.Sentiment[asset],
			HorizonPeriods:  req.Config.HorizonPeriods,
			ConfidenceLevel: level,
		})
		if err != nil {
			return nil, fmt.Errorf("forecast for %s: %w", asset, err)
		}
		result[asset] = periods
	}

	reqLog.Info().
		Int("num_assets", len(req.Assets)).
		Msg("Forecast complete")

	return result, nil
}

// EfficientFrontier solves the frontier for the request's asset set using the
// signal-adjusted expected returns and the selected shrinkage.
func (s *Service) EfficientFrontier(ctx context.Context, req *Request, points int) ([]optimization.FrontierPoint, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	problem, _, err := s.buildProblem(ctx, req, optimization.ObjectiveSharpeRatio)
	if err != nil {
		return nil, err
	}

	return s.optimizer.Frontier(ctx, problem, points, s.pool)
}
