package config

import (
	"fmt"
	"math"
	"os"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Tunables holds the empirically chosen numeric parameters of the quant core.
// All of them ship with documented defaults and can be overridden via a YAML
// file; none of them are baked into the algorithms.
type Tunables struct {
	Shrinkage  ShrinkageTunables  `yaml:"shrinkage"`
	Objective  ObjectiveTunables  `yaml:"objective"`
	Signals    SignalTunables     `yaml:"signals"`
	Forecast   ForecastTunables   `yaml:"forecast"`
	Confidence ConfidenceTunables `yaml:"confidence"`
}

// ShrinkageTunables controls covariance estimation and regularization.
type ShrinkageTunables struct {
	// FixedLambda is the academic-standard shrinkage used by the "fixed"
	// method and as the auto-mode fallback when the held-out window is too
	// short (Ledoit-Wolf style constant).
	FixedLambda float64 `yaml:"fixed_lambda" default:"0.2" validate:"gte=0,lte=1"`
	// GridStep is the lambda grid resolution for auto selection.
	GridStep float64 `yaml:"grid_step" default:"0.1" validate:"gt=0,lte=0.5"`
	// MinObservations is the minimum aligned return observations required
	// for covariance estimation.
	MinObservations int `yaml:"min_observations" default:"12" validate:"gte=4"`
	// MinHoldout is the minimum held-out window length for walk-forward
	// validation; shorter windows fall back to FixedLambda.
	MinHoldout int `yaml:"min_holdout" default:"6" validate:"gte=2"`
	// EstimationFraction is the share of history used for estimation in
	// walk-forward validation; the remainder is held out.
	EstimationFraction float64 `yaml:"estimation_fraction" default:"0.7" validate:"gt=0.5,lt=1"`
	// RidgeEpsilon is the base ridge term added to the diagonal.
	RidgeEpsilon float64 `yaml:"ridge_epsilon" default:"1e-8" validate:"gt=0"`
	// EigenvalueFloor is the minimum eigenvalue after flooring.
	EigenvalueFloor float64 `yaml:"eigenvalue_floor" default:"1e-10" validate:"gt=0"`
	// ConditionLimit triggers extra ridge when the condition number exceeds it.
	ConditionLimit float64 `yaml:"condition_limit" default:"1e12" validate:"gt=1"`
}

// ObjectiveTunables holds the balanced-objective component weights.
// The four weights must sum to 1.
type ObjectiveTunables struct {
	AlphaSharpe  float64 `yaml:"alpha_sharpe" default:"0.4" validate:"gte=0,lte=1"`
	AlphaYield   float64 `yaml:"alpha_yield" default:"0.25" validate:"gte=0,lte=1"`
	AlphaGrowth  float64 `yaml:"alpha_growth" default:"0.2" validate:"gte=0,lte=1"`
	AlphaQuality float64 `yaml:"alpha_quality" default:"0.15" validate:"gte=0,lte=1"`
}

// SignalTunables bounds the influence of sentiment and geopolitical signals.
type SignalTunables struct {
	// MaxSentimentImpact caps the sentiment adjustment for a perfect-score,
	// full-confidence signal at period 1.
	MaxSentimentImpact float64 `yaml:"max_sentiment_impact" default:"0.03" validate:"gte=0,lte=0.2"`
	// MaxGeopoliticalImpact caps the (always negative) geopolitical risk drag.
	MaxGeopoliticalImpact float64 `yaml:"max_geopolitical_impact" default:"0.02" validate:"gte=0,lte=0.2"`
	// DecayRate shrinks sentiment impact per forecast period beyond the first.
	DecayRate float64 `yaml:"decay_rate" default:"0.2" validate:"gte=0,lt=1"`
	// DecayFloor is the minimum time-decay multiplier; sentiment influence
	// never decays below this within the horizon.
	DecayFloor float64 `yaml:"decay_floor" default:"0.3" validate:"gt=0,lte=1"`
	// CombinedClamp bounds the combined sentiment+risk adjustment to
	// [-CombinedClamp, +CombinedClamp].
	CombinedClamp float64 `yaml:"combined_clamp" default:"0.05" validate:"gt=0,lte=0.25"`
}

// ForecastTunables controls dividend growth forecasting.
type ForecastTunables struct {
	// LongRunGrowthTarget is the mean-reversion anchor for base growth.
	LongRunGrowthTarget float64 `yaml:"long_run_growth_target" default:"0.05" validate:"gte=-0.1,lte=0.2"`
	// TrailingWeight blends trailing growth vs the long-run target.
	TrailingWeight float64 `yaml:"trailing_weight" default:"0.6" validate:"gte=0,lte=1"`
	// MinBaseGrowth / MaxBaseGrowth bound the autoregressive base estimate.
	MinBaseGrowth float64 `yaml:"min_base_growth" default:"-0.20" validate:"lte=0"`
	MaxBaseGrowth float64 `yaml:"max_base_growth" default:"0.25" validate:"gte=0"`
	// MinEnhancedGrowth / MaxEnhancedGrowth are the hard global safety rail
	// applied after all adjustments.
	MinEnhancedGrowth float64 `yaml:"min_enhanced_growth" default:"-0.25" validate:"lte=0"`
	MaxEnhancedGrowth float64 `yaml:"max_enhanced_growth" default:"0.30" validate:"gte=0"`
	// FundamentalsCap bounds the summed fundamentals adjustment to
	// [-FundamentalsCap, +FundamentalsCap].
	FundamentalsCap float64 `yaml:"fundamentals_cap" default:"0.025" validate:"gt=0,lte=0.1"`
	// HorizonPeriods is the default forecast horizon.
	HorizonPeriods int `yaml:"horizon_periods" default:"3" validate:"gte=1,lte=10"`
	// MinGrowthObservations is the minimum dividend history length.
	MinGrowthObservations int `yaml:"min_growth_observations" default:"3" validate:"gte=2"`
	// SmoothingPeriod is the EMA period applied to the trailing growth series.
	SmoothingPeriod int `yaml:"smoothing_period" default:"3" validate:"gte=2,lte=12"`
}

// ConfidenceTunables holds the confidence aggregation weights (sum to 1) and
// the degraded-mode score used when no sentiment signal is available.
type ConfidenceTunables struct {
	WeightDataQuality  float64 `yaml:"weight_data_quality" default:"0.30" validate:"gte=0,lte=1"`
	WeightFundamentals float64 `yaml:"weight_fundamentals" default:"0.20" validate:"gte=0,lte=1"`
	WeightSignal       float64 `yaml:"weight_signal" default:"0.20" validate:"gte=0,lte=1"`
	WeightModelFit     float64 `yaml:"weight_model_fit" default:"0.15" validate:"gte=0,lte=1"`
	WeightStability    float64 `yaml:"weight_stability" default:"0.15" validate:"gte=0,lte=1"`
	// MissingSignalScore is the signal-confidence subscore applied when no
	// signal was supplied for an asset. Kept strictly below any real
	// signal's confidence contribution so absence always costs confidence.
	MissingSignalScore float64 `yaml:"missing_signal_score" default:"0.35" validate:"gte=0,lt=1"`
}

// DefaultTunables returns the documented default parameter set.
func DefaultTunables() (Tunables, error) {
	var t Tunables
	if err := defaults.Set(&t); err != nil {
		return Tunables{}, fmt.Errorf("failed to apply tunable defaults: %w", err)
	}
	return t, nil
}

// LoadTunables loads tunables from a YAML file layered over the defaults.
// An empty path returns the defaults unchanged.
func LoadTunables(path string) (Tunables, error) {
	t, err := DefaultTunables()
	if err != nil {
		return Tunables{}, err
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Tunables{}, fmt.Errorf("failed to read tunables file: %w", err)
		}
		if err := yaml.Unmarshal(data, &t); err != nil {
			return Tunables{}, fmt.Errorf("failed to parse tunables file: %w", err)
		}
	}

	if err := t.Validate(); err != nil {
		return Tunables{}, err
	}
	return t, nil
}

// Validate checks field ranges and the cross-field weight-sum invariants.
func (t Tunables) Validate() error {
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("invalid tunables: %w", err)
	}

	alphaSum := t.Objective.AlphaSharpe + t.Objective.AlphaYield +
		t.Objective.AlphaGrowth + t.Objective.AlphaQuality
	if math.Abs(alphaSum-1.0) > 1e-9 {
		return fmt.Errorf("invalid tunables: objective alphas sum to %.6f, want 1", alphaSum)
	}

	confSum := t.Confidence.WeightDataQuality + t.Confidence.WeightFundamentals +
		t.Confidence.WeightSignal + t.Confidence.WeightModelFit + t.Confidence.WeightStability
	if math.Abs(confSum-1.0) > 1e-9 {
		return fmt.Errorf("invalid tunables: confidence weights sum to %.6f, want 1", confSum)
	}

	if t.Forecast.MinBaseGrowth < t.Forecast.MinEnhancedGrowth ||
		t.Forecast.MaxBaseGrowth > t.Forecast.MaxEnhancedGrowth {
		return fmt.Errorf("invalid tunables: base growth bounds must sit inside enhanced growth bounds")
	}

	return nil
}

var validate = validator.New()
