package forecast

import (
	"context"
	"math"

	"github.com/quantfolio/quantcore/internal/config"
	"github.com/quantfolio/quantcore/internal/modules/signals"
	"github.com/rs/zerolog"
)

// Forecaster produces the multi-period compounding dividend growth path for
// one asset at a time.
type Forecaster struct {
	blender    *signals.Blender
	confidence *ConfidenceEstimator
	tunables   config.ForecastTunables
	log        zerolog.Logger
}

// NewForecaster creates a dividend growth forecaster.
func NewForecaster(blender *signals.Blender, confidence *ConfidenceEstimator, tunables config.ForecastTunables, log zerolog.Logger) *Forecaster {
	return &Forecaster{
		blender:    blender,
		confidence: confidence,
		tunables:   tunables,
		log:        log.With().Str("component", "forecaster").Logger(),
	}
}

// BaseGrowth exposes the autoregressive base estimate for an asset. Used by
// the optimizer's income-growth objective so forecast and allocation share
// one growth model.
func (f *Forecaster) BaseGrowth(asset string, dividends []float64) (float64, error) {
	est, err := estimateBaseGrowth(asset, dividends, f.tunables)
	if err != nil {
		return 0, err
	}
	return est.Base, nil
}

// Forecast computes the growth path for one asset. Periods transition
// strictly forward: each projected value compounds on the previous one, the
// first period anchors on the last observed dividend, and the configured
// horizon is the terminal state.
func (f *Forecaster) Forecast(ctx context.Context, in Input) ([]Period, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	est, err := estimateBaseGrowth(in.Asset, in.Dividends, f.tunables)
	if err != nil {
		return nil, err
	}

	fundAdj := fundamentalsAdjustment(in.Fundamentals, f.tunables.FundamentalsCap)

	horizon := in.HorizonPeriods
	if horizon <= 0 {
		horizon = f.tunables.HorizonPeriods
	}

	confIn := confidenceInputs{
		Observations: est.Observations,
		GrowthStdDev: est.StdDev,
		Fundamentals: in.Fundamentals,
		Signal:       in.Signal,
	}

	periods := make([]Period, 0, horizon)
	previous := in.Dividends[len(in.Dividends)-1]

	for p := 1; p <= horizon; p++ {
		adj := f.blender.Blend(in.Signal, p)

		enhanced := est.Base + fundAdj + adj.Sentiment + adj.Risk
		enhanced = math.Max(f.tunables.MinEnhancedGrowth, math.Min(f.tunables.MaxEnhancedGrowth, enhanced))

		projected := previous * (1.0 + enhanced)
		confidence := f.confidence.Score(confIn, p)
		low, high := f.confidence.Interval(projected, confIn, in.ConfidenceLevel)

		periods = append(periods, Period{
			Period:                 p,
			BaseGrowth:             est.Base,
			SentimentAdjustment:    adj.Sentiment,
			FundamentalsAdjustment: fundAdj,
			RiskAdjustment:         adj.Risk,
			EnhancedGrowth:         enhanced,
			ProjectedValue:         projected,
			Confidence:             confidence,
			IntervalLow:            low,
			IntervalHigh:           high,
		})

		previous = projected
	}

	f.log.Debug().
		Str("asset", in.Asset).
		Int("horizon", horizon).
		Float64("base_growth", est.Base).
		Bool("signal_present", in.Signal != nil).
		Msg("Computed dividend growth forecast")

	return periods, nil
}
