package forecast

import (
	"math"

	"github.com/quantfolio/quantcore/internal/config"
	"github.com/quantfolio/quantcore/internal/modules/signals"
	"gonum.org/v1/gonum/stat/distuv"
)

// ConfidenceEstimator aggregates data quality, fundamentals reliability,
// signal confidence, model fit and stability into a single [0,1] score, and
// derives interval half-widths from an aggregate volatility.
type ConfidenceEstimator struct {
	tunables config.ConfidenceTunables
}

// NewConfidenceEstimator creates a confidence estimator.
func NewConfidenceEstimator(tunables config.ConfidenceTunables) *ConfidenceEstimator {
	return &ConfidenceEstimator{tunables: tunables}
}

// confidenceInputs carries the per-asset facts the subscores derive from.
type confidenceInputs struct {
	Observations int
	GrowthStdDev float64
	Fundamentals Fundamentals
	Signal       *signals.Signal
}

// Subscore saturation points. Data quality saturates at 8 growth
// observations; model fit decays with growth-series dispersion.
const (
	dataQualitySaturation = 8.0
	modelFitDispersion    = 10.0
	horizonHaircut        = 0.05 // confidence lost per period beyond the first
)

// Score computes the aggregate confidence for a 1-based forecast period.
func (e *ConfidenceEstimator) Score(in confidenceInputs, period int) float64 {
	t := e.tunables

	score := t.WeightDataQuality*e.dataQuality(in.Observations) +
		t.WeightFundamentals*e.fundamentalsReliability(in.Fundamentals) +
		t.WeightSignal*e.signalConfidence(in.Signal) +
		t.WeightModelFit*e.modelFit(in.GrowthStdDev) +
		t.WeightStability*e.stability(in.Fundamentals.Beta)

	if period > 1 {
		score *= 1.0 - horizonHaircut*float64(period-1)
	}
	return clamp01(score)
}

func (e *ConfidenceEstimator) dataQuality(observations int) float64 {
	return clamp01(float64(observations) / dataQualitySaturation)
}

// fundamentalsReliability starts from full reliability and deducts for
// implausible or missing-looking metrics.
func (e *ConfidenceEstimator) fundamentalsReliability(f Fundamentals) float64 {
	score := 1.0
	if f.PayoutRatio <= 0 || f.PayoutRatio > 1.0 {
		score -= 0.2
	}
	if f.DebtToEquity > 3.0 {
		score -= 0.2
	}
	if f.ReturnOnEquity < 0 {
		score -= 0.2
	}
	if f.Beta < 0.2 || f.Beta > 2.5 {
		score -= 0.1
	}
	return clamp01(score)
}

// signalConfidence maps signal presence to a subscore. A present signal never
// scores below the missing-signal floor, so removing a signal can never raise
// confidence.
func (e *ConfidenceEstimator) signalConfidence(sig *signals.Signal) float64 {
	if sig == nil {
		return e.tunables.MissingSignalScore
	}
	return math.Max(clamp01(sig.Confidence), e.tunables.MissingSignalScore)
}

func (e *ConfidenceEstimator) modelFit(growthStdDev float64) float64 {
	return clamp01(1.0 / (1.0 + modelFitDispersion*growthStdDev))
}

func (e *ConfidenceEstimator) stability(beta float64) float64 {
	return clamp01(1.0 - 0.3*math.Abs(beta-1.0))
}

// Volatility term scales for the interval aggregate.
const (
	baseVolFloor   = 0.01
	baseVolCeiling = 0.50
	signalVolScale = 0.05
	fundVolScale   = 0.04
	betaVolScale   = 0.02
)

// sigmaTotal combines the volatility terms as a root sum of squares: the
// terms are treated as independent sources of forecast error.
func (e *ConfidenceEstimator) sigmaTotal(in confidenceInputs) float64 {
	baseVol := math.Max(baseVolFloor, math.Min(baseVolCeiling, in.GrowthStdDev))
	signalVol := (1.0 - e.signalConfidence(in.Signal)) * signalVolScale
	fundVol := (1.0 - e.fundamentalsReliability(in.Fundamentals)) * fundVolScale
	betaVol := math.Abs(in.Fundamentals.Beta-1.0) * betaVolScale

	return math.Sqrt(baseVol*baseVol + signalVol*signalVol + fundVol*fundVol + betaVol*betaVol)
}

// Interval returns the projected value's confidence band at the requested
// level: value * (1 +/- z*sigma_total), z from the standard normal quantile
// (1.96 for 95%, 1.28 for 80%).
func (e *ConfidenceEstimator) Interval(value float64, in confidenceInputs, level float64) (low, high float64) {
	if level <= 0 || level >= 1 {
		level = 0.95
	}
	z := distuv.Normal{Mu: 0, Sigma: 1}.Quantile(0.5 + level/2)
	sigma := e.sigmaTotal(in)

	low = value * (1.0 - z*sigma)
	high = value * (1.0 + z*sigma)
	return low, high
}
