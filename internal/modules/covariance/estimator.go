package covariance

import (
	"fmt"

	"github.com/quantfolio/quantcore/internal/quanterr"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Estimator computes sample means and the sample covariance matrix from an
// aligned return history.
type Estimator struct {
	minObservations int
	log             zerolog.Logger
}

// NewEstimator creates an estimator that rejects histories shorter than
// minObservations periods.
func NewEstimator(minObservations int, log zerolog.Logger) *Estimator {
	return &Estimator{
		minObservations: minObservations,
		log:             log.With().Str("component", "covariance_estimator").Logger(),
	}
}

// Estimate builds the sample moments for the given assets. The return series
// must be aligned: every asset needs the same number of observations in
// chronological order.
func (e *Estimator) Estimate(assets []string, returns map[string][]float64) (*Sample, error) {
	if len(assets) == 0 {
		return nil, fmt.Errorf("no assets provided")
	}

	// Validate alignment and establish the observation count.
	var obs int
	for i, asset := range assets {
		series, ok := returns[asset]
		if !ok {
			return nil, fmt.Errorf("missing return series for asset %s", asset)
		}
		if i == 0 {
			obs = len(series)
		} else if len(series) != obs {
			return nil, fmt.Errorf("misaligned return series: asset %s has %d observations, expected %d",
				asset, len(series), obs)
		}
	}

	if obs < e.minObservations {
		return nil, &quanterr.InsufficientDataError{Required: e.minObservations, Got: obs}
	}

	n := len(assets)
	mean := make([]float64, n)
	zeroVar := make([]bool, n)
	for i, asset := range assets {
		mean[i] = stat.Mean(returns[asset], nil)
	}

	cov := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			// Unbiased sample covariance (N-1 denominator).
			c := stat.Covariance(returns[assets[i]], returns[assets[j]], nil)
			cov.SetSym(i, j, c)
		}
	}

	zeroCount := 0
	for i := 0; i < n; i++ {
		if cov.At(i, i) <= 0 {
			zeroVar[i] = true
			zeroCount++
		}
	}

	e.log.Debug().
		Int("num_assets", n).
		Int("observations", obs).
		Int("zero_variance_assets", zeroCount).
		Msg("Estimated sample covariance")

	return &Sample{
		Assets:       assets,
		Mean:         mean,
		Cov:          cov,
		ZeroVariance: zeroVar,
		Observations: obs,
	}, nil
}
