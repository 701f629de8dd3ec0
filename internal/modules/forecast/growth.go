package forecast

import (
	"math"

	"github.com/markcheno/go-talib"
	"github.com/quantfolio/quantcore/internal/config"
	"github.com/quantfolio/quantcore/internal/quanterr"
	"github.com/quantfolio/quantcore/pkg/formulas"
)

// growthEstimate holds the autoregressive base growth plus the series
// statistics the confidence estimator needs.
type growthEstimate struct {
	Base         float64
	Trailing     float64
	StdDev       float64
	Observations int
}

// estimateBaseGrowth computes the base growth as a mean-reverting blend of
// EMA-smoothed trailing dividend growth and the long-run target, bounded to a
// plausible range so extreme historical spikes don't extrapolate.
func estimateBaseGrowth(asset string, dividends []float64, t config.ForecastTunables) (growthEstimate, error) {
	if len(dividends) < t.MinGrowthObservations {
		return growthEstimate{}, &quanterr.InsufficientDataError{
			Asset:    asset,
			Required: t.MinGrowthObservations,
			Got:      len(dividends),
		}
	}

	growths := make([]float64, 0, len(dividends)-1)
	for i := 1; i < len(dividends); i++ {
		if dividends[i-1] > 0 {
			growths = append(growths, dividends[i]/dividends[i-1]-1.0)
		}
	}
	if len(growths) == 0 {
		return growthEstimate{}, &quanterr.InsufficientDataError{
			Asset:    asset,
			Required: t.MinGrowthObservations,
			Got:      1,
		}
	}

	// EMA smoothing damps single-period spikes; short series fall back to
	// the plain mean.
	trailing := formulas.Mean(growths)
	if len(growths) >= t.SmoothingPeriod {
		ema := talib.Ema(growths, t.SmoothingPeriod)
		trailing = ema[len(ema)-1]
	}

	base := t.TrailingWeight*trailing + (1.0-t.TrailingWeight)*t.LongRunGrowthTarget
	base = math.Max(t.MinBaseGrowth, math.Min(t.MaxBaseGrowth, base))

	return growthEstimate{
		Base:         base,
		Trailing:     trailing,
		StdDev:       formulas.StdDev(growths),
		Observations: len(dividends),
	}, nil
}
