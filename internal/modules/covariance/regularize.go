package covariance

import (
	"fmt"
	"math"

	"github.com/quantfolio/quantcore/internal/config"
	"github.com/quantfolio/quantcore/internal/quanterr"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

// Builder applies correlation shrinkage and numerical regularization to a
// sample covariance matrix. Every transform returns a new matrix.
type Builder struct {
	tunables config.ShrinkageTunables
	log      zerolog.Logger
}

// NewBuilder creates a regularized covariance builder.
func NewBuilder(tunables config.ShrinkageTunables, log zerolog.Logger) *Builder {
	return &Builder{
		tunables: tunables,
		log:      log.With().Str("component", "covariance_builder").Logger(),
	}
}

// Shrink blends the correlation structure of the sample toward the identity:
//
//	shrunk_corr = (1-lambda)*corr + lambda*I
//
// and rebuilds a covariance matrix from the shrunk correlations and the
// original volatilities. Zero-variance assets keep a unit diagonal and zero
// off-diagonal correlation.
func (b *Builder) Shrink(sample *Sample, lambda float64) (*mat.SymDense, error) {
	if lambda < 0 || lambda > 1 {
		return nil, fmt.Errorf("shrinkage lambda %.4f outside [0,1]", lambda)
	}

	n := sample.Dim()
	vols := make([]float64, n)
	for i := 0; i < n; i++ {
		vols[i] = math.Sqrt(math.Max(sample.Cov.At(i, i), 0))
	}

	shrunk := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			var corr float64
			switch {
			case i == j:
				corr = 1
			case vols[i] > 0 && vols[j] > 0:
				corr = sample.Cov.At(i, j) / (vols[i] * vols[j])
			default:
				corr = 0
			}
			if i != j {
				corr = (1 - lambda) * corr
			}
			shrunk.SetSym(i, j, corr*vols[i]*vols[j])
		}
	}

	return shrunk, nil
}

// Regularize conditions a covariance matrix for the optimizer: a base ridge
// term on the diagonal, an extra ridge if the condition number exceeds the
// configured limit, and eigenvalue flooring as the final guarantee of
// positive semi-definiteness.
func (b *Builder) Regularize(cov *mat.SymDense) (*mat.SymDense, error) {
	n := cov.SymmetricDim()
	if n == 0 {
		return nil, &quanterr.SingularCovarianceError{Detail: "empty matrix"}
	}

	ridged := addRidge(cov, b.tunables.RidgeEpsilon)

	minEig, maxEig, err := eigenRange(ridged)
	if err != nil {
		return nil, &quanterr.SingularCovarianceError{Detail: err.Error()}
	}

	cond := conditionNumber(minEig, maxEig)
	if cond > b.tunables.ConditionLimit {
		// Ill-conditioned even after the base ridge; push the smallest
		// eigenvalue up to maxEig/ConditionLimit.
		extra := maxEig/b.tunables.ConditionLimit - minEig
		if extra > 0 {
			b.log.Debug().
				Float64("condition_number", cond).
				Float64("extra_ridge", extra).
				Msg("Condition number above limit, increasing ridge")
			ridged = addRidge(ridged, extra)
			minEig, maxEig, err = eigenRange(ridged)
			if err != nil {
				return nil, &quanterr.SingularCovarianceError{Detail: err.Error()}
			}
		}
	}

	if minEig >= b.tunables.EigenvalueFloor {
		return ridged, nil
	}

	floored, err := floorEigenvalues(ridged, b.tunables.EigenvalueFloor)
	if err != nil {
		return nil, &quanterr.SingularCovarianceError{Detail: err.Error()}
	}

	b.log.Debug().
		Float64("min_eigenvalue", minEig).
		Float64("floor", b.tunables.EigenvalueFloor).
		Msg("Applied eigenvalue flooring")

	return floored, nil
}

// Build runs the full shrink-then-regularize pipeline.
func (b *Builder) Build(sample *Sample, lambda float64) (*mat.SymDense, error) {
	shrunk, err := b.Shrink(sample, lambda)
	if err != nil {
		return nil, err
	}
	return b.Regularize(shrunk)
}

func addRidge(cov *mat.SymDense, epsilon float64) *mat.SymDense {
	n := cov.SymmetricDim()
	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := cov.At(i, j)
			if i == j {
				v += epsilon
			}
			out.SetSym(i, j, v)
		}
	}
	return out
}

func eigenRange(cov *mat.SymDense) (minEig, maxEig float64, err error) {
	var es mat.EigenSym
	if ok := es.Factorize(cov, false); !ok {
		return 0, 0, fmt.Errorf("eigendecomposition failed")
	}
	vals := es.Values(nil)
	minEig, maxEig = vals[0], vals[0]
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, 0, fmt.Errorf("non-finite eigenvalue %v", v)
		}
		minEig = math.Min(minEig, v)
		maxEig = math.Max(maxEig, v)
	}
	return minEig, maxEig, nil
}

func conditionNumber(minEig, maxEig float64) float64 {
	if minEig <= 0 {
		return math.Inf(1)
	}
	return maxEig / minEig
}

// floorEigenvalues clips all eigenvalues to the floor and reconstructs the
// matrix as V * diag(clipped) * V'.
func floorEigenvalues(cov *mat.SymDense, floor float64) (*mat.SymDense, error) {
	n := cov.SymmetricDim()

	var es mat.EigenSym
	if ok := es.Factorize(cov, true); !ok {
		return nil, fmt.Errorf("eigendecomposition failed during flooring")
	}

	vals := es.Values(nil)
	for i, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("non-finite eigenvalue %v during flooring", v)
		}
		if v < floor {
			vals[i] = floor
		}
	}

	var vectors mat.Dense
	es.VectorsTo(&vectors)

	// V * diag(vals)
	scaled := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			scaled.Set(i, j, vectors.At(i, j)*vals[j])
		}
	}

	var rebuilt mat.Dense
	rebuilt.Mul(scaled, vectors.T())

	// Symmetrize to wash out floating-point asymmetry from the products.
	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			out.SetSym(i, j, 0.5*(rebuilt.At(i, j)+rebuilt.At(j, i)))
		}
	}

	return out, nil
}
