// Package covariance builds and conditions covariance matrices from aligned
// return histories.
//
// The pipeline is estimate -> shrink -> regularize, and every step returns a
// fresh matrix; nothing is mutated in place. The optimizer is guaranteed to
// never see a singular matrix: shrinkage pulls the correlation structure
// toward the identity, a ridge term keeps the diagonal away from zero, and
// eigenvalue flooring is the last-resort guarantee of positive
// semi-definiteness. The price is slightly biased risk estimates, which we
// accept in exchange for solver stability.
package covariance

import "gonum.org/v1/gonum/mat"

// Sample holds the sample moments estimated from an aligned return history.
type Sample struct {
	Assets       []string
	Mean         []float64
	Cov          *mat.SymDense
	ZeroVariance []bool // constant-return series break correlation normalization
	Observations int
}

// Dim returns the number of assets in the sample.
func (s *Sample) Dim() int {
	return len(s.Assets)
}

// CovSlice returns the covariance matrix as row slices, for callers that
// work with plain float64 matrices.
func CovSlice(m *mat.SymDense) [][]float64 {
	n := m.SymmetricDim()
	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		out[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			out[i][j] = m.At(i, j)
		}
	}
	return out
}
