// Package quanterr defines the typed errors surfaced by the quant core.
//
// Data-sufficiency and constraint errors are caller-visible and never retried.
// Solver divergence is an internal signal consumed by the optimizer's fallback
// chain; it only surfaces when every fallback (including equal weighting) has
// failed.
package quanterr

import "fmt"

// InsufficientDataError indicates fewer observations than the minimum required
// for covariance or growth estimation.
type InsufficientDataError struct {
	Asset    string // empty when the whole request is short
	Required int
	Got      int
}

func (e *InsufficientDataError) Error() string {
	if e.Asset != "" {
		return fmt.Sprintf("insufficient data for %s: need %d observations, got %d", e.Asset, e.Required, e.Got)
	}
	return fmt.Sprintf("insufficient data: need %d observations, got %d", e.Required, e.Got)
}

// InvalidConstraintError indicates infeasible weight bounds for the requested
// asset count. Raised before any solver attempt.
type InvalidConstraintError struct {
	MinWeight float64
	MaxWeight float64
	NumAssets int
	Reason    string
}

func (e *InvalidConstraintError) Error() string {
	return fmt.Sprintf("infeasible weight bounds [%.4f, %.4f] for %d assets: %s",
		e.MinWeight, e.MaxWeight, e.NumAssets, e.Reason)
}

// SingularCovarianceError indicates that regularization failed to produce a
// usable covariance matrix. Given eigenvalue flooring this should be
// unreachable; hitting it means an internal consistency bug.
type SingularCovarianceError struct {
	Detail string
}

func (e *SingularCovarianceError) Error() string {
	return fmt.Sprintf("covariance regularization failed: %s", e.Detail)
}

// OptimizationDivergenceError indicates a solver strategy failed to produce a
// feasible result. Consumed by the fallback chain; surfaced only when the
// final fallback cannot satisfy the bounds either.
type OptimizationDivergenceError struct {
	Strategy string
	Detail   string
}

func (e *OptimizationDivergenceError) Error() string {
	return fmt.Sprintf("solver %s diverged: %s", e.Strategy, e.Detail)
}
