package optimization

import (
	"fmt"
	"math"

	"github.com/quantfolio/quantcore/internal/config"
	"gonum.org/v1/gonum/mat"
)

// ObjectiveKind is the closed set of optimization goals.
type ObjectiveKind int

const (
	// ObjectiveSharpeRatio maximizes risk-adjusted return.
	ObjectiveSharpeRatio ObjectiveKind = iota
	// ObjectiveDividendYield maximizes weighted dividend yield.
	ObjectiveDividendYield
	// ObjectiveDividendGrowth maximizes weighted forecast dividend growth.
	ObjectiveDividendGrowth
	// ObjectiveBalanced maximizes a weighted composite of Sharpe, yield,
	// growth and fundamentals quality.
	ObjectiveBalanced
)

// ParseObjective parses an objective name, rejecting unknown values at the
// boundary.
func ParseObjective(s string) (ObjectiveKind, error) {
	switch s {
	case "sharpe_ratio":
		return ObjectiveSharpeRatio, nil
	case "dividend_yield":
		return ObjectiveDividendYield, nil
	case "dividend_growth":
		return ObjectiveDividendGrowth, nil
	case "balanced":
		return ObjectiveBalanced, nil
	default:
		return 0, fmt.Errorf("unknown objective %q", s)
	}
}

// String returns the wire name of the objective.
func (k ObjectiveKind) String() string {
	switch k {
	case ObjectiveSharpeRatio:
		return "sharpe_ratio"
	case ObjectiveDividendYield:
		return "dividend_yield"
	case ObjectiveDividendGrowth:
		return "dividend_growth"
	case ObjectiveBalanced:
		return "balanced"
	default:
		return fmt.Sprintf("objective(%d)", int(k))
	}
}

// Objective is a scalar minimization target over a weight vector. Grad may be
// nil for derivative-free solvers; when present it writes the gradient into
// its first argument.
type Objective struct {
	Name string
	Func func(w []float64) float64
	Grad func(grad, w []float64)
}

// volatilityFloor guards the Sharpe denominators against division by zero.
// Matches the epsilon used for eigenvalue flooring downstream of
// regularization.
const volatilityFloor = 1e-10

// Factory builds objectives for a problem.
type Factory struct {
	alphas config.ObjectiveTunables
}

// NewFactory creates an objective factory with the configured composite
// weights.
func NewFactory(alphas config.ObjectiveTunables) *Factory {
	return &Factory{alphas: alphas}
}

// Build constructs the scalar objective for the requested goal. The handler
// is exhaustive over the closed enum.
func (f *Factory) Build(p *Problem) (Objective, error) {
	switch p.Kind {
	case ObjectiveSharpeRatio:
		return negativeSharpe(p.Mu, p.Cov, p.RiskFreeRate), nil
	case ObjectiveDividendYield:
		if len(p.Yields) != p.dim() {
			return Objective{}, fmt.Errorf("dividend_yield objective requires %d yields, got %d", p.dim(), len(p.Yields))
		}
		return negativeLinear("dividend_yield", p.Yields), nil
	case ObjectiveDividendGrowth:
		if len(p.Growths) != p.dim() {
			return Objective{}, fmt.Errorf("dividend_growth objective requires %d growth estimates, got %d", p.dim(), len(p.Growths))
		}
		return negativeLinear("dividend_growth", p.Growths), nil
	case ObjectiveBalanced:
		if len(p.Yields) != p.dim() || len(p.Growths) != p.dim() || len(p.Quality) != p.dim() {
			return Objective{}, fmt.Errorf("balanced objective requires yields, growths and quality for all %d assets", p.dim())
		}
		return f.balanced(p), nil
	default:
		return Objective{}, fmt.Errorf("unknown objective kind %v", p.Kind)
	}
}

// negativeSharpe minimizes -(mu'w - rf) / sqrt(w'Sigma*w).
func negativeSharpe(mu []float64, sigma *mat.SymDense, riskFree float64) Objective {
	n := len(mu)
	return Objective{
		Name: "sharpe_ratio",
		Func: func(w []float64) float64 {
			excess := -riskFree
			for i := 0; i < n; i++ {
				excess += mu[i] * w[i]
			}
			sd := portfolioStdDev(w, sigma)
			return -excess / sd
		},
		Grad: func(grad, w []float64) {
			excess := -riskFree
			for i := 0; i < n; i++ {
				excess += mu[i] * w[i]
			}
			sd := portfolioStdDev(w, sigma)

			for i := 0; i < n; i++ {
				var dVar float64
				for j := 0; j < n; j++ {
					dVar += 2 * sigma.At(i, j) * w[j]
				}
				grad[i] = -mu[i]/sd + excess*dVar/(2*sd*sd*sd)
			}
		},
	}
}

// negativeLinear minimizes -sum(w_i * c_i); used for yield and growth goals.
func negativeLinear(name string, coeffs []float64) Objective {
	n := len(coeffs)
	return Objective{
		Name: name,
		Func: func(w []float64) float64 {
			var v float64
			for i := 0; i < n; i++ {
				v -= coeffs[i] * w[i]
			}
			return v
		},
		Grad: func(grad, w []float64) {
			for i := 0; i < n; i++ {
				grad[i] = -coeffs[i]
			}
		},
	}
}

// balanced minimizes -(a1*Sharpe + a2*Yield + a3*Growth + a4*Quality).
func (f *Factory) balanced(p *Problem) Objective {
	n := p.dim()
	sharpe := negativeSharpe(p.Mu, p.Cov, p.RiskFreeRate)
	a := f.alphas

	return Objective{
		Name: "balanced",
		Func: func(w []float64) float64 {
			var yield, growth, quality float64
			for i := 0; i < n; i++ {
				yield += p.Yields[i] * w[i]
				growth += p.Growths[i] * w[i]
				quality += p.Quality[i] * w[i]
			}
			// sharpe.Func is already negated.
			return a.AlphaSharpe*sharpe.Func(w) - a.AlphaYield*yield - a.AlphaGrowth*growth - a.AlphaQuality*quality
		},
		Grad: func(grad, w []float64) {
			sharpe.Grad(grad, w)
			for i := 0; i < n; i++ {
				grad[i] = a.AlphaSharpe*grad[i] - a.AlphaYield*p.Yields[i] - a.AlphaGrowth*p.Growths[i] - a.AlphaQuality*p.Quality[i]
			}
		},
	}
}

func portfolioStdDev(w []float64, sigma *mat.SymDense) float64 {
	n := len(w)
	var variance float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			variance += w[i] * w[j] * sigma.At(i, j)
		}
	}
	return math.Sqrt(math.Max(variance, volatilityFloor))
}
