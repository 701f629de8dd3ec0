// Package formulas provides scalar financial statistics shared across the core.
package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the sample standard deviation of a slice of float64 values
func StdDev(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// Variance calculates the sample variance of a slice of float64 values
func Variance(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Variance(data, nil)
}

// Covariance calculates the sample covariance between two datasets
func Covariance(x, y []float64) float64 {
	if len(x) == 0 || len(y) == 0 || len(x) != len(y) {
		return 0
	}
	return stat.Covariance(x, y, nil)
}

// Correlation calculates the Pearson correlation coefficient between two datasets
func Correlation(x, y []float64) float64 {
	if len(x) == 0 || len(y) == 0 || len(x) != len(y) {
		return 0
	}
	return stat.Correlation(x, y, nil)
}

// CalculateReturns converts prices to percentage returns
// Returns[i] = (Price[i] - Price[i-1]) / Price[i-1]
func CalculateReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] != 0 {
			returns[i-1] = (prices[i] - prices[i-1]) / prices[i-1]
		}
	}

	return returns
}

// SharpeRatio calculates the Sharpe ratio of a return series against a
// per-period risk-free rate. Zero-volatility series return 0.
func SharpeRatio(returns []float64, riskFreeRate float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	sd := StdDev(returns)
	if sd == 0 {
		return 0
	}
	return (Mean(returns) - riskFreeRate) / sd
}

// PortfolioReturn calculates mu'w for a weight vector and expected returns.
func PortfolioReturn(weights, mu []float64) float64 {
	var r float64
	for i := range weights {
		r += weights[i] * mu[i]
	}
	return r
}

// PortfolioVariance calculates w'Sigma*w. The covariance matrix is given in
// row-major order as a slice of rows.
func PortfolioVariance(weights []float64, cov [][]float64) float64 {
	var v float64
	for i := range weights {
		for j := range weights {
			v += weights[i] * weights[j] * cov[i][j]
		}
	}
	return v
}

// PortfolioVolatility calculates sqrt(w'Sigma*w), floored at zero.
func PortfolioVolatility(weights []float64, cov [][]float64) float64 {
	return math.Sqrt(math.Max(PortfolioVariance(weights, cov), 0))
}
