// Package portfolio is the request-facing orchestrator of the quant core: it
// validates the input contract, wires covariance estimation, shrinkage
// selection, signal blending and constrained optimization into a single
// optimization call, and drives the per-asset dividend forecaster.
package portfolio

import (
	"github.com/quantfolio/quantcore/internal/modules/forecast"
	"github.com/quantfolio/quantcore/internal/modules/signals"
)

// RequestConfig is the caller-supplied configuration for a computation
// request. Enumerated fields are rejected at the boundary when unknown.
type RequestConfig struct {
	Objective       string   `json:"objective" validate:"required,oneof=sharpe_ratio dividend_yield dividend_growth balanced"`
	ShrinkageMethod string   `json:"shrinkage_method" validate:"required,oneof=auto fixed custom"`
	ShrinkageValue  *float64 `json:"shrinkage_value,omitempty" validate:"omitempty,gte=0,lte=1"`
	MinWeight       float64  `json:"min_weight" validate:"gte=0,lte=1"`
	MaxWeight       float64  `json:"max_weight" validate:"gte=0,lte=1"`
	RiskFreeRate    float64  `json:"risk_free_rate" validate:"gte=-0.05,lte=0.25"`
	// HorizonPeriods defaults to the configured horizon when zero.
	HorizonPeriods int `json:"horizon_periods" validate:"gte=0,lte=10"`
	// ConfidenceLevel defaults to 0.95 when zero.
	ConfidenceLevel float64 `json:"confidence_level" validate:"gte=0,lte=0.999"`
}

// Request is the full input contract for an optimization and/or forecast
// computation. All entities are scoped to the single call; nothing is
// retained afterward.
type Request struct {
	// Assets is the ordered, duplicate-free asset identifier list.
	Assets []string `json:"assets"`
	// ReturnHistory holds the aligned chronological return series per asset.
	ReturnHistory map[string][]float64 `json:"return_history"`
	// Dividends holds the chronological dividend history per asset; required
	// for forecasts and for income objectives.
	Dividends map[string][]float64 `json:"dividends,omitempty"`
	// Yields holds current dividend yields; required for the yield and
	// balanced objectives.
	Yields map[string]float64 `json:"yields,omitempty"`
	// Fundamentals per asset.
	Fundamentals map[string]forecast.Fundamentals `json:"fundamentals"`
	// Sentiment is optional per asset; a missing entry is the explicit
	// "absent" state and contributes exactly zero adjustment.
	Sentiment map[string]*signals.Signal `json:"sentiment,omitempty"`

	Config RequestConfig `json:"config"`
}

// ForecastResult maps asset identifiers to their growth paths.
type ForecastResult map[string][]forecast.Period
