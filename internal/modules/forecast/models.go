// Package forecast produces multi-period dividend growth forecasts with
// calibrated confidence intervals.
//
// Each asset's forecast is a forward-only chain: period p derives solely from
// period p-1's projected value and p's own adjustments, and no period is
// revisited once computed.
package forecast

import "github.com/quantfolio/quantcore/internal/modules/signals"

// Fundamentals holds the per-asset fundamental metrics consumed by the
// forecaster and the balanced objective.
type Fundamentals struct {
	ReturnOnEquity float64 `json:"return_on_equity"`
	PayoutRatio    float64 `json:"payout_ratio"`
	DebtToEquity   float64 `json:"debt_to_equity"`
	Beta           float64 `json:"beta"`
}

// Input is one asset's request-scoped forecast input.
type Input struct {
	Asset string
	// Dividends is the chronological per-period dividend history; the last
	// entry is the most recent observed actual and anchors the projection.
	Dividends    []float64
	Fundamentals Fundamentals
	// Signal is optional; nil means no signal was supplied for the asset.
	Signal *signals.Signal
	// HorizonPeriods overrides the configured horizon when > 0.
	HorizonPeriods int
	// ConfidenceLevel for the intervals, e.g. 0.95 or 0.80.
	ConfidenceLevel float64
}

// Period is one forecast period's full growth breakdown. Derived solely from
// the prior period's projected value and this period's adjustments.
type Period struct {
	Period                 int     `json:"period"`
	BaseGrowth             float64 `json:"base_growth"`
	SentimentAdjustment    float64 `json:"sentiment_adjustment"`
	FundamentalsAdjustment float64 `json:"fundamentals_adjustment"`
	RiskAdjustment         float64 `json:"risk_adjustment"`
	EnhancedGrowth         float64 `json:"enhanced_growth"`
	ProjectedValue         float64 `json:"projected_value"`
	Confidence             float64 `json:"confidence"`
	IntervalLow            float64 `json:"interval_low"`
	IntervalHigh           float64 `json:"interval_high"`
}
