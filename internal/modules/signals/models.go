// Package signals converts externally supplied sentiment and risk signals
// into bounded, time-decayed return and growth adjustments.
//
// The core treats the sentiment analyzer as a black box: signals arrive
// already scored, and an absent signal is an explicit degraded mode (exactly
// zero adjustment, reduced confidence downstream), never a synthetic neutral
// default.
package signals

import "time"

// Signal is a per-asset sentiment observation supplied by the external
// analyzer. Read-only input.
type Signal struct {
	Score            float64   `json:"score"`             // [-1, 1]
	Confidence       float64   `json:"confidence"`        // [0, 1]
	GeopoliticalRisk float64   `json:"geopolitical_risk"` // [0, 1]
	ObservedAt       time.Time `json:"observed_at"`
}

// Adjustment is the blended, clamped outcome for one forecast period.
type Adjustment struct {
	Sentiment float64 // signed sentiment contribution after decay
	Risk      float64 // geopolitical drag, always <= 0
}

// Total returns the combined adjustment.
func (a Adjustment) Total() float64 {
	return a.Sentiment + a.Risk
}
