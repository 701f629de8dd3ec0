package signals

import (
	"math"

	"github.com/quantfolio/quantcore/internal/config"
)

// Blender turns signals into bounded adjustments. All impact constants come
// from configuration, not literals.
type Blender struct {
	tunables config.SignalTunables
}

// NewBlender creates a blender with the configured impact bounds.
func NewBlender(tunables config.SignalTunables) *Blender {
	return &Blender{tunables: tunables}
}

// TimeDecay returns the multiplicative decay for a 1-based forecast period:
//
//	decay(p) = max(floor, 1 - (p-1)*rate)
//
// Sentiment influence shrinks monotonically with the horizon and never
// reaches zero within it.
func (b *Blender) TimeDecay(period int) float64 {
	if period < 1 {
		period = 1
	}
	decay := 1.0 - float64(period-1)*b.tunables.DecayRate
	return math.Max(b.tunables.DecayFloor, decay)
}

// Blend computes the bounded adjustment for one forecast period. A nil
// signal yields exactly zero; the caller reduces confidence separately.
//
// The combined sentiment+risk adjustment is clamped to the configured range.
// When the clamp binds, both components are scaled proportionally so the
// reported breakdown still sums to the applied total.
func (b *Blender) Blend(sig *Signal, period int) Adjustment {
	if sig == nil {
		return Adjustment{}
	}

	sentiment := sig.Score * sig.Confidence * b.tunables.MaxSentimentImpact * b.TimeDecay(period)
	risk := -sig.GeopoliticalRisk * b.tunables.MaxGeopoliticalImpact

	total := sentiment + risk
	clamped := math.Max(-b.tunables.CombinedClamp, math.Min(b.tunables.CombinedClamp, total))
	if total != 0 && clamped != total {
		scale := clamped / total
		sentiment *= scale
		risk *= scale
	}

	return Adjustment{Sentiment: sentiment, Risk: risk}
}

// ReturnAdjustment is the adjustment applied to an asset's expected return in
// the optimizer: the first-period blend, since the optimizer's horizon is the
// immediate allocation.
func (b *Blender) ReturnAdjustment(sig *Signal) float64 {
	return b.Blend(sig, 1).Total()
}
