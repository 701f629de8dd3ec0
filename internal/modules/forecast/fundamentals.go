package forecast

import "math"

// fundamentalsAdjustment applies thresholded step rules on return on equity,
// payout ratio and leverage. Each rule contributes a small capped step and
// the sum is clamped to the configured cap so fundamentals can tilt but never
// dominate the base estimate.
func fundamentalsAdjustment(f Fundamentals, cap float64) float64 {
	var adj float64

	switch {
	case f.ReturnOnEquity >= 0.20:
		adj += 0.01
	case f.ReturnOnEquity < 0.08:
		adj -= 0.01
	}

	switch {
	case f.PayoutRatio > 0 && f.PayoutRatio <= 0.40:
		adj += 0.01
	case f.PayoutRatio >= 0.80:
		adj -= 0.015
	}

	if f.DebtToEquity >= 2.0 {
		adj -= 0.01
	}

	return math.Max(-cap, math.Min(cap, adj))
}

// QualityScore maps fundamentals to a [0,1] quality score for the balanced
// objective. Components: profitability (35%), payout discipline (25%),
// leverage (25%), market risk (15%).
func QualityScore(f Fundamentals) float64 {
	roeScore := clamp01(f.ReturnOnEquity / 0.25)

	// Payout sweet spot is 30-60%: sustainable but meaningful.
	var payoutScore float64
	switch {
	case f.PayoutRatio >= 0.30 && f.PayoutRatio <= 0.60:
		payoutScore = 1.0
	case f.PayoutRatio > 0 && f.PayoutRatio < 0.30:
		payoutScore = 0.6 + f.PayoutRatio/0.30*0.4
	case f.PayoutRatio > 0.60 && f.PayoutRatio <= 1.0:
		payoutScore = 1.0 - (f.PayoutRatio-0.60)*2.0
	default:
		payoutScore = 0.2
	}
	payoutScore = clamp01(payoutScore)

	leverageScore := clamp01(1.0 - f.DebtToEquity/3.0)
	betaScore := clamp01(1.0 - math.Abs(f.Beta-1.0)/1.5)

	return clamp01(roeScore*0.35 + payoutScore*0.25 + leverageScore*0.25 + betaScore*0.15)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
