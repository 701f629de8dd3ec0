package forecast

import (
	"testing"

	"github.com/quantfolio/quantcore/internal/config"
	"github.com/quantfolio/quantcore/internal/modules/signals"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"
)

func testConfidenceTunables(t *testing.T) config.ConfidenceTunables {
	t.Helper()
	tunables, err := config.DefaultTunables()
	require.NoError(t, err)
	return tunables.Confidence
}

func healthyInputs(sig *signals.Signal) confidenceInputs {
	return confidenceInputs{
		Observations: 10,
		GrowthStdDev: 0.02,
		Fundamentals: Fundamentals{ReturnOnEquity: 0.15, PayoutRatio: 0.5, DebtToEquity: 0.8, Beta: 1.0},
		Signal:       sig,
	}
}

func TestConfidence_ScoreBounded(t *testing.T) {
	e := NewConfidenceEstimator(testConfidenceTunables(t))

	inputs := []confidenceInputs{
		healthyInputs(nil),
		healthyInputs(&signals.Signal{Confidence: 1.0}),
		{Observations: 0, GrowthStdDev: 5, Fundamentals: Fundamentals{Beta: -2}},
	}

	for _, in := range inputs {
		for p := 1; p <= 5; p++ {
			score := e.Score(in, p)
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 1.0)
		}
	}
}

func TestConfidence_DecaysWithHorizon(t *testing.T) {
	e := NewConfidenceEstimator(testConfidenceTunables(t))
	in := healthyInputs(&signals.Signal{Confidence: 0.9})

	first := e.Score(in, 1)
	require.Greater(t, first, 0.0)

	prev := first
	for p := 2; p <= 5; p++ {
		cur := e.Score(in, p)
		assert.Less(t, cur, prev, "confidence must shrink with the horizon")
		prev = cur
	}
}

func TestConfidence_RemovingSignalNeverRaisesScore(t *testing.T) {
	e := NewConfidenceEstimator(testConfidenceTunables(t))

	withSignal := healthyInputs(&signals.Signal{Confidence: 0.9})
	without := healthyInputs(nil)

	for p := 1; p <= 3; p++ {
		assert.GreaterOrEqual(t, e.Score(withSignal, p), e.Score(without, p),
			"period %d: an available signal must never score below its absence", p)
	}
}

func TestConfidence_LowConfidenceSignalFlooredAtMissingScore(t *testing.T) {
	tunables := testConfidenceTunables(t)
	e := NewConfidenceEstimator(tunables)

	// A nearly worthless signal scores the same as no signal at all, never
	// lower.
	junk := healthyInputs(&signals.Signal{Confidence: 0.01})
	missing := healthyInputs(nil)

	assert.InDelta(t, e.Score(missing, 1), e.Score(junk, 1), 1e-12)
}

func TestConfidence_IntervalBracketsValue(t *testing.T) {
	e := NewConfidenceEstimator(testConfidenceTunables(t))
	in := healthyInputs(&signals.Signal{Confidence: 0.8})

	const value = 2.5
	low, high := e.Interval(value, in, 0.95)
	assert.Less(t, low, value)
	assert.Greater(t, high, value)

	// Symmetric around the projected value.
	assert.InDelta(t, value-low, high-value, 1e-9)
}

func TestConfidence_IntervalWidensWithLevel(t *testing.T) {
	e := NewConfidenceEstimator(testConfidenceTunables(t))
	in := healthyInputs(nil)

	low95, high95 := e.Interval(1.0, in, 0.95)
	low80, high80 := e.Interval(1.0, in, 0.80)

	assert.Greater(t, high95-low95, high80-low80,
		"a 95%% band must be wider than an 80%% band")
}

func TestConfidence_IntervalUsesNormalQuantile(t *testing.T) {
	e := NewConfidenceEstimator(testConfidenceTunables(t))
	in := healthyInputs(nil)

	const value, level = 1.0, 0.95
	low, high := e.Interval(value, in, level)

	z := distuv.Normal{Mu: 0, Sigma: 1}.Quantile(0.5 + level/2)
	sigma := e.sigmaTotal(in)
	assert.InDelta(t, 2*z*sigma*value, high-low, 1e-9)
}

func TestConfidence_InvalidLevelDefaultsTo95(t *testing.T) {
	e := NewConfidenceEstimator(testConfidenceTunables(t))
	in := healthyInputs(nil)

	lowDefault, highDefault := e.Interval(1.0, in, 0)
	low95, high95 := e.Interval(1.0, in, 0.95)

	assert.InDelta(t, low95, lowDefault, 1e-12)
	assert.InDelta(t, high95, highDefault, 1e-12)
}
