package signals

import (
	"testing"
	"time"

	"github.com/quantfolio/quantcore/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSignalTunables(t *testing.T) config.SignalTunables {
	t.Helper()
	tunables, err := config.DefaultTunables()
	require.NoError(t, err)
	return tunables.Signals
}

func TestBlender_TimeDecay(t *testing.T) {
	b := NewBlender(testSignalTunables(t))

	assert.InDelta(t, 1.0, b.TimeDecay(1), 1e-12)
	assert.InDelta(t, 0.8, b.TimeDecay(2), 1e-12)
	assert.InDelta(t, 0.6, b.TimeDecay(3), 1e-12)

	// Never decays to zero: far periods hit the floor.
	assert.InDelta(t, 0.3, b.TimeDecay(50), 1e-12)

	// Out-of-range periods are treated as the first.
	assert.InDelta(t, 1.0, b.TimeDecay(0), 1e-12)
	assert.InDelta(t, 1.0, b.TimeDecay(-3), 1e-12)
}

func TestBlender_NilSignalIsExactlyZero(t *testing.T) {
	b := NewBlender(testSignalTunables(t))

	adj := b.Blend(nil, 1)
	assert.Zero(t, adj.Sentiment)
	assert.Zero(t, adj.Risk)
	assert.Zero(t, adj.Total())
	assert.Zero(t, b.ReturnAdjustment(nil))
}

func TestBlender_BlendComponents(t *testing.T) {
	tunables := testSignalTunables(t)
	b := NewBlender(tunables)

	sig := &Signal{
		Score:            0.8,
		Confidence:       0.9,
		GeopoliticalRisk: 0.2,
		ObservedAt:       time.Now(),
	}

	adj := b.Blend(sig, 1)
	assert.InDelta(t, 0.8*0.9*tunables.MaxSentimentImpact, adj.Sentiment, 1e-12)
	assert.InDelta(t, -0.2*tunables.MaxGeopoliticalImpact, adj.Risk, 1e-12)
	assert.InDelta(t, adj.Sentiment+adj.Risk, adj.Total(), 1e-12)
}

func TestBlender_SentimentDecaysAcrossPeriods(t *testing.T) {
	b := NewBlender(testSignalTunables(t))

	sig := &Signal{Score: 1.0, Confidence: 1.0}

	prev := b.Blend(sig, 1).Sentiment
	for p := 2; p <= 6; p++ {
		cur := b.Blend(sig, p).Sentiment
		assert.LessOrEqual(t, cur, prev, "sentiment must not grow with the horizon")
		assert.Greater(t, cur, 0.0, "decayed sentiment never reaches zero")
		prev = cur
	}

	// Risk drag does not decay with the horizon.
	riskySig := &Signal{Score: 0, Confidence: 0, GeopoliticalRisk: 0.5}
	assert.InDelta(t, b.Blend(riskySig, 1).Risk, b.Blend(riskySig, 5).Risk, 1e-12)
}

func TestBlender_ClampScalesComponentsProportionally(t *testing.T) {
	tunables := testSignalTunables(t)
	// Raise the sentiment cap so a strong signal overshoots the combined clamp.
	tunables.MaxSentimentImpact = 0.08
	b := NewBlender(tunables)

	sig := &Signal{Score: 1.0, Confidence: 1.0, GeopoliticalRisk: 1.0}
	raw := Adjustment{
		Sentiment: 1.0 * 1.0 * tunables.MaxSentimentImpact,
		Risk:      -1.0 * tunables.MaxGeopoliticalImpact,
	}
	require.Greater(t, raw.Total(), tunables.CombinedClamp, "test setup must overshoot the clamp")

	adj := b.Blend(sig, 1)
	assert.InDelta(t, tunables.CombinedClamp, adj.Total(), 1e-12)

	// Proportional scaling preserves the component ratio.
	assert.InDelta(t, raw.Sentiment/raw.Risk, adj.Sentiment/adj.Risk, 1e-9)
}

func TestBlender_NegativeClamp(t *testing.T) {
	tunables := testSignalTunables(t)
	tunables.MaxSentimentImpact = 0.08
	b := NewBlender(tunables)

	sig := &Signal{Score: -1.0, Confidence: 1.0, GeopoliticalRisk: 1.0}
	adj := b.Blend(sig, 1)
	assert.InDelta(t, -tunables.CombinedClamp, adj.Total(), 1e-12)
}

func TestBlender_DefaultBoundsNeverExceedClamp(t *testing.T) {
	tunables := testSignalTunables(t)
	b := NewBlender(tunables)

	extremes := []*Signal{
		{Score: 1, Confidence: 1, GeopoliticalRisk: 0},
		{Score: 1, Confidence: 1, GeopoliticalRisk: 1},
		{Score: -1, Confidence: 1, GeopoliticalRisk: 1},
		{Score: 0, Confidence: 0, GeopoliticalRisk: 1},
	}

	for _, sig := range extremes {
		for p := 1; p <= 5; p++ {
			total := b.Blend(sig, p).Total()
			assert.GreaterOrEqual(t, total, -tunables.CombinedClamp-1e-12)
			assert.LessOrEqual(t, total, tunables.CombinedClamp+1e-12)
		}
	}
}
