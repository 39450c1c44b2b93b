package health

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banton/medical-patients-sub001/engine/config"
	"github.com/banton/medical-patients-sub001/engine/models"
)

func newEngine(seed int64) *Engine {
	return NewEngine(config.Default(), rand.New(rand.NewSource(seed)))
}

func TestInitialHealth(t *testing.T) {
	e := newEngine(7)

	t.Run("band mean with variance", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			h := e.InitialHealth(models.InjuryBattle, models.SeveritySevere, 9, "")
			assert.GreaterOrEqual(t, h, 35.0)
			assert.LessOrEqual(t, h, 45.0)
		}
	})

	t.Run("specific condition override", func(t *testing.T) {
		h := e.InitialHealth(models.InjuryBattle, models.SeveritySevere, 9, "Penetrating head injury")
		assert.Equal(t, 25.0, h)
	})

	t.Run("unknown profile falls back to score buckets", func(t *testing.T) {
		cases := []struct {
			score  int
			lo, hi float64
		}{
			{10, 30, 50},
			{8, 50, 65},
			{5, 70, 85},
			{2, 85, 95},
		}
		for _, tc := range cases {
			for i := 0; i < 20; i++ {
				h := e.InitialHealth(models.InjuryType("Unknown"), models.SeveritySevere, tc.score, "")
				assert.GreaterOrEqual(t, h, tc.lo, "score %d", tc.score)
				assert.LessOrEqual(t, h, tc.hi, "score %d", tc.score)
			}
		}
	})
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, StatusDead, StatusFor(0))
	assert.Equal(t, StatusCritical, StatusFor(9))
	assert.Equal(t, StatusUnstable, StatusFor(39))
	assert.Equal(t, StatusStable, StatusFor(69))
	assert.Equal(t, StatusGood, StatusFor(70))
}

func TestTimelineConstantRateRoundTrip(t *testing.T) {
	e := newEngine(1)

	// Before the golden-hour boundary deterioration is exactly rate * hours.
	timeline := e.Timeline(80, 1, 10, nil)
	require.Len(t, timeline, 2)
	assert.Equal(t, 80.0, timeline[0].Health)
	assert.Equal(t, 70.0, timeline[1].Health)
	assert.InDelta(t, 10.0, timeline[1].EffectiveRate, 0.001)

	// Past the boundary the configured ramp applies.
	timeline = e.Timeline(80, 2, 10, nil)
	require.Len(t, timeline, 3)
	assert.InDelta(t, 17.0, timeline[2].EffectiveRate, 0.001) // 1.5 + 1/5*(2.5-1.5) = 1.7
}

func TestTimelineStopsAtDeath(t *testing.T) {
	e := newEngine(1)
	timeline := e.Timeline(25, 12, 30, nil)
	last := timeline[len(timeline)-1]
	assert.Equal(t, 0.0, last.Health)
	assert.Equal(t, StatusDead, last.Status)
	assert.Less(t, last.Hour, 12)
}

func TestTimelineModifiers(t *testing.T) {
	e := newEngine(1)
	mods := []Modifier{{Hour: 1, Kind: "treatment", Factor: 0.5}}
	timeline := e.Timeline(80, 1, 10, mods)
	require.Len(t, timeline, 2)
	assert.Equal(t, 75.0, timeline[1].Health) // 10 * 0.5
}

func TestTimelineHealthBounds(t *testing.T) {
	e := newEngine(3)
	timeline := e.Timeline(90, 10, 25, nil)
	for _, entry := range timeline {
		assert.GreaterOrEqual(t, entry.Health, 0.0)
		assert.LessOrEqual(t, entry.Health, 100.0)
	}
}

func TestApplyTreatmentEffect(t *testing.T) {
	e := newEngine(1)

	h, mod := e.ApplyTreatmentEffect(30, "tourniquet", 0, 0)
	assert.Equal(t, 35.0, h)
	assert.Equal(t, 0.2, mod)

	h, mod = e.ApplyTreatmentEffect(95, "surgery", 0, 0)
	assert.Equal(t, 100.0, h) // clamped
	assert.Equal(t, 0.1, mod)

	h, mod = e.ApplyTreatmentEffect(50, "unknown_treatment", 0, 0)
	assert.Equal(t, 50.0, h)
	assert.Equal(t, 1.0, mod)

	h, mod = e.ApplyTreatmentEffect(50, "whatever", 12, 0.4)
	assert.Equal(t, 62.0, h)
	assert.Equal(t, 0.4, mod)
}

func TestPredictOutcome(t *testing.T) {
	e := newEngine(1)

	assert.Equal(t, "unknown", e.PredictOutcome(nil).Outcome)

	death := e.PredictOutcome([]TimelineEntry{{Hour: 3, Health: 0}})
	assert.Equal(t, "death", death.Outcome)
	assert.Equal(t, string(models.DeathDOW), death.Category)

	critical := e.PredictOutcome([]TimelineEntry{{Hour: 5, Health: 20}})
	assert.Equal(t, "critical_survival", critical.Outcome)
	assert.True(t, critical.NeedsEvac)

	stable := e.PredictOutcome([]TimelineEntry{{Hour: 5, Health: 85}})
	assert.Equal(t, "stable_survival", stable.Outcome)
	assert.True(t, stable.RTDEligible)
}
