package deterioration

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banton/medical-patients-sub001/engine/config"
	"github.com/banton/medical-patients-sub001/engine/models"
)

func newCalculator(t *testing.T) *Calculator {
	t.Helper()
	return NewCalculator(config.Default())
}

func TestBaseRate(t *testing.T) {
	calc := newCalculator(t)

	t.Run("severe battle injury", func(t *testing.T) {
		rate := calc.BaseRate(models.InjuryBattle, models.SeveritySevere, nil)
		assert.InDelta(t, 30.0, rate, 0.001)
	})

	t.Run("unknown profile falls back to default", func(t *testing.T) {
		rate := calc.BaseRate(models.InjuryType("Alien Injury"), models.SeveritySevere, nil)
		assert.InDelta(t, 5.0, rate, 0.001)
	})

	t.Run("hemorrhage multiplier applied once", func(t *testing.T) {
		injuries := []Injury{
			{Description: "Gunshot wound with arterial bleeding"},
			{Description: "Laceration of forearm"},
		}
		rate := calc.BaseRate(models.InjuryBattle, models.SeveritySevere, injuries)
		assert.InDelta(t, 45.0, rate, 0.001) // 30 * 1.5, not squared
	})

	t.Run("non hemorrhage description unchanged", func(t *testing.T) {
		injuries := []Injury{{Description: "Closed fracture of tibia"}}
		rate := calc.BaseRate(models.InjuryBattle, models.SeveritySevere, injuries)
		assert.InDelta(t, 30.0, rate, 0.001)
	})
}

func TestCompound(t *testing.T) {
	calc := newCalculator(t)

	t.Run("empty list", func(t *testing.T) {
		assert.Zero(t, calc.Compound(nil))
	})

	t.Run("primary plus diminished secondaries", func(t *testing.T) {
		injuries := []Injury{
			{Type: models.InjuryBattle, Severity: models.SeveritySevere},
			{Type: models.InjuryBattle, Severity: models.SeverityModerate},
		}
		rate := calc.Compound(injuries)
		assert.InDelta(t, 30.0+8.0*0.3, rate, 0.001)
	})

	t.Run("primary replacement demotes previous primary", func(t *testing.T) {
		injuries := []Injury{
			{Type: models.InjuryBattle, Severity: models.SeverityModerate},
			{Type: models.InjuryBattle, Severity: models.SeveritySevere},
		}
		rate := calc.Compound(injuries)
		assert.InDelta(t, 30.0+8.0*0.3, rate, 0.001)
	})

	t.Run("capped at 100", func(t *testing.T) {
		var injuries []Injury
		for i := 0; i < 20; i++ {
			injuries = append(injuries, Injury{Type: models.InjuryBattle, Severity: models.SeveritySevere})
		}
		assert.InDelta(t, 100.0, calc.Compound(injuries), 0.001)
	})
}

func TestEnvironmental(t *testing.T) {
	calc := newCalculator(t)
	rate := calc.Environmental(30, []string{"extreme_cold", "high_altitude"})
	assert.InDelta(t, 30*1.2*1.1, rate, 0.001)

	unknown := calc.Environmental(30, []string{"meteor_shower"})
	assert.InDelta(t, 30.0, unknown, 0.001)
}

func TestTriageMultiplier(t *testing.T) {
	calc := newCalculator(t)
	assert.InDelta(t, 13.0, calc.TriageMultiplier(10, models.TriageImmediate), 0.001)
	assert.InDelta(t, 11.0, calc.TriageMultiplier(10, models.TriageDelayed), 0.001)
	assert.InDelta(t, 10.0, calc.TriageMultiplier(10, models.TriageMinimal), 0.001)
	assert.InDelta(t, 15.0, calc.TriageMultiplier(10, models.TriageExpectant), 0.001)
}

func TestWindow(t *testing.T) {
	calc := newCalculator(t)

	severe := calc.Window(models.InjuryBattle, models.SeveritySevere)
	assert.Equal(t, StabilizationWindow{Platinum10: 10, GoldenHour: 60, MaximumSurvivable: 180}, severe)

	disease := calc.Window(models.InjuryDisease, models.SeveritySevere)
	assert.Equal(t, StabilizationWindow{Platinum10: 30, GoldenHour: 180, MaximumSurvivable: 540}, disease)

	unknownBand := calc.Window(models.InjuryBattle, models.Severity("weird"))
	assert.Equal(t, StabilizationWindow{Platinum10: 30, GoldenHour: 180, MaximumSurvivable: 720}, unknownBand)
}

func TestInterventionPoints(t *testing.T) {
	calc := newCalculator(t)

	points := calc.InterventionPoints(30, 60)
	require.Len(t, points, 4) // 70 is already crossed

	assert.Equal(t, "urgent_treatment", points[0].Category)
	assert.InDelta(t, 0.33, points[0].TimeHours, 0.001)
	assert.Equal(t, "death", points[3].Category)
	assert.InDelta(t, 2.0, points[3].TimeHours, 0.001)

	t.Run("zero rate never crosses", func(t *testing.T) {
		points := calc.InterventionPoints(0, 60)
		for _, p := range points {
			assert.True(t, math.IsInf(p.TimeHours, 1) || p.TimeHours > 1e9)
		}
	})
}
