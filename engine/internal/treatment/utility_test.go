package treatment

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banton/medical-patients-sub001/engine/config"
	"github.com/banton/medical-patients-sub001/engine/models"
)

func newModel(seed int64) *UtilityModel {
	return NewUtilityModel(config.Default(), NewProtocolManager(), rand.New(rand.NewSource(seed)))
}

func TestUtilityComponents(t *testing.T) {
	m := newModel(1)

	t.Run("clamped to unit interval", func(t *testing.T) {
		u := m.Utility("tourniquet", "262574004", models.SeveritySevere, "POI", 0, 100)
		assert.Greater(t, u, 0.0)
		assert.LessOrEqual(t, u, 1.0)
	})

	t.Run("urgency decays past the golden window", func(t *testing.T) {
		early := m.Utility("tourniquet", "262574004", models.SeveritySevere, "POI", 0, 100)
		late := m.Utility("tourniquet", "262574004", models.SeveritySevere, "POI", 90, 100)
		assert.Greater(t, early, late)
	})

	t.Run("capability is binary", func(t *testing.T) {
		withCap := m.Utility("blood_transfusion", "262574004", models.SeveritySevere, "Role2", 0, 100)
		withoutCap := m.Utility("blood_transfusion", "262574004", models.SeveritySevere, "POI", 0, 100)
		assert.Greater(t, withCap, withoutCap)
	})

	t.Run("wildcard facility capability", func(t *testing.T) {
		u := m.Utility("definitive_surgery", "262574004", models.SeveritySevere, "Role3", 0, 100)
		assert.Greater(t, u, 0.2)
	})

	t.Run("scarce supplies depress availability", func(t *testing.T) {
		rich := m.Utility("blood_transfusion", "262574004", models.SeveritySevere, "Role2", 0, 100)
		poor := m.Utility("blood_transfusion", "262574004", models.SeveritySevere, "Role2", 0, 5)
		assert.Greater(t, rich, poor)
	})
}

func TestProbabilitiesNormalize(t *testing.T) {
	m := newModel(1)
	probs := m.Probabilities([]float64{0.9, 0.5, 0.3})
	sum := 0.0
	for _, p := range probs {
		assert.Greater(t, p, 0.0)
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	// Higher utility gets higher probability.
	assert.Greater(t, probs[0], probs[1])
	assert.Greater(t, probs[1], probs[2])
}

func TestSelectReproducibleForSeed(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a := newModel(42).Select("262574004", models.SeveritySevere, "POI", 10, 100, 3, now)
	b := newModel(42).Select("262574004", models.SeveritySevere, "POI", 10, 100, 3, now)
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].Name, b[i].Name)
		assert.Equal(t, a[i].UtilityScore, b[i].UtilityScore)
	}
}

func TestSelectSortedByUtility(t *testing.T) {
	now := time.Now()
	selections := newModel(7).Select("262574004", models.SeveritySevere, "POI", 0, 100, 3, now)
	require.NotEmpty(t, selections)
	for i := 1; i < len(selections); i++ {
		assert.GreaterOrEqual(t, selections[i-1].UtilityScore, selections[i].UtilityScore)
	}
}

func TestSelectHardFiltersContraindications(t *testing.T) {
	now := time.Now()
	for seed := int64(0); seed < 10; seed++ {
		selections := newModel(seed).Select("19130008", models.SeveritySevere, "POI", 0, 100, 3, now)
		for _, s := range selections {
			assert.NotEqual(t, "tourniquet", s.Name)
			assert.NotEqual(t, "morphine", s.Name)
		}
	}
}

func TestSelectFallbacks(t *testing.T) {
	now := time.Now()
	m := newModel(1)

	t.Run("facility with no capabilities gets its fallback", func(t *testing.T) {
		selections := m.Select("99999999", models.SeverityModerate, "FieldTent", 0, 100, 3, now)
		require.Len(t, selections, 1)
		assert.Equal(t, "supportive_care", selections[0].Name)
	})

	t.Run("stress codes fall back to psychological first aid", func(t *testing.T) {
		// Drive the only candidate below the viability floor: zero
		// appropriateness, expired golden window, no supplies, no facility
		// capability.
		cat := config.Default()
		cat.TreatmentUtility.AppropriatenessMatrix["45170000"]["psychological_first_aid"] = 0
		cat.TreatmentUtility.GoldenWindowTreatments["psychological_first_aid"] = config.GoldenWindow{MaxMinutes: 1, DecayRate: 1}
		caps := cat.TreatmentUtility.FacilityCapabilities["POI"]
		trimmed := caps[:0]
		for _, c := range caps {
			if c != "psychological_first_aid" {
				trimmed = append(trimmed, c)
			}
		}
		cat.TreatmentUtility.FacilityCapabilities["POI"] = trimmed

		model := NewUtilityModel(cat, NewProtocolManager(), rand.New(rand.NewSource(1)))
		selections := model.Select("45170000", models.SeveritySevere, "POI", 120, 0, 3, now)
		require.Len(t, selections, 1)
		assert.Equal(t, "psychological_first_aid", selections[0].Name)
	})
}

func TestValidate(t *testing.T) {
	m := newModel(1)

	ok, reason := m.Validate("tourniquet", "19130008", "POI")
	assert.False(t, ok)
	assert.Equal(t, "contraindicated", reason)

	ok, reason = m.Validate("blood_transfusion", "262574004", "POI")
	assert.False(t, ok)
	assert.Equal(t, "not available at facility", reason)

	ok, _ = m.Validate("tourniquet", "262574004", "POI")
	assert.True(t, ok)
}
