package triage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/banton/medical-patients-sub001/engine/models"
)

func TestCategorizeByHealth(t *testing.T) {
	m := NewMapper()
	cases := []struct {
		health float64
		want   models.TriageCategory
	}{
		{5, models.TriageExpectant},
		{9.9, models.TriageExpectant},
		{10, models.TriageImmediate},
		{39, models.TriageImmediate},
		{40, models.TriageDelayed},
		{69, models.TriageDelayed},
		{70, models.TriageMinimal},
		{100, models.TriageMinimal},
	}
	for _, tc := range cases {
		got := m.Categorize(tc.health, models.SeverityModerate, nil, false)
		assert.Equal(t, tc.want, got.Category, "health %v", tc.health)
	}
}

func TestCategorizeInjuryOverrides(t *testing.T) {
	m := NewMapper()

	t.Run("immediate patterns force T1", func(t *testing.T) {
		got := m.Categorize(85, models.SeverityModerate, []string{"arterial bleeding"}, false)
		assert.Equal(t, models.TriageImmediate, got.Category)

		got = m.Categorize(50, models.SeveritySevere, []string{"tension_pneumothorax"}, false)
		assert.Equal(t, models.TriageImmediate, got.Category)
	})

	t.Run("expectant patterns need very low health", func(t *testing.T) {
		got := m.Categorize(15, models.SeveritySevere, []string{"massive head trauma"}, false)
		assert.Equal(t, models.TriageExpectant, got.Category)

		// At health 30 the expectant override does not fire.
		got = m.Categorize(30, models.SeveritySevere, []string{"massive head trauma"}, false)
		assert.Equal(t, models.TriageImmediate, got.Category)
	})
}

func TestMassCasualtyAdjustments(t *testing.T) {
	m := NewMapper()

	t.Run("borderline T1 becomes expectant", func(t *testing.T) {
		got := m.Categorize(12, models.SeveritySevere, nil, true)
		assert.Equal(t, models.TriageExpectant, got.Category)
		assert.True(t, got.MassCasualtyAdjusted)
	})

	t.Run("walking wounded T2 becomes T3", func(t *testing.T) {
		got := m.Categorize(67, models.SeverityMildToModerate, nil, true)
		assert.Equal(t, models.TriageMinimal, got.Category)
	})

	t.Run("solid T1 stays T1", func(t *testing.T) {
		got := m.Categorize(25, models.SeveritySevere, nil, true)
		assert.Equal(t, models.TriageImmediate, got.Category)
	})
}

func TestPrioritizeStableSort(t *testing.T) {
	m := NewMapper()
	patients := []*models.Patient{
		{ID: "a", Triage: models.TriageDelayed, CurrentHealth: 60},
		{ID: "b", Triage: models.TriageImmediate, CurrentHealth: 25},
		{ID: "c", Triage: models.TriageMinimal, CurrentHealth: 80},
		{ID: "d", Triage: models.TriageImmediate, CurrentHealth: 15},
		{ID: "e", Triage: models.TriageDelayed, CurrentHealth: 60},
	}
	sorted := m.Prioritize(patients)

	ids := make([]string, len(sorted))
	for i, p := range sorted {
		ids[i] = p.ID
	}
	// Category priority first, health ascending within, stable for ties.
	assert.Equal(t, []string{"d", "b", "a", "e", "c"}, ids)

	// Input order untouched.
	assert.Equal(t, "a", patients[0].ID)
}

func TestEstimateSurvival(t *testing.T) {
	m := NewMapper()

	base := m.EstimateSurvival(models.TriageImmediate, 30, false)
	assert.InDelta(t, 0.7, base, 0.001)

	late := m.EstimateSurvival(models.TriageImmediate, 120, false)
	assert.Less(t, late, base)

	treated := m.EstimateSurvival(models.TriageImmediate, 30, true)
	assert.Greater(t, treated, base)

	minimal := m.EstimateSurvival(models.TriageMinimal, 10, true)
	assert.LessOrEqual(t, minimal, 1.0)
}

func TestInfo(t *testing.T) {
	m := NewMapper()
	info := m.Info(models.TriageImmediate)
	assert.Equal(t, "Immediate", info.Name)
	assert.Equal(t, 1, info.Priority)
	assert.Equal(t, 60, info.MaxWaitMinutes)
}
