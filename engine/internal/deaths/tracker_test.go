package deaths

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/banton/medical-patients-sub001/engine/models"
)

func TestCategorize(t *testing.T) {
	cases := []struct {
		injury   models.InjuryType
		location string
		want     models.DeathCategory
	}{
		{models.InjuryBattle, models.LocationPOI, models.DeathKIA},
		{models.InjuryBattle, models.FacilityRole1, models.DeathDOW},
		{models.InjuryBattle, models.FacilityRole3, models.DeathDOW},
		{models.InjuryBattle, models.LocationInTransit, models.DeathDOW},
		{models.InjuryDisease, models.LocationPOI, models.DeathDNB},
		{models.InjuryDisease, models.FacilityRole2, models.DeathDNB},
		{models.InjuryNonBattle, models.LocationPOI, models.DeathNonBattle},
		{models.InjuryType("Unknown"), models.LocationPOI, models.DeathNonBattle},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Categorize(tc.injury, tc.location), "%s at %s", tc.injury, tc.location)
	}
}

func TestPreventable(t *testing.T) {
	t.Run("early untreated viable death is preventable", func(t *testing.T) {
		assert.True(t, Preventable(Info{InitialHealth: 45, TimeOfDeathMinutes: 40, TreatmentCount: 0}))
	})
	t.Run("expectant initial health is not", func(t *testing.T) {
		assert.False(t, Preventable(Info{InitialHealth: 15, TimeOfDeathMinutes: 40, TreatmentCount: 0}))
	})
	t.Run("after golden hour is not", func(t *testing.T) {
		assert.False(t, Preventable(Info{InitialHealth: 45, TimeOfDeathMinutes: 90, TreatmentCount: 0}))
	})
	t.Run("treated death is not", func(t *testing.T) {
		assert.False(t, Preventable(Info{InitialHealth: 45, TimeOfDeathMinutes: 40, TreatmentCount: 2}))
	})
}

func TestTrackAndStatistics(t *testing.T) {
	tr := NewTracker()

	assert.Equal(t, 0, tr.Statistics().TotalDeaths)

	now := time.Now()
	record := tr.Track(Info{
		PatientID:          "p1",
		InjuryType:         models.InjuryBattle,
		Location:           models.LocationPOI,
		TimeOfDeathMinutes: 30,
		DiedAt:             now,
		InitialHealth:      50,
		Cause:              "deterioration",
	})
	assert.Equal(t, models.DeathKIA, record.Category)
	assert.True(t, record.Preventable)

	tr.Track(Info{PatientID: "p2", InjuryType: models.InjuryDisease, Location: models.FacilityRole1, TimeOfDeathMinutes: 600, InitialHealth: 50})
	tr.Track(Info{PatientID: "p3", InjuryType: models.InjuryBattle, Location: models.LocationInTransit, TimeOfDeathMinutes: 100, InitialHealth: 10})

	stats := tr.Statistics()
	assert.Equal(t, 3, stats.TotalDeaths)
	assert.Equal(t, 1, stats.ByCategory[models.DeathKIA])
	assert.Equal(t, 1, stats.ByCategory[models.DeathDNB])
	assert.Equal(t, 1, stats.ByCategory[models.DeathDOW])
	assert.Equal(t, 1, stats.PreventableCount)
	assert.InDelta(t, 1.0/3.0, stats.PreventableRatio, 0.001)

	assert.Len(t, tr.Records(), 3)
}
