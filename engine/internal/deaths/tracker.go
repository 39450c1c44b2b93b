package deaths

import (
	"time"

	"github.com/banton/medical-patients-sub001/engine/models"
)

const goldenHourMinutes = 60

// Info describes a death for categorization.
type Info struct {
	PatientID          string
	InjuryType         models.InjuryType
	Location           string
	TimeOfDeathMinutes float64 // minutes since injury
	DiedAt             time.Time
	InitialHealth      float64
	TreatmentCount     int
	Cause              string
}

// Record is one tracked death.
type Record struct {
	PatientID          string               `json:"patient_id"`
	Category           models.DeathCategory `json:"death_category"`
	TimeOfDeathMinutes float64              `json:"time_of_death"`
	DiedAt             time.Time            `json:"died_at"`
	Location           string               `json:"location_of_death"`
	Preventable        bool                 `json:"preventable"`
	InjuryType         models.InjuryType    `json:"injury_type"`
	InitialHealth      float64              `json:"initial_health"`
	Cause              string               `json:"cause"`
}

// Statistics aggregates tracked deaths.
type Statistics struct {
	TotalDeaths      int                          `json:"total_deaths"`
	ByCategory       map[models.DeathCategory]int `json:"by_category"`
	PreventableCount int                          `json:"preventable_deaths"`
	PreventableRatio float64                      `json:"preventable_ratio"`
}

// Tracker classifies and accumulates fatality records.
type Tracker struct {
	records []Record
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker { return &Tracker{} }

// Categorize applies the military reporting matrix: KIA for battle deaths at
// POI, DOW for battle deaths in the chain, DNB for disease, Non-Battle Death
// otherwise.
func Categorize(injuryType models.InjuryType, location string) models.DeathCategory {
	switch injuryType {
	case models.InjuryDisease:
		return models.DeathDNB
	case models.InjuryNonBattle:
		return models.DeathNonBattle
	case models.InjuryBattle:
		if location == models.LocationPOI {
			return models.DeathKIA
		}
		return models.DeathDOW
	}
	return models.DeathNonBattle
}

// Preventable applies the heuristic: a death is potentially preventable only
// when initial health was viable (>= 20), it occurred within the golden hour,
// and no treatment was ever applied.
func Preventable(info Info) bool {
	if info.InitialHealth < 20 {
		return false
	}
	if info.TimeOfDeathMinutes > goldenHourMinutes {
		return false
	}
	return info.TreatmentCount == 0
}

// Track records a death and returns its record.
func (t *Tracker) Track(info Info) Record {
	record := Record{
		PatientID:          info.PatientID,
		Category:           Categorize(info.InjuryType, info.Location),
		TimeOfDeathMinutes: info.TimeOfDeathMinutes,
		DiedAt:             info.DiedAt,
		Location:           info.Location,
		Preventable:        Preventable(info),
		InjuryType:         info.InjuryType,
		InitialHealth:      info.InitialHealth,
		Cause:              info.Cause,
	}
	t.records = append(t.records, record)
	return record
}

// Records returns a copy of all tracked deaths.
func (t *Tracker) Records() []Record {
	return append([]Record(nil), t.records...)
}

// Statistics aggregates totals by category and preventability.
func (t *Tracker) Statistics() Statistics {
	stats := Statistics{
		ByCategory: map[models.DeathCategory]int{
			models.DeathKIA:       0,
			models.DeathDOW:       0,
			models.DeathDNB:       0,
			models.DeathNonBattle: 0,
		},
	}
	for _, r := range t.records {
		stats.TotalDeaths++
		stats.ByCategory[r.Category]++
		if r.Preventable {
			stats.PreventableCount++
		}
	}
	if stats.TotalDeaths > 0 {
		stats.PreventableRatio = float64(stats.PreventableCount) / float64(stats.TotalDeaths)
	}
	return stats
}
