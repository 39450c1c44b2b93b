package deterioration

import (
	"math"
	"strings"

	"github.com/banton/medical-patients-sub001/engine/config"
	"github.com/banton/medical-patients-sub001/engine/models"
)

// hemorrhageLexicon flags injury descriptions involving significant bleeding.
var hemorrhageLexicon = []string{
	"hemorrhage", "bleeding", "laceration", "amputation",
	"arterial", "vascular", "penetrating", "gunshot",
}

// injuryTypeWindowMultipliers scale stabilization windows by injury origin.
var injuryTypeWindowMultipliers = map[models.InjuryType]float64{
	models.InjuryBattle:    1.0,
	models.InjuryNonBattle: 1.5,
	models.InjuryDisease:   3.0,
}

// Injury describes one of possibly several injuries on a patient.
type Injury struct {
	Type        models.InjuryType
	Severity    models.Severity
	Description string
}

// StabilizationWindow holds the time-critical care windows in minutes.
type StabilizationWindow struct {
	Platinum10        float64 `json:"platinum_10_minutes"`
	GoldenHour        float64 `json:"golden_hour"`
	MaximumSurvivable float64 `json:"maximum_survivable"`
}

// InterventionPoint marks when a patient crosses a care threshold absent
// treatment.
type InterventionPoint struct {
	HealthThreshold float64 `json:"health_threshold"`
	TimeHours       float64 `json:"time_hours"`
	Category        string  `json:"category"`
	Description     string  `json:"description"`
}

// Calculator derives per-hour health-loss rates from the injury catalog.
type Calculator struct {
	model config.InjuryModel
	env   map[string]config.EnvironmentModifier
}

// NewCalculator builds a calculator over the given catalog.
func NewCalculator(cat *config.Catalog) *Calculator {
	return &Calculator{model: cat.DeteriorationModel, env: cat.EnvironmentalModifiers}
}

const defaultRate = 5.0

// BaseRate returns the hourly deterioration for an injury profile. When any of
// the supplied injury descriptions matches the hemorrhage lexicon the
// band-specific multiplier is applied once.
func (c *Calculator) BaseRate(injuryType models.InjuryType, severity models.Severity, injuries []Injury) float64 {
	bands, ok := c.model[string(injuryType)]
	if !ok {
		return defaultRate
	}
	profile, ok := bands[string(severity)]
	if !ok {
		return defaultRate
	}
	rate := profile.DeteriorationRate
	if rate == 0 {
		rate = defaultRate
	}
	for _, inj := range injuries {
		if hasHemorrhage(inj.Description) {
			mult := profile.HemorrhageMultiplier
			if mult == 0 {
				mult = 1.5
			}
			rate *= mult
			break // applied once
		}
	}
	return math.Min(100, rate)
}

func hasHemorrhage(description string) bool {
	text := strings.ToLower(description)
	for _, kw := range hemorrhageLexicon {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// Compound combines multiple injuries: the strongest rate drives, each
// secondary contributes 0.3x, capped at 100.
func (c *Calculator) Compound(injuries []Injury) float64 {
	if len(injuries) == 0 {
		return 0
	}
	primary := 0.0
	secondary := 0.0
	for _, inj := range injuries {
		rate := c.BaseRate(inj.Type, inj.Severity, nil)
		if rate > primary {
			if primary > 0 {
				secondary += primary * 0.3
			}
			primary = rate
		} else {
			secondary += rate * 0.3
		}
	}
	return math.Min(100, primary+secondary)
}

// Environmental multiplies the rate by each active condition's modifier.
func (c *Calculator) Environmental(rate float64, conditions []string) float64 {
	for _, cond := range conditions {
		if mod, ok := c.env[cond]; ok && mod.DeteriorationMultiplier > 0 {
			rate *= mod.DeteriorationMultiplier
		}
	}
	return rate
}

// TriageMultiplier accelerates deterioration for more urgent categories.
func (c *Calculator) TriageMultiplier(rate float64, category models.TriageCategory) float64 {
	switch category {
	case models.TriageImmediate:
		return rate * 1.3
	case models.TriageExpectant:
		return rate * 1.5
	case models.TriageDelayed:
		return rate * 1.1
	default:
		return rate
	}
}

// Window returns the stabilization windows for an injury profile, scaled by
// the injury-type multiplier.
func (c *Calculator) Window(injuryType models.InjuryType, severity models.Severity) StabilizationWindow {
	base := map[models.Severity]StabilizationWindow{
		models.SeveritySevere:           {Platinum10: 10, GoldenHour: 60, MaximumSurvivable: 180},
		models.SeverityModerateToSevere: {Platinum10: 15, GoldenHour: 90, MaximumSurvivable: 360},
		models.SeverityModerate:         {Platinum10: 30, GoldenHour: 180, MaximumSurvivable: 720},
		models.SeverityMildToModerate:   {Platinum10: 60, GoldenHour: 360, MaximumSurvivable: 1440},
	}
	w, ok := base[severity]
	if !ok {
		w = base[models.SeverityModerate]
	}
	mult, ok := injuryTypeWindowMultipliers[injuryType]
	if !ok {
		mult = 1.0
	}
	return StabilizationWindow{
		Platinum10:        w.Platinum10 * mult,
		GoldenHour:        w.GoldenHour * mult,
		MaximumSurvivable: w.MaximumSurvivable * mult,
	}
}

// InterventionPoints lists the hours until the patient crosses each care
// threshold at a constant rate.
func (c *Calculator) InterventionPoints(rate, initialHealth float64) []InterventionPoint {
	thresholds := []struct {
		threshold   float64
		category    string
		description string
	}{
		{70, "preventive_care", "Preventive interventions recommended"},
		{50, "urgent_treatment", "Urgent treatment required"},
		{30, "critical_intervention", "Critical intervention needed"},
		{10, "life_saving", "Immediate life-saving measures required"},
		{0, "death", "Patient death without intervention"},
	}
	points := make([]InterventionPoint, 0, len(thresholds))
	for _, t := range thresholds {
		if initialHealth <= t.threshold {
			continue // already below
		}
		hours := math.Inf(1)
		if rate > 0 {
			hours = (initialHealth - t.threshold) / rate
		}
		points = append(points, InterventionPoint{
			HealthThreshold: t.threshold,
			TimeHours:       math.Round(hours*100) / 100,
			Category:        t.category,
			Description:     t.description,
		})
	}
	return points
}
