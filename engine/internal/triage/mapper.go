package triage

import (
	"sort"
	"strings"

	"github.com/banton/medical-patients-sub001/engine/models"
)

// CategoryInfo is the static metadata of one triage category.
type CategoryInfo struct {
	Name           string
	Color          string
	Priority       int
	Description    string
	MaxWaitMinutes int
}

var categories = map[models.TriageCategory]CategoryInfo{
	models.TriageImmediate: {Name: "Immediate", Color: "red", Priority: 1, Description: "Life-threatening injuries requiring immediate treatment", MaxWaitMinutes: 60},
	models.TriageDelayed:   {Name: "Delayed", Color: "yellow", Priority: 2, Description: "Urgent injuries that can wait a short period", MaxWaitMinutes: 240},
	models.TriageMinimal:   {Name: "Minimal", Color: "green", Priority: 3, Description: "Minor injuries, ambulatory patients", MaxWaitMinutes: 1440},
	models.TriageExpectant: {Name: "Expectant", Color: "black", Priority: 4, Description: "Injuries incompatible with life given resources", MaxWaitMinutes: 0},
}

// immediateOverrides force T1 when matched in an injury description.
var immediateOverrides = []string{
	"arterial_bleeding", "airway_compromise", "tension_pneumothorax",
	"hemorrhagic_shock", "severe_tbi",
}

// expectantOverrides force T4 when matched and health is very low.
var expectantOverrides = []string{
	"massive_head_trauma", "full_thickness_burns_90", "traumatic_arrest",
}

// Result carries the assigned category with its metadata.
type Result struct {
	Category             models.TriageCategory
	Info                 CategoryInfo
	HealthScore          float64
	MassCasualtyAdjusted bool
}

// Mapper assigns military triage categories (T1-T4).
type Mapper struct{}

// NewMapper returns a triage mapper.
func NewMapper() *Mapper { return &Mapper{} }

// Categorize maps health plus injury pattern onto a category. Immediate
// patterns always force T1; expectant patterns force T4 below health 20. Under
// mass-casualty mode borderline cases are downgraded to conserve resources.
func (m *Mapper) Categorize(health float64, severity models.Severity, specificInjuries []string, massCasualty bool) Result {
	category := byHealth(health)

	for _, injury := range specificInjuries {
		il := normalize(injury)
		if matchesAny(il, immediateOverrides) {
			category = models.TriageImmediate
			break
		}
		if health < 20 && matchesAny(il, expectantOverrides) {
			category = models.TriageExpectant
			break
		}
	}

	if massCasualty {
		category = adjustForMassCasualty(category, health, severity)
	}

	return Result{
		Category:             category,
		Info:                 categories[category],
		HealthScore:          health,
		MassCasualtyAdjusted: massCasualty,
	}
}

func byHealth(health float64) models.TriageCategory {
	switch {
	case health < 10:
		return models.TriageExpectant
	case health < 40:
		return models.TriageImmediate
	case health < 70:
		return models.TriageDelayed
	default:
		return models.TriageMinimal
	}
}

func adjustForMassCasualty(category models.TriageCategory, health float64, severity models.Severity) models.TriageCategory {
	if category == models.TriageImmediate && health < 15 && severity == models.SeveritySevere {
		return models.TriageExpectant
	}
	if category == models.TriageDelayed && health > 65 && severity == models.SeverityMildToModerate {
		return models.TriageMinimal
	}
	return category
}

// Info returns the metadata of a category.
func (m *Mapper) Info(category models.TriageCategory) CategoryInfo {
	return categories[category]
}

// Prioritize stably sorts patients by (category priority ascending, current
// health ascending): the neediest within the most urgent category first.
func (m *Mapper) Prioritize(patients []*models.Patient) []*models.Patient {
	out := append([]*models.Patient(nil), patients...)
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := models.TriagePriority(out[i].Triage), models.TriagePriority(out[j].Triage)
		if pi != pj {
			return pi < pj
		}
		return out[i].CurrentHealth < out[j].CurrentHealth
	})
	return out
}

// EstimateSurvival gives a rough survival probability for a category under a
// given queue wait; treatment improves the odds.
func (m *Mapper) EstimateSurvival(category models.TriageCategory, waitMinutes int, treated bool) float64 {
	base := map[models.TriageCategory]float64{
		models.TriageImmediate: 0.7,
		models.TriageDelayed:   0.9,
		models.TriageMinimal:   0.99,
		models.TriageExpectant: 0.05,
	}
	prob, ok := base[category]
	if !ok {
		prob = 0.5
	}
	maxWait := categories[category].MaxWaitMinutes
	if maxWait > 0 && waitMinutes > maxWait {
		prob *= float64(maxWait) / float64(waitMinutes)
	}
	if treated {
		prob *= 1.2
	}
	if prob > 1 {
		prob = 1
	}
	if prob < 0 {
		prob = 0
	}
	return prob
}

func normalize(injury string) string {
	return strings.ReplaceAll(strings.ToLower(injury), " ", "_")
}

func matchesAny(injury string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(injury, p) {
			return true
		}
	}
	return false
}
