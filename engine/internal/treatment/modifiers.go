package treatment

import (
	"math"
	"strings"
)

// Effect describes what applying a treatment does to a patient.
type Effect struct {
	HealthBoost           float64
	DeteriorationModifier float64
	DurationHours         int
	FacilityRequired      Echelon
	TimeToApplyMinutes    int
}

// effects is the built-in intervention table by treatment name.
var effects = map[string]Effect{
	// Immediate interventions (POI / any)
	"tourniquet":       {HealthBoost: 15, DeteriorationModifier: 0.3, DurationHours: 2, FacilityRequired: EchelonPOI, TimeToApplyMinutes: 1},
	"pressure_bandage": {HealthBoost: 10, DeteriorationModifier: 0.4, DurationHours: 4, FacilityRequired: EchelonPOI, TimeToApplyMinutes: 2},
	"hemostatic_gauze": {HealthBoost: 12, DeteriorationModifier: 0.35, DurationHours: 6, FacilityRequired: EchelonPOI, TimeToApplyMinutes: 3},
	"airway_positioning": {HealthBoost: 8, DeteriorationModifier: 0.5, DurationHours: 2, FacilityRequired: EchelonPOI, TimeToApplyMinutes: 1},

	// Basic medical care (Role1+)
	"iv_access":   {HealthBoost: 5, DeteriorationModifier: 0.8, DurationHours: 8, FacilityRequired: EchelonRole1, TimeToApplyMinutes: 3},
	"iv_fluids":   {HealthBoost: 20, DeteriorationModifier: 0.6, DurationHours: 8, FacilityRequired: EchelonRole1, TimeToApplyMinutes: 5},
	"morphine":    {HealthBoost: 5, DeteriorationModifier: 0.9, DurationHours: 4, FacilityRequired: EchelonRole1, TimeToApplyMinutes: 2},
	"antibiotics": {HealthBoost: 8, DeteriorationModifier: 0.8, DurationHours: 24, FacilityRequired: EchelonRole1, TimeToApplyMinutes: 5},
	"pain_management": {HealthBoost: 5, DeteriorationModifier: 0.9, DurationHours: 4, FacilityRequired: EchelonRole1, TimeToApplyMinutes: 2},
	"oral_rehydration": {HealthBoost: 10, DeteriorationModifier: 0.7, DurationHours: 8, FacilityRequired: EchelonPOI, TimeToApplyMinutes: 5},
	"psychological_first_aid": {HealthBoost: 10, DeteriorationModifier: 0.8, DurationHours: 12, FacilityRequired: EchelonPOI, TimeToApplyMinutes: 15},
	"needle_decompression": {HealthBoost: 18, DeteriorationModifier: 0.4, DurationHours: 6, FacilityRequired: EchelonRole1, TimeToApplyMinutes: 3},

	// Advanced interventions (Role2+)
	"blood_transfusion":      {HealthBoost: 30, DeteriorationModifier: 0.4, DurationHours: 12, FacilityRequired: EchelonRole2, TimeToApplyMinutes: 15},
	"chest_tube":             {HealthBoost: 25, DeteriorationModifier: 0.3, DurationHours: 48, FacilityRequired: EchelonRole2, TimeToApplyMinutes: 10},
	"intubation":             {HealthBoost: 15, DeteriorationModifier: 0.5, DurationHours: 24, FacilityRequired: EchelonRole2, TimeToApplyMinutes: 10},
	"damage_control_surgery": {HealthBoost: 35, DeteriorationModifier: 0.2, DurationHours: 72, FacilityRequired: EchelonRole2, TimeToApplyMinutes: 45},
	"surgical_debridement":   {HealthBoost: 20, DeteriorationModifier: 0.4, DurationHours: 48, FacilityRequired: EchelonRole2, TimeToApplyMinutes: 30},
	"burn_treatment":         {HealthBoost: 20, DeteriorationModifier: 0.4, DurationHours: 48, FacilityRequired: EchelonRole2, TimeToApplyMinutes: 30},

	// Definitive care (Role3)
	"definitive_surgery": {HealthBoost: 45, DeteriorationModifier: 0.1, DurationHours: 168, FacilityRequired: EchelonRole3, TimeToApplyMinutes: 120},
	"craniotomy":         {HealthBoost: 40, DeteriorationModifier: 0.15, DurationHours: 168, FacilityRequired: EchelonRole3, TimeToApplyMinutes: 180},
	"icp_monitoring":     {HealthBoost: 10, DeteriorationModifier: 0.6, DurationHours: 72, FacilityRequired: EchelonRole3, TimeToApplyMinutes: 30},

	// Generic fallbacks
	"supportive_care":          {HealthBoost: 5, DeteriorationModifier: 0.9, DurationHours: 12, FacilityRequired: EchelonPOI, TimeToApplyMinutes: 10},
	"comprehensive_assessment": {HealthBoost: 5, DeteriorationModifier: 0.85, DurationHours: 24, FacilityRequired: EchelonRole3, TimeToApplyMinutes: 20},
	"rest_and_observation":     {HealthBoost: 8, DeteriorationModifier: 0.85, DurationHours: 24, FacilityRequired: EchelonPOI, TimeToApplyMinutes: 5},
}

// EffectFor looks up the intervention table; unknown treatments have no boost
// and leave deterioration unchanged.
func EffectFor(name string) (Effect, bool) {
	eff, ok := effects[name]
	return eff, ok
}

// BestDeteriorationModifier returns the lowest (strongest) deterioration
// modifier across the given treatment names, 1.0 if none match.
func BestDeteriorationModifier(names []string) float64 {
	best := 1.0
	for _, name := range names {
		if eff, ok := effects[name]; ok && eff.DeteriorationModifier < best {
			best = eff.DeteriorationModifier
		}
	}
	return best
}

// StackedEffects combines active treatments with diminishing returns: each
// additional treatment is 80% as effective as the previous. The combined
// modifier never drops below 0.1.
func StackedEffects(names []string) float64 {
	if len(names) == 0 {
		return 1.0
	}
	combined := 1.0
	for i, name := range names {
		eff, ok := effects[name]
		if !ok {
			continue
		}
		effectiveness := math.Pow(0.8, float64(i))
		combined *= 1.0 - (1.0-eff.DeteriorationModifier)*effectiveness
	}
	return math.Max(0.1, combined)
}

// StackedBoost sums health boosts of the named treatments with the same
// diminishing-returns schedule used for modifiers.
func StackedBoost(names []string) float64 {
	total := 0.0
	for i, name := range names {
		eff, ok := effects[name]
		if !ok {
			continue
		}
		total += eff.HealthBoost * math.Pow(0.8, float64(i))
	}
	return total
}

// AvailableAt filters the intervention table to treatments a facility can
// deliver, optionally narrowed by the patient's condition description
// (extremity bleeds get tourniquets, torso injuries never do).
func AvailableAt(facility string, condition string) []string {
	echelon := EchelonForFacility(facility)
	rank := echelonRank(echelon)
	var names []string
	for name, eff := range effects {
		if echelonRank(eff.FacilityRequired) <= rank {
			names = append(names, name)
		}
	}
	if condition == "" {
		return names
	}
	cl := strings.ToLower(condition)
	keep := func(allowed ...string) []string {
		out := names[:0]
		for _, n := range names {
			if contains(allowed, n) {
				out = append(out, n)
			}
		}
		return out
	}
	switch {
	case containsAny(cl, "leg", "arm", "femoral", "extremity", "limb"):
		return keep("tourniquet", "pressure_bandage", "hemostatic_gauze", "blood_transfusion", "iv_fluids")
	case containsAny(cl, "chest", "thorax", "pneumothorax", "lung", "respiratory"):
		return keep("chest_tube", "pressure_bandage", "needle_decompression", "blood_transfusion", "iv_fluids", "morphine")
	case containsAny(cl, "abdomen", "abdominal", "gut", "intestinal"):
		return keep("pressure_bandage", "iv_fluids", "blood_transfusion", "damage_control_surgery", "antibiotics", "morphine")
	case containsAny(cl, "head", "skull", "brain", "cranial"):
		return keep("pressure_bandage", "iv_fluids", "airway_positioning")
	case containsAny(cl, "hemorrhage", "bleeding"):
		// Unspecified location: no tourniquet unless known extremity.
		return keep("pressure_bandage", "hemostatic_gauze", "blood_transfusion", "iv_fluids")
	}
	return names
}

func echelonRank(e Echelon) int {
	switch e {
	case EchelonPOI:
		return 0
	case EchelonCSU:
		return 1
	case EchelonRole1:
		return 1
	case EchelonRole2:
		return 2
	case EchelonRole3:
		return 3
	case EchelonRole4:
		return 4
	}
	return 0
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
