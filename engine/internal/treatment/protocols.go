package treatment

import (
	"strings"
)

// Category groups treatments by clinical purpose.
type Category string

const (
	CategoryHemorrhageControl   Category = "hemorrhage_control"
	CategoryAirwayManagement    Category = "airway_management"
	CategoryCirculationSupport  Category = "circulation_support"
	CategoryTraumaSurgery       Category = "trauma_surgery"
	CategoryBurnCare            Category = "burn_care"
	CategoryNeurological        Category = "neurological"
	CategoryInfectionPrevention Category = "infection_prevention"
	CategoryPainManagement      Category = "pain_management"
	CategoryStabilization       Category = "stabilization"
)

// Echelon identifies a facility capability level for protocol lookups.
type Echelon string

const (
	EchelonPOI   Echelon = "POI"
	EchelonRole1 Echelon = "Role1"
	EchelonRole2 Echelon = "Role2"
	EchelonRole3 Echelon = "Role3"
	EchelonRole4 Echelon = "Role4"
	EchelonCSU   Echelon = "CSU"
)

// EchelonForFacility normalizes a facility name to its echelon.
func EchelonForFacility(facility string) Echelon {
	switch strings.ToLower(facility) {
	case "poi", "point_of_injury":
		return EchelonPOI
	case "role1":
		return EchelonRole1
	case "role2":
		return EchelonRole2
	case "role3":
		return EchelonRole3
	case "role4":
		return EchelonRole4
	case "csu":
		return EchelonCSU
	default:
		return EchelonRole1
	}
}

// Protocol maps a condition code to its treatment plan per echelon.
type Protocol struct {
	Code                  string
	InjuryName            string
	Categories            []Category
	Primary               map[Echelon][]string
	Secondary             map[Echelon][]string
	Contraindicated       []string
	CriticalWindowMinutes int
	Notes                 string
}

// bodyPartConstraints limits anatomically specific treatments. A treatment not
// listed here is allowed anywhere.
var bodyPartConstraints = map[string][]string{
	"tourniquet":           {"arm", "leg", "extremity"},
	"chest_seal":           {"torso", "chest", "back"},
	"needle_decompression": {"torso", "chest"},
	"chest_tube":           {"torso", "chest"},
	"cervical_collar":      {"head", "neck"},
	"craniotomy":           {"head"},
	"icp_monitoring":       {"head"},
	"intubation":           {"head", "neck"},
	"surgical_airway":      {"neck"},
	"splint":               {"arm", "leg", "extremity"},
	"casting":              {"arm", "leg", "extremity"},
}

// lifeSavingOrder is the priority sequence applied inside a critical window.
var lifeSavingOrder = []string{
	"tourniquet",
	"airway_positioning",
	"needle_decompression",
	"pressure_bandage",
	"hemostatic_gauze",
	"iv_access",
	"iv_fluids",
	"blood_transfusion",
	"damage_control_surgery",
	"intubation",
}

// ProtocolManager holds the static condition-code catalog.
type ProtocolManager struct {
	protocols map[string]*Protocol
}

// NewProtocolManager builds the built-in catalog.
func NewProtocolManager() *ProtocolManager {
	return &ProtocolManager{protocols: builtinProtocols()}
}

func builtinProtocols() map[string]*Protocol {
	protocols := map[string]*Protocol{}

	protocols["262574004"] = &Protocol{
		Code:       "262574004",
		InjuryName: "Gunshot Wound",
		Categories: []Category{CategoryHemorrhageControl, CategoryTraumaSurgery},
		Primary: map[Echelon][]string{
			EchelonPOI:   {"tourniquet", "pressure_bandage", "hemostatic_gauze"},
			EchelonRole1: {"iv_access", "iv_fluids", "pain_management"},
			EchelonRole2: {"blood_transfusion", "damage_control_surgery"},
			EchelonRole3: {"definitive_surgery", "antibiotics"},
			EchelonRole4: {"definitive_surgery", "rehabilitation"},
		},
		Secondary: map[Echelon][]string{
			EchelonPOI:   {"airway_positioning"},
			EchelonRole1: {"antibiotics", "needle_decompression"},
			EchelonRole2: {"chest_tube", "intubation"},
			EchelonRole3: {"specialized_surgery"},
			EchelonRole4: {"reconstructive_surgery"},
		},
		CriticalWindowMinutes: 60,
		Notes:                 "Prioritize hemorrhage control and rapid evacuation",
	}

	protocols["125689001"] = &Protocol{
		Code:       "125689001",
		InjuryName: "Shrapnel/Fragment Injury",
		Categories: []Category{CategoryHemorrhageControl, CategoryInfectionPrevention},
		Primary: map[Echelon][]string{
			EchelonPOI:   {"pressure_bandage", "hemostatic_gauze"},
			EchelonRole1: {"iv_access", "antibiotics", "pain_management"},
			EchelonRole2: {"surgical_debridement", "blood_transfusion"},
			EchelonRole3: {"definitive_surgery", "wound_closure"},
			EchelonRole4: {"reconstructive_surgery", "rehabilitation"},
		},
		Secondary: map[Echelon][]string{
			EchelonPOI:   {"tourniquet"},
			EchelonRole1: {"iv_fluids"},
			EchelonRole2: {"damage_control_surgery"},
			EchelonRole3: {"antibiotics"},
			EchelonRole4: {"specialized_surgery"},
		},
		CriticalWindowMinutes: 120,
		Notes:                 "Multiple fragments require careful assessment",
	}

	protocols["125596004"] = &Protocol{
		Code:       "125596004",
		InjuryName: "Blast/Explosive Injury",
		Categories: []Category{CategoryHemorrhageControl, CategoryAirwayManagement, CategoryBurnCare},
		Primary: map[Echelon][]string{
			EchelonPOI:   {"tourniquet", "airway_positioning", "pressure_bandage"},
			EchelonRole1: {"needle_decompression", "iv_access", "pain_management"},
			EchelonRole2: {"intubation", "damage_control_surgery", "blood_transfusion"},
			EchelonRole3: {"definitive_surgery", "burn_treatment", "chest_tube"},
			EchelonRole4: {"specialized_surgery", "burn_reconstruction", "rehabilitation"},
		},
		Secondary: map[Echelon][]string{
			EchelonPOI:   {"hemostatic_gauze"},
			EchelonRole1: {"antibiotics"},
			EchelonRole2: {"chest_tube"},
			EchelonRole3: {"icp_monitoring"},
			EchelonRole4: {"reconstructive_surgery"},
		},
		CriticalWindowMinutes: 60,
		Notes:                 "Assume combined blast, fragment, and burn mechanisms",
	}

	protocols["19130008"] = &Protocol{
		Code:       "19130008",
		InjuryName: "Traumatic Brain Injury",
		Categories: []Category{CategoryNeurological, CategoryAirwayManagement},
		Primary: map[Echelon][]string{
			EchelonPOI:   {"airway_positioning", "cervical_collar"},
			EchelonRole1: {"iv_access", "oxygen_therapy"},
			EchelonRole2: {"intubation", "hyperosmolar_therapy"},
			EchelonRole3: {"craniotomy", "icp_monitoring"},
			EchelonRole4: {"neurorehabilitation"},
		},
		Secondary: map[Echelon][]string{
			EchelonRole1: {"pain_management"},
			EchelonRole2: {"seizure_prophylaxis"},
			EchelonRole3: {"specialized_surgery"},
		},
		Contraindicated:       []string{"tourniquet", "morphine"},
		CriticalWindowMinutes: 60,
		Notes:                 "Avoid sedation that masks neurological assessment",
	}

	protocols["48333001"] = &Protocol{
		Code:       "48333001",
		InjuryName: "Burn Injury",
		Categories: []Category{CategoryBurnCare, CategoryCirculationSupport},
		Primary: map[Echelon][]string{
			EchelonPOI:   {"burn_dressing", "pain_management"},
			EchelonRole1: {"iv_fluids", "burn_dressing"},
			EchelonRole2: {"burn_treatment", "escharotomy"},
			EchelonRole3: {"burn_treatment", "skin_grafting"},
			EchelonRole4: {"burn_reconstruction", "rehabilitation"},
		},
		Secondary: map[Echelon][]string{
			EchelonRole1: {"antibiotics"},
			EchelonRole2: {"intubation"},
		},
		Contraindicated:       []string{"tourniquet"},
		CriticalWindowMinutes: 180,
		Notes:                 "Fluid resuscitation per extent of burn",
	}

	protocols["45170000"] = &Protocol{
		Code:       "45170000",
		InjuryName: "Combat Stress Reaction",
		Categories: []Category{CategoryPainManagement},
		Primary: map[Echelon][]string{
			EchelonPOI:   {"psychological_first_aid"},
			EchelonRole1: {"psychological_first_aid", "rest_and_observation"},
			EchelonRole2: {"psychiatric_evaluation"},
			EchelonRole3: {"psychiatric_care"},
		},
		Secondary:             map[Echelon][]string{},
		Contraindicated:       []string{"morphine"},
		CriticalWindowMinutes: 1440,
		Notes:                 "Proximity, immediacy, expectancy",
	}

	protocols["62315008"] = &Protocol{
		Code:       "62315008",
		InjuryName: "Diarrheal Disease",
		Categories: []Category{CategoryCirculationSupport, CategoryInfectionPrevention},
		Primary: map[Echelon][]string{
			EchelonPOI:   {"oral_rehydration"},
			EchelonRole1: {"oral_rehydration", "iv_fluids"},
			EchelonRole2: {"iv_fluids", "antibiotics"},
			EchelonRole3: {"iv_fluids", "antibiotics"},
		},
		Secondary:             map[Echelon][]string{},
		CriticalWindowMinutes: 720,
		Notes:                 "Hydration status drives escalation",
	}

	return protocols
}

// Protocol returns the catalog entry for a condition code, or nil.
func (m *ProtocolManager) Protocol(code string) *Protocol {
	return m.protocols[code]
}

// Appropriate returns the ordered treatment list for a condition at a
// facility: primary first, secondary appended for severe cases,
// contraindications and anatomical mismatches removed, life-saving
// interventions leading inside the critical window.
func (m *ProtocolManager) Appropriate(code string, facility string, severe bool, elapsedMinutes int, bodyPart string) []string {
	echelon := EchelonForFacility(facility)
	protocol := m.protocols[code]
	if protocol == nil {
		return m.generic(echelon, severe, bodyPart)
	}

	treatments := append([]string(nil), protocol.Primary[echelon]...)
	if severe {
		treatments = append(treatments, protocol.Secondary[echelon]...)
	}

	filtered := treatments[:0]
	for _, t := range treatments {
		if contains(protocol.Contraindicated, t) {
			continue
		}
		if !AllowedForBodyPart(t, bodyPart) {
			continue
		}
		filtered = append(filtered, t)
	}
	treatments = filtered

	if elapsedMinutes <= protocol.CriticalWindowMinutes {
		treatments = prioritizeCritical(treatments)
	}
	return treatments
}

func (m *ProtocolManager) generic(echelon Echelon, severe bool, bodyPart string) []string {
	generic := map[Echelon][]string{
		EchelonPOI:   {"pressure_bandage", "airway_positioning"},
		EchelonRole1: {"iv_access", "pain_management", "antibiotics"},
		EchelonRole2: {"blood_transfusion", "damage_control_surgery"},
		EchelonRole3: {"definitive_surgery", "antibiotics"},
		EchelonRole4: {"rehabilitation", "specialized_care"},
		EchelonCSU:   {"iv_fluids", "pain_management"},
	}
	treatments := append([]string(nil), generic[echelon]...)
	if severe {
		switch echelon {
		case EchelonPOI:
			if AllowedForBodyPart("tourniquet", bodyPart) {
				treatments = append(treatments, "tourniquet")
			}
		case EchelonRole2, EchelonRole3:
			treatments = append(treatments, "intubation")
		}
	}
	return treatments
}

// AllowedForBodyPart checks the anatomical constraint table. An empty body
// part allows everything.
func AllowedForBodyPart(treatmentName, bodyPart string) bool {
	if bodyPart == "" {
		return true
	}
	tl := strings.ToLower(treatmentName)
	bl := strings.ToLower(bodyPart)
	for constrained, allowed := range bodyPartConstraints {
		if !strings.Contains(tl, constrained) {
			continue
		}
		for _, part := range allowed {
			if strings.Contains(bl, part) {
				return true
			}
		}
		return false
	}
	return true
}

func prioritizeCritical(treatments []string) []string {
	out := make([]string, 0, len(treatments))
	for _, want := range lifeSavingOrder {
		if contains(treatments, want) {
			out = append(out, want)
		}
	}
	for _, t := range treatments {
		if !contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
