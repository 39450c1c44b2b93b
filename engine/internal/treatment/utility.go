package treatment

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/banton/medical-patients-sub001/engine/config"
	"github.com/banton/medical-patients-sub001/engine/models"
)

// Utility function weights (sum to 1.0) and softmax temperature.
const (
	weightAppropriateness = 0.35
	weightUrgency         = 0.25
	weightEffectiveness   = 0.20
	weightAvailability    = 0.15
	weightCapability      = 0.05

	softmaxTemperature = 0.5
	viabilityThreshold = 0.2
)

// Selection is one chosen treatment with its score.
type Selection struct {
	Name         string    `json:"name"`
	UtilityScore float64   `json:"utility_score"`
	Facility     string    `json:"facility,omitempty"`
	AppliedAt    time.Time `json:"applied_at"`
}

// UtilityModel selects treatments by multi-attribute utility scoring:
//
//	U = w1·appropriateness + w2·urgency + w3·effectiveness + w4·availability + w5·capability
//
// followed by softmax sampling without replacement over viable candidates.
type UtilityModel struct {
	cfg       config.TreatmentUtilityConfig
	protocols *ProtocolManager
	rng       *rand.Rand
}

// NewUtilityModel builds the model over the catalog with a seeded RNG.
func NewUtilityModel(cat *config.Catalog, protocols *ProtocolManager, rng *rand.Rand) *UtilityModel {
	return &UtilityModel{cfg: cat.TreatmentUtility, protocols: protocols, rng: rng}
}

// Utility scores one treatment for the given context, clamped to [0,1].
func (m *UtilityModel) Utility(treatmentName, injuryCode string, severity models.Severity, facility string, elapsedMinutes int, supplies int) float64 {
	u := weightAppropriateness*m.appropriateness(treatmentName, injuryCode) +
		weightUrgency*m.urgency(treatmentName, elapsedMinutes) +
		weightEffectiveness*m.effectiveness(treatmentName, severity) +
		weightAvailability*m.availability(treatmentName, supplies) +
		weightCapability*m.capability(treatmentName, facility)
	return math.Max(0, math.Min(1, u))
}

func (m *UtilityModel) appropriateness(treatmentName, injuryCode string) float64 {
	if scores, ok := m.cfg.AppropriatenessMatrix[injuryCode]; ok {
		if score, ok := scores[treatmentName]; ok {
			return score
		}
	}
	if proto := m.protocols.Protocol(injuryCode); proto != nil && contains(proto.Contraindicated, treatmentName) {
		return 0
	}
	return 0.3
}

// urgency decays exponentially for golden-window treatments; others sit at a
// flat 0.8.
func (m *UtilityModel) urgency(treatmentName string, elapsedMinutes int) float64 {
	window, ok := m.cfg.GoldenWindowTreatments[treatmentName]
	if !ok {
		return 0.8
	}
	if elapsedMinutes > window.MaxMinutes {
		return 0.2
	}
	return math.Exp(-window.DecayRate * float64(elapsedMinutes))
}

func (m *UtilityModel) effectiveness(treatmentName string, severity models.Severity) float64 {
	severityModifiers := map[models.Severity]float64{
		models.SeveritySevere:           0.9,
		models.SeverityModerateToSevere: 0.85,
		models.SeverityModerate:         0.8,
		models.SeverityMildToModerate:   0.75,
	}
	const base = 0.8
	if contains(m.cfg.CriticalTreatments, treatmentName) &&
		(severity == models.SeveritySevere || severity == models.SeverityModerateToSevere) {
		return math.Min(1.0, base*1.2)
	}
	mod, ok := severityModifiers[severity]
	if !ok {
		mod = 0.8
	}
	return base * mod
}

func (m *UtilityModel) availability(treatmentName string, supplies int) float64 {
	if contains(m.cfg.HighResourceTreatments, treatmentName) {
		if supplies < 10 {
			return 0.2
		}
		if supplies < 50 {
			return 0.6
		}
	}
	if supplies <= 0 {
		return 0
	}
	return math.Min(1.0, float64(supplies)/20)
}

func (m *UtilityModel) capability(treatmentName, facility string) float64 {
	available := m.cfg.FacilityCapabilities[facility]
	if contains(available, treatmentName) || contains(available, "all") {
		return 1.0
	}
	return 0
}

type scored struct {
	name    string
	utility float64
}

// Select chooses up to maxTreatments for a patient context. Candidates come
// from the protocol catalog (primary treatments for the code at the facility)
// or the facility capability list; contraindications are hard-filtered before
// scoring, sub-threshold utilities dropped, and selection is softmax sampling
// without replacement, returned highest-utility first.
func (m *UtilityModel) Select(injuryCode string, severity models.Severity, facility string, elapsedMinutes, supplies, maxTreatments int, now time.Time) []Selection {
	if maxTreatments <= 0 {
		maxTreatments = 3
	}
	proto := m.protocols.Protocol(injuryCode)

	var candidates []string
	if proto != nil {
		candidates = append(candidates, proto.Primary[EchelonForFacility(facility)]...)
	}
	if len(candidates) == 0 {
		candidates = append(candidates, m.cfg.FacilityCapabilities[facility]...)
	}
	if len(candidates) == 0 {
		return []Selection{{Name: m.fallback(facility), UtilityScore: 0.5, Facility: facility, AppliedAt: now}}
	}

	var contraindicated []string
	if proto != nil {
		contraindicated = proto.Contraindicated
	}

	// Sorted candidate order keeps selection reproducible for a fixed seed.
	sort.Strings(candidates)
	viable := make([]scored, 0, len(candidates))
	seen := map[string]bool{}
	for _, name := range candidates {
		if name == "all" || seen[name] || contains(contraindicated, name) {
			continue
		}
		seen[name] = true
		u := m.Utility(name, injuryCode, severity, facility, elapsedMinutes, supplies)
		if u > viabilityThreshold {
			viable = append(viable, scored{name: name, utility: u})
		}
	}

	if len(viable) == 0 {
		return []Selection{{Name: m.injuryFallback(injuryCode, facility), UtilityScore: 0.3, Facility: facility, AppliedAt: now}}
	}

	picked := m.softmaxSample(viable, maxTreatments)
	sort.SliceStable(picked, func(i, j int) bool { return picked[i].utility > picked[j].utility })

	out := make([]Selection, 0, len(picked))
	for _, s := range picked {
		out = append(out, Selection{Name: s.name, UtilityScore: math.Round(s.utility*1000) / 1000, Facility: facility, AppliedAt: now})
	}
	return out
}

// Probabilities exposes the softmax distribution over viable candidates; used
// by tests to check normalization.
func (m *UtilityModel) Probabilities(utilities []float64) []float64 {
	probs := make([]float64, len(utilities))
	sum := 0.0
	for i, u := range utilities {
		probs[i] = math.Exp(u / softmaxTemperature)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// softmaxSample draws n items without replacement with probability
// proportional to exp(utility/temperature).
func (m *UtilityModel) softmaxSample(candidates []scored, n int) []scored {
	if n > len(candidates) {
		n = len(candidates)
	}
	pool := append([]scored(nil), candidates...)
	selected := make([]scored, 0, n)
	for len(selected) < n && len(pool) > 0 {
		weights := make([]float64, len(pool))
		total := 0.0
		for i, c := range pool {
			weights[i] = math.Exp(c.utility / softmaxTemperature)
			total += weights[i]
		}
		r := m.rng.Float64() * total
		idx := len(pool) - 1
		cumulative := 0.0
		for i, w := range weights {
			cumulative += w
			if r <= cumulative {
				idx = i
				break
			}
		}
		selected = append(selected, pool[idx])
		pool = append(pool[:idx], pool[idx+1:]...)
	}
	return selected
}

func (m *UtilityModel) fallback(facility string) string {
	if f, ok := m.cfg.FacilityFallbacks[facility]; ok {
		return f
	}
	return "supportive_care"
}

func (m *UtilityModel) injuryFallback(injuryCode, facility string) string {
	switch injuryCode {
	case "45170000":
		return "psychological_first_aid"
	case "62315008":
		return "oral_rehydration"
	}
	return m.fallback(facility)
}

// Validate checks a treatment against contraindications, facility capability,
// and minimum appropriateness. Returns ok plus a reason when rejected.
func (m *UtilityModel) Validate(treatmentName, injuryCode, facility string) (bool, string) {
	if proto := m.protocols.Protocol(injuryCode); proto != nil && contains(proto.Contraindicated, treatmentName) {
		return false, "contraindicated"
	}
	if m.capability(treatmentName, facility) == 0 {
		return false, "not available at facility"
	}
	if m.appropriateness(treatmentName, injuryCode) < viabilityThreshold {
		return false, "low appropriateness"
	}
	return true, ""
}
