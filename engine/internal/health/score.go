package health

import (
	"math/rand"
	"sort"

	"github.com/banton/medical-patients-sub001/engine/config"
	"github.com/banton/medical-patients-sub001/engine/models"
)

// Status labels for health bands.
const (
	StatusDead     = "dead"
	StatusCritical = "critical"
	StatusUnstable = "unstable"
	StatusStable   = "stable"
	StatusGood     = "good"
)

// Modifier adjusts the effective deterioration rate from a start hour onward.
type Modifier struct {
	Hour   int
	Kind   string // "treatment" or "environment"
	Factor float64
}

// TimelineEntry is one hour of a computed health timeline.
type TimelineEntry struct {
	Hour          int     `json:"hour"`
	Health        float64 `json:"health"`
	Status        string  `json:"status"`
	EffectiveRate float64 `json:"deterioration_rate"`
	Event         string  `json:"event,omitempty"`
}

// Outcome is the prediction derived from a timeline.
type Outcome struct {
	Outcome     string  `json:"outcome"`
	TimeHours   int     `json:"time_hours"`
	FinalHealth float64 `json:"final_health"`
	Category    string  `json:"category,omitempty"`
	NeedsEvac   bool    `json:"needs_evacuation,omitempty"`
	RTDEligible bool    `json:"rtd_eligible,omitempty"`
}

// Engine computes initial health scores and hour-indexed timelines.
type Engine struct {
	model  config.InjuryModel
	golden config.GoldenHourEffect
	cliff  config.CliffEvents
	rng    *rand.Rand
}

// NewEngine builds a health engine over the catalog with a seeded RNG.
func NewEngine(cat *config.Catalog, rng *rand.Rand) *Engine {
	return &Engine{model: cat.DeteriorationModel, golden: cat.GoldenHourEffect, cliff: cat.CliffEvents, rng: rng}
}

// InitialHealth samples the starting health for an injury profile. Specific
// conditions override the band mean; unknown profiles fall back to
// severity-score bucketing.
func (e *Engine) InitialHealth(injuryType models.InjuryType, severity models.Severity, severityScore int, condition string) float64 {
	bands, ok := e.model[string(injuryType)]
	if !ok {
		return e.fallbackHealth(severityScore)
	}
	profile, ok := bands[string(severity)]
	if !ok {
		return e.fallbackHealth(severityScore)
	}
	if condition != "" {
		if override, ok := profile.SpecificConditions[condition]; ok && override.InitialHealth > 0 {
			return models.ClampHealth(override.InitialHealth)
		}
	}
	base := profile.InitialHealth
	if base == 0 {
		base = 70
	}
	variance := profile.Variance
	if variance < 0 {
		variance = 0
	}
	h := base + (e.rng.Float64()*2-1)*variance
	return models.ClampHealth(h)
}

func (e *Engine) fallbackHealth(score int) float64 {
	switch {
	case score >= 9:
		return e.uniformIn(30, 50)
	case score >= 7:
		return e.uniformIn(50, 65)
	case score >= 4:
		return e.uniformIn(70, 85)
	case score >= 1:
		return e.uniformIn(85, 95)
	default:
		return 70
	}
}

func (e *Engine) uniformIn(lo, hi float64) float64 {
	return lo + e.rng.Float64()*(hi-lo)
}

// StatusFor maps a health value onto its band label.
func StatusFor(health float64) string {
	switch {
	case health <= 0:
		return StatusDead
	case health < 10:
		return StatusCritical
	case health < 40:
		return StatusUnstable
	case health < 70:
		return StatusStable
	default:
		return StatusGood
	}
}

// Timeline integrates health hour by hour from a starting value: modifiers
// activate at their start hour, the golden-hour ramp scales the rate past the
// boundary, and cliff events (when enabled) apply a sudden drop. Integration
// stops once health reaches zero.
func (e *Engine) Timeline(initialHealth float64, hours int, baseRate float64, modifiers []Modifier) []TimelineEntry {
	sorted := append([]Modifier(nil), modifiers...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Hour < sorted[j].Hour })

	timeline := make([]TimelineEntry, 0, hours+1)
	current := initialHealth
	var active []Modifier

	for hour := 0; hour <= hours; hour++ {
		for len(sorted) > 0 && sorted[0].Hour <= hour {
			active = append(active, sorted[0])
			sorted = sorted[1:]
		}

		effective := baseRate
		for _, mod := range active {
			if mod.Kind == "treatment" || mod.Kind == "environment" {
				effective *= mod.Factor
			}
		}
		effective *= e.goldenMultiplier(hour)

		if e.cliff.Enabled && hour > 0 && e.rng.Float64() < e.cliff.ProbabilityPerHour {
			lo, hi := e.cliff.AppliesToHealthRange[0], e.cliff.AppliesToHealthRange[1]
			if current >= lo && current <= hi {
				drop := float64(e.cliff.HealthDropRange[0] + e.rng.Intn(e.cliff.HealthDropRange[1]-e.cliff.HealthDropRange[0]+1))
				current -= drop
				timeline = append(timeline, TimelineEntry{Hour: hour, Health: models.ClampHealth(current), Status: "cliff_event", Event: "sudden deterioration"})
				if current <= 0 {
					break
				}
				continue
			}
		}

		if hour > 0 {
			current -= effective
		} else {
			effective = 0
		}
		timeline = append(timeline, TimelineEntry{
			Hour:          hour,
			Health:        models.ClampHealth(current),
			Status:        StatusFor(current),
			EffectiveRate: effective,
		})
		if current <= 0 {
			break
		}
	}
	return timeline
}

// goldenMultiplier returns the deterioration scaling in effect at the given
// hour past injury.
func (e *Engine) goldenMultiplier(hour int) float64 {
	boundary := e.golden.HoursBeforeGoldenHour
	if boundary <= 0 {
		boundary = 1
	}
	if hour <= boundary {
		return 1.0
	}
	start := e.golden.MultiplierAfterGoldenHour
	if start <= 0 {
		start = 1.5
	}
	maxAt := e.golden.MaxMultiplierAtHours
	if maxAt <= boundary {
		maxAt = boundary + 1
	}
	maxVal := e.golden.MaxMultiplierValue
	if maxVal < start {
		maxVal = start
	}
	if hour >= maxAt {
		return maxVal
	}
	scale := float64(hour-boundary) / float64(maxAt-boundary)
	return start + scale*(maxVal-start)
}

// defaultTreatmentEffects backs ApplyTreatmentEffect when no configuration is
// supplied.
var defaultTreatmentEffects = map[string]struct {
	boost    float64
	modifier float64
}{
	"tourniquet": {5, 0.2},
	"iv_fluids":  {10, 0.7},
	"morphine":   {0, 0.9},
	"surgery":    {20, 0.1},
}

// ApplyTreatmentEffect applies an immediate treatment: returns the new health
// and the deterioration modifier the treatment imposes going forward.
func (e *Engine) ApplyTreatmentEffect(current float64, treatment string, boost, modifier float64) (float64, float64) {
	if boost == 0 && modifier == 0 {
		eff, ok := defaultTreatmentEffects[treatment]
		if !ok {
			return current, 1.0
		}
		boost, modifier = eff.boost, eff.modifier
	}
	return models.ClampHealth(current + boost), modifier
}

// PredictOutcome classifies the end state of a timeline.
func (e *Engine) PredictOutcome(timeline []TimelineEntry) Outcome {
	if len(timeline) == 0 {
		return Outcome{Outcome: "unknown"}
	}
	last := timeline[len(timeline)-1]
	if last.Health <= 0 {
		return Outcome{Outcome: "death", TimeHours: last.Hour, FinalHealth: 0, Category: string(models.DeathDOW)}
	}
	if last.Health < 40 {
		return Outcome{Outcome: "critical_survival", TimeHours: last.Hour, FinalHealth: last.Health, NeedsEvac: true}
	}
	return Outcome{Outcome: "stable_survival", TimeHours: last.Hour, FinalHealth: last.Health, RTDEligible: last.Health > 70}
}
