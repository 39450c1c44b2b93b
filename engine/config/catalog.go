package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ConditionOverride pins the initial health of a named specific condition.
type ConditionOverride struct {
	InitialHealth float64 `yaml:"initial_health"`
}

// SeverityProfile holds the per-(injury type, severity band) model parameters.
type SeverityProfile struct {
	DeteriorationRate    float64                      `yaml:"deterioration_rate"`
	InitialHealth        float64                      `yaml:"initial_health"`
	Variance             float64                      `yaml:"variance"`
	HemorrhageMultiplier float64                      `yaml:"hemorrhage_multiplier"`
	SpecificConditions   map[string]ConditionOverride `yaml:"specific_conditions,omitempty"`
}

// InjuryModel maps injury type -> severity band -> profile.
type InjuryModel map[string]map[string]SeverityProfile

// EnvironmentModifier describes how one environmental condition changes the
// simulation: faster deterioration, casualty scaling, visibility, evacuation
// delay, and diagnostic accuracy impact.
type EnvironmentModifier struct {
	DeteriorationMultiplier float64 `yaml:"deterioration_multiplier"`
	CasualtyModifier        float64 `yaml:"casualty_modifier"`
	Visibility              float64 `yaml:"visibility"`
	EvacuationDelayMinutes  int     `yaml:"evacuation_delay_minutes"`
	DiagnosticModifier      float64 `yaml:"diagnostic_modifier"`
}

// GoldenHourEffect parameterizes the post-golden-hour deterioration ramp.
type GoldenHourEffect struct {
	HoursBeforeGoldenHour     int     `yaml:"hours_before_golden_hour"`
	MultiplierAfterGoldenHour float64 `yaml:"multiplier_after_golden_hour"`
	MaxMultiplierAtHours      int     `yaml:"max_multiplier_at_hours"`
	MaxMultiplierValue        float64 `yaml:"max_multiplier_value"`
}

// CliffEvents parameterizes sudden-deterioration events in health timelines.
type CliffEvents struct {
	Enabled              bool       `yaml:"enabled"`
	ProbabilityPerHour   float64    `yaml:"probability_per_hour"`
	AppliesToHealthRange [2]float64 `yaml:"applies_to_health_range"`
	HealthDropRange      [2]int     `yaml:"health_drop_range"`
}

// AssaultPhase is one interval of a phased-assault archetype.
type AssaultPhase struct {
	StartHour int     `yaml:"start_hour"`
	Duration  int     `yaml:"duration"`
	Intensity float64 `yaml:"intensity"`
}

// TemporalPattern carries the parameters of a warfare-type archetype. Only the
// fields matching Type are consulted.
type TemporalPattern struct {
	Type string `yaml:"type"`

	// sustained_combat
	PeakHours      []int   `yaml:"peak_hours,omitempty"`
	PeakIntensity  float64 `yaml:"peak_intensity,omitempty"`
	BaseIntensity  float64 `yaml:"base_intensity,omitempty"`
	NightReduction float64 `yaml:"night_reduction,omitempty"`

	// surge
	SurgesPerDay          int     `yaml:"surges_per_day,omitempty"`
	SurgeDurationHours    int     `yaml:"surge_duration_hours,omitempty"`
	SurgeIntensity        float64 `yaml:"surge_intensity,omitempty"`
	BetweenSurgeIntensity float64 `yaml:"between_surge_intensity,omitempty"`
	PreferredHours        []int   `yaml:"preferred_hours,omitempty"`

	// sporadic
	EventsPerDayRange  [2]int  `yaml:"events_per_day_range,omitempty"`
	DawnDuskPreference float64 `yaml:"dawn_dusk_preference,omitempty"`
	NightActivityLevel float64 `yaml:"night_activity_level,omitempty"`

	// precision_strike
	StrikesPerDayRange     [2]int  `yaml:"strikes_per_day_range,omitempty"`
	StrikeWindowPreference string  `yaml:"strike_window_preference,omitempty"`
	TimeRandomization      float64 `yaml:"time_randomization,omitempty"`

	// phased_assault
	AssaultPhases     []AssaultPhase `yaml:"assault_phases,omitempty"`
	BaselineIntensity float64        `yaml:"baseline_intensity,omitempty"`
}

// CasualtyClustering controls mass-casualty event emission within an hour.
type CasualtyClustering struct {
	MassCasualtyProbability float64 `yaml:"mass_casualty_probability"`
	ClusterSizeRange        [2]int  `yaml:"cluster_size_range"`
}

// WarfareType bundles the weight, archetype, and clustering of one warfare tag.
type WarfareType struct {
	WeightMultiplier   float64            `yaml:"weight_multiplier"`
	TemporalPattern    TemporalPattern    `yaml:"temporal_pattern"`
	CasualtyClustering CasualtyClustering `yaml:"casualty_clustering"`
}

// IntensityLevel scales mass-casualty probability.
type IntensityLevel struct {
	MassCasualtyScale float64 `yaml:"mass_casualty_scale"`
}

// TempoPattern is the per-day intensity profile of an operation tempo.
type TempoPattern struct {
	DailyIntensity []float64 `yaml:"daily_intensity"`
}

// SpecialEventTemplate parameterizes scripted special events.
type SpecialEventTemplate struct {
	CasualtyMultiplier  float64 `yaml:"casualty_multiplier"`
	PreferredStartHours []int   `yaml:"preferred_start_hours"`
}

// WarfarePatterns is the complete temporal-generation configuration.
type WarfarePatterns struct {
	HourlyBaseline        []float64                       `yaml:"hourly_activity_baseline"`
	WarfareTypes          map[string]WarfareType          `yaml:"warfare_types"`
	IntensityLevels       map[string]IntensityLevel       `yaml:"intensity_levels"`
	TempoPatterns         map[string]TempoPattern         `yaml:"tempo_patterns"`
	SpecialEventTemplates map[string]SpecialEventTemplate `yaml:"special_event_templates"`
}

// TimeGain is the exponential time-with-patient accuracy improvement.
type TimeGain struct {
	MaxImprovement float64 `yaml:"max_improvement"`
	TimeFactor     float64 `yaml:"time_factor"`
}

// WeightedCode is one confusion-matrix candidate.
type WeightedCode struct {
	Code        string  `yaml:"code"`
	Probability float64 `yaml:"probability"`
}

// DiagnosticModel configures the diagnostic uncertainty engine.
type DiagnosticModel struct {
	FacilityAccuracy      map[string]float64                   `yaml:"diagnostic_accuracy"`
	SeverityImpact        map[string]float64                   `yaml:"severity_impact"`
	EnvironmentalFactors  map[string]float64                   `yaml:"environmental_factors"`
	TimeWithPatient       map[string]TimeGain                  `yaml:"time_with_patient"`
	AdditionalInformation map[string]float64                   `yaml:"additional_information"`
	ConfusionMatrices     map[string]map[string][]WeightedCode `yaml:"confusion_matrices"`
	GenericMisdiagnoses   []string                             `yaml:"generic_misdiagnoses"`
	Transitions           map[string]map[string]float64        `yaml:"transition_probabilities"`
}

// GoldenWindow marks a treatment as time-critical with an urgency decay.
type GoldenWindow struct {
	MaxMinutes int     `yaml:"max_minutes"`
	DecayRate  float64 `yaml:"decay_rate"`
}

// TreatmentUtilityConfig drives the multi-attribute utility model.
type TreatmentUtilityConfig struct {
	AppropriatenessMatrix  map[string]map[string]float64 `yaml:"treatment_appropriateness_matrix"`
	GoldenWindowTreatments map[string]GoldenWindow       `yaml:"golden_window_treatments"`
	FacilityCapabilities   map[string][]string           `yaml:"facility_capabilities"`
	FacilityFallbacks      map[string]string             `yaml:"default_fallbacks"`
	HighResourceTreatments []string                      `yaml:"high_resource_treatments"`
	CriticalTreatments     []string                      `yaml:"critical_treatments"`
}

// Catalog is the full read-only configuration loaded at construction. The
// orchestrator receives an in-memory copy; on-disk catalogs are never mutated.
type Catalog struct {
	DeteriorationModel     InjuryModel                    `yaml:"deterioration_model"`
	EnvironmentalModifiers map[string]EnvironmentModifier `yaml:"environmental_modifiers"`
	GoldenHourEffect       GoldenHourEffect               `yaml:"golden_hour_effect"`
	CliffEvents            CliffEvents                    `yaml:"cliff_events"`
	Warfare                WarfarePatterns                `yaml:"warfare_patterns"`
	Diagnostics            DiagnosticModel                `yaml:"diagnostics"`
	TreatmentUtility       TreatmentUtilityConfig         `yaml:"treatment_utility"`
}

// Load reads a YAML catalog from disk. Sections the file omits fall back to the
// built-in defaults so partial catalogs remain valid.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	cat := Default()
	if err := yaml.Unmarshal(data, cat); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return cat, nil
}

// Validate checks structural invariants the simulation relies on.
func (c *Catalog) Validate() error {
	if len(c.DeteriorationModel) == 0 {
		return fmt.Errorf("%s", "deterioration model is empty")
	}
	if len(c.Warfare.HourlyBaseline) != 24 {
		return fmt.Errorf("hourly baseline must have 24 entries, got %d", len(c.Warfare.HourlyBaseline))
	}
	if len(c.Warfare.WarfareTypes) == 0 {
		return fmt.Errorf("%s", "no warfare types configured")
	}
	for name, wt := range c.Warfare.WarfareTypes {
		if wt.WeightMultiplier <= 0 {
			return fmt.Errorf("warfare type %s: weight multiplier must be positive", name)
		}
	}
	for name, tempo := range c.Warfare.TempoPatterns {
		if len(tempo.DailyIntensity) == 0 {
			return fmt.Errorf("tempo %s: daily intensity is empty", name)
		}
	}
	return nil
}
