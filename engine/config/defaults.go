package config

// Built-in catalog. Values mirror standard military medical planning figures;
// deployments override any section via a YAML catalog file.

// Default returns the built-in catalog. The result is freshly allocated so
// callers may adjust their copy without affecting others.
func Default() *Catalog {
	return &Catalog{
		DeteriorationModel: InjuryModel{
			"Battle Injury": {
				"Severe":             {DeteriorationRate: 30, InitialHealth: 40, Variance: 5, HemorrhageMultiplier: 1.5, SpecificConditions: map[string]ConditionOverride{"Traumatic amputation of limb": {InitialHealth: 30}, "Penetrating head injury": {InitialHealth: 25}}},
				"Moderate to severe": {DeteriorationRate: 18, InitialHealth: 55, Variance: 5, HemorrhageMultiplier: 1.5},
				"Moderate":           {DeteriorationRate: 8, InitialHealth: 70, Variance: 8, HemorrhageMultiplier: 1.5},
				"Mild to moderate":   {DeteriorationRate: 3, InitialHealth: 85, Variance: 5, HemorrhageMultiplier: 1.5},
			},
			"Non-Battle Injury": {
				"Severe":             {DeteriorationRate: 20, InitialHealth: 45, Variance: 5, HemorrhageMultiplier: 1.3},
				"Moderate to severe": {DeteriorationRate: 12, InitialHealth: 60, Variance: 5, HemorrhageMultiplier: 1.3},
				"Moderate":           {DeteriorationRate: 6, InitialHealth: 75, Variance: 8, HemorrhageMultiplier: 1.3},
				"Mild to moderate":   {DeteriorationRate: 2, InitialHealth: 88, Variance: 5, HemorrhageMultiplier: 1.3},
			},
			"Disease": {
				"Severe":             {DeteriorationRate: 10, InitialHealth: 50, Variance: 5, HemorrhageMultiplier: 1},
				"Moderate to severe": {DeteriorationRate: 7, InitialHealth: 62, Variance: 5, HemorrhageMultiplier: 1},
				"Moderate":           {DeteriorationRate: 4, InitialHealth: 75, Variance: 8, HemorrhageMultiplier: 1},
				"Mild to moderate":   {DeteriorationRate: 1.5, InitialHealth: 90, Variance: 5, HemorrhageMultiplier: 1},
			},
		},
		EnvironmentalModifiers: map[string]EnvironmentModifier{
			"extreme_cold":     {DeteriorationMultiplier: 1.2, CasualtyModifier: 0.9, Visibility: 0.8, EvacuationDelayMinutes: 10, DiagnosticModifier: -0.05},
			"extreme_heat":     {DeteriorationMultiplier: 1.15, CasualtyModifier: 1.0, Visibility: 1.0, EvacuationDelayMinutes: 5, DiagnosticModifier: -0.03},
			"high_altitude":    {DeteriorationMultiplier: 1.1, CasualtyModifier: 0.95, Visibility: 0.9, EvacuationDelayMinutes: 10, DiagnosticModifier: -0.02},
			"night_operations": {DeteriorationMultiplier: 1.05, CasualtyModifier: 0.8, Visibility: 0.3, EvacuationDelayMinutes: 15, DiagnosticModifier: -0.08},
			"sandstorm":        {DeteriorationMultiplier: 1.1, CasualtyModifier: 0.7, Visibility: 0.2, EvacuationDelayMinutes: 20, DiagnosticModifier: -0.1},
			"heavy_rain":       {DeteriorationMultiplier: 1.05, CasualtyModifier: 0.85, Visibility: 0.5, EvacuationDelayMinutes: 10, DiagnosticModifier: -0.05},
		},
		GoldenHourEffect: GoldenHourEffect{HoursBeforeGoldenHour: 1, MultiplierAfterGoldenHour: 1.5, MaxMultiplierAtHours: 6, MaxMultiplierValue: 2.5},
		CliffEvents:      CliffEvents{Enabled: false, ProbabilityPerHour: 0.05, AppliesToHealthRange: [2]float64{20, 60}, HealthDropRange: [2]int{15, 30}},
		Warfare:          defaultWarfarePatterns(),
		Diagnostics:      defaultDiagnosticModel(),
		TreatmentUtility: defaultTreatmentUtility(),
	}
}

func defaultWarfarePatterns() WarfarePatterns {
	return WarfarePatterns{
		HourlyBaseline: []float64{0.2, 0.15, 0.15, 0.2, 0.3, 0.5, 0.8, 1.0, 1.1, 1.2, 1.1, 1.0, 1.0, 1.1, 1.2, 1.2, 1.3, 1.2, 1.0, 0.8, 0.6, 0.4, 0.3, 0.25},
		WarfareTypes: map[string]WarfareType{
			"conventional": {
				WeightMultiplier:   1.0,
				TemporalPattern:    TemporalPattern{Type: "sustained_combat", PeakHours: []int{6, 7, 8, 9, 16, 17, 18, 19}, PeakIntensity: 1.5, BaseIntensity: 1.0, NightReduction: 0.5},
				CasualtyClustering: CasualtyClustering{MassCasualtyProbability: 0.05, ClusterSizeRange: [2]int{6, 20}},
			},
			"artillery": {
				WeightMultiplier:   0.8,
				TemporalPattern:    TemporalPattern{Type: "surge", SurgesPerDay: 2, SurgeDurationHours: 2, SurgeIntensity: 2.0, BetweenSurgeIntensity: 0.3, PreferredHours: []int{5, 6, 7, 16, 17, 18}},
				CasualtyClustering: CasualtyClustering{MassCasualtyProbability: 0.15, ClusterSizeRange: [2]int{8, 25}},
			},
			"guerrilla": {
				WeightMultiplier:   0.5,
				TemporalPattern:    TemporalPattern{Type: "sporadic", EventsPerDayRange: [2]int{5, 12}, DawnDuskPreference: 1.8, NightActivityLevel: 0.6},
				CasualtyClustering: CasualtyClustering{MassCasualtyProbability: 0.08, ClusterSizeRange: [2]int{4, 12}},
			},
			"drone": {
				WeightMultiplier:   0.6,
				TemporalPattern:    TemporalPattern{Type: "precision_strike", StrikesPerDayRange: [2]int{3, 8}, StrikeWindowPreference: "daylight", TimeRandomization: 0.3},
				CasualtyClustering: CasualtyClustering{MassCasualtyProbability: 0.1, ClusterSizeRange: [2]int{5, 15}},
			},
			"urban": {
				WeightMultiplier:   0.7,
				TemporalPattern:    TemporalPattern{Type: "phased_assault", AssaultPhases: []AssaultPhase{{StartHour: 6, Duration: 4, Intensity: 2.0}, {StartHour: 14, Duration: 3, Intensity: 1.5}, {StartHour: 20, Duration: 2, Intensity: 1.2}}, BaselineIntensity: 0.4},
				CasualtyClustering: CasualtyClustering{MassCasualtyProbability: 0.12, ClusterSizeRange: [2]int{6, 18}},
			},
		},
		IntensityLevels: map[string]IntensityLevel{
			"low":     {MassCasualtyScale: 0.5},
			"medium":  {MassCasualtyScale: 1.0},
			"high":    {MassCasualtyScale: 1.5},
			"extreme": {MassCasualtyScale: 2.0},
		},
		TempoPatterns: map[string]TempoPattern{
			"sustained":     {DailyIntensity: []float64{1, 1, 1, 1, 1, 1, 1, 1}},
			"escalating":    {DailyIntensity: []float64{0.5, 0.7, 0.9, 1.1, 1.3, 1.5, 1.7, 1.9}},
			"de-escalating": {DailyIntensity: []float64{1.9, 1.7, 1.5, 1.3, 1.1, 0.9, 0.7, 0.5}},
			"surge":         {DailyIntensity: []float64{0.6, 1.8, 0.6, 0.6, 1.8, 0.6, 0.6, 0.6}},
		},
		SpecialEventTemplates: map[string]SpecialEventTemplate{
			"mass_casualty":   {CasualtyMultiplier: 1.5, PreferredStartHours: []int{8, 9, 10, 11, 12, 13, 14, 15, 16}},
			"major_offensive": {CasualtyMultiplier: 2.0, PreferredStartHours: []int{5, 6, 7}},
			"ambush":          {CasualtyMultiplier: 1.2, PreferredStartHours: []int{6, 7, 17, 18}},
		},
	}
}

func defaultDiagnosticModel() DiagnosticModel {
	return DiagnosticModel{
		FacilityAccuracy: map[string]float64{"POI": 0.65, "Role1": 0.75, "Role2": 0.85, "Role3": 0.95, "Role4": 0.98},
		SeverityImpact:   map[string]float64{"T1": -0.1, "T2": -0.05, "T3": 0, "T4": -0.15},
		EnvironmentalFactors: map[string]float64{
			"night_operations": -0.08,
			"sandstorm":        -0.1,
			"extreme_cold":     -0.05,
			"heavy_rain":       -0.05,
		},
		TimeWithPatient: map[string]TimeGain{
			"POI":   {MaxImprovement: 0.05, TimeFactor: 0.5},
			"Role1": {MaxImprovement: 0.08, TimeFactor: 0.5},
			"Role2": {MaxImprovement: 0.1, TimeFactor: 0.6},
			"Role3": {MaxImprovement: 0.04, TimeFactor: 0.8},
			"Role4": {MaxImprovement: 0.02, TimeFactor: 1.0},
		},
		AdditionalInformation: map[string]float64{
			"multiple_examinations": 0.05,
			"lab_results":           0.08,
			"imaging":               0.1,
		},
		ConfusionMatrices: map[string]map[string][]WeightedCode{
			"POI": {
				"19130008":  {{Code: "125667009", Probability: 0.5}, {Code: "22253000", Probability: 0.3}, {Code: "386807006", Probability: 0.2}},
				"262574004": {{Code: "125689001", Probability: 0.6}, {Code: "125667009", Probability: 0.4}},
				"125596004": {{Code: "48333001", Probability: 0.5}, {Code: "125689001", Probability: 0.5}},
			},
			"Role1": {
				"19130008":  {{Code: "125667009", Probability: 0.6}, {Code: "386807006", Probability: 0.4}},
				"262574004": {{Code: "125689001", Probability: 1.0}},
			},
			"Role2": {
				"19130008": {{Code: "386807006", Probability: 1.0}},
			},
		},
		GenericMisdiagnoses: []string{"22253000", "125667009", "422587007", "271807003", "386807006"},
		Transitions: map[string]map[string]float64{
			"initial_assessment": {"initial_assessment": 0.3, "working_diagnosis": 0.7},
			"working_diagnosis":  {"working_diagnosis": 0.5, "confirmed_diagnosis": 0.5},
			"confirmed_diagnosis": {"confirmed_diagnosis": 1.0},
		},
	}
}

func defaultTreatmentUtility() TreatmentUtilityConfig {
	return TreatmentUtilityConfig{
		AppropriatenessMatrix: map[string]map[string]float64{
			// Gunshot wound
			"262574004": {"tourniquet": 0.95, "pressure_bandage": 0.8, "hemostatic_gauze": 0.85, "iv_fluids": 0.7, "blood_transfusion": 0.9, "damage_control_surgery": 0.95, "definitive_surgery": 0.9, "antibiotics": 0.6, "morphine": 0.5},
			// Shrapnel / fragment injury
			"125689001": {"pressure_bandage": 0.85, "hemostatic_gauze": 0.8, "surgical_debridement": 0.9, "antibiotics": 0.75, "blood_transfusion": 0.7, "iv_fluids": 0.65},
			// Blast injury
			"125596004": {"tourniquet": 0.8, "airway_positioning": 0.85, "needle_decompression": 0.8, "intubation": 0.75, "damage_control_surgery": 0.9, "burn_treatment": 0.7, "iv_fluids": 0.65},
			// Traumatic brain injury
			"19130008": {"airway_positioning": 0.85, "iv_fluids": 0.6, "craniotomy": 0.9, "icp_monitoring": 0.85, "intubation": 0.7, "morphine": 0.2, "tourniquet": 0},
			// Burn injury
			"48333001": {"burn_treatment": 0.95, "iv_fluids": 0.85, "morphine": 0.7, "antibiotics": 0.6, "tourniquet": 0},
			// Combat stress reaction
			"45170000": {"psychological_first_aid": 0.95, "rest_and_observation": 0.8, "morphine": 0},
			// Diarrhea / disease
			"62315008": {"oral_rehydration": 0.95, "iv_fluids": 0.8, "antibiotics": 0.6},
		},
		GoldenWindowTreatments: map[string]GoldenWindow{
			"tourniquet":             {MaxMinutes: 60, DecayRate: 0.02},
			"airway_positioning":     {MaxMinutes: 10, DecayRate: 0.05},
			"needle_decompression":   {MaxMinutes: 30, DecayRate: 0.03},
			"blood_transfusion":      {MaxMinutes: 120, DecayRate: 0.01},
			"damage_control_surgery": {MaxMinutes: 120, DecayRate: 0.015},
		},
		FacilityCapabilities: map[string][]string{
			"POI":   {"tourniquet", "pressure_bandage", "hemostatic_gauze", "airway_positioning", "psychological_first_aid"},
			"Role1": {"tourniquet", "pressure_bandage", "hemostatic_gauze", "airway_positioning", "iv_fluids", "morphine", "antibiotics", "needle_decompression", "oral_rehydration", "psychological_first_aid"},
			"Role2": {"tourniquet", "pressure_bandage", "hemostatic_gauze", "iv_fluids", "morphine", "antibiotics", "needle_decompression", "blood_transfusion", "chest_tube", "intubation", "damage_control_surgery", "surgical_debridement", "burn_treatment"},
			"Role3": {"all"},
			"CSU":   {"pressure_bandage", "iv_fluids", "morphine", "rest_and_observation"},
		},
		FacilityFallbacks: map[string]string{
			"POI":   "pressure_bandage",
			"Role1": "iv_fluids",
			"Role2": "supportive_care",
			"Role3": "comprehensive_assessment",
			"CSU":   "supportive_care",
		},
		HighResourceTreatments: []string{"blood_transfusion", "damage_control_surgery", "definitive_surgery", "icu_care", "craniotomy"},
		CriticalTreatments:     []string{"tourniquet", "blood_transfusion", "damage_control_surgery"},
	}
}
