package diagnostics

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/banton/medical-patients-sub001/engine/config"
	"github.com/banton/medical-patients-sub001/engine/models"
)

// Modifiers carry the context that shifts diagnostic accuracy at one
// encounter.
type Modifiers struct {
	Triage               models.TriageCategory
	Environment          []string
	TimeWithPatientHours float64
	AdditionalInfo       []string
}

// initialState is the state every patient's diagnostic refinement starts in.
const initialState = "initial_assessment"

type patientState struct {
	state   string
	history []ProgressionStep
}

// ProgressionStep records one facility's diagnostic pass.
type ProgressionStep struct {
	Facility               string  `json:"facility"`
	Diagnosis              string  `json:"diagnosis"`
	Accuracy               float64 `json:"accuracy"`
	ImprovementProbability float64 `json:"improvement_probability"`
	State                  string  `json:"state"`
}

// Confidence summarizes a patient's diagnostic trajectory.
type Confidence struct {
	Confidence       float64           `json:"confidence"`
	State            string            `json:"state"`
	History          []ProgressionStep `json:"history"`
	TotalImprovement float64           `json:"total_improvement"`
}

// Engine performs probabilistic (mis)diagnosis with per-facility accuracy that
// improves as the patient progresses up the chain.
type Engine struct {
	model config.DiagnosticModel
	rng   *rand.Rand

	patients map[string]*patientState

	correct int
	wrong   int
}

// NewEngine builds the engine over the catalog with a seeded RNG.
func NewEngine(cat *config.Catalog, rng *rand.Rand) *Engine {
	return &Engine{model: cat.Diagnostics, rng: rng, patients: make(map[string]*patientState)}
}

// Accuracy computes the effective accuracy at a facility under the given
// modifiers, clamped to [0,1].
func (e *Engine) Accuracy(facility string, mods *Modifiers) float64 {
	accuracy, ok := e.model.FacilityAccuracy[facility]
	if !ok {
		accuracy = 0.65
	}
	if mods == nil {
		return clamp01(accuracy)
	}
	if mods.Triage != "" {
		accuracy += e.model.SeverityImpact[string(mods.Triage)]
	}
	for _, env := range mods.Environment {
		accuracy += e.model.EnvironmentalFactors[env]
	}
	if mods.TimeWithPatientHours > 0 {
		if gain, ok := e.model.TimeWithPatient[facility]; ok {
			accuracy += gain.MaxImprovement * (1 - math.Exp(-gain.TimeFactor*mods.TimeWithPatientHours))
		}
	}
	for _, info := range mods.AdditionalInfo {
		accuracy += e.model.AdditionalInformation[info]
	}
	return clamp01(accuracy)
}

func clamp01(v float64) float64 { return math.Max(0, math.Min(1, v)) }

// Diagnose draws a Bernoulli(accuracy): correct diagnoses return the true
// code; failures sample the facility confusion matrix (or the generic
// fallback list).
func (e *Engine) Diagnose(trueCode, facility, patientID string, mods *Modifiers, at time.Time) models.DiagnosisRecord {
	accuracy := e.Accuracy(facility, mods)
	if e.rng.Float64() < accuracy {
		e.correct++
		return models.DiagnosisRecord{
			Facility:      facility,
			DiagnosedCode: trueCode,
			TrueCondition: trueCode,
			Confidence:    accuracy,
			TruePositive:  true,
			RecordedAt:    at,
		}
	}
	e.wrong++
	return models.DiagnosisRecord{
		Facility:         facility,
		DiagnosedCode:    e.misdiagnosis(trueCode, facility),
		TrueCondition:    trueCode,
		Confidence:       accuracy,
		TruePositive:     false,
		MisdiagnosisType: "facility_confusion",
		RecordedAt:       at,
	}
}

func (e *Engine) misdiagnosis(trueCode, facility string) string {
	candidates := e.model.ConfusionMatrices[facility][trueCode]
	if len(candidates) == 0 {
		return e.generic()
	}
	total := 0.0
	for _, c := range candidates {
		total += c.Probability
	}
	if total <= 0 {
		return e.generic()
	}
	r := e.rng.Float64() * total
	cumulative := 0.0
	for _, c := range candidates {
		cumulative += c.Probability
		if r <= cumulative {
			return c.Code
		}
	}
	return candidates[len(candidates)-1].Code
}

func (e *Engine) generic() string {
	if len(e.model.GenericMisdiagnoses) == 0 {
		return "22253000"
	}
	return e.model.GenericMisdiagnoses[e.rng.Intn(len(e.model.GenericMisdiagnoses))]
}

// Progress records the diagnostic transition when a patient reaches a new
// facility, returning the step with its improvement probability.
func (e *Engine) Progress(patientID, currentDiagnosis, newFacility string, additionalInfo []string) ProgressionStep {
	ps, ok := e.patients[patientID]
	if !ok {
		ps = &patientState{state: initialState}
		e.patients[patientID] = ps
	}

	previousFacility := models.LocationPOI
	if n := len(ps.history); n > 0 {
		previousFacility = ps.history[n-1].Facility
	}
	oldAccuracy, ok := e.model.FacilityAccuracy[previousFacility]
	if !ok {
		oldAccuracy = 0.65
	}
	newAccuracy, ok := e.model.FacilityAccuracy[newFacility]
	if !ok {
		newAccuracy = 0.65
	}
	improvement := newAccuracy - oldAccuracy
	for _, info := range additionalInfo {
		improvement += e.model.AdditionalInformation[info]
	}
	if improvement < 0 {
		improvement = 0
	}

	ps.state = e.nextState(ps.state)
	step := ProgressionStep{
		Facility:               newFacility,
		Diagnosis:              currentDiagnosis,
		Accuracy:               newAccuracy,
		ImprovementProbability: improvement,
		State:                  ps.state,
	}
	ps.history = append(ps.history, step)
	return step
}

// nextState advances the refinement state machine by the configured
// transition weights.
func (e *Engine) nextState(current string) string {
	transitions := e.model.Transitions[current]
	if len(transitions) == 0 {
		return current
	}
	states := make([]string, 0, len(transitions))
	for s := range transitions {
		states = append(states, s)
	}
	sort.Strings(states)
	total := 0.0
	for _, s := range states {
		total += transitions[s]
	}
	r := e.rng.Float64() * total
	cumulative := 0.0
	for _, s := range states {
		cumulative += transitions[s]
		if r <= cumulative {
			return s
		}
	}
	return states[len(states)-1]
}

// ConfidenceFor reports the latest accuracy and trajectory for a patient.
func (e *Engine) ConfidenceFor(patientID string) Confidence {
	ps, ok := e.patients[patientID]
	if !ok || len(ps.history) == 0 {
		return Confidence{State: initialState}
	}
	latest := ps.history[len(ps.history)-1]
	return Confidence{
		Confidence:       latest.Accuracy,
		State:            ps.state,
		History:          append([]ProgressionStep(nil), ps.history...),
		TotalImprovement: latest.Accuracy - ps.history[0].Accuracy,
	}
}

// AccuracyRate reports the running fraction of correct diagnoses.
func (e *Engine) AccuracyRate() float64 {
	total := e.correct + e.wrong
	if total == 0 {
		return 0
	}
	return float64(e.correct) / float64(total)
}

// Counts returns correct and misdiagnosis totals.
func (e *Engine) Counts() (correct, wrong int) { return e.correct, e.wrong }

// Reset clears the progression state for a patient.
func (e *Engine) Reset(patientID string) { delete(e.patients, patientID) }
