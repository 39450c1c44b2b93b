package jobs

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/banton/medical-patients-sub001/engine/config"
	"github.com/banton/medical-patients-sub001/engine/internal/flow"
	"github.com/banton/medical-patients-sub001/engine/internal/temporal"
	"github.com/banton/medical-patients-sub001/engine/internal/transport"
	"github.com/banton/medical-patients-sub001/engine/models"
)

// Scenario is the generation request for one cohort.
type Scenario struct {
	Days          int
	TotalPatients int
	WarfareTypes  map[string]bool
	Intensity     string
	Tempo         string
	Environment   map[string]bool
	SpecialEvents map[string]bool
	BaseDate      time.Time
	Seed          int64

	EnableDiagnostics bool
	PostEventMinutes  float64 // simulated follow-up after the last event
}

// conditionPools sample true SNOMED codes by injury origin.
var conditionPools = map[models.InjuryType][]string{
	models.InjuryBattle:    {"262574004", "125689001", "125596004", "19130008", "48333001"},
	models.InjuryNonBattle: {"125605004", "125667009", "45170000"},
	models.InjuryDisease:   {"62315008", "422587007"},
}

var bodyParts = []string{"extremity", "torso", "head", "abdomen", ""}

type pendingArrival struct {
	patientID string
	eta       time.Time
	retries   int
}

// Simulation drives one cohort through the evacuation chain: it walks the
// casualty-event stream in time order, materializes patients, and moves them
// through triage, transport, treatment, and CSU batching.
type Simulation struct {
	cat  *config.Catalog
	orch *flow.Orchestrator
	rng  *rand.Rand

	scenario Scenario
	events   []models.CasualtyEvent
	cursor   int
	seq      int
	finished bool

	arrivals []pendingArrival
	csuQueue []string
}

// NewSimulation generates the casualty timeline and wires an orchestrator.
func NewSimulation(cat *config.Catalog, scenario Scenario) (*Simulation, error) {
	if scenario.BaseDate.IsZero() {
		scenario.BaseDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	gen := temporal.NewGenerator(cat, rand.New(rand.NewSource(scenario.Seed)))
	events, err := gen.Generate(temporal.Scenario{
		Days:          scenario.Days,
		TotalPatients: scenario.TotalPatients,
		WarfareTypes:  scenario.WarfareTypes,
		Intensity:     scenario.Intensity,
		Tempo:         scenario.Tempo,
		Environment:   scenario.Environment,
		SpecialEvents: scenario.SpecialEvents,
		BaseDate:      scenario.BaseDate,
	})
	if err != nil {
		return nil, err
	}
	orch := flow.New(cat, flow.Options{
		BaseTime:          scenario.BaseDate,
		Seed:              scenario.Seed + 1,
		EnableDiagnostics: scenario.EnableDiagnostics,
		Transport:         transport.DefaultConfig(),
	})
	return &Simulation{
		cat:      cat,
		orch:     orch,
		rng:      rand.New(rand.NewSource(scenario.Seed + 2)),
		scenario: scenario,
		events:   events,
	}, nil
}

// Orchestrator exposes the underlying orchestrator (status, patients).
func (s *Simulation) Orchestrator() *flow.Orchestrator { return s.orch }

// Events returns the generated casualty timeline.
func (s *Simulation) Events() []models.CasualtyEvent { return s.events }

// TotalEvents reports the event count.
func (s *Simulation) TotalEvents() int { return len(s.events) }

// Done reports whether the whole stream has been consumed.
func (s *Simulation) Done() bool { return s.cursor >= len(s.events) }

// Step processes up to n casualty events and returns how many were consumed.
// The call that consumes the last event also runs the post-event follow-up window.
func (s *Simulation) Step(n int) int {
	processed := 0
	for processed < n && s.cursor < len(s.events) {
		ev := s.events[s.cursor]
		s.advanceTo(ev.Timestamp)
		s.materialize(ev)
		s.cursor++
		processed++
	}
	if s.cursor >= len(s.events) && !s.finished {
		s.finished = true
		s.finish()
	}
	return processed
}

// advanceTo moves simulated time forward to target, completing transports
// whose ETA passes along the way.
func (s *Simulation) advanceTo(target time.Time) {
	for {
		next, ok := s.nextArrivalBefore(target)
		if !ok {
			break
		}
		s.advanceClock(next.eta)
		s.completeArrival(next)
	}
	s.advanceClock(target)
}

// completeArrival finishes one transport; missions still waiting for a
// vehicle are retried with a pushed-back ETA.
func (s *Simulation) completeArrival(a pendingArrival) {
	if _, err := s.orch.CompleteTransport(a.patientID); err != nil {
		p, ok := s.orch.Patient(a.patientID)
		if !ok || p.State != models.StateInTransport || a.retries >= 5 {
			return
		}
		eta := s.orch.Now().Add(30 * time.Minute)
		if status, ok := s.orch.TransportStatus(p.TransportID); ok {
			eta = status.EstimatedArrival
		}
		s.arrivals = append(s.arrivals, pendingArrival{patientID: a.patientID, eta: eta, retries: a.retries + 1})
		return
	}
	s.afterArrival(a.patientID)
}

func (s *Simulation) advanceClock(target time.Time) {
	delta := target.Sub(s.orch.Now()).Minutes()
	if delta > 0 {
		s.orch.AdvanceTime(delta)
	}
}

func (s *Simulation) nextArrivalBefore(target time.Time) (pendingArrival, bool) {
	best := -1
	for i, a := range s.arrivals {
		if a.eta.After(target) {
			continue
		}
		if best == -1 || a.eta.Before(s.arrivals[best].eta) {
			best = i
		}
	}
	if best == -1 {
		return pendingArrival{}, false
	}
	next := s.arrivals[best]
	s.arrivals = append(s.arrivals[:best], s.arrivals[best+1:]...)
	return next, true
}

// materialize creates the event's patients and pushes them into the chain.
func (s *Simulation) materialize(ev models.CasualtyEvent) {
	for i := 0; i < ev.PatientCount; i++ {
		s.seq++
		id := fmt.Sprintf("PT%06d", s.seq)

		injuryType := s.sampleInjuryType(ev)
		score := s.sampleSeverityScore(ev)
		pool := conditionPools[injuryType]
		condition := pool[s.rng.Intn(len(pool))]
		bodyPart := bodyParts[s.rng.Intn(len(bodyParts))]

		s.orch.InitializePatient(id, injuryType, score, models.LocationPOI, condition, "", bodyPart)

		// Mass-casualty events re-triage conservatively.
		if ev.MassCasualty {
			_, _ = s.orch.ReassessTriage(id, true)
		}

		_, destination, err := s.orch.ProcessTriage(id)
		if err != nil {
			continue
		}
		if _, err := s.orch.Transport(id, destination); err != nil {
			continue
		}
		s.queueArrival(id)
	}
}

func (s *Simulation) queueArrival(id string) {
	p, ok := s.orch.Patient(id)
	if !ok || p.TransportID == "" {
		return
	}
	eta := s.orch.Now().Add(30 * time.Minute) // queued mission: guess, then retry
	if status, ok := s.orch.TransportStatus(p.TransportID); ok {
		eta = status.EstimatedArrival
	}
	s.arrivals = append(s.arrivals, pendingArrival{patientID: id, eta: eta})
}

// afterArrival treats the patient at the new facility, stages minor cases for
// the CSU, and discharges the fully recovered.
func (s *Simulation) afterArrival(id string) {
	p, ok := s.orch.Patient(id)
	if !ok {
		return
	}
	if p.State == models.StateInTransport && p.TransportID != "" {
		// Overflow rescheduled the leg; track the new arrival.
		s.queueArrival(id)
		return
	}
	if p.State != models.StateInTreatment {
		return
	}

	selections, err := s.orch.SelectTreatments(id, 3)
	if err == nil && len(selections) > 0 {
		_, _ = s.orch.ApplyTreatments(id, selections)
	}

	p, ok = s.orch.Patient(id)
	if !ok || p.State.Terminal() {
		return
	}

	switch p.CurrentLocation {
	case models.FacilityRole2:
		_, _ = s.orch.Recover(id, 60, 2.0)
	case models.FacilityRole3:
		_, _ = s.orch.Recover(id, 60, 5.0)
	case models.FacilityRole1:
		// Minor cases stage through the CSU toward Role2.
		if p.Triage == models.TriageMinimal && s.orch.Facilities().AvailableBeds(models.FacilityCSU) > 0 {
			if s.orch.Facilities().Transfer(id, models.FacilityRole1, models.FacilityCSU).Success {
				p.CurrentLocation = models.FacilityCSU
				s.csuQueue = append(s.csuQueue, id)
			}
		}
	}
	s.orch.TryDischarge(id)

	if len(s.csuQueue) > 0 {
		// The coordinator now holds these patients; the batch releases when
		// full or past the hold window.
		_ = s.orch.EvacuateToCSU(s.csuQueue)
		s.csuQueue = nil
	}
}

// finish drains outstanding transports and runs the follow-up window.
func (s *Simulation) finish() {
	for guard := 0; len(s.arrivals) > 0 && guard < 10000; guard++ {
		sort.SliceStable(s.arrivals, func(i, j int) bool { return s.arrivals[i].eta.Before(s.arrivals[j].eta) })
		next := s.arrivals[0]
		s.arrivals = s.arrivals[1:]
		s.advanceClock(next.eta)
		s.completeArrival(next)
	}
	s.arrivals = nil

	follow := s.scenario.PostEventMinutes
	if follow <= 0 {
		follow = 180
	}
	// Tick in 30-minute steps so deaths land near their true times.
	for elapsed := 0.0; elapsed < follow; elapsed += 30 {
		s.orch.AdvanceTime(30)
	}
}

func (s *Simulation) sampleInjuryType(ev models.CasualtyEvent) models.InjuryType {
	if ev.WarfareType == "mixed" || ev.MassCasualty {
		return models.InjuryBattle
	}
	r := s.rng.Float64()
	switch {
	case r < 0.7:
		return models.InjuryBattle
	case r < 0.9:
		return models.InjuryNonBattle
	default:
		return models.InjuryDisease
	}
}

func (s *Simulation) sampleSeverityScore(ev models.CasualtyEvent) int {
	// Mass casualty skews severe.
	r := s.rng.Float64()
	if ev.MassCasualty {
		r = r*0.6 + 0.4
	}
	switch {
	case r < 0.35:
		return 1 + s.rng.Intn(3) // 1-3
	case r < 0.7:
		return 4 + s.rng.Intn(3) // 4-6
	case r < 0.9:
		return 7 + s.rng.Intn(2) // 7-8
	default:
		return 9 + s.rng.Intn(2) // 9-10
	}
}
