package flow

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/banton/medical-patients-sub001/engine/clock"
	"github.com/banton/medical-patients-sub001/engine/config"
	"github.com/banton/medical-patients-sub001/engine/internal/csu"
	"github.com/banton/medical-patients-sub001/engine/internal/deaths"
	"github.com/banton/medical-patients-sub001/engine/internal/deterioration"
	"github.com/banton/medical-patients-sub001/engine/internal/diagnostics"
	"github.com/banton/medical-patients-sub001/engine/internal/facility"
	"github.com/banton/medical-patients-sub001/engine/internal/health"
	"github.com/banton/medical-patients-sub001/engine/internal/routing"
	"github.com/banton/medical-patients-sub001/engine/internal/transport"
	"github.com/banton/medical-patients-sub001/engine/internal/treatment"
	"github.com/banton/medical-patients-sub001/engine/internal/triage"
	"github.com/banton/medical-patients-sub001/engine/models"
)

// Options configure one orchestrator instance.
type Options struct {
	BaseTime          time.Time
	Seed              int64
	EnableDiagnostics bool
	Transport         transport.Config
	CSUBatchSize      int
	CSUMaxHoldMinutes float64
}

// Metrics aggregates orchestrator-level counters.
type Metrics struct {
	TotalPatients      int     `json:"total_patients"`
	PatientsTreated    int     `json:"patients_treated"`
	PatientsDied       int     `json:"patients_died"`
	PatientsEvacuated  int     `json:"patients_evacuated"`
	PatientsDischarged int     `json:"patients_discharged"`
	OverflowEvents     int     `json:"facility_overflow_events"`
	CSUBatches         int     `json:"csu_batches_processed"`
	TransportMissions  int     `json:"transport_missions"`
	DiagnosticAccuracy float64 `json:"diagnostic_accuracy"`
	CorrectDiagnoses   int     `json:"correct_diagnoses"`
	Misdiagnoses       int     `json:"misdiagnoses"`
}

// Status is the orchestrator's system snapshot.
type Status struct {
	SimulationTime  time.Time          `json:"simulation_time"`
	PatientsByState map[string]int     `json:"patients_by_state"`
	Alive           int                `json:"alive"`
	Facilities      map[string]int     `json:"facilities"`
	Transport       transport.Metrics  `json:"transport"`
	CSUHold         csu.HoldInfo       `json:"csu_batch"`
	Deaths          deaths.Statistics  `json:"death_statistics"`
	Routing         routing.Metrics    `json:"routing"`
	Metrics         Metrics            `json:"metrics"`
}

// Orchestrator owns the logical clock and the patient map, and drives every
// simulation component. It is single-threaded by design: one orchestrator per
// cohort, never shared across goroutines.
type Orchestrator struct {
	clk *clock.Simulated
	rng *rand.Rand

	healthEngine *health.Engine
	detCalc      *deterioration.Calculator
	triageMapper *triage.Mapper
	facilities   *facility.Manager
	router       *routing.Router
	transport    *transport.Scheduler
	csu          *csu.Coordinator
	deaths       *deaths.Tracker
	diagnostics  *diagnostics.Engine // nil when disabled
	protocols    *treatment.ProtocolManager
	utility      *treatment.UtilityModel

	patients  map[string]*models.Patient
	order     []string
	injuredAt map[string]time.Time

	metrics Metrics
}

// New builds a fully wired orchestrator over the catalog.
func New(cat *config.Catalog, opts Options) *Orchestrator {
	if opts.BaseTime.IsZero() {
		opts.BaseTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if opts.Transport.RouteMinutes == nil {
		opts.Transport = transport.DefaultConfig()
	}
	clk := clock.NewSimulated(opts.BaseTime)
	rng := rand.New(rand.NewSource(opts.Seed))

	fm := facility.NewManager()
	protocols := treatment.NewProtocolManager()

	o := &Orchestrator{
		clk:          clk,
		rng:          rng,
		healthEngine: health.NewEngine(cat, rng),
		detCalc:      deterioration.NewCalculator(cat),
		triageMapper: triage.NewMapper(),
		facilities:   fm,
		router:       routing.NewRouter(fm),
		transport:    transport.NewScheduler(opts.Transport, clk),
		csu:          csu.NewCoordinator(fm, clk, opts.CSUBatchSize, opts.CSUMaxHoldMinutes),
		deaths:       deaths.NewTracker(),
		protocols:    protocols,
		utility:      treatment.NewUtilityModel(cat, protocols, rng),
		patients:     make(map[string]*models.Patient),
		injuredAt:    make(map[string]time.Time),
	}
	if opts.EnableDiagnostics {
		o.diagnostics = diagnostics.NewEngine(cat, rng)
	}
	return o
}

// Now returns the current simulated instant.
func (o *Orchestrator) Now() time.Time { return o.clk.Now() }

// Patient returns the patient by id.
func (o *Orchestrator) Patient(id string) (*models.Patient, bool) {
	p, ok := o.patients[id]
	return p, ok
}

// PatientIDs returns patient ids in creation order.
func (o *Orchestrator) PatientIDs() []string {
	return append([]string(nil), o.order...)
}

// Facilities exposes the capacity manager for read-side inspection.
func (o *Orchestrator) Facilities() *facility.Manager { return o.facilities }

func (o *Orchestrator) appendTimeline(p *models.Patient, event, location string, details map[string]any) {
	p.Timeline = append(p.Timeline, models.TimelineEvent{
		Timestamp: o.clk.Now(),
		Event:     event,
		Location:  location,
		Details:   details,
	})
}

// InitializePatient materializes a patient entering the system at POI.
func (o *Orchestrator) InitializePatient(id string, injuryType models.InjuryType, severityScore int, location string, trueCondition string, triageOverride models.TriageCategory, bodyPart string) *models.Patient {
	if location == "" {
		location = models.LocationPOI
	}
	band := models.BandForScore(severityScore)
	initial := o.healthEngine.InitialHealth(injuryType, band, severityScore, trueCondition)

	category := triageOverride
	if category == "" {
		category = o.triageMapper.Categorize(initial, band, nil, false).Category
	}

	p := &models.Patient{
		ID:              id,
		InjuryType:      injuryType,
		Severity:        band,
		SeverityScore:   severityScore,
		BodyPart:        bodyPart,
		TrueCondition:   trueCondition,
		InitialHealth:   initial,
		CurrentHealth:   initial,
		Triage:          category,
		State:           models.StateAtPOI,
		CurrentLocation: location,
	}
	o.patients[id] = p
	o.order = append(o.order, id)
	o.injuredAt[id] = o.clk.Now()
	o.metrics.TotalPatients++

	if o.diagnostics != nil && trueCondition != "" {
		record := o.diagnostics.Diagnose(trueCondition, location, id, &diagnostics.Modifiers{Triage: category}, o.clk.Now())
		p.Diagnoses = append(p.Diagnoses, record)
		p.DiagnosticConfidence = record.Confidence
		o.syncDiagnosticMetrics()
	}

	o.appendTimeline(p, "arrived_at_poi", location, map[string]any{
		"health": initial,
		"triage": string(category),
	})
	return p
}

// ProcessTriage re-assesses the patient and selects the initial destination
// facility. When the preferred facility is saturated the overflow router
// chooses (and reserves) an alternative.
func (o *Orchestrator) ProcessTriage(id string) (models.TriageCategory, string, error) {
	p, ok := o.patients[id]
	if !ok {
		return "", "", fmt.Errorf("%w: %s", models.ErrPatientNotFound, id)
	}
	p.State = models.StateInTriage

	result := o.triageMapper.Categorize(p.CurrentHealth, p.Severity, nil, false)
	p.Triage = result.Category

	destinations := map[models.TriageCategory]string{
		models.TriageImmediate: models.FacilityRole2,
		models.TriageDelayed:   models.FacilityRole1,
		models.TriageMinimal:   models.FacilityRole1,
		models.TriageExpectant: models.FacilityRole1,
	}
	destination := destinations[p.Triage]

	if o.facilities.AvailableBeds(destination) <= 0 {
		priority := models.PriorityRoutine
		if p.Triage == models.TriageImmediate {
			priority = models.PriorityUrgent
		}
		routed := o.router.Route(id, p.Triage, priority, nil)
		destination = routed.RoutedTo
		o.metrics.OverflowEvents++
	}

	p.Destination = destination
	o.appendTimeline(p, "triaged", p.CurrentLocation, map[string]any{
		"triage":      string(p.Triage),
		"assigned_to": destination,
	})
	return p.Triage, destination, nil
}

// ReassessTriage re-runs the triage mapper against current health, optionally
// under mass-casualty rules, and updates the patient.
func (o *Orchestrator) ReassessTriage(id string, massCasualty bool) (models.TriageCategory, error) {
	p, ok := o.patients[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", models.ErrPatientNotFound, id)
	}
	result := o.triageMapper.Categorize(p.CurrentHealth, p.Severity, nil, massCasualty)
	p.Triage = result.Category
	return p.Triage, nil
}

// TransportStatus reports the live view of an active mission.
func (o *Orchestrator) TransportStatus(missionID string) (transport.MissionStatus, bool) {
	return o.transport.Status(missionID)
}

// SelectTreatments runs the utility model for the patient at their current
// facility.
func (o *Orchestrator) SelectTreatments(id string, maxTreatments int) ([]treatment.Selection, error) {
	p, ok := o.patients[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrPatientNotFound, id)
	}
	code := p.TrueCondition
	if o.diagnostics != nil && len(p.Diagnoses) > 0 {
		// Treat what was diagnosed, not what is true.
		code = p.Diagnoses[len(p.Diagnoses)-1].DiagnosedCode
	}
	elapsed := int(o.clk.Now().Sub(o.injuredAt[id]).Minutes())
	selections := o.utility.Select(code, p.Severity, p.CurrentLocation, elapsed, 100, maxTreatments, o.clk.Now())

	// Anatomical constraints still apply to whatever the model picked.
	filtered := selections[:0]
	for _, s := range selections {
		if treatment.AllowedForBodyPart(s.Name, p.BodyPart) {
			filtered = append(filtered, s)
		}
	}
	return filtered, nil
}

// ApplyTreatments applies the selections, boosting health and recording each
// treatment with its effects. Returns the new health.
func (o *Orchestrator) ApplyTreatments(id string, selections []treatment.Selection) (float64, error) {
	p, ok := o.patients[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", models.ErrPatientNotFound, id)
	}
	if p.State.Terminal() {
		return p.CurrentHealth, fmt.Errorf("%w: patient %s is %s", models.ErrInvalidOperation, id, p.State)
	}
	if len(selections) == 0 {
		return p.CurrentHealth, nil
	}
	p.State = models.StateInTreatment

	names := make([]string, 0, len(selections))
	for _, s := range selections {
		names = append(names, s.Name)
	}
	boost := treatment.StackedBoost(names)

	before := p.CurrentHealth
	after := models.ClampHealth(before + boost)
	p.CurrentHealth = after

	now := o.clk.Now()
	for _, s := range selections {
		eff, _ := treatment.EffectFor(s.Name)
		p.Treatments = append(p.Treatments, models.AppliedTreatment{
			Name:                  s.Name,
			AppliedAt:             now,
			UtilityScore:          s.UtilityScore,
			HealthBoost:           eff.HealthBoost,
			DeteriorationModifier: eff.DeteriorationModifier,
		})
	}
	o.metrics.PatientsTreated++

	if after <= 0 {
		o.handleDeath(id, "treatment_failed")
		return 0, nil
	}
	// Record the observed pair; no reconstruction arithmetic on the "before"
	// value.
	o.appendTimeline(p, "treatment_applied", p.CurrentLocation, map[string]any{
		"treatments":    names,
		"health_before": before,
		"health_after":  after,
	})
	return after, nil
}

// Deteriorate applies sub-hour deterioration: base rate scaled by triage and
// the best active treatment modifier, divided to minutes.
func (o *Orchestrator) Deteriorate(id string, minutes float64) (float64, error) {
	p, ok := o.patients[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", models.ErrPatientNotFound, id)
	}
	if p.State == models.StateDied {
		return 0, nil
	}
	if p.State == models.StateDischarged || p.State == models.StateEvacuated {
		return p.CurrentHealth, nil
	}

	rate := o.detCalc.BaseRate(p.InjuryType, p.Severity, nil)
	rate = o.detCalc.TriageMultiplier(rate, p.Triage)

	if len(p.Treatments) > 0 {
		names := make([]string, 0, len(p.Treatments))
		for _, t := range p.Treatments {
			names = append(names, t.Name)
		}
		rate *= treatment.BestDeteriorationModifier(names)
	}

	p.CurrentHealth = models.ClampHealth(p.CurrentHealth - rate/60*minutes)
	if p.CurrentHealth <= 0 {
		o.handleDeath(id, "deterioration")
		return 0, nil
	}
	return p.CurrentHealth, nil
}

// Recover applies healing at advanced facilities, capped at 100. RTD is not
// triggered here; discharge is a deliberate transition via TryDischarge.
func (o *Orchestrator) Recover(id string, minutes, ratePerHour float64) (float64, error) {
	p, ok := o.patients[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", models.ErrPatientNotFound, id)
	}
	if p.State.Terminal() {
		return p.CurrentHealth, nil
	}
	p.CurrentHealth = models.ClampHealth(p.CurrentHealth + ratePerHour/60*minutes)
	return p.CurrentHealth, nil
}

// TryDischarge discharges (RTD) a fully recovered patient at a treatment
// facility who has received at least one treatment.
func (o *Orchestrator) TryDischarge(id string) bool {
	p, ok := o.patients[id]
	if !ok || p.State.Terminal() {
		return false
	}
	if p.CurrentHealth < 100 || len(p.Treatments) == 0 {
		return false
	}
	switch p.CurrentLocation {
	case models.FacilityRole1, models.FacilityRole2, models.FacilityRole3, models.FacilityRole4:
	default:
		return false
	}
	o.dischargeBeds(id)
	now := o.clk.Now()
	p.State = models.StateDischarged
	p.DischargedAt = &now
	o.metrics.PatientsDischarged++
	o.appendTimeline(p, "discharged_rtd", p.CurrentLocation, map[string]any{
		"reason":       "recovered",
		"final_health": p.CurrentHealth,
	})
	return true
}

// Transport schedules evacuation to the destination. Returns the mission id,
// empty when the mission had to queue for a vehicle.
func (o *Orchestrator) Transport(id, destination string) (string, error) {
	p, ok := o.patients[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", models.ErrPatientNotFound, id)
	}
	if p.State.Terminal() {
		return "", fmt.Errorf("%w: patient %s is %s", models.ErrInvalidOperation, id, p.State)
	}
	priority := models.PriorityRoutine
	if p.Triage == models.TriageImmediate {
		priority = models.PriorityUrgent
	}
	mission := o.transport.Schedule(id, p.CurrentLocation, destination, priority, p.CurrentHealth)

	p.State = models.StateInTransport
	p.Destination = destination
	p.TransportID = mission.ID
	o.metrics.TransportMissions++

	o.appendTimeline(p, "transport_started", p.CurrentLocation, map[string]any{
		"to":             destination,
		"transport_type": string(mission.Vehicle),
		"estimated_time": mission.DurationMinutes,
		"risk":           string(mission.Risk),
	})
	if mission.Status == models.MissionQueued {
		return "", nil
	}
	return mission.ID, nil
}

// CompleteTransport finishes the patient's mission: a dead patient is a
// died-in-transit outcome; otherwise the patient is admitted at the
// destination, falling back to the overflow cascade when the facility filled
// up in transit.
func (o *Orchestrator) CompleteTransport(id string) (bool, error) {
	p, ok := o.patients[id]
	if !ok {
		return false, fmt.Errorf("%w: %s", models.ErrPatientNotFound, id)
	}
	if p.TransportID == "" {
		return false, fmt.Errorf("%w: patient %s has no active transport", models.ErrInvalidOperation, id)
	}

	outcome := transport.OutcomeDelivered
	if p.CurrentHealth <= 0 || p.State == models.StateDied {
		outcome = transport.OutcomeDiedInTransit
	}
	result := o.transport.Complete(p.TransportID, outcome)
	if !result.Success {
		return false, fmt.Errorf("%w: mission %s", models.ErrInvalidOperation, p.TransportID)
	}

	if outcome == transport.OutcomeDiedInTransit {
		if p.State != models.StateDied {
			o.handleDeath(id, "died_in_transit")
		}
		p.TransportID = ""
		return false, nil
	}

	destination := p.Destination
	admission := o.facilities.Admit(id, destination, o.admitPriority(p))
	if !admission.Success && admission.Reason == "already_admitted" {
		// Bed was reserved when the router placed the patient.
		admission.Success = true
	}
	if admission.Success {
		o.arriveAt(p, destination)
		return true, nil
	}

	// Destination filled while in transit: follow the overflow cascade. The
	// failed admission queued the patient; pull them back out first.
	o.facilities.RemoveFromQueues(id, destination)
	o.facilities.ProcessQueue(destination)
	o.metrics.OverflowEvents++
	for _, next := range o.facilities.OverflowRecommendation(destination) {
		if o.facilities.AvailableBeds(next) > 0 {
			p.TransportID = ""
			if _, err := o.Transport(id, next); err != nil {
				return false, err
			}
			return true, nil
		}
	}

	// Nowhere to go: hold in the destination queue.
	p.State = models.StateInQueue
	p.TransportID = ""
	o.appendTimeline(p, "queued_at_facility", destination, map[string]any{"reason": "all_facilities_full"})
	return false, nil
}

func (o *Orchestrator) admitPriority(p *models.Patient) models.Priority {
	if p.Triage == models.TriageImmediate {
		return models.PriorityUrgent
	}
	return models.PriorityRoutine
}

func (o *Orchestrator) arriveAt(p *models.Patient, destination string) {
	p.CurrentLocation = destination
	p.State = models.StateInTreatment
	p.Destination = ""
	p.TransportID = ""

	if o.diagnostics != nil && p.TrueCondition != "" {
		o.refreshDiagnosis(p, destination)
	}

	o.appendTimeline(p, "arrived_at_facility", destination, nil)
}

// refreshDiagnosis re-runs diagnosis at the (higher-accuracy) facility and
// records the progression.
func (o *Orchestrator) refreshDiagnosis(p *models.Patient, facilityName string) {
	current := ""
	if len(p.Diagnoses) > 0 {
		current = p.Diagnoses[len(p.Diagnoses)-1].DiagnosedCode
	}
	additional := []string{"multiple_examinations"}
	o.diagnostics.Progress(p.ID, current, facilityName, additional)

	record := o.diagnostics.Diagnose(p.TrueCondition, facilityName, p.ID, &diagnostics.Modifiers{
		Triage:               p.Triage,
		TimeWithPatientHours: 0.5,
		AdditionalInfo:       additional,
	}, o.clk.Now())
	p.Diagnoses = append(p.Diagnoses, record)
	if record.Confidence > p.DiagnosticConfidence {
		p.DiagnosticConfidence = record.Confidence
	}
	o.syncDiagnosticMetrics()

	o.appendTimeline(p, "diagnosis_updated", facilityName, map[string]any{
		"previous_diagnosis": current,
		"new_diagnosis":      record.DiagnosedCode,
		"confidence":         record.Confidence,
	})
}

func (o *Orchestrator) syncDiagnosticMetrics() {
	if o.diagnostics == nil {
		return
	}
	o.metrics.CorrectDiagnoses, o.metrics.Misdiagnoses = o.diagnostics.Counts()
	o.metrics.DiagnosticAccuracy = o.diagnostics.AccuracyRate()
}

// EvacuateToCSU stages patients into the CSU batch and, when the batch is
// ready, releases it: patients transfer to the recommended destination on a
// bus and transition to EVACUATED.
func (o *Orchestrator) EvacuateToCSU(ids []string) bool {
	for _, id := range ids {
		p, ok := o.patients[id]
		if !ok || p.State == models.StateDied {
			continue
		}
		o.csu.Add(id, p.Triage)
	}
	if !o.csu.Ready() {
		return false
	}

	plan := o.csu.Prepare()
	result := o.csu.Execute(plan.Destination, false)
	if !result.Success {
		return false
	}

	patientIDs := make([]string, 0, len(plan.Patients))
	for _, entry := range plan.Patients {
		patientIDs = append(patientIDs, entry.PatientID)
	}
	o.transport.ScheduleBatch(patientIDs, models.FacilityCSU, plan.Destination)

	for _, entry := range plan.Patients {
		p, ok := o.patients[entry.PatientID]
		if !ok {
			continue
		}
		p.State = models.StateEvacuated
		p.CurrentLocation = plan.Destination
		o.appendTimeline(p, "evacuated_to_csu_batch", plan.Destination, map[string]any{
			"destination": plan.Destination,
			"batch_size":  len(plan.Patients),
		})
	}
	o.metrics.CSUBatches++
	o.metrics.PatientsEvacuated += result.TransferredCount
	return true
}

// handleDeath finalizes a fatality: classify, free any bed, stamp the record.
func (o *Orchestrator) handleDeath(id, cause string) {
	p, ok := o.patients[id]
	if !ok || p.State == models.StateDied {
		return
	}
	location := p.CurrentLocation
	if p.State == models.StateInTransport {
		location = models.LocationInTransit
	}

	o.dischargeBeds(id)

	now := o.clk.Now()
	minutesSinceInjury := now.Sub(o.injuredAt[id]).Minutes()
	o.deaths.Track(deaths.Info{
		PatientID:          id,
		InjuryType:         p.InjuryType,
		Location:           location,
		TimeOfDeathMinutes: minutesSinceInjury,
		DiedAt:             now,
		InitialHealth:      p.InitialHealth,
		TreatmentCount:     len(p.Treatments),
		Cause:              cause,
	})

	p.State = models.StateDied
	p.CurrentHealth = 0
	p.DiedAt = &now
	o.metrics.PatientsDied++

	o.appendTimeline(p, "died", location, map[string]any{"cause": cause})
}

// dischargeBeds removes the patient from every admitted set (normally at most
// one, but router reservations make the sweep necessary).
func (o *Orchestrator) dischargeBeds(id string) {
	for _, name := range o.facilities.Names() {
		if o.facilities.Admitted(id, name) {
			o.facilities.Discharge(id, name)
			o.facilities.ProcessQueue(name)
		}
	}
}

// AdvanceTime moves the clock and deteriorates every non-terminal,
// non-evacuated patient. Iteration runs over a snapshot of ids so patients
// materialized mid-call are unaffected for this tick.
func (o *Orchestrator) AdvanceTime(minutes float64) {
	o.clk.Advance(time.Duration(minutes * float64(time.Minute)))

	snapshot := append([]string(nil), o.order...)
	for _, id := range snapshot {
		p, ok := o.patients[id]
		if !ok {
			continue
		}
		if p.State == models.StateDied || p.State == models.StateEvacuated || p.State == models.StateDischarged {
			continue
		}
		_, _ = o.Deteriorate(id, minutes)
	}
}

// Cleanup releases every bed and vehicle still held. Used when a run is
// cancelled so resources return through the normal discharge/complete paths.
func (o *Orchestrator) Cleanup() {
	for _, id := range o.order {
		p := o.patients[id]
		if p.TransportID != "" {
			o.transport.Complete(p.TransportID, transport.OutcomeDelivered)
			p.TransportID = ""
		}
		o.dischargeBeds(id)
	}
}

// DeathStatistics exposes the tracker aggregates.
func (o *Orchestrator) DeathStatistics() deaths.Statistics { return o.deaths.Statistics() }

// DeathRecords exposes the tracked death records.
func (o *Orchestrator) DeathRecords() []deaths.Record { return o.deaths.Records() }

// TransportMetrics exposes scheduler counters.
func (o *Orchestrator) TransportMetrics() transport.Metrics { return o.transport.Metrics() }

// Metrics returns the orchestrator counters.
func (o *Orchestrator) Metrics() Metrics { return o.metrics }

// SystemStatus builds the full snapshot.
func (o *Orchestrator) SystemStatus() Status {
	byState := make(map[string]int)
	alive := 0
	for _, id := range o.order {
		p := o.patients[id]
		byState[string(p.State)]++
		if p.State != models.StateDied {
			alive++
		}
	}
	facilities := make(map[string]int)
	for _, name := range o.facilities.Names() {
		facilities[name] = o.facilities.Occupancy(name)
	}
	return Status{
		SimulationTime:  o.clk.Now(),
		PatientsByState: byState,
		Alive:           alive,
		Facilities:      facilities,
		Transport:       o.transport.Metrics(),
		CSUHold:         o.csu.Hold(),
		Deaths:          o.deaths.Statistics(),
		Routing:         o.router.Metrics(),
		Metrics:         o.metrics,
	}
}
