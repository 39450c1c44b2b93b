package flow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banton/medical-patients-sub001/engine/config"
	"github.com/banton/medical-patients-sub001/engine/internal/treatment"
	"github.com/banton/medical-patients-sub001/engine/models"
)

var testBase = time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC)

func newOrchestrator(seed int64, diagnostics bool) *Orchestrator {
	return New(config.Default(), Options{BaseTime: testBase, Seed: seed, EnableDiagnostics: diagnostics})
}

func selections(names ...string) []treatment.Selection {
	out := make([]treatment.Selection, 0, len(names))
	for _, n := range names {
		out = append(out, treatment.Selection{Name: n, UtilityScore: 0.9})
	}
	return out
}

func TestInitializePatient(t *testing.T) {
	o := newOrchestrator(1, false)
	p := o.InitializePatient("p1", models.InjuryBattle, 9, "", "", "", "leg")

	assert.Equal(t, models.SeveritySevere, p.Severity)
	assert.Equal(t, models.StateAtPOI, p.State)
	assert.Equal(t, models.LocationPOI, p.CurrentLocation)
	assert.Equal(t, p.InitialHealth, p.CurrentHealth)
	assert.GreaterOrEqual(t, p.InitialHealth, 35.0)
	assert.LessOrEqual(t, p.InitialHealth, 45.0)
	require.Len(t, p.Timeline, 1)
	assert.Equal(t, "arrived_at_poi", p.Timeline[0].Event)
}

// Untreated severe battle casualty: dies before hour three, at POI, as KIA,
// and preventably when still inside the golden hour.
func TestUntreatedSevereCasualtyDies(t *testing.T) {
	o := newOrchestrator(2, false)
	o.InitializePatient("p1", models.InjuryBattle, 9, "", "Penetrating head injury", models.TriageImmediate, "head")

	p, _ := o.Patient("p1")
	require.Equal(t, 25.0, p.InitialHealth) // condition override

	for i := 0; i < 18; i++ { // three hours in ten-minute ticks
		o.AdvanceTime(10)
	}

	assert.Equal(t, models.StateDied, p.State)
	assert.Equal(t, 0.0, p.CurrentHealth)
	require.NotNil(t, p.DiedAt)
	assert.True(t, p.DiedAt.Before(testBase.Add(3*time.Hour)))

	records := o.DeathRecords()
	require.Len(t, records, 1)
	assert.Equal(t, models.DeathKIA, records[0].Category)
	assert.True(t, records[0].Preventable) // viable, untreated, inside golden hour

	// A dead patient holds no bed anywhere.
	for _, name := range o.Facilities().Names() {
		assert.False(t, o.Facilities().Admitted("p1", name))
	}
}

// Treated severe casualty: tourniquet at 15, IV at 30, surgery at 120 keeps
// the patient alive through hour three with three recorded treatments.
func TestTreatedSevereCasualtySurvives(t *testing.T) {
	o := newOrchestrator(3, false)
	o.InitializePatient("p1", models.InjuryBattle, 9, "", "", models.TriageImmediate, "leg")

	o.AdvanceTime(15)
	_, err := o.ApplyTreatments("p1", selections("tourniquet"))
	require.NoError(t, err)

	o.AdvanceTime(15)
	_, err = o.ApplyTreatments("p1", selections("iv_fluids"))
	require.NoError(t, err)

	o.AdvanceTime(90)
	_, err = o.ApplyTreatments("p1", selections("damage_control_surgery"))
	require.NoError(t, err)

	o.AdvanceTime(60) // out to three hours

	p, _ := o.Patient("p1")
	assert.NotEqual(t, models.StateDied, p.State)
	assert.Greater(t, p.CurrentHealth, 0.0)
	require.Len(t, p.Treatments, 3)

	var applied []time.Time
	for _, ev := range p.Timeline {
		if ev.Event == "treatment_applied" {
			applied = append(applied, ev.Timestamp)
		}
	}
	require.Len(t, applied, 3)
	assert.Equal(t, testBase.Add(15*time.Minute), applied[0])
	assert.Equal(t, testBase.Add(30*time.Minute), applied[1])
	assert.Equal(t, testBase.Add(120*time.Minute), applied[2])
}

func TestTimelineMonotonic(t *testing.T) {
	o := newOrchestrator(4, false)
	o.InitializePatient("p1", models.InjuryBattle, 7, "", "", "", "")
	_, _, err := o.ProcessTriage("p1")
	require.NoError(t, err)
	o.AdvanceTime(30)
	_, _ = o.ApplyTreatments("p1", selections("pressure_bandage"))
	o.AdvanceTime(30)

	p, _ := o.Patient("p1")
	for i := 1; i < len(p.Timeline); i++ {
		assert.False(t, p.Timeline[i].Timestamp.Before(p.Timeline[i-1].Timestamp))
	}
}

func TestTransportLifecycle(t *testing.T) {
	o := newOrchestrator(5, false)
	o.InitializePatient("p1", models.InjuryBattle, 5, "", "", "", "")

	category, destination, err := o.ProcessTriage("p1")
	require.NoError(t, err)
	assert.NotEmpty(t, category)
	require.NotEmpty(t, destination)

	missionID, err := o.Transport("p1", destination)
	require.NoError(t, err)
	require.NotEmpty(t, missionID)

	p, _ := o.Patient("p1")
	assert.Equal(t, models.StateInTransport, p.State)

	o.AdvanceTime(30)
	admitted, err := o.CompleteTransport("p1")
	require.NoError(t, err)
	assert.True(t, admitted)

	assert.Equal(t, destination, p.CurrentLocation)
	assert.Equal(t, models.StateInTreatment, p.State)
	assert.Equal(t, "", p.TransportID)
	assert.True(t, o.Facilities().Admitted("p1", destination))

	metrics := o.TransportMetrics()
	assert.Equal(t, 1, metrics.Completed)
	assert.Equal(t, 0, metrics.ActiveMissions)
}

func TestRecoverAndDischarge(t *testing.T) {
	o := newOrchestrator(6, false)
	o.InitializePatient("p1", models.InjuryBattle, 2, "", "", models.TriageMinimal, "")

	p, _ := o.Patient("p1")
	p.CurrentLocation = models.FacilityRole3
	p.State = models.StateInTreatment

	// No discharge without treatment, even at full health.
	h, err := o.Recover("p1", 600, 50)
	require.NoError(t, err)
	assert.Equal(t, 100.0, h)
	assert.False(t, o.TryDischarge("p1"))

	_, err = o.ApplyTreatments("p1", selections("iv_fluids"))
	require.NoError(t, err)
	_, _ = o.Recover("p1", 600, 50)
	assert.True(t, o.TryDischarge("p1"))

	assert.Equal(t, models.StateDischarged, p.State)
	require.NotNil(t, p.DischargedAt)
	assert.Equal(t, 1, o.Metrics().PatientsDischarged)

	// Discharge is terminal: no further deterioration.
	o.AdvanceTime(120)
	assert.Equal(t, 100.0, p.CurrentHealth)
}

func TestRTDNotAppliedDuringBulkDeterioration(t *testing.T) {
	o := newOrchestrator(7, false)
	o.InitializePatient("p1", models.InjuryBattle, 2, "", "", models.TriageMinimal, "")

	p, _ := o.Patient("p1")
	p.CurrentLocation = models.FacilityRole3
	p.State = models.StateInTreatment
	_, _ = o.ApplyTreatments("p1", selections("iv_fluids"))
	_, _ = o.Recover("p1", 600, 50)
	require.Equal(t, 100.0, p.CurrentHealth)

	// Bulk deterioration never discharges; that is a deliberate transition.
	o.AdvanceTime(1)
	assert.NotEqual(t, models.StateDischarged, p.State)
}

func TestAdvanceTimeSkipsTerminalStates(t *testing.T) {
	o := newOrchestrator(8, false)
	o.InitializePatient("p1", models.InjuryBattle, 9, "", "", models.TriageImmediate, "")
	p, _ := o.Patient("p1")
	p.State = models.StateEvacuated
	before := p.CurrentHealth

	o.AdvanceTime(60)
	assert.Equal(t, before, p.CurrentHealth)
}

func TestDiagnosisRefreshOnArrival(t *testing.T) {
	o := newOrchestrator(9, true)
	o.InitializePatient("p1", models.InjuryBattle, 7, "", "19130008", "", "")

	p, _ := o.Patient("p1")
	require.NotEmpty(t, p.Diagnoses) // initial POI diagnosis

	_, destination, err := o.ProcessTriage("p1")
	require.NoError(t, err)
	_, err = o.Transport("p1", destination)
	require.NoError(t, err)
	o.AdvanceTime(30)
	_, err = o.CompleteTransport("p1")
	require.NoError(t, err)

	assert.Greater(t, len(p.Diagnoses), 1)
	// Confidence never decreases across facility progression.
	assert.GreaterOrEqual(t, p.DiagnosticConfidence, p.Diagnoses[0].Confidence)

	m := o.Metrics()
	assert.Equal(t, len(p.Diagnoses), m.CorrectDiagnoses+m.Misdiagnoses)
}

func TestEvacuateToCSUBatch(t *testing.T) {
	o := newOrchestrator(10, false)

	var ids []string
	for i := 0; i < 10; i++ {
		id := string(rune('a' + i))
		o.InitializePatient(id, models.InjuryBattle, 4, "", "", models.TriageDelayed, "")
		res := o.Facilities().Admit(id, models.FacilityCSU, models.PriorityRoutine)
		require.True(t, res.Success)
		ids = append(ids, id)
	}

	require.True(t, o.EvacuateToCSU(ids))

	assert.Equal(t, 0, o.Facilities().Occupancy(models.FacilityCSU))
	assert.Equal(t, 10, o.Facilities().Occupancy(models.FacilityRole2))
	for _, id := range ids {
		p, _ := o.Patient(id)
		assert.Equal(t, models.StateEvacuated, p.State)
	}
	assert.Equal(t, 1, o.Metrics().CSUBatches)
	assert.Equal(t, 10, o.Metrics().PatientsEvacuated)
}

func TestSystemStatus(t *testing.T) {
	o := newOrchestrator(11, false)
	o.InitializePatient("p1", models.InjuryBattle, 5, "", "", "", "")
	o.InitializePatient("p2", models.InjuryDisease, 3, "", "", "", "")

	status := o.SystemStatus()
	assert.Equal(t, 2, status.Metrics.TotalPatients)
	assert.Equal(t, 2, status.Alive)
	assert.Len(t, status.Facilities, 4)
	assert.Equal(t, testBase, status.SimulationTime)
}

func TestHealthClampedEverywhere(t *testing.T) {
	o := newOrchestrator(12, false)
	o.InitializePatient("p1", models.InjuryBattle, 9, "", "", models.TriageImmediate, "")
	p, _ := o.Patient("p1")

	_, _ = o.ApplyTreatments("p1", selections("definitive_surgery", "blood_transfusion"))
	assert.LessOrEqual(t, p.CurrentHealth, 100.0)

	o.AdvanceTime(600)
	assert.GreaterOrEqual(t, p.CurrentHealth, 0.0)
}
