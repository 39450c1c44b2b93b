package facility

import (
	"github.com/banton/medical-patients-sub001/engine/models"
)

// Default bed capacities and overflow thresholds by facility.
var defaultFacilities = []struct {
	name      string
	capacity  int
	threshold float64
}{
	{models.FacilityRole1, 20, 0.8},
	{models.FacilityRole2, 60, 0.85},
	{models.FacilityRole3, 200, 0.9},
	{models.FacilityCSU, 50, 0.8},
}

// overflowCascade is the fixed escalation path per facility.
var overflowCascade = map[string][]string{
	models.FacilityRole1: {models.FacilityCSU, models.FacilityRole2},
	models.FacilityRole2: {models.FacilityRole3},
	models.FacilityRole3: {},
	models.FacilityCSU:   {models.FacilityRole2, models.FacilityRole3},
}

type facilityState struct {
	name          string
	capacity      int
	occupied      int
	threshold     float64
	admitted      map[string]bool
	admittedOrder []string
	priorityQueue []string
	routineQueue  []string
}

// AdmitResult is the structured outcome of an admission attempt. A full
// facility queues the patient rather than erroring.
type AdmitResult struct {
	Success       bool   `json:"success"`
	Facility      string `json:"facility,omitempty"`
	BedNumber     int    `json:"bed_number,omitempty"`
	Queued        bool   `json:"queued,omitempty"`
	QueuePosition int    `json:"queue_position,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

// TransferResult is the structured outcome of a transfer.
type TransferResult struct {
	Success bool   `json:"success"`
	From    string `json:"from,omitempty"`
	To      string `json:"to,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// Status summarizes one facility.
type Status struct {
	Capacity          int      `json:"capacity"`
	Occupied          int      `json:"occupied"`
	Available         int      `json:"available"`
	Utilization       float64  `json:"utilization"`
	QueueLength       int      `json:"queue_length"`
	Patients          []string `json:"patients"`
	OverflowTriggered bool     `json:"overflow_triggered"`
}

// Overview aggregates the whole bed system.
type Overview struct {
	TotalCapacity     int               `json:"total_capacity"`
	TotalOccupied     int               `json:"total_occupied"`
	TotalAvailable    int               `json:"total_available"`
	SystemUtilization float64           `json:"system_utilization"`
	Facilities        map[string]Status `json:"facilities"`
}

// Manager owns bed pools and queues for all facilities. It is mutated only by
// the single-threaded orchestrator that owns it, so it carries no locks.
type Manager struct {
	facilities map[string]*facilityState
	order      []string
}

// NewManager builds the standard Role1/Role2/Role3/CSU layout.
func NewManager() *Manager {
	m := &Manager{facilities: make(map[string]*facilityState)}
	for _, f := range defaultFacilities {
		m.facilities[f.name] = &facilityState{
			name:      f.name,
			capacity:  f.capacity,
			threshold: f.threshold,
			admitted:  make(map[string]bool),
		}
		m.order = append(m.order, f.name)
	}
	return m
}

// Capacity returns total beds at a facility (0 for unknown names).
func (m *Manager) Capacity(facility string) int {
	if f, ok := m.facilities[facility]; ok {
		return f.capacity
	}
	return 0
}

// Occupancy returns occupied beds.
func (m *Manager) Occupancy(facility string) int {
	if f, ok := m.facilities[facility]; ok {
		return f.occupied
	}
	return 0
}

// AvailableBeds returns free beds.
func (m *Manager) AvailableBeds(facility string) int {
	if f, ok := m.facilities[facility]; ok {
		return f.capacity - f.occupied
	}
	return 0
}

// Admitted reports whether the patient occupies a bed at the facility.
func (m *Manager) Admitted(patientID, facility string) bool {
	if f, ok := m.facilities[facility]; ok {
		return f.admitted[patientID]
	}
	return false
}

// Admit places a patient into a bed, or queues them (priority queue for
// urgent) when the facility is full.
func (m *Manager) Admit(patientID, facility string, priority models.Priority) AdmitResult {
	f, ok := m.facilities[facility]
	if !ok {
		return AdmitResult{Success: false, Reason: "invalid_facility"}
	}
	if f.admitted[patientID] {
		return AdmitResult{Success: false, Reason: "already_admitted"}
	}
	if f.occupied < f.capacity {
		f.admitted[patientID] = true
		f.admittedOrder = append(f.admittedOrder, patientID)
		f.occupied++
		return AdmitResult{Success: true, Facility: facility, BedNumber: f.occupied}
	}
	if priority == models.PriorityUrgent {
		f.priorityQueue = append(f.priorityQueue, patientID)
	} else {
		f.routineQueue = append(f.routineQueue, patientID)
	}
	return AdmitResult{
		Success:       false,
		Reason:        "facility_full",
		Queued:        true,
		QueuePosition: len(f.priorityQueue) + len(f.routineQueue),
	}
}

// Discharge frees the patient's bed. Unknown patients fail.
func (m *Manager) Discharge(patientID, facility string) AdmitResult {
	f, ok := m.facilities[facility]
	if !ok {
		return AdmitResult{Success: false, Reason: "invalid_facility"}
	}
	if !f.admitted[patientID] {
		return AdmitResult{Success: false, Reason: "patient_not_found"}
	}
	delete(f.admitted, patientID)
	for i, id := range f.admittedOrder {
		if id == patientID {
			f.admittedOrder = append(f.admittedOrder[:i], f.admittedOrder[i+1:]...)
			break
		}
	}
	f.occupied--
	return AdmitResult{Success: true, Facility: facility}
}

// Transfer is discharge-then-admit with rollback: on admit failure the patient
// is re-admitted at the origin.
func (m *Manager) Transfer(patientID, from, to string) TransferResult {
	discharge := m.Discharge(patientID, from)
	if !discharge.Success {
		return TransferResult{Success: false, Reason: discharge.Reason}
	}
	admit := m.Admit(patientID, to, models.PriorityRoutine)
	if !admit.Success {
		// Remove from destination queue before rolling back.
		m.removeFromQueues(patientID, to)
		m.Admit(patientID, from, models.PriorityRoutine)
		return TransferResult{Success: false, Reason: "transfer_failed"}
	}
	return TransferResult{Success: true, From: from, To: to}
}

// RemoveFromQueues drops any queued entries for the patient at the facility.
func (m *Manager) RemoveFromQueues(patientID, facility string) {
	m.removeFromQueues(patientID, facility)
}

func (m *Manager) removeFromQueues(patientID, facility string) {
	f, ok := m.facilities[facility]
	if !ok {
		return
	}
	f.priorityQueue = removeID(f.priorityQueue, patientID)
	f.routineQueue = removeID(f.routineQueue, patientID)
}

func removeID(queue []string, id string) []string {
	for i, q := range queue {
		if q == id {
			return append(queue[:i], queue[i+1:]...)
		}
	}
	return queue
}

// QueueLength returns total queued patients (both queues).
func (m *Manager) QueueLength(facility string) int {
	if f, ok := m.facilities[facility]; ok {
		return len(f.priorityQueue) + len(f.routineQueue)
	}
	return 0
}

// Queue returns the ordered queue, priority patients first.
func (m *Manager) Queue(facility string) []string {
	f, ok := m.facilities[facility]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(f.priorityQueue)+len(f.routineQueue))
	out = append(out, f.priorityQueue...)
	out = append(out, f.routineQueue...)
	return out
}

// ProcessQueue admits queued patients while beds are free, priority queue
// first, and returns the ids admitted.
func (m *Manager) ProcessQueue(facility string) []string {
	f, ok := m.facilities[facility]
	if !ok {
		return nil
	}
	var admitted []string
	for f.occupied < f.capacity && len(f.priorityQueue) > 0 {
		id := f.priorityQueue[0]
		f.priorityQueue = f.priorityQueue[1:]
		if m.Admit(id, facility, models.PriorityUrgent).Success {
			admitted = append(admitted, id)
		}
	}
	for f.occupied < f.capacity && len(f.routineQueue) > 0 {
		id := f.routineQueue[0]
		f.routineQueue = f.routineQueue[1:]
		if m.Admit(id, facility, models.PriorityRoutine).Success {
			admitted = append(admitted, id)
		}
	}
	return admitted
}

// Status reports the state of one facility.
func (m *Manager) Status(facility string) Status {
	f, ok := m.facilities[facility]
	if !ok {
		return Status{}
	}
	utilization := 0.0
	if f.capacity > 0 {
		utilization = float64(f.occupied) / float64(f.capacity)
	}
	return Status{
		Capacity:          f.capacity,
		Occupied:          f.occupied,
		Available:         f.capacity - f.occupied,
		Utilization:       utilization,
		QueueLength:       len(f.priorityQueue) + len(f.routineQueue),
		Patients:          append([]string(nil), f.admittedOrder...),
		OverflowTriggered: utilization >= f.threshold,
	}
}

// Overview aggregates all facilities.
func (m *Manager) Overview() Overview {
	ov := Overview{Facilities: make(map[string]Status, len(m.order))}
	for _, name := range m.order {
		st := m.Status(name)
		ov.Facilities[name] = st
		ov.TotalCapacity += st.Capacity
		ov.TotalOccupied += st.Occupied
	}
	ov.TotalAvailable = ov.TotalCapacity - ov.TotalOccupied
	if ov.TotalCapacity > 0 {
		ov.SystemUtilization = float64(ov.TotalOccupied) / float64(ov.TotalCapacity)
	}
	return ov
}

// OverflowNeeded reports whether utilization crossed the facility threshold.
func (m *Manager) OverflowNeeded(facility string) bool {
	f, ok := m.facilities[facility]
	if !ok || f.capacity == 0 {
		return false
	}
	return float64(f.occupied)/float64(f.capacity) >= f.threshold
}

// OverflowRecommendation returns the fixed cascade for a facility.
func (m *Manager) OverflowRecommendation(facility string) []string {
	return append([]string(nil), overflowCascade[facility]...)
}

// Names lists facilities in routing order.
func (m *Manager) Names() []string {
	return append([]string(nil), m.order...)
}

// CSUPatients returns up to n patients currently staged at the CSU.
func (m *Manager) CSUPatients(n int) []string {
	f, ok := m.facilities[models.FacilityCSU]
	if !ok {
		return nil
	}
	if n > len(f.admittedOrder) {
		n = len(f.admittedOrder)
	}
	return append([]string(nil), f.admittedOrder[:n]...)
}
