package routing

import (
	"sort"
	"strings"

	"github.com/banton/medical-patients-sub001/engine/internal/facility"
	"github.com/banton/medical-patients-sub001/engine/models"
)

// triagePreferences maps triage category to the ordered facility preference.
var triagePreferences = map[models.TriageCategory][]string{
	models.TriageImmediate: {models.FacilityRole2, models.FacilityRole3},
	models.TriageDelayed:   {models.FacilityRole1, models.FacilityCSU, models.FacilityRole2},
	models.TriageMinimal:   {models.FacilityRole1, models.FacilityCSU},
	models.TriageExpectant: {models.FacilityRole1},
}

// transportTimes holds POI-to-facility transit minutes used for constraints.
var transportTimes = map[string]int{
	models.FacilityRole1: 10,
	models.FacilityCSU:   15,
	models.FacilityRole2: 30,
	models.FacilityRole3: 60,
}

const (
	acceptableQueue = 5
	maxRoutableQueue = 10
)

// Constraints restricts routing, currently by transport budget in minutes.
type Constraints struct {
	MaxTransportMinutes int
}

// Result is the structured routing outcome.
type Result struct {
	RoutedTo         string          `json:"routed_to"`
	Admitted         bool            `json:"admitted"`
	Queued           bool            `json:"queued"`
	Reason           string          `json:"reason"`
	Priority         models.Priority `json:"priority"`
	TransportMinutes int             `json:"transport_time,omitempty"`
}

// Metrics accumulates routing statistics.
type Metrics struct {
	TotalRouted        int                            `json:"total_routed"`
	OverflowEvents     int                            `json:"overflow_events"`
	ByFacility         map[string]int                 `json:"by_facility"`
	ByTriage           map[models.TriageCategory]int  `json:"by_triage"`
	AverageUtilization float64                        `json:"average_utilization"`
}

// Router selects destination facilities by triage, capacity, load balance, and
// transport budget.
type Router struct {
	fm      *facility.Manager
	metrics Metrics
}

// NewRouter builds a router over the capacity manager.
func NewRouter(fm *facility.Manager) *Router {
	return &Router{
		fm:      fm,
		metrics: Metrics{ByFacility: make(map[string]int), ByTriage: make(map[models.TriageCategory]int)},
	}
}

// Route chooses a facility for the patient and admits (or queues) them there.
func (r *Router) Route(patientID string, triage models.TriageCategory, priority models.Priority, constraints *Constraints) Result {
	r.metrics.TotalRouted++
	r.metrics.ByTriage[triage]++

	maxTransport := 0
	if constraints != nil {
		maxTransport = constraints.MaxTransportMinutes
	}

	preferences := triagePreferences[triage]
	if len(preferences) == 0 {
		preferences = []string{models.FacilityRole1, models.FacilityCSU, models.FacilityRole2}
	}

	// First preference wins when it has beds, a short queue, and fits the
	// transport budget.
	primary := preferences[0]
	if r.fm.AvailableBeds(primary) > 0 && r.fm.QueueLength(primary) < acceptableQueue && r.withinBudget(primary, maxTransport) {
		res := r.admit(patientID, primary, priority)
		res.Reason = "primary_available"
		if maxTransport > 0 {
			res.TransportMinutes = transportMinutes(primary)
		}
		return res
	}

	// Overflow: pick the least utilized facility that is not full, not badly
	// queued, and within budget.
	r.metrics.OverflowEvents++
	best := ""
	minUtilization := 1.0
	for _, name := range []string{models.FacilityRole1, models.FacilityCSU, models.FacilityRole2, models.FacilityRole3} {
		st := r.fm.Status(name)
		if st.Available == 0 || st.QueueLength > maxRoutableQueue {
			continue
		}
		if !r.withinBudget(name, maxTransport) {
			continue
		}
		if st.Utilization < minUtilization {
			minUtilization = st.Utilization
			best = name
		}
	}
	if best != "" {
		res := r.admit(patientID, best, priority)
		if best == primary {
			res.Reason = "primary_full"
		} else {
			res.Reason = "load_balancing"
		}
		if maxTransport > 0 {
			res.TransportMinutes = transportMinutes(best)
		}
		return res
	}

	// Everything full: queue at the first preference.
	r.fm.Admit(patientID, primary, priority)
	return Result{RoutedTo: primary, Admitted: false, Queued: true, Reason: "all_facilities_full", Priority: priority}
}

func (r *Router) admit(patientID, name string, priority models.Priority) Result {
	res := r.fm.Admit(patientID, name, priority)
	r.metrics.ByFacility[name]++
	return Result{RoutedTo: name, Admitted: res.Success, Queued: res.Queued, Priority: priority}
}

func (r *Router) withinBudget(facilityName string, maxTransport int) bool {
	if maxTransport <= 0 {
		return true
	}
	return transportMinutes(facilityName) <= maxTransport
}

func transportMinutes(facilityName string) int {
	if t, ok := transportTimes[facilityName]; ok {
		return t
	}
	return 30
}

// MassCasualtyEntry is one patient in a mass-casualty routing batch.
type MassCasualtyEntry struct {
	PatientID string
	Triage    models.TriageCategory
}

// RouteMassCasualty routes a batch sorted T1 first; T1 patients enter as
// urgent priority.
func (r *Router) RouteMassCasualty(patients []MassCasualtyEntry) []Result {
	sorted := append([]MassCasualtyEntry(nil), patients...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return models.TriagePriority(sorted[i].Triage) < models.TriagePriority(sorted[j].Triage)
	})
	results := make([]Result, 0, len(sorted))
	for _, p := range sorted {
		priority := models.PriorityRoutine
		if p.Triage == models.TriageImmediate {
			priority = models.PriorityUrgent
		}
		results = append(results, r.Route(p.PatientID, p.Triage, priority, nil))
	}
	return results
}

// EvacuationPriority lists up to n patients at a facility in evacuation order.
func (r *Router) EvacuationPriority(facilityName string, n int) []string {
	st := r.fm.Status(facilityName)
	if n > len(st.Patients) {
		n = len(st.Patients)
	}
	return st.Patients[:n]
}

// Recommendations returns the ordered facility list for an injury and triage;
// surgical mechanisms escalate straight to Role2/Role3.
func (r *Router) Recommendations(injuryDescription string, triage models.TriageCategory) []string {
	surgical := []string{"penetrating", "gunshot", "blast", "amputation", "internal_bleeding"}
	il := strings.ToLower(injuryDescription)
	for _, s := range surgical {
		if strings.Contains(il, s) {
			return []string{models.FacilityRole2, models.FacilityRole3, models.FacilityRole1}
		}
	}
	if prefs, ok := triagePreferences[triage]; ok {
		return append([]string(nil), prefs...)
	}
	return []string{models.FacilityRole1, models.FacilityCSU, models.FacilityRole2}
}

// Metrics returns a copy of accumulated routing statistics with current
// system utilization.
func (r *Router) Metrics() Metrics {
	m := Metrics{
		TotalRouted:    r.metrics.TotalRouted,
		OverflowEvents: r.metrics.OverflowEvents,
		ByFacility:     make(map[string]int, len(r.metrics.ByFacility)),
		ByTriage:       make(map[models.TriageCategory]int, len(r.metrics.ByTriage)),
	}
	for k, v := range r.metrics.ByFacility {
		m.ByFacility[k] = v
	}
	for k, v := range r.metrics.ByTriage {
		m.ByTriage[k] = v
	}
	m.AverageUtilization = r.fm.Overview().SystemUtilization
	return m
}
