package transport

import (
	"time"

	"github.com/google/uuid"

	"github.com/banton/medical-patients-sub001/engine/clock"
	"github.com/banton/medical-patients-sub001/engine/models"
)

// Pool tracks one vehicle class.
type Pool struct {
	Total     int `json:"total"`
	Available int `json:"available"`
}

// Mission is one transport assignment. Owned by the scheduler; callers hold
// only the id.
type Mission struct {
	ID               string                   `json:"transport_id"`
	PatientID        string                   `json:"patient_id,omitempty"`
	Patients         []string                 `json:"patients,omitempty"`
	From             string                   `json:"from"`
	To               string                   `json:"to"`
	Vehicle          models.VehicleKind       `json:"vehicle_type"`
	DurationMinutes  int                      `json:"duration_minutes"`
	Status           models.MissionStatus     `json:"status"`
	Priority         models.Priority          `json:"priority"`
	ScheduledAt      time.Time                `json:"scheduled_time"`
	EstimatedArrival time.Time                `json:"estimated_arrival"`
	Risk             models.DeteriorationRisk `json:"deterioration_risk"`
	QueuePosition    int                      `json:"queue_position,omitempty"`
}

// Metrics aggregates scheduler activity.
type Metrics struct {
	TotalMissions    int                        `json:"total_transports"`
	Completed        int                        `json:"completed"`
	DiedInTransit    int                        `json:"died_in_transit"`
	ByVehicle        map[models.VehicleKind]int `json:"by_vehicle_type"`
	ActiveMissions   int                        `json:"active_transports"`
	QueuedMissions   int                        `json:"queued_transports"`
}

// Config sets fleet sizes and the route table.
type Config struct {
	GroundAmbulances   int
	AirAmbulances      int
	Buses              int
	RouteMinutes       map[string]int // "From_to_To" -> minutes
	AirSpeedMultiplier float64
	MaxBatchSize       int
}

// DefaultConfig mirrors a realistic exercise fleet.
func DefaultConfig() Config {
	return Config{
		GroundAmbulances: 40,
		AirAmbulances:    4,
		Buses:            6,
		RouteMinutes: map[string]int{
			"POI_to_Role1":   10,
			"POI_to_CSU":     15,
			"Role1_to_CSU":   5,
			"Role1_to_Role2": 20,
			"Role1_to_Role3": 60,
			"CSU_to_Role2":   15,
			"CSU_to_Role3":   45,
			"Role2_to_Role3": 45,
		},
		AirSpeedMultiplier: 0.33,
		MaxBatchSize:       10,
	}
}

// Scheduler assigns vehicles to evacuation missions, queueing when pools run
// dry and reactivating queued missions as vehicles return.
type Scheduler struct {
	cfg    Config
	clk    clock.Clock
	pools  map[models.VehicleKind]*Pool
	active map[string]*Mission

	priorityQueue []*Mission
	routineQueue  []*Mission

	metrics Metrics
}

// NewScheduler builds a scheduler over the logical clock.
func NewScheduler(cfg Config, clk clock.Clock) *Scheduler {
	if cfg.AirSpeedMultiplier <= 0 {
		cfg.AirSpeedMultiplier = 0.33
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 10
	}
	return &Scheduler{
		cfg: cfg,
		clk: clk,
		pools: map[models.VehicleKind]*Pool{
			models.VehicleGroundAmbulance: {Total: cfg.GroundAmbulances, Available: cfg.GroundAmbulances},
			models.VehicleAirAmbulance:    {Total: cfg.AirAmbulances, Available: cfg.AirAmbulances},
			models.VehicleBus:             {Total: cfg.Buses, Available: cfg.Buses},
		},
		active: make(map[string]*Mission),
		metrics: Metrics{ByVehicle: map[models.VehicleKind]int{
			models.VehicleGroundAmbulance: 0,
			models.VehicleAirAmbulance:    0,
			models.VehicleBus:             0,
		}},
	}
}

func missionID() string { return uuid.NewString()[:8] }

func (s *Scheduler) routeMinutes(from, to string) int {
	if d, ok := s.cfg.RouteMinutes[from+"_to_"+to]; ok {
		return d
	}
	return 30
}

// Schedule books a mission for one patient. Urgent or long-haul missions take
// an air ambulance when one is free; otherwise ground. With no vehicle free
// the mission queues.
func (s *Scheduler) Schedule(patientID, from, to string, priority models.Priority, health float64) *Mission {
	base := s.routeMinutes(from, to)
	vehicle := s.selectVehicle(priority, base)

	duration := base
	if vehicle == models.VehicleAirAmbulance {
		duration = int(float64(base) * s.cfg.AirSpeedMultiplier)
		if duration < 1 {
			duration = 1
		}
	}

	now := s.clk.Now()
	mission := &Mission{
		ID:              missionID(),
		PatientID:       patientID,
		From:            from,
		To:              to,
		Vehicle:         vehicle,
		DurationMinutes: duration,
		Priority:        priority,
		ScheduledAt:     now,
		EstimatedArrival: now.Add(time.Duration(duration) * time.Minute),
		Risk:            riskFor(health, duration),
	}

	pool := s.pools[vehicle]
	if pool.Available > 0 {
		pool.Available--
		mission.Status = models.MissionScheduled
		s.active[mission.ID] = mission
		s.metrics.TotalMissions++
		s.metrics.ByVehicle[vehicle]++
		return mission
	}

	mission.Status = models.MissionQueued
	if priority == models.PriorityUrgent {
		s.priorityQueue = append(s.priorityQueue, mission)
		mission.QueuePosition = len(s.priorityQueue)
	} else {
		s.routineQueue = append(s.routineQueue, mission)
		mission.QueuePosition = len(s.priorityQueue) + len(s.routineQueue)
	}
	return mission
}

func (s *Scheduler) selectVehicle(priority models.Priority, durationMinutes int) models.VehicleKind {
	if (priority == models.PriorityUrgent || durationMinutes > 30) && s.pools[models.VehicleAirAmbulance].Available > 0 {
		return models.VehicleAirAmbulance
	}
	return models.VehicleGroundAmbulance
}

func riskFor(health float64, durationMinutes int) models.DeteriorationRisk {
	if health < 0 {
		return models.RiskUnknown
	}
	if health < 20 && durationMinutes > 30 {
		return models.RiskHigh
	}
	if health < 40 || durationMinutes > 45 {
		return models.RiskModerate
	}
	return models.RiskLow
}

// ScheduleBatch allocates a bus for up to MaxBatchSize patients.
func (s *Scheduler) ScheduleBatch(patients []string, from, to string) *Mission {
	if len(patients) > s.cfg.MaxBatchSize {
		patients = patients[:s.cfg.MaxBatchSize]
	}
	now := s.clk.Now()
	duration := s.routeMinutes(from, to)
	mission := &Mission{
		ID:              missionID(),
		Patients:        append([]string(nil), patients...),
		From:            from,
		To:              to,
		Vehicle:         models.VehicleBus,
		DurationMinutes: duration,
		Priority:        models.PriorityRoutine,
		ScheduledAt:     now,
		EstimatedArrival: now.Add(time.Duration(duration) * time.Minute),
		Risk:            models.RiskUnknown,
	}
	pool := s.pools[models.VehicleBus]
	if pool.Available > 0 {
		pool.Available--
		mission.Status = models.MissionScheduled
		s.active[mission.ID] = mission
		s.metrics.TotalMissions++
		s.metrics.ByVehicle[models.VehicleBus]++
	} else {
		mission.Status = models.MissionQueued
		s.routineQueue = append(s.routineQueue, mission)
		mission.QueuePosition = len(s.priorityQueue) + len(s.routineQueue)
	}
	return mission
}

// CompletionResult is the structured outcome of completing a mission.
type CompletionResult struct {
	Success bool   `json:"success"`
	Outcome string `json:"outcome,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// Outcomes accepted by Complete.
const (
	OutcomeDelivered     = "delivered"
	OutcomeDiedInTransit = "died_in_transit"
)

// Complete returns the vehicle to its pool, tallies the outcome, and
// reactivates queued missions in priority-first order.
func (s *Scheduler) Complete(missionID, outcome string) CompletionResult {
	mission, ok := s.active[missionID]
	if !ok {
		return CompletionResult{Success: false, Reason: "transport_not_found"}
	}
	s.pools[mission.Vehicle].Available++
	delete(s.active, missionID)
	s.metrics.Completed++
	if outcome == OutcomeDiedInTransit {
		s.metrics.DiedInTransit++
	}
	s.processQueue()
	return CompletionResult{Success: true, Outcome: outcome}
}

// processQueue activates queued missions while their vehicle class has
// availability, priority queue first.
func (s *Scheduler) processQueue() {
	s.priorityQueue = s.drainQueue(s.priorityQueue)
	s.routineQueue = s.drainQueue(s.routineQueue)
}

func (s *Scheduler) drainQueue(queue []*Mission) []*Mission {
	remaining := queue[:0]
	for _, mission := range queue {
		pool := s.pools[mission.Vehicle]
		if pool.Available <= 0 {
			remaining = append(remaining, mission)
			continue
		}
		pool.Available--
		now := s.clk.Now()
		mission.Status = models.MissionInTransit
		mission.ScheduledAt = now
		mission.EstimatedArrival = now.Add(time.Duration(mission.DurationMinutes) * time.Minute)
		mission.QueuePosition = 0
		s.active[mission.ID] = mission
		s.metrics.TotalMissions++
		s.metrics.ByVehicle[mission.Vehicle]++
	}
	return remaining
}

// MissionStatus reports elapsed/remaining minutes against the logical clock.
type MissionStatus struct {
	ID               string               `json:"transport_id"`
	PatientID        string               `json:"patient_id,omitempty"`
	Status           models.MissionStatus `json:"status"`
	Vehicle          models.VehicleKind   `json:"vehicle_type"`
	ElapsedMinutes   float64              `json:"time_elapsed"`
	RemainingMinutes float64              `json:"time_remaining"`
	EstimatedArrival time.Time            `json:"estimated_arrival"`
}

// Status returns the live view of one active mission.
func (s *Scheduler) Status(missionID string) (MissionStatus, bool) {
	mission, ok := s.active[missionID]
	if !ok {
		return MissionStatus{}, false
	}
	elapsed := s.clk.Now().Sub(mission.ScheduledAt).Minutes()
	remaining := float64(mission.DurationMinutes) - elapsed
	if remaining < 0 {
		remaining = 0
	}
	return MissionStatus{
		ID:               mission.ID,
		PatientID:        mission.PatientID,
		Status:           mission.Status,
		Vehicle:          mission.Vehicle,
		ElapsedMinutes:   elapsed,
		RemainingMinutes: remaining,
		EstimatedArrival: mission.EstimatedArrival,
	}, true
}

// Mission returns the active mission by id.
func (s *Scheduler) Mission(missionID string) (*Mission, bool) {
	m, ok := s.active[missionID]
	return m, ok
}

// Availability reports the per-class pool counts.
func (s *Scheduler) Availability() map[models.VehicleKind]Pool {
	out := make(map[models.VehicleKind]Pool, len(s.pools))
	for kind, pool := range s.pools {
		out[kind] = *pool
	}
	return out
}

// Metrics returns a copy of the aggregate counters.
func (s *Scheduler) Metrics() Metrics {
	m := s.metrics
	m.ByVehicle = make(map[models.VehicleKind]int, len(s.metrics.ByVehicle))
	for k, v := range s.metrics.ByVehicle {
		m.ByVehicle[k] = v
	}
	m.ActiveMissions = len(s.active)
	m.QueuedMissions = len(s.priorityQueue) + len(s.routineQueue)
	return m
}
