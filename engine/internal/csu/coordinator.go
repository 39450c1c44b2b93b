package csu

import (
	"sort"
	"time"

	"github.com/banton/medical-patients-sub001/engine/clock"
	"github.com/banton/medical-patients-sub001/engine/internal/facility"
	"github.com/banton/medical-patients-sub001/engine/models"
)

// Entry is one patient held in the current batch.
type Entry struct {
	PatientID string                `json:"patient_id"`
	Triage    models.TriageCategory `json:"triage"`
	AddedAt   time.Time             `json:"added_time"`
}

// AddResult reports batch state after adding a patient.
type AddResult struct {
	Success    bool `json:"success"`
	BatchCount int  `json:"batch_count"`
	BatchReady bool `json:"batch_ready"`
	BatchSize  int  `json:"batch_size"`
}

// TransferPlan is the prepared batch: patients in triage order plus the
// recommended destination.
type TransferPlan struct {
	Patients          []Entry `json:"patients"`
	Destination       string  `json:"destination"`
	TransportRequired bool    `json:"transport_required"`
	BatchSize         int     `json:"batch_size"`
}

// ExecuteResult is the structured outcome of a batch transfer.
type ExecuteResult struct {
	Success          bool   `json:"success"`
	Reason           string `json:"reason,omitempty"`
	TransferredCount int    `json:"transferred_count"`
	Destination      string `json:"destination,omitempty"`
	PartialBatch     bool   `json:"partial_batch"`
	CurrentSize      int    `json:"current_size,omitempty"`
	RequiredSize     int    `json:"required_size,omitempty"`
	Available        int    `json:"available,omitempty"`
}

// Metrics aggregates batch activity.
type Metrics struct {
	TotalBatches        int     `json:"total_batches"`
	PatientsTransferred int     `json:"total_patients_transferred"`
	PartialBatches      int     `json:"partial_batches"`
	FullBatches         int     `json:"full_batches"`
	AverageBatchSize    float64 `json:"average_batch_size"`
	CurrentBatchSize    int     `json:"current_batch_size"`
	CurrentBatchReady   bool    `json:"current_batch_ready"`
}

// HoldInfo reports the age of the current batch against its hold window.
type HoldInfo struct {
	BatchSize            int     `json:"batch_size"`
	CurrentHoldMinutes   float64 `json:"current_hold_duration"`
	MaxHoldMinutes       float64 `json:"max_hold_time"`
	RemainingHoldMinutes float64 `json:"time_remaining"`
}

// Coordinator accumulates CSU patients into batches and releases them to
// transport once full or held too long.
type Coordinator struct {
	fm             *facility.Manager
	clk            clock.Clock
	batchSize      int
	maxHoldMinutes float64

	batch      []Entry
	batchStart time.Time

	metrics Metrics
}

// NewCoordinator builds a coordinator over the capacity manager and clock.
// batchSize <= 0 selects the default of 10; maxHoldMinutes <= 0 selects 60.
func NewCoordinator(fm *facility.Manager, clk clock.Clock, batchSize int, maxHoldMinutes float64) *Coordinator {
	if batchSize <= 0 {
		batchSize = 10
	}
	if maxHoldMinutes <= 0 {
		maxHoldMinutes = 60
	}
	return &Coordinator{fm: fm, clk: clk, batchSize: batchSize, maxHoldMinutes: maxHoldMinutes}
}

// Add appends a patient to the current batch, stamping the hold window on the
// first addition.
func (c *Coordinator) Add(patientID string, triage models.TriageCategory) AddResult {
	now := c.clk.Now()
	if len(c.batch) == 0 {
		c.batchStart = now
	}
	c.batch = append(c.batch, Entry{PatientID: patientID, Triage: triage, AddedAt: now})
	return AddResult{
		Success:    true,
		BatchCount: len(c.batch),
		BatchReady: c.Ready(),
		BatchSize:  c.batchSize,
	}
}

// Ready reports whether the batch should release: full, or held past the
// window.
func (c *Coordinator) Ready() bool {
	if len(c.batch) >= c.batchSize {
		return true
	}
	if len(c.batch) > 0 {
		held := c.clk.Now().Sub(c.batchStart).Minutes()
		if held >= c.maxHoldMinutes {
			return true
		}
	}
	return false
}

// Prepare returns the transfer plan: patients sorted T1 first and the
// recommended destination.
func (c *Coordinator) Prepare() TransferPlan {
	if len(c.batch) == 0 {
		return TransferPlan{}
	}
	return TransferPlan{
		Patients:          c.prioritized(),
		Destination:       c.RecommendDestination(),
		TransportRequired: true,
		BatchSize:         len(c.batch),
	}
}

func (c *Coordinator) prioritized() []Entry {
	out := append([]Entry(nil), c.batch...)
	sort.SliceStable(out, func(i, j int) bool {
		return models.TriagePriority(out[i].Triage) < models.TriagePriority(out[j].Triage)
	})
	return out
}

// RecommendDestination prefers Role2 when it has room for the batch and is
// under 90% utilization, then Role3, defaulting back to Role2.
func (c *Coordinator) RecommendDestination() string {
	role2 := c.fm.Status(models.FacilityRole2)
	if role2.Available >= c.batchSize && role2.Utilization < 0.9 {
		return models.FacilityRole2
	}
	if c.fm.AvailableBeds(models.FacilityRole3) >= c.batchSize {
		return models.FacilityRole3
	}
	return models.FacilityRole2
}

// Execute transfers the batch to the destination via the capacity manager.
// Refuses when the batch is not ready (unless forced) or the destination lacks
// beds for the whole batch. Successful execution clears the batch.
func (c *Coordinator) Execute(destination string, force bool) ExecuteResult {
	if !force && !c.Ready() {
		return ExecuteResult{
			Success:      false,
			Reason:       "batch_not_ready",
			CurrentSize:  len(c.batch),
			RequiredSize: c.batchSize,
		}
	}
	available := c.fm.AvailableBeds(destination)
	if available < len(c.batch) {
		return ExecuteResult{
			Success:      false,
			Reason:       "insufficient_capacity",
			RequiredSize: len(c.batch),
			Available:    available,
		}
	}

	transferred := 0
	for _, entry := range c.batch {
		if c.fm.Transfer(entry.PatientID, models.FacilityCSU, destination).Success {
			transferred++
		}
	}

	c.metrics.TotalBatches++
	c.metrics.PatientsTransferred += transferred
	partial := transferred < c.batchSize
	if partial {
		c.metrics.PartialBatches++
	} else {
		c.metrics.FullBatches++
	}

	c.batch = nil
	c.batchStart = time.Time{}

	return ExecuteResult{
		Success:          true,
		TransferredCount: transferred,
		Destination:      destination,
		PartialBatch:     partial,
	}
}

// Hold reports the current batch age.
func (c *Coordinator) Hold() HoldInfo {
	info := HoldInfo{BatchSize: len(c.batch), MaxHoldMinutes: c.maxHoldMinutes}
	if len(c.batch) > 0 {
		info.CurrentHoldMinutes = c.clk.Now().Sub(c.batchStart).Minutes()
		info.RemainingHoldMinutes = c.maxHoldMinutes - info.CurrentHoldMinutes
		if info.RemainingHoldMinutes < 0 {
			info.RemainingHoldMinutes = 0
		}
	}
	return info
}

// Metrics returns a copy of the aggregate counters.
func (c *Coordinator) Metrics() Metrics {
	m := c.metrics
	if m.TotalBatches > 0 {
		m.AverageBatchSize = float64(m.PatientsTransferred) / float64(m.TotalBatches)
	}
	m.CurrentBatchSize = len(c.batch)
	m.CurrentBatchReady = c.Ready()
	return m
}
