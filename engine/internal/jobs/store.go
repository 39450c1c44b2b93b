package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/banton/medical-patients-sub001/engine/models"
)

// MemoryStore is the in-process JobStore used by the runner and tests.
// External collaborators provide durable implementations of the same
// interface.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*models.Job
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*models.Job)}
}

func cloneJob(j *models.Job) *models.Job {
	cp := *j
	if j.Details != nil {
		d := *j.Details
		cp.Details = &d
	}
	cp.ResultFiles = append([]string(nil), j.ResultFiles...)
	return &cp
}

func (s *MemoryStore) Create(ctx context.Context, job *models.Job) error {
	if job == nil || job.ID == "" {
		return fmt.Errorf("%w: job id required", models.ErrInvalidConfiguration)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("%w: job %s already exists", models.ErrInvalidOperation, job.ID)
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	s.jobs[job.ID] = cloneJob(job)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrJobNotFound, id)
	}
	return cloneJob(job), nil
}

func (s *MemoryStore) Update(ctx context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; !ok {
		return fmt.Errorf("%w: %s", models.ErrJobNotFound, job.ID)
	}
	s.jobs[job.ID] = cloneJob(job)
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, cloneJob(job))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return fmt.Errorf("%w: %s", models.ErrJobNotFound, id)
	}
	delete(s.jobs, id)
	return nil
}
