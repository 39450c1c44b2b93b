package models

import "context"

// JobStore is the repository interface the core consumes for job persistence.
// Implementations must be safe for concurrent readers and writers; the engine
// ships an in-memory store and expects external collaborators to provide
// durable ones.
type JobStore interface {
	Create(ctx context.Context, job *Job) error
	Get(ctx context.Context, id string) (*Job, error)
	Update(ctx context.Context, job *Job) error
	List(ctx context.Context) ([]*Job, error)
	Delete(ctx context.Context, id string) error
}

// ConfigurationStore is the matching repository interface for named scenario
// configurations.
type ConfigurationStore interface {
	Get(ctx context.Context, id string) (map[string]any, error)
	List(ctx context.Context) (map[string]map[string]any, error)
}
