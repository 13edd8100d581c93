package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/scribe-dev/scribe-api/internal/domain"
)

// TaskStore is the authoritative mapping from task ID to task record. It is
// safe for concurrent use; Update is atomic per task ID, and updates to
// different IDs never block each other. Implementations persist after every
// mutation so a crash mid-pipeline leaves the last recorded state visible.
type TaskStore interface {
	// Create allocates a new ID and inserts a queued record for the source.
	Create(ctx context.Context, source domain.Source) (*domain.Task, error)

	// Get returns a snapshot of the task, or ErrTaskNotFound. The snapshot
	// reflects the latest committed update, never a stale read.
	Get(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// Update applies the mutation atomically with respect to other updates
	// on the same ID and returns the resulting snapshot. Invariant
	// violations surface as the domain's transition/progress errors, wrapped
	// in ErrInvalidMutation.
	Update(ctx context.Context, id uuid.UUID, m domain.Mutation) (*domain.Task, error)

	// List returns a point-in-time snapshot of all known tasks, in no
	// particular order. Concurrent mutation never corrupts the read.
	List(ctx context.Context) ([]*domain.Task, error)
}
