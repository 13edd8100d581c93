package task

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Common errors returned by the Queue.
var (
	ErrQueueClosed = errors.New("task queue is closed")
	ErrQueueFull   = errors.New("task queue is full")
)

// Queue is a buffered FIFO of task IDs awaiting a worker slot. Workers
// consume from Channel; submission never blocks, a full buffer is reported
// to the caller instead.
type Queue struct {
	ids    chan uuid.UUID
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

// NewQueue creates a queue with the specified buffer size.
func NewQueue(size int, logger *slog.Logger) *Queue {
	if size <= 0 {
		size = 1
	}
	return &Queue{
		ids:    make(chan uuid.UUID, size),
		logger: logger,
	}
}

// Enqueue adds a task ID for processing.
// Returns an error if the queue is full or closed.
func (q *Queue) Enqueue(id uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.ids <- id:
		q.logger.Debug("task enqueued",
			"task_id", id,
			"queue_len", len(q.ids),
			"queue_cap", cap(q.ids))
		return nil
	default:
		return fmt.Errorf("%w: queue capacity %d reached", ErrQueueFull, cap(q.ids))
	}
}

// Close closes the queue, preventing further submission. Workers drain what
// is already buffered.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ids)
		q.logger.Info("task queue closed")
	}
}

// Channel returns a read-only channel for consuming task IDs.
func (q *Queue) Channel() <-chan uuid.UUID {
	return q.ids
}

// Depth reports how many tasks are buffered and not yet picked up.
func (q *Queue) Depth() int {
	return len(q.ids)
}
