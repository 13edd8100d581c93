package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/scribe-dev/scribe-api/internal/domain"
)

// TaskStateEvent records a single task state transition. It carries enough
// information for a consumer to follow a task's lifecycle without access to
// the task store.
type TaskStateEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// TaskID identifies the task that transitioned
	TaskID uuid.UUID `json:"task_id"`

	// State is the state the task moved into
	State domain.TaskState `json:"state"`

	// Progress is the task's progress after the transition
	Progress int `json:"progress"`

	// Message is the human-readable stage description, if any
	Message string `json:"message,omitempty"`

	// ErrorDetail carries the failure reason for error transitions
	ErrorDetail string `json:"error_detail,omitempty"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// NewTaskStateEvent builds an event from a task snapshot.
func NewTaskStateEvent(task *domain.Task) *TaskStateEvent {
	return &TaskStateEvent{
		ID:          uuid.New(),
		TaskID:      task.ID,
		State:       task.State,
		Progress:    task.Progress,
		Message:     task.Message,
		ErrorDetail: task.ErrorDetail,
		CreatedAt:   time.Now(),
	}
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *TaskStateEvent) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows the task manager to publish transitions without direct
// knowledge of consumers.
type EventEmitter interface {
	// EmitEvent publishes the given event.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *TaskStateEvent) error
}
