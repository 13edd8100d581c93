package api

import (
	"time"

	"github.com/scribe-dev/scribe-api/internal/domain"
)

// Common request/response structures

// StartRequest defines the payload for URL-based task submission.
type StartRequest struct {
	URL string `json:"url" validate:"required,max=2000"`
}

// SubmitResponse defines the successful response for both submission
// endpoints.
type SubmitResponse struct {
	TaskID   string `json:"task_id"`
	Status   string `json:"status"`
	Filename string `json:"filename,omitempty"`
}

// StatusResponse is the polled task snapshot.
type StatusResponse struct {
	TaskID    string          `json:"task_id"`
	Status    string          `json:"status"`
	Progress  int             `json:"progress"`
	Message   string          `json:"message"`
	CreatedAt time.Time       `json:"created_at"`
	Filename  string          `json:"filename,omitempty"`
	AISummary *domain.Summary `json:"ai_summary,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// PreviewResponse carries the inline transcript text for a completed task.
type PreviewResponse struct {
	TaskID   string `json:"task_id"`
	Text     string `json:"text"`
	Filename string `json:"filename"`
}

// CancelResponse acknowledges a cancellation request.
type CancelResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// HistoryEntry is the listing projection of a task. It never exposes local
// file paths, only the artifact's base name and the source label.
type HistoryEntry struct {
	TaskID      string    `json:"task_id"`
	Status      string    `json:"status"`
	Progress    int       `json:"progress"`
	Filename    string    `json:"filename,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	SourceLabel string    `json:"source_label"`
}

// HistoryResponse wraps the history listing.
type HistoryResponse struct {
	Tasks []HistoryEntry `json:"tasks"`
	Count int            `json:"count"`
}

// HealthResponse reports liveness plus coarse orchestration gauges.
type HealthResponse struct {
	Status     string          `json:"status"`
	QueueDepth int             `json:"queue_depth"`
	TotalTasks int             `json:"total_tasks"`
	Features   map[string]bool `json:"features"`
}
