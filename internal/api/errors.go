package api

import (
	"errors"
	"net/http"

	"github.com/scribe-dev/scribe-api/internal/domain"
	"github.com/scribe-dev/scribe-api/internal/store"
	"github.com/scribe-dev/scribe-api/internal/task"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Validation failures never created a task.
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest

	// Unknown task ids.
	case errors.Is(err, store.ErrTaskNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Operations on tasks that already finished.
	case errors.Is(err, domain.ErrTerminalTask):
		return http.StatusConflict

	// Submission backpressure.
	case errors.Is(err, task.ErrQueueFull),
		errors.Is(err, task.ErrQueueClosed):
		return http.StatusServiceUnavailable

	// Default: internal server error (covers store.StorageError).
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, domain.ErrInvalidURL):
		return "Invalid or unsupported URL"

	case errors.Is(err, domain.ErrInvalidUploadPath):
		return "Uploaded file is missing or empty"

	case errors.Is(err, domain.ErrValidation):
		return "Invalid request"

	case errors.Is(err, store.ErrTaskNotFound),
		errors.Is(err, store.ErrNotFound):
		return "Task not found"

	case errors.Is(err, domain.ErrTerminalTask):
		return "Task already finished"

	case errors.Is(err, task.ErrQueueFull):
		return "Server is busy, try again later"

	case errors.Is(err, task.ErrQueueClosed):
		return "Server is shutting down"

	default:
		return "An unexpected error occurred"
	}
}
