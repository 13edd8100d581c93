package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the
	// store. ErrTaskNotFound is the task-specific variant.
	ErrNotFound = errors.New("entity not found")

	// ErrTaskNotFound indicates that the requested task does not exist.
	ErrTaskNotFound = fmt.Errorf("%w: task", ErrNotFound)

	// ErrInvalidMutation is returned when an update violates a task record
	// invariant. The wrapped error carries the specific violation.
	ErrInvalidMutation = errors.New("invalid mutation")
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// StorageError reports a persistence-layer failure. It is the one error
// class allowed to propagate out of the orchestration manager, since a
// corrupted task ledger is not safely recoverable in-process.
type StorageError struct {
	Operation string // the operation that failed (e.g. "create", "update")
	Message   string
	Err       error
}

// Error implements the error interface for StorageError.
func (e *StorageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("storage %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("storage %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError creates a StorageError for the given operation.
func NewStorageError(operation, message string, err error) *StorageError {
	return &StorageError{Operation: operation, Message: message, Err: err}
}

// IsStorageError reports whether err is (or wraps) a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
