// Package domain defines the core business entities and errors.
package domain

import (
	"errors"
	"fmt"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when input fails validation before a task
	// is created. This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidURL is returned when a source URL is malformed, uses an
	// unsupported scheme, or does not match any allowed pattern.
	ErrInvalidURL = fmt.Errorf("%w: invalid or unsupported URL", ErrValidation)

	// ErrInvalidUploadPath is returned when an upload source references a
	// file that does not exist or is empty.
	ErrInvalidUploadPath = fmt.Errorf("%w: invalid upload path", ErrValidation)

	// ErrInvalidSourceKind is returned when a source descriptor carries an
	// unknown kind tag.
	ErrInvalidSourceKind = fmt.Errorf("%w: invalid source kind", ErrValidation)

	// ErrInvalidTaskState is returned when a task state is not one of the
	// known pipeline states.
	ErrInvalidTaskState = errors.New("invalid task state")

	// ErrIllegalTransition is returned when a state change does not follow
	// the pipeline order.
	ErrIllegalTransition = errors.New("illegal state transition")

	// ErrProgressRegression is returned when an update would move progress
	// backwards on a non-terminal task.
	ErrProgressRegression = errors.New("progress may not decrease")

	// ErrProgressRange is returned when progress falls outside 0-100.
	ErrProgressRange = errors.New("progress out of range")

	// ErrResultWithoutCompletion is returned when a result payload is set on
	// a task that is not completed.
	ErrResultWithoutCompletion = errors.New("result requires completed state")

	// ErrDetailWithoutError is returned when an error detail is set on a
	// task that is not in the error state.
	ErrDetailWithoutError = errors.New("error detail requires error state")

	// ErrTerminalTask is returned when an update targets a task that has
	// already reached a terminal state.
	ErrTerminalTask = errors.New("task already terminal")
)
