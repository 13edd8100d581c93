package gemini

import "errors"

// Error definitions for the gemini package.
var (
	// ErrEmptyTranscript is returned when the transcript text is empty.
	ErrEmptyTranscript = errors.New("transcript text cannot be empty")

	// ErrContentBlocked is returned when the API refuses to summarize the
	// content due to safety filters. Not retryable.
	ErrContentBlocked = errors.New("content blocked by safety filters")
)
