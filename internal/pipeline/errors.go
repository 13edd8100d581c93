package pipeline

import "errors"

// Common errors returned by pipeline stage collaborators. The orchestration
// manager maps these to a task's terminal error detail; only acquisition
// failures are ever retried.
var (
	// ErrAcquisition is returned when the media source cannot be fetched.
	// Acquisition failures are considered transient and retried a bounded
	// number of times before surfacing.
	ErrAcquisition = errors.New("media acquisition failed")

	// ErrProcessing is returned when audio extraction, transcription or
	// diarization fails. Processing failures are not retried: silently
	// re-running a multi-minute inference would hide the failure from the
	// polling client.
	ErrProcessing = errors.New("media processing failed")

	// ErrSummarization is returned when the AI summary call fails. Like
	// processing, summarization is never retried.
	ErrSummarization = errors.New("summarization failed")

	// ErrInvalidResponse is returned when an engine's response cannot be
	// parsed or is malformed.
	ErrInvalidResponse = errors.New("invalid response from engine")

	// ErrInvalidConfig is returned when an engine is constructed with an
	// unusable configuration.
	ErrInvalidConfig = errors.New("invalid engine configuration")
)
