// Package pipeline defines the interfaces for the external collaborators the
// task orchestration manager drives: media acquisition, audio extraction,
// transcription, speaker diarization and AI summarization. It serves as the
// boundary between the application core and the heavyweight external tools
// and APIs, so the orchestrator can be tested against in-memory stand-ins.
package pipeline
