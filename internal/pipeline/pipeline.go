package pipeline

import (
	"context"

	"github.com/scribe-dev/scribe-api/internal/domain"
)

// Transcript is the output of the transcription stage: ordered timestamped
// segments plus the concatenated plain text.
type Transcript struct {
	Segments []domain.Segment
	Text     string
}

// ProgressFunc reports in-stage completion as a percentage in [0,100].
// Stages call it with non-decreasing values as partial results arrive; the
// orchestrator maps it into the stage's slice of the task-level progress.
type ProgressFunc func(percent int)

// MediaAcquirer fetches a task's media to local disk. For URL sources this
// downloads and converts; for uploads it resolves the already-saved file.
// The returned path lives under destDir for URL sources.
type MediaAcquirer interface {
	Acquire(ctx context.Context, source domain.Source, destDir string) (string, error)
}

// AudioExtractor converts a media file into a normalized audio file suitable
// for transcription (16 kHz mono WAV) and returns its path.
type AudioExtractor interface {
	ExtractAudio(ctx context.Context, mediaPath, destDir string) (string, error)
}

// TranscriptionEngine converts normalized audio into timestamped text
// segments. Implementations call progress (when non-nil) as partial results
// become available.
type TranscriptionEngine interface {
	Transcribe(ctx context.Context, audioPath string, progress ProgressFunc) (*Transcript, error)
}

// SpeakerTurn is one span of audio attributed to a single speaker.
type SpeakerTurn struct {
	Start   float64
	End     float64
	Speaker string
}

// Diarizer attributes spans of the audio to distinct speakers.
type Diarizer interface {
	Diarize(ctx context.Context, audioPath string) ([]SpeakerTurn, error)
}

// SummaryEngine converts transcript text into a structured summary.
type SummaryEngine interface {
	Summarize(ctx context.Context, text string) (*domain.Summary, error)
}

// MergeSpeakers annotates transcript segments in place with the speaker
// whose turn contains the segment's midpoint. Segments with no matching turn
// keep their existing label.
func MergeSpeakers(segments []domain.Segment, turns []SpeakerTurn) {
	for i := range segments {
		mid := (segments[i].Start + segments[i].End) / 2
		for _, turn := range turns {
			if turn.Start <= mid && mid <= turn.End {
				segments[i].Speaker = turn.Speaker
				break
			}
		}
	}
}
