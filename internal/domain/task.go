package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskState represents the current pipeline stage of a task.
type TaskState string

// Possible task states, in pipeline order.
const (
	TaskStateQueued          TaskState = "queued"
	TaskStateDownloading     TaskState = "downloading"
	TaskStateExtractingAudio TaskState = "extracting_audio"
	TaskStateTranscribing    TaskState = "transcribing"
	TaskStateDiarizing       TaskState = "diarizing"
	TaskStateSummarizing     TaskState = "summarizing"
	TaskStateCompleted       TaskState = "completed"
	TaskStateError           TaskState = "error"
)

// stateRank orders the pipeline stages. Transitions must move strictly
// forward; only the diarizing stage may be skipped.
var stateRank = map[TaskState]int{
	TaskStateQueued:          0,
	TaskStateDownloading:     1,
	TaskStateExtractingAudio: 2,
	TaskStateTranscribing:    3,
	TaskStateDiarizing:       4,
	TaskStateSummarizing:     5,
	TaskStateCompleted:       6,
	TaskStateError:           7,
}

// Valid reports whether the state is one of the known pipeline states.
func (s TaskState) Valid() bool {
	_, ok := stateRank[s]
	return ok
}

// Terminal reports whether no further transitions may occur from this state.
func (s TaskState) Terminal() bool {
	return s == TaskStateCompleted || s == TaskStateError
}

// CanTransitionTo reports whether moving from s to next follows the legal
// pipeline order. Error is reachable from any non-terminal state; completed
// only from summarizing; every other move advances exactly one stage, except
// that transcribing may jump straight to summarizing when diarization is
// disabled.
func (s TaskState) CanTransitionTo(next TaskState) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	if s.Terminal() {
		return false
	}
	if next == TaskStateError {
		return true
	}
	if next == TaskStateCompleted {
		return s == TaskStateSummarizing
	}
	if s == TaskStateTranscribing && next == TaskStateSummarizing {
		return true // diarization is optional
	}
	return stateRank[next] == stateRank[s]+1
}

// SourceKind tags the origin of a task's media.
type SourceKind string

// Possible source kinds.
const (
	SourceKindUpload SourceKind = "upload"
	SourceKindURL    SourceKind = "url"
)

// Source describes where a task's media comes from: a previously uploaded
// local file or a remote URL.
type Source struct {
	Kind    SourceKind `json:"kind"`
	Path    string     `json:"path,omitempty"`
	Address string     `json:"address,omitempty"`
}

// Validate checks that the source descriptor is structurally sound.
// Reachability of the path or URL is checked by the orchestration manager.
func (s Source) Validate() error {
	switch s.Kind {
	case SourceKindUpload:
		if s.Path == "" {
			return fmt.Errorf("%w: upload source requires a path", ErrValidation)
		}
	case SourceKindURL:
		if s.Address == "" {
			return fmt.Errorf("%w: url source requires an address", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSourceKind, s.Kind)
	}
	return nil
}

// Label returns a short human-readable identifier for the source, suitable
// for history listings. It never exposes a full local path.
func (s Source) Label() string {
	if s.Kind == SourceKindURL {
		return s.Address
	}
	return baseName(s.Path)
}

// baseName is a minimal filepath.Base that is stable across separators so
// persisted records read the same on every platform.
func baseName(p string) string {
	last := -1
	for i := 0; i < len(p); i++ {
		if p[i] == '/' || p[i] == '\\' {
			last = i
		}
	}
	return p[last+1:]
}

// Segment is one timestamped span of transcribed speech.
type Segment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker string  `json:"speaker"`
}

// Summary is the structured AI summary produced for a completed task.
type Summary struct {
	Title   string   `json:"title"`
	Summary string   `json:"summary"`
	Tags    []string `json:"tags"`
}

// Result holds the artifacts of a completed task.
type Result struct {
	// TranscriptPath is the plain-text transcript file served by /download.
	TranscriptPath string `json:"transcript_path"`

	// SegmentsPath is the JSON segments sidecar, when one was written.
	SegmentsPath string `json:"segments_path,omitempty"`

	// Text is the full transcript, kept inline for /preview.
	Text string `json:"text"`

	// Summary is nil when the summarization engine is not configured.
	Summary *Summary `json:"summary,omitempty"`
}

// Task is one end-to-end processing job from source to final artifact.
// It is mutated exclusively through Apply so every change respects the
// pipeline's ordering and progress invariants.
type Task struct {
	ID          uuid.UUID `json:"id"`
	Source      Source    `json:"source"`
	State       TaskState `json:"state"`
	Progress    int       `json:"progress"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"created_at"`
	Result      *Result   `json:"result,omitempty"`
	ErrorDetail string    `json:"error_detail,omitempty"`
}

// NewTask creates a queued task for the given source with a fresh ID.
func NewTask(source Source) (*Task, error) {
	if err := source.Validate(); err != nil {
		return nil, err
	}
	return &Task{
		ID:        uuid.New(),
		Source:    source,
		State:     TaskStateQueued,
		Progress:  0,
		Message:   "Waiting...",
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Mutation describes a partial update to a task. Nil fields are left
// untouched.
type Mutation struct {
	State       *TaskState
	Progress    *int
	Message     *string
	Result      *Result
	ErrorDetail *string
}

// Apply mutates the task in place after checking every record invariant:
// forward-only transitions, monotone progress, result only on completion and
// error detail only on failure. On error the task is left unchanged.
func (t *Task) Apply(m Mutation) error {
	next := t.State
	if m.State != nil {
		next = *m.State
		if !next.Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidTaskState, next)
		}
		if next != t.State && !t.State.CanTransitionTo(next) {
			if t.State.Terminal() {
				return fmt.Errorf("%w: %s", ErrTerminalTask, t.State)
			}
			return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, t.State, next)
		}
	}

	progress := t.Progress
	if m.Progress != nil {
		progress = *m.Progress
		if progress < 0 || progress > 100 {
			return fmt.Errorf("%w: %d", ErrProgressRange, progress)
		}
		// Progress is a monotone record of how far the task got. Failure
		// freezes it rather than rolling it back.
		if progress < t.Progress {
			return fmt.Errorf("%w: %d -> %d", ErrProgressRegression, t.Progress, progress)
		}
	}

	if m.Result != nil && next != TaskStateCompleted {
		return ErrResultWithoutCompletion
	}
	if m.ErrorDetail != nil && *m.ErrorDetail != "" && next != TaskStateError {
		return ErrDetailWithoutError
	}

	t.State = next
	t.Progress = progress
	if m.Message != nil {
		t.Message = *m.Message
	}
	if m.Result != nil {
		t.Result = m.Result
	}
	if m.ErrorDetail != nil {
		t.ErrorDetail = *m.ErrorDetail
	}
	return nil
}

// Clone returns a deep copy so callers can hand out snapshots without
// exposing the stored record to mutation.
func (t *Task) Clone() *Task {
	c := *t
	if t.Result != nil {
		r := *t.Result
		if t.Result.Summary != nil {
			s := *t.Result.Summary
			s.Tags = append([]string(nil), t.Result.Summary.Tags...)
			r.Summary = &s
		}
		c.Result = &r
	}
	return &c
}
