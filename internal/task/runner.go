package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/scribe-dev/scribe-api/internal/domain"
	"github.com/scribe-dev/scribe-api/internal/events"
	"github.com/scribe-dev/scribe-api/internal/pipeline"
	"github.com/scribe-dev/scribe-api/internal/redact"
)

// Stage boundary progress values. Clients map these ranges to UI phases, so
// they are a compatibility contract: [0,40) acquisition, [40,60) audio
// preparation, [60,95) transcription/diarization, [95,100] finalization.
const (
	progressQueued       = 0
	progressDownloading  = 5
	progressExtracting   = 40
	progressTranscribing = 60
	progressSummarizing  = 95
	progressCompleted    = 100

	// progressTranscribeCap keeps in-stage transcription progress below the
	// summarizing boundary until the stage fully completes.
	progressTranscribeCap = 94
)

// errCancelled is recorded as the error detail of tasks cancelled by a
// client request.
var errCancelled = errors.New("cancelled by user")

// process executes the pipeline for one task on the calling worker slot.
// Stage failures are recorded on the task record; they never propagate to
// the worker loop.
func (m *Manager) process(ctx context.Context, id uuid.UUID, logger *slog.Logger) {
	task, err := m.store.Get(context.Background(), id)
	if err != nil {
		logger.Error("dequeued unknown task", "task_id", id, "error", err)
		return
	}
	logger = logger.With("task_id", id, "source", task.Source.Label())

	workDir := filepath.Join(m.cfg.WorkDir, id.String())
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		m.fail(id, fmt.Errorf("creating work dir: %w", err), logger)
		return
	}
	// Working files are namespaced by task id and removed whatever the
	// outcome; durable artifacts live in the output dir.
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			logger.Warn("failed to clean work dir", "error", err)
		}
	}()

	// Stage 1: acquisition.
	if err := m.advance(id, domain.TaskStateDownloading, progressDownloading, "Downloading..."); err != nil {
		logger.Error("failed to record stage transition", "error", err)
		return
	}
	mediaPath, err := m.engines.Acquirer.Acquire(ctx, task.Source, workDir)
	if err != nil {
		m.fail(id, err, logger)
		return
	}
	if m.checkCancelled(ctx, id, logger) {
		return
	}

	// Stage 2: audio preparation.
	if err := m.advance(id, domain.TaskStateExtractingAudio, progressExtracting, "Extracting audio..."); err != nil {
		logger.Error("failed to record stage transition", "error", err)
		return
	}
	audioPath, err := m.engines.Extractor.ExtractAudio(ctx, mediaPath, workDir)
	if err != nil {
		m.fail(id, err, logger)
		return
	}
	if m.checkCancelled(ctx, id, logger) {
		return
	}

	// Stage 3: transcription, with monotone in-stage progress.
	if err := m.advance(id, domain.TaskStateTranscribing, progressTranscribing, "Transcribing..."); err != nil {
		logger.Error("failed to record stage transition", "error", err)
		return
	}
	lastReported := progressTranscribing
	progressFn := func(percent int) {
		mapped := progressTranscribing + percent*(progressTranscribeCap-progressTranscribing)/100
		if mapped > progressTranscribeCap {
			mapped = progressTranscribeCap
		}
		if mapped <= lastReported {
			return
		}
		lastReported = mapped
		if err := m.setProgress(id, mapped); err != nil {
			logger.Warn("failed to record transcription progress", "error", err)
		}
	}
	transcript, err := m.engines.Transcriber.Transcribe(ctx, audioPath, progressFn)
	if err != nil {
		m.fail(id, err, logger)
		return
	}
	if m.checkCancelled(ctx, id, logger) {
		return
	}

	// Optional diarization, merged into segments by midpoint containment.
	if m.cfg.Diarization && m.engines.Diarizer != nil {
		if err := m.advance(id, domain.TaskStateDiarizing, lastReported, "Identifying speakers..."); err != nil {
			logger.Error("failed to record stage transition", "error", err)
			return
		}
		turns, err := m.engines.Diarizer.Diarize(ctx, audioPath)
		if err != nil {
			m.fail(id, err, logger)
			return
		}
		pipeline.MergeSpeakers(transcript.Segments, turns)
		if m.checkCancelled(ctx, id, logger) {
			return
		}
	}

	// Stage 4: finalization.
	if err := m.advance(id, domain.TaskStateSummarizing, progressSummarizing, "Generating summary..."); err != nil {
		logger.Error("failed to record stage transition", "error", err)
		return
	}

	result, err := m.writeArtifacts(audioPath, transcript)
	if err != nil {
		m.fail(id, err, logger)
		return
	}

	if m.engines.Summarizer != nil && transcript.Text != "" {
		summary, err := m.engines.Summarizer.Summarize(ctx, transcript.Text)
		if err != nil {
			m.fail(id, err, logger)
			return
		}
		result.Summary = summary
	}

	if err := m.complete(id, result); err != nil {
		logger.Error("failed to record completion", "error", err)
		return
	}
	logger.Info("task completed", "segments", len(transcript.Segments))
}

// writeArtifacts saves the transcript text and segments sidecar to the
// output directory and returns a result referencing them.
func (m *Manager) writeArtifacts(audioPath string, transcript *pipeline.Transcript) (*domain.Result, error) {
	if err := os.MkdirAll(m.cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating output dir: %v", pipeline.ErrProcessing, err)
	}

	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	txtPath := filepath.Join(m.cfg.OutputDir, base+".txt")
	segPath := filepath.Join(m.cfg.OutputDir, base+"_segments.json")

	if err := os.WriteFile(txtPath, []byte(transcript.Text), 0o644); err != nil {
		return nil, fmt.Errorf("%w: writing transcript: %v", pipeline.ErrProcessing, err)
	}

	segments, err := json.Marshal(map[string][]domain.Segment{"segments": transcript.Segments})
	if err != nil {
		return nil, fmt.Errorf("%w: encoding segments: %v", pipeline.ErrProcessing, err)
	}
	if err := os.WriteFile(segPath, segments, 0o644); err != nil {
		return nil, fmt.Errorf("%w: writing segments: %v", pipeline.ErrProcessing, err)
	}

	return &domain.Result{
		TranscriptPath: txtPath,
		SegmentsPath:   segPath,
		Text:           transcript.Text,
	}, nil
}

// checkCancelled consults the cooperative cancellation flag at a stage
// boundary and records the cancellation when set.
func (m *Manager) checkCancelled(ctx context.Context, id uuid.UUID, logger *slog.Logger) bool {
	m.mu.Lock()
	h := m.handles[id]
	flagged := h != nil && h.cancelled
	m.mu.Unlock()

	if !flagged && ctx.Err() == nil {
		return false
	}
	detail := errCancelled.Error()
	if !flagged {
		detail = "processing interrupted by shutdown"
	}
	if _, err := m.recordFailure(context.Background(), id, detail); err != nil {
		logger.Error("failed to record cancellation", "error", err)
	} else {
		logger.Info("task cancelled")
	}
	return true
}

// advance records a stage transition. Progress never moves backwards; the
// diarizing transition passes the last transcription progress through.
func (m *Manager) advance(id uuid.UUID, state domain.TaskState, progress int, message string) error {
	task, err := m.store.Update(context.Background(), id, domain.Mutation{
		State:    &state,
		Progress: &progress,
		Message:  &message,
	})
	if err != nil {
		return err
	}
	m.emit(task)
	return nil
}

// setProgress records in-stage progress without a state change.
func (m *Manager) setProgress(id uuid.UUID, progress int) error {
	_, err := m.store.Update(context.Background(), id, domain.Mutation{Progress: &progress})
	return err
}

// complete records the terminal success state with its result payload.
func (m *Manager) complete(id uuid.UUID, result *domain.Result) error {
	state := domain.TaskStateCompleted
	progress := progressCompleted
	message := "Done!"
	task, err := m.store.Update(context.Background(), id, domain.Mutation{
		State:    &state,
		Progress: &progress,
		Message:  &message,
		Result:   result,
	})
	if err != nil {
		return err
	}
	m.emit(task)
	return nil
}

// recordFailure moves the task to the error state with the given detail.
// Progress is left frozen at the last recorded value.
func (m *Manager) recordFailure(ctx context.Context, id uuid.UUID, detail string) (*domain.Task, error) {
	state := domain.TaskStateError
	message := "Error"
	task, err := m.store.Update(ctx, id, domain.Mutation{
		State:       &state,
		Message:     &message,
		ErrorDetail: &detail,
	})
	if err != nil {
		return nil, err
	}
	m.emit(task)
	return task, nil
}

// fail records a stage failure, redacting paths and credentials from the
// client-visible detail.
func (m *Manager) fail(id uuid.UUID, cause error, logger *slog.Logger) {
	logger.Error("stage failed", "error", cause)
	if _, err := m.recordFailure(context.Background(), id, redact.Error(cause)); err != nil {
		logger.Error("failed to record stage failure", "error", err)
	}
}

// emit publishes a state transition when an emitter is configured.
func (m *Manager) emit(task *domain.Task) {
	if m.emitter == nil || task == nil {
		return
	}
	event := events.NewTaskStateEvent(task)
	if err := m.emitter.EmitEvent(context.Background(), event); err != nil {
		m.logger.Warn("failed to emit task event",
			"task_id", task.ID,
			"state", task.State,
			"error", err)
	}
}
