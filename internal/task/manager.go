package task

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/scribe-dev/scribe-api/internal/config"
	"github.com/scribe-dev/scribe-api/internal/domain"
	"github.com/scribe-dev/scribe-api/internal/events"
	"github.com/scribe-dev/scribe-api/internal/pipeline"
	"github.com/scribe-dev/scribe-api/internal/store"
)

// maxURLLength bounds submitted URLs; anything longer is rejected before a
// task is created.
const maxURLLength = 2000

// Engines bundles the pipeline stage collaborators injected into the
// Manager. Diarizer and Summarizer may be nil; their stages are then
// skipped.
type Engines struct {
	Acquirer    pipeline.MediaAcquirer
	Extractor   pipeline.AudioExtractor
	Transcriber pipeline.TranscriptionEngine
	Diarizer    pipeline.Diarizer
	Summarizer  pipeline.SummaryEngine
}

// handle tracks the cancellation state of a submitted task. cancel is nil
// until a worker picks the task up.
type handle struct {
	cancelled bool
	cancel    context.CancelFunc
}

// Manager drives each task through its pipeline exactly once: serialized per
// task, bounded in aggregate concurrency by the worker pool size.
type Manager struct {
	store   store.TaskStore
	queue   *Queue
	engines Engines
	emitter events.EventEmitter
	cfg     config.PipelineConfig
	logger  *slog.Logger

	mu      sync.Mutex
	handles map[uuid.UUID]*handle

	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup
}

// NewManager creates a Manager. Start must be called before submissions are
// processed. The emitter may be nil when event publication is disabled.
func NewManager(
	taskStore store.TaskStore,
	engines Engines,
	emitter events.EventEmitter,
	cfg config.PipelineConfig,
	logger *slog.Logger,
) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		store:      taskStore,
		queue:      NewQueue(cfg.QueueSize, logger),
		engines:    engines,
		emitter:    emitter,
		cfg:        cfg,
		logger:     logger.With("component", "task_manager"),
		handles:    make(map[uuid.UUID]*handle),
		baseCtx:    ctx,
		baseCancel: cancel,
	}
}

// Start launches the worker pool.
func (m *Manager) Start() {
	workers := m.cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		m.wg.Add(1)
		go m.worker(i)
	}
	m.logger.Info("worker pool started", "workers", workers)
}

// Stop shuts the manager down: the queue stops accepting submissions and the
// pool drains what is buffered. If the context expires first, in-flight
// pipelines are cancelled and the remaining wait is bounded by their
// cooperative cancellation points.
func (m *Manager) Stop(ctx context.Context) {
	m.queue.Close()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		m.logger.Warn("shutdown deadline reached, cancelling in-flight tasks")
		m.baseCancel()
		<-done
	}
	m.baseCancel()
}

// SubmitURL validates the URL, creates a queued task for it and enqueues it.
// Validation failures are returned before any task exists.
func (m *Manager) SubmitURL(ctx context.Context, rawURL string) (*domain.Task, error) {
	if err := validateURL(rawURL); err != nil {
		return nil, err
	}
	return m.submit(ctx, domain.Source{
		Kind:    domain.SourceKindURL,
		Address: rawURL,
	})
}

// SubmitUpload creates a queued task for an already-saved upload. The file
// must exist and be non-empty.
func (m *Manager) SubmitUpload(ctx context.Context, path string) (*domain.Task, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: uploaded file not found", domain.ErrInvalidUploadPath)
	}
	if info.IsDir() || info.Size() == 0 {
		return nil, fmt.Errorf("%w: uploaded file is empty", domain.ErrInvalidUploadPath)
	}
	return m.submit(ctx, domain.Source{
		Kind: domain.SourceKindUpload,
		Path: path,
	})
}

func (m *Manager) submit(ctx context.Context, source domain.Source) (*domain.Task, error) {
	task, err := m.store.Create(ctx, source)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.handles[task.ID] = &handle{}
	m.mu.Unlock()

	if err := m.queue.Enqueue(task.ID); err != nil {
		// The record exists; leave a terminal trace instead of a ghost
		// forever stuck in queued.
		m.dropHandle(task.ID)
		detail := "submission rejected: " + err.Error()
		if failed, ferr := m.recordFailure(ctx, task.ID, detail); ferr == nil {
			task = failed
		}
		return task, err
	}

	m.logger.Info("task submitted",
		"task_id", task.ID,
		"source_kind", task.Source.Kind,
		"queue_depth", m.queue.Depth())
	return task, nil
}

// Status returns a snapshot of the task.
func (m *Manager) Status(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return m.store.Get(ctx, id)
}

// History returns all tasks ordered by creation time descending, ties broken
// by id. A limit of 0 returns everything.
func (m *Manager) History(ctx context.Context, limit int) ([]*domain.Task, error) {
	tasks, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}

	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
		}
		return tasks[i].ID.String() < tasks[j].ID.String()
	})

	if limit > 0 && len(tasks) > limit {
		tasks = tasks[:limit]
	}
	return tasks, nil
}

// Cancel requests best-effort cancellation. A task still waiting in the
// queue is failed immediately; a running task has its context cancelled and
// stops at the next stage boundary. Terminal tasks cannot be cancelled.
func (m *Manager) Cancel(ctx context.Context, id uuid.UUID) error {
	task, err := m.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if task.State.Terminal() {
		return fmt.Errorf("%w: %s", domain.ErrTerminalTask, task.State)
	}

	m.mu.Lock()
	h, ok := m.handles[id]
	if ok {
		h.cancelled = true
		if h.cancel != nil {
			h.cancel()
		}
	}
	m.mu.Unlock()

	// Not picked up yet (or submitted before a restart): fail it now so the
	// client sees the cancellation instead of a task parked in queued.
	if ok && h.cancel == nil {
		_, err := m.recordFailure(ctx, id, "cancelled by user")
		return err
	}

	m.logger.Info("cancellation requested", "task_id", id)
	return nil
}

// QueueDepth reports how many submissions await a worker slot.
func (m *Manager) QueueDepth() int {
	return m.queue.Depth()
}

// worker consumes task IDs until the queue closes or the manager stops.
func (m *Manager) worker(id int) {
	defer m.wg.Done()
	logger := m.logger.With("worker_id", id)
	logger.Debug("worker started")

	for {
		select {
		case <-m.baseCtx.Done():
			logger.Debug("worker stopping")
			return
		case taskID, ok := <-m.queue.Channel():
			if !ok {
				logger.Debug("queue closed, worker stopping")
				return
			}
			m.runTask(taskID, logger)
		}
	}
}

// runTask sets up cancellation for one dequeued task and executes its
// pipeline.
func (m *Manager) runTask(id uuid.UUID, logger *slog.Logger) {
	ctx, cancel := context.WithCancel(m.baseCtx)
	defer cancel()
	defer m.dropHandle(id)

	m.mu.Lock()
	h, ok := m.handles[id]
	if !ok {
		h = &handle{}
		m.handles[id] = h
	}
	if h.cancelled {
		m.mu.Unlock()
		// Cancel usually records the failure itself when it catches the task
		// still queued; only record here if that write did not happen.
		if task, err := m.store.Get(context.Background(), id); err == nil && task.State.Terminal() {
			return
		}
		if _, err := m.recordFailure(context.Background(), id, "cancelled by user"); err != nil {
			logger.Error("failed to record cancellation", "task_id", id, "error", err)
		}
		return
	}
	h.cancel = cancel
	m.mu.Unlock()

	m.process(ctx, id, logger)
}

func (m *Manager) dropHandle(id uuid.UUID) {
	m.mu.Lock()
	delete(m.handles, id)
	m.mu.Unlock()
}

// validateURL enforces the submission contract: syntactically valid, http or
// https, host present, bounded length.
func validateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("%w: url is required", domain.ErrInvalidURL)
	}
	if len(rawURL) > maxURLLength {
		return fmt.Errorf("%w: url exceeds %d characters", domain.ErrInvalidURL, maxURLLength)
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https", domain.ErrInvalidURL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%w: missing host", domain.ErrInvalidURL)
	}
	return nil
}
