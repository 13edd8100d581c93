package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/scribe-dev/scribe-api/internal/domain"
	"github.com/scribe-dev/scribe-api/internal/store"
)

// record pairs a task with its own lock so updates to different task IDs
// never block each other. The task pointer is replaced on every mutation,
// never written through, so clones handed out earlier stay stable.
type record struct {
	mu   sync.Mutex
	task *domain.Task
}

// Store is a TaskStore backed by one JSON document on disk.
type Store struct {
	path   string
	logger *slog.Logger

	mu      sync.RWMutex // guards the records map itself
	records map[uuid.UUID]*record

	fileMu sync.Mutex // serializes ledger writes
}

var _ store.TaskStore = (*Store)(nil)

// New opens (or creates) the ledger at path and loads any persisted tasks.
func New(path string, logger *slog.Logger) (*Store, error) {
	s := &Store{
		path:    path,
		logger:  logger.With("component", "filestore"),
		records: make(map[uuid.UUID]*record),
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, store.NewStorageError("open", "creating ledger directory", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, store.NewStorageError("open", "reading ledger", err)
	}

	var tasks map[uuid.UUID]*domain.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		// A corrupt ledger is not recoverable in-process; surface it rather
		// than silently dropping history.
		return nil, store.NewStorageError("open", "decoding ledger", err)
	}
	for id, t := range tasks {
		s.records[id] = &record{task: t}
	}

	s.logger.Info("task ledger loaded", "path", path, "tasks", len(s.records))
	return s, nil
}

// Create allocates a new ID and inserts a queued record for the source.
func (s *Store) Create(ctx context.Context, source domain.Source) (*domain.Task, error) {
	task, err := domain.NewTask(source)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.records[task.ID] = &record{task: task}
	s.mu.Unlock()

	if err := s.persist(); err != nil {
		return nil, err
	}
	return task.Clone(), nil
}

// Get returns a snapshot of the task, or store.ErrTaskNotFound.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	rec, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	rec.mu.Lock()
	snapshot := rec.task.Clone()
	rec.mu.Unlock()
	return snapshot, nil
}

// Update applies the mutation atomically for the given task ID.
func (s *Store) Update(ctx context.Context, id uuid.UUID, m domain.Mutation) (*domain.Task, error) {
	rec, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	rec.mu.Lock()
	next := rec.task.Clone()
	if err := next.Apply(m); err != nil {
		rec.mu.Unlock()
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidMutation, err)
	}
	rec.task = next
	snapshot := next.Clone()
	rec.mu.Unlock()

	if err := s.persist(); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// List returns a point-in-time snapshot of all known tasks.
func (s *Store) List(ctx context.Context) ([]*domain.Task, error) {
	s.mu.RLock()
	recs := make([]*record, 0, len(s.records))
	for _, rec := range s.records {
		recs = append(recs, rec)
	}
	s.mu.RUnlock()

	tasks := make([]*domain.Task, 0, len(recs))
	for _, rec := range recs {
		rec.mu.Lock()
		tasks = append(tasks, rec.task.Clone())
		rec.mu.Unlock()
	}
	return tasks, nil
}

// RecoverInterrupted transitions every non-terminal task to error state.
// Called once on startup: a task that was mid-pipeline when the process died
// can never be resumed, and reporting it failed beats leaving it queued
// forever. Returns the number of tasks recovered.
func (s *Store) RecoverInterrupted(ctx context.Context) (int, error) {
	tasks, err := s.List(ctx)
	if err != nil {
		return 0, err
	}

	errState := domain.TaskStateError
	detail := "server restarted during processing"
	recovered := 0
	for _, t := range tasks {
		if t.State.Terminal() {
			continue
		}
		if _, err := s.Update(ctx, t.ID, domain.Mutation{
			State:       &errState,
			Message:     &detail,
			ErrorDetail: &detail,
		}); err != nil {
			return recovered, err
		}
		s.logger.Warn("recovered interrupted task", "task_id", t.ID, "previous_state", t.State)
		recovered++
	}
	return recovered, nil
}

// lookup fetches the record without cloning.
func (s *Store) lookup(id uuid.UUID) (*record, error) {
	s.mu.RLock()
	rec, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return rec, nil
}

// persist writes the full ledger with a temp-file rename so readers never
// observe a partially written document.
func (s *Store) persist() error {
	s.fileMu.Lock()
	defer s.fileMu.Unlock()

	s.mu.RLock()
	snapshot := make(map[uuid.UUID]*domain.Task, len(s.records))
	for id, rec := range s.records {
		rec.mu.Lock()
		snapshot[id] = rec.task
		rec.mu.Unlock()
	}
	s.mu.RUnlock()

	data, err := json.Marshal(snapshot)
	if err != nil {
		return store.NewStorageError("persist", "encoding ledger", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return store.NewStorageError("persist", "writing ledger", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return store.NewStorageError("persist", "replacing ledger", err)
	}
	return nil
}
