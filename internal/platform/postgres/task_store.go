package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/scribe-dev/scribe-api/internal/domain"
	"github.com/scribe-dev/scribe-api/internal/store"
)

// TaskStore implements store.TaskStore on PostgreSQL. Per-ID atomicity comes
// from a row-level lock inside the update transaction, so updates to
// different task IDs proceed independently.
type TaskStore struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ store.TaskStore = (*TaskStore)(nil)

// NewTaskStore creates a TaskStore over an open database handle.
func NewTaskStore(db *sql.DB, logger *slog.Logger) *TaskStore {
	return &TaskStore{
		db:     db,
		logger: logger.With("component", "postgres_task_store"),
	}
}

// Create allocates a new ID and inserts a queued record for the source.
func (s *TaskStore) Create(ctx context.Context, source domain.Source) (*domain.Task, error) {
	task, err := domain.NewTask(source)
	if err != nil {
		return nil, err
	}

	sourceJSON, err := json.Marshal(task.Source)
	if err != nil {
		return nil, store.NewStorageError("create", "encoding source", err)
	}

	query := `
		INSERT INTO tasks (id, source, state, progress, message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx, query,
		task.ID,
		sourceJSON,
		task.State,
		task.Progress,
		task.Message,
		task.CreatedAt,
		now,
	); err != nil {
		s.logger.Error("failed to insert task", "task_id", task.ID, "error", err)
		return nil, MapError("create", err)
	}

	return task, nil
}

// Get returns a snapshot of the task, or store.ErrTaskNotFound.
func (s *TaskStore) Get(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	query := `
		SELECT id, source, state, progress, message, created_at, result, error_detail
		FROM tasks
		WHERE id = $1
	`
	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, MapError("get", err)
	}
	return task, nil
}

// Update applies the mutation inside a transaction holding the task's row
// lock, enforcing the same record invariants as the in-memory store.
func (s *TaskStore) Update(ctx context.Context, id uuid.UUID, m domain.Mutation) (*domain.Task, error) {
	var task *domain.Task
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		query := `
			SELECT id, source, state, progress, message, created_at, result, error_detail
			FROM tasks
			WHERE id = $1
			FOR UPDATE
		`
		var err error
		task, err = scanTask(tx.QueryRowContext(ctx, query, id))
		if err != nil {
			return MapError("update", err)
		}

		if err := task.Apply(m); err != nil {
			return fmt.Errorf("%w: %w", store.ErrInvalidMutation, err)
		}

		var resultJSON []byte
		if task.Result != nil {
			if resultJSON, err = json.Marshal(task.Result); err != nil {
				return store.NewStorageError("update", "encoding result", err)
			}
		}

		update := `
			UPDATE tasks
			SET state = $1, progress = $2, message = $3, result = $4, error_detail = $5, updated_at = $6
			WHERE id = $7
		`
		if _, err := tx.ExecContext(ctx, update,
			task.State,
			task.Progress,
			task.Message,
			resultJSON,
			nullableString(task.ErrorDetail),
			time.Now().UTC(),
			id,
		); err != nil {
			s.logger.Error("failed to update task", "task_id", id, "error", err)
			return store.NewStorageError("update", "writing task row", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// List returns all known tasks in no particular order.
func (s *TaskStore) List(ctx context.Context) ([]*domain.Task, error) {
	query := `
		SELECT id, source, state, progress, message, created_at, result, error_detail
		FROM tasks
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, store.NewStorageError("list", "querying tasks", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, store.NewStorageError("list", "scanning task row", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStorageError("list", "iterating task rows", err)
	}
	return tasks, nil
}

// RecoverInterrupted transitions every non-terminal task to error state,
// mirroring the file store's startup recovery.
func (s *TaskStore) RecoverInterrupted(ctx context.Context) (int, error) {
	detail := "server restarted during processing"
	query := `
		UPDATE tasks
		SET state = $1, message = $2, error_detail = $2, updated_at = $3
		WHERE state NOT IN ($4, $5)
	`
	res, err := s.db.ExecContext(ctx, query,
		domain.TaskStateError,
		detail,
		time.Now().UTC(),
		domain.TaskStateCompleted,
		domain.TaskStateError,
	)
	if err != nil {
		return 0, store.NewStorageError("recover", "resetting interrupted tasks", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, store.NewStorageError("recover", "counting recovered tasks", err)
	}
	if affected > 0 {
		s.logger.Warn("recovered interrupted tasks", "count", affected)
	}
	return int(affected), nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task        domain.Task
		sourceJSON  []byte
		resultJSON  []byte
		errorDetail sql.NullString
	)
	if err := row.Scan(
		&task.ID,
		&sourceJSON,
		&task.State,
		&task.Progress,
		&task.Message,
		&task.CreatedAt,
		&resultJSON,
		&errorDetail,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(sourceJSON, &task.Source); err != nil {
		return nil, fmt.Errorf("decoding source: %w", err)
	}
	if len(resultJSON) > 0 {
		task.Result = &domain.Result{}
		if err := json.Unmarshal(resultJSON, task.Result); err != nil {
			return nil, fmt.Errorf("decoding result: %w", err)
		}
	}
	if errorDetail.Valid {
		task.ErrorDetail = errorDetail.String
	}
	return &task, nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
