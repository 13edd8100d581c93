package postgres

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/scribe-dev/scribe-api/internal/store"
)

// uniqueViolationCode is the PostgreSQL error code for unique constraint
// violations; with UUIDv4 primary keys this indicates a platform problem,
// not a caller error.
const uniqueViolationCode = "23505"

// MapError maps a database error to the store error taxonomy, preserving the
// original error for debugging. The operation names the store call that
// failed.
func MapError(operation string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrTaskNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return store.NewStorageError(operation, "task id collision", err)
	}
	return store.NewStorageError(operation, "database error", err)
}
