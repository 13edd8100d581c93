package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/scribe-dev/scribe-api/internal/domain"
)

// getPathTaskID extracts and parses the task_id path parameter.
func getPathTaskID(r *http.Request) (uuid.UUID, error) {
	pathParam := chi.URLParam(r, "task_id")
	if pathParam == "" {
		return uuid.Nil, fmt.Errorf("%w: task_id is required", domain.ErrValidation)
	}

	id, err := uuid.Parse(pathParam)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: task_id has invalid format", domain.ErrValidation)
	}
	return id, nil
}
