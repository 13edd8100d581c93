package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/scribe-dev/scribe-api/internal/api/shared"
	"github.com/scribe-dev/scribe-api/internal/config"
	"github.com/scribe-dev/scribe-api/internal/domain"
)

// TaskService is the slice of the orchestration manager the HTTP layer
// depends on.
type TaskService interface {
	SubmitURL(ctx context.Context, rawURL string) (*domain.Task, error)
	SubmitUpload(ctx context.Context, path string) (*domain.Task, error)
	Status(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	Cancel(ctx context.Context, id uuid.UUID) error
	History(ctx context.Context, limit int) ([]*domain.Task, error)
	QueueDepth() int
}

// TaskHandler handles task-related HTTP requests.
type TaskHandler struct {
	service  TaskService
	cfg      config.PipelineConfig
	features map[string]bool
	logger   *slog.Logger
}

// NewTaskHandler creates a new TaskHandler. features is reported verbatim by
// the health endpoint.
func NewTaskHandler(service TaskService, cfg config.PipelineConfig, features map[string]bool, logger *slog.Logger) *TaskHandler {
	if features == nil {
		features = map[string]bool{}
	}
	return &TaskHandler{
		service:  service,
		cfg:      cfg,
		features: features,
		logger:   logger.With("component", "task_handler"),
	}
}

// Start handles POST /start requests: URL-based submission.
func (h *TaskHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		message := "url is required"
		if req.URL != "" {
			message = "url exceeds maximum length"
		}
		shared.RespondWithError(w, r, http.StatusBadRequest, message)
		return
	}

	task, err := h.service.SubmitURL(r.Context(), req.URL)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, SubmitResponse{
		TaskID: task.ID.String(),
		Status: string(task.State),
	})
}

// Upload handles POST /upload requests: multipart file submission. The file
// is saved under the upload directory with a timestamped, sanitized name
// before a task is created for it.
func (h *TaskHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Upload too large or malformed")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "No file provided")
		return
	}
	defer func() { _ = file.Close() }()

	if !h.extensionAllowed(header.Filename) {
		shared.RespondWithError(w, r, http.StatusBadRequest, "File type not allowed")
		return
	}

	name := fmt.Sprintf("%d_%s", time.Now().Unix(), sanitizeFilename(header.Filename))
	if err := os.MkdirAll(h.cfg.UploadDir, 0o755); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to store upload", err)
		return
	}
	destPath := filepath.Join(h.cfg.UploadDir, name)

	written, err := h.saveUpload(file, destPath)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to store upload", err)
		return
	}
	if written == 0 {
		_ = os.Remove(destPath)
		shared.RespondWithError(w, r, http.StatusBadRequest, "Uploaded file is empty")
		return
	}

	task, err := h.service.SubmitUpload(r.Context(), destPath)
	if err != nil {
		_ = os.Remove(destPath)
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, SubmitResponse{
		TaskID:   task.ID.String(),
		Status:   string(task.State),
		Filename: name,
	})
}

func (h *TaskHandler) saveUpload(src io.Reader, destPath string) (int64, error) {
	dst, err := os.Create(destPath)
	if err != nil {
		return 0, err
	}
	defer func() { _ = dst.Close() }()
	return io.Copy(dst, src)
}

// Status handles GET /status/{task_id} requests.
func (h *TaskHandler) Status(w http.ResponseWriter, r *http.Request) {
	id, err := getPathTaskID(r)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, GetSafeErrorMessage(err))
		return
	}

	task, err := h.service.Status(r.Context(), id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, statusFromTask(task))
}

// Preview handles GET /preview/{task_id} requests: the inline transcript of
// a completed task.
func (h *TaskHandler) Preview(w http.ResponseWriter, r *http.Request) {
	id, err := getPathTaskID(r)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, GetSafeErrorMessage(err))
		return
	}

	task, err := h.service.Status(r.Context(), id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	if task.State != domain.TaskStateCompleted || task.Result == nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Task not completed")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, PreviewResponse{
		TaskID:   task.ID.String(),
		Text:     task.Result.Text,
		Filename: filepath.Base(task.Result.TranscriptPath),
	})
}

// Download handles GET /download/{task_id} requests: serves the transcript
// file as an attachment. The artifact must resolve inside the output
// directory.
func (h *TaskHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := getPathTaskID(r)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, GetSafeErrorMessage(err))
		return
	}

	task, err := h.service.Status(r.Context(), id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	if task.State != domain.TaskStateCompleted || task.Result == nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Task not completed")
		return
	}

	path, err := h.resolveArtifact(task.Result.TranscriptPath)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusForbidden, "Artifact not accessible", err)
		return
	}
	if _, err := os.Stat(path); err != nil {
		shared.RespondWithError(w, r, http.StatusNotFound, "Transcript file no longer available")
		return
	}

	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeFile(w, r, path)
}

// resolveArtifact checks that the artifact path stays inside the output
// directory. Stored paths come from the pipeline, so a violation means a
// corrupted or tampered record.
func (h *TaskHandler) resolveArtifact(artifactPath string) (string, error) {
	absOut, err := filepath.Abs(h.cfg.OutputDir)
	if err != nil {
		return "", err
	}
	absPath, err := filepath.Abs(artifactPath)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(absOut, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("artifact escapes output directory: %s", artifactPath)
	}
	return absPath, nil
}

// CancelTask handles POST /cancel/{task_id} requests.
func (h *TaskHandler) CancelTask(w http.ResponseWriter, r *http.Request) {
	id, err := getPathTaskID(r)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, GetSafeErrorMessage(err))
		return
	}

	if err := h.service.Cancel(r.Context(), id); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, CancelResponse{
		TaskID: id.String(),
		Status: "cancel_requested",
	})
}

// History handles GET /history requests, newest first. An optional limit
// query parameter caps the listing.
func (h *TaskHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			shared.RespondWithError(w, r, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	tasks, err := h.service.History(r.Context(), limit)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	entries := make([]HistoryEntry, 0, len(tasks))
	for _, t := range tasks {
		entry := HistoryEntry{
			TaskID:      t.ID.String(),
			Status:      string(t.State),
			Progress:    t.Progress,
			CreatedAt:   t.CreatedAt,
			SourceLabel: t.Source.Label(),
		}
		if t.Result != nil {
			entry.Filename = filepath.Base(t.Result.TranscriptPath)
		}
		entries = append(entries, entry)
	}

	shared.RespondWithJSON(w, r, http.StatusOK, HistoryResponse{
		Tasks: entries,
		Count: len(entries),
	})
}

// Health handles GET /health requests.
func (h *TaskHandler) Health(w http.ResponseWriter, r *http.Request) {
	total := 0
	if tasks, err := h.service.History(r.Context(), 0); err == nil {
		total = len(tasks)
	} else {
		h.logger.Warn("health: failed to count tasks", "error", err)
	}

	shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{
		Status:     "ok",
		QueueDepth: h.service.QueueDepth(),
		TotalTasks: total,
		Features:   h.features,
	})
}

func (h *TaskHandler) extensionAllowed(filename string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" {
		return false
	}
	for _, allowed := range h.cfg.AllowedExtensions {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

// sanitizeFilename keeps only characters safe for a local filename, dropping
// any path components the client sent.
func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	var sb strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	if sb.Len() == 0 || strings.Trim(sb.String(), "._") == "" {
		return "upload"
	}
	return sb.String()
}

// statusFromTask projects a task record into the polled representation.
func statusFromTask(t *domain.Task) StatusResponse {
	resp := StatusResponse{
		TaskID:    t.ID.String(),
		Status:    string(t.State),
		Progress:  t.Progress,
		Message:   t.Message,
		CreatedAt: t.CreatedAt,
		Error:     t.ErrorDetail,
	}
	if t.Result != nil {
		resp.Filename = filepath.Base(t.Result.TranscriptPath)
		resp.AISummary = t.Result.Summary
	}
	return resp
}
