package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scribe-dev/scribe-api/internal/api/shared"
	"github.com/scribe-dev/scribe-api/internal/config"
	"github.com/scribe-dev/scribe-api/internal/domain"
	"github.com/scribe-dev/scribe-api/internal/store"
	"github.com/scribe-dev/scribe-api/internal/task"
)

// stubService implements TaskService with overridable function fields.
type stubService struct {
	submitURLFn    func(ctx context.Context, rawURL string) (*domain.Task, error)
	submitUploadFn func(ctx context.Context, path string) (*domain.Task, error)
	statusFn       func(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	cancelFn       func(ctx context.Context, id uuid.UUID) error
	historyFn      func(ctx context.Context, limit int) ([]*domain.Task, error)
	queueDepthFn   func() int
}

func (s *stubService) SubmitURL(ctx context.Context, rawURL string) (*domain.Task, error) {
	if s.submitURLFn == nil {
		return nil, errors.New("SubmitURL not stubbed")
	}
	return s.submitURLFn(ctx, rawURL)
}

func (s *stubService) SubmitUpload(ctx context.Context, path string) (*domain.Task, error) {
	if s.submitUploadFn == nil {
		return nil, errors.New("SubmitUpload not stubbed")
	}
	return s.submitUploadFn(ctx, path)
}

func (s *stubService) Status(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	if s.statusFn == nil {
		return nil, store.ErrTaskNotFound
	}
	return s.statusFn(ctx, id)
}

func (s *stubService) Cancel(ctx context.Context, id uuid.UUID) error {
	if s.cancelFn == nil {
		return errors.New("Cancel not stubbed")
	}
	return s.cancelFn(ctx, id)
}

func (s *stubService) History(ctx context.Context, limit int) ([]*domain.Task, error) {
	if s.historyFn == nil {
		return nil, nil
	}
	return s.historyFn(ctx, limit)
}

func (s *stubService) QueueDepth() int {
	if s.queueDepthFn == nil {
		return 0
	}
	return s.queueDepthFn()
}

func testPipelineConfig(t *testing.T) config.PipelineConfig {
	t.Helper()
	return config.PipelineConfig{
		Workers:           1,
		QueueSize:         4,
		UploadDir:         t.TempDir(),
		WorkDir:           t.TempDir(),
		OutputDir:         t.TempDir(),
		MaxUploadBytes:    1 << 20,
		AllowedExtensions: []string{"mp3", "wav", "mp4"},
		Language:          "auto",
		WhisperModel:      "models/ggml-small.bin",
		RetentionHours:    24,
	}
}

func newTestRouter(svc TaskService, cfg config.PipelineConfig, features map[string]bool) *chi.Mux {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewTaskHandler(svc, cfg, features, logger)

	r := chi.NewRouter()
	r.Post("/start", h.Start)
	r.Post("/upload", h.Upload)
	r.Get("/status/{task_id}", h.Status)
	r.Get("/preview/{task_id}", h.Preview)
	r.Get("/download/{task_id}", h.Download)
	r.Post("/cancel/{task_id}", h.CancelTask)
	r.Get("/history", h.History)
	r.Get("/health", h.Health)
	return r
}

func queuedTask(t *testing.T, source domain.Source) *domain.Task {
	t.Helper()
	tk, err := domain.NewTask(source)
	require.NoError(t, err)
	return tk
}

func completedTask(t *testing.T, transcriptPath string) *domain.Task {
	t.Helper()
	tk := queuedTask(t, domain.Source{Kind: domain.SourceKindURL, Address: "https://example.com/talk"})
	tk.State = domain.TaskStateCompleted
	tk.Progress = 100
	tk.Message = "Done!"
	tk.Result = &domain.Result{
		TranscriptPath: transcriptPath,
		Text:           "hello world",
		Summary:        &domain.Summary{Title: "Talk", Summary: "A talk.", Tags: []string{"talk"}},
	}
	return tk
}

func TestStart(t *testing.T) {
	t.Parallel()

	t.Run("accepts a valid URL submission", func(t *testing.T) {
		t.Parallel()
		tk := queuedTask(t, domain.Source{Kind: domain.SourceKindURL, Address: "https://example.com/v"})
		svc := &stubService{
			submitURLFn: func(_ context.Context, rawURL string) (*domain.Task, error) {
				assert.Equal(t, "https://example.com/v", rawURL)
				return tk, nil
			},
		}
		router := newTestRouter(svc, testPipelineConfig(t), nil)

		req := httptest.NewRequest(http.MethodPost, "/start",
			strings.NewReader(`{"url":"https://example.com/v"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp SubmitResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, tk.ID.String(), resp.TaskID)
		assert.Equal(t, "queued", resp.Status)
		assert.Empty(t, resp.Filename)
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		t.Parallel()
		router := newTestRouter(&stubService{}, testPipelineConfig(t), nil)

		req := httptest.NewRequest(http.MethodPost, "/start", strings.NewReader("{not json"))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects a missing url field", func(t *testing.T) {
		t.Parallel()
		router := newTestRouter(&stubService{}, testPipelineConfig(t), nil)

		req := httptest.NewRequest(http.MethodPost, "/start", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var resp shared.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "url is required", resp.Error)
	})

	t.Run("rejects an oversized url with an accurate message", func(t *testing.T) {
		t.Parallel()
		router := newTestRouter(&stubService{}, testPipelineConfig(t), nil)

		body := fmt.Sprintf(`{"url":"https://example.com/%s"}`, strings.Repeat("a", 2001))
		req := httptest.NewRequest(http.MethodPost, "/start", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var resp shared.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "url exceeds maximum length", resp.Error)
	})

	t.Run("maps URL validation failures to 400", func(t *testing.T) {
		t.Parallel()
		svc := &stubService{
			submitURLFn: func(context.Context, string) (*domain.Task, error) {
				return nil, domain.ErrInvalidURL
			},
		}
		router := newTestRouter(svc, testPipelineConfig(t), nil)

		req := httptest.NewRequest(http.MethodPost, "/start",
			strings.NewReader(`{"url":"ftp://example.com/v"}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("maps a full queue to 503", func(t *testing.T) {
		t.Parallel()
		svc := &stubService{
			submitURLFn: func(context.Context, string) (*domain.Task, error) {
				return nil, task.ErrQueueFull
			},
		}
		router := newTestRouter(svc, testPipelineConfig(t), nil)

		req := httptest.NewRequest(http.MethodPost, "/start",
			strings.NewReader(`{"url":"https://example.com/v"}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUpload(t *testing.T) {
	t.Parallel()

	t.Run("stores the file and submits a task", func(t *testing.T) {
		t.Parallel()
		cfg := testPipelineConfig(t)
		var submittedPath string
		svc := &stubService{
			submitUploadFn: func(_ context.Context, path string) (*domain.Task, error) {
				submittedPath = path
				return queuedTask(t, domain.Source{Kind: domain.SourceKindUpload, Path: path}), nil
			},
		}
		router := newTestRouter(svc, cfg, nil)

		body, contentType := multipartBody(t, "file", "my talk!.mp3", []byte("audio-bytes"))
		req := httptest.NewRequest(http.MethodPost, "/upload", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp SubmitResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "queued", resp.Status)
		assert.True(t, strings.HasSuffix(resp.Filename, "_my_talk_.mp3"), "got %q", resp.Filename)

		require.NotEmpty(t, submittedPath)
		assert.Equal(t, cfg.UploadDir, filepath.Dir(submittedPath))
		saved, err := os.ReadFile(submittedPath)
		require.NoError(t, err)
		assert.Equal(t, "audio-bytes", string(saved))
	})

	t.Run("rejects disallowed extensions", func(t *testing.T) {
		t.Parallel()
		router := newTestRouter(&stubService{}, testPipelineConfig(t), nil)

		body, contentType := multipartBody(t, "file", "payload.exe", []byte("x"))
		req := httptest.NewRequest(http.MethodPost, "/upload", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects an empty file and removes it", func(t *testing.T) {
		t.Parallel()
		cfg := testPipelineConfig(t)
		router := newTestRouter(&stubService{}, cfg, nil)

		body, contentType := multipartBody(t, "file", "silence.wav", nil)
		req := httptest.NewRequest(http.MethodPost, "/upload", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		entries, err := os.ReadDir(cfg.UploadDir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("rejects a request without a file part", func(t *testing.T) {
		t.Parallel()
		router := newTestRouter(&stubService{}, testPipelineConfig(t), nil)

		body, contentType := multipartBody(t, "attachment", "talk.mp3", []byte("x"))
		req := httptest.NewRequest(http.MethodPost, "/upload", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("removes the stored file when submission fails", func(t *testing.T) {
		t.Parallel()
		cfg := testPipelineConfig(t)
		svc := &stubService{
			submitUploadFn: func(context.Context, string) (*domain.Task, error) {
				return nil, task.ErrQueueFull
			},
		}
		router := newTestRouter(svc, cfg, nil)

		body, contentType := multipartBody(t, "file", "talk.mp3", []byte("audio"))
		req := httptest.NewRequest(http.MethodPost, "/upload", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		entries, err := os.ReadDir(cfg.UploadDir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestStatus(t *testing.T) {
	t.Parallel()

	t.Run("returns the polled representation of a completed task", func(t *testing.T) {
		t.Parallel()
		tk := completedTask(t, "/data/outputs/base.txt")
		svc := &stubService{
			statusFn: func(_ context.Context, id uuid.UUID) (*domain.Task, error) {
				assert.Equal(t, tk.ID, id)
				return tk, nil
			},
		}
		router := newTestRouter(svc, testPipelineConfig(t), nil)

		req := httptest.NewRequest(http.MethodGet, "/status/"+tk.ID.String(), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp StatusResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, tk.ID.String(), resp.TaskID)
		assert.Equal(t, "completed", resp.Status)
		assert.Equal(t, 100, resp.Progress)
		assert.Equal(t, "Done!", resp.Message)
		assert.Equal(t, "base.txt", resp.Filename)
		require.NotNil(t, resp.AISummary)
		assert.Equal(t, "Talk", resp.AISummary.Title)
		assert.Empty(t, resp.Error)
	})

	t.Run("surfaces the error detail of a failed task", func(t *testing.T) {
		t.Parallel()
		tk := queuedTask(t, domain.Source{Kind: domain.SourceKindURL, Address: "https://example.com/v"})
		tk.State = domain.TaskStateError
		tk.ErrorDetail = "acquisition failed: video unavailable"
		svc := &stubService{
			statusFn: func(context.Context, uuid.UUID) (*domain.Task, error) { return tk, nil },
		}
		router := newTestRouter(svc, testPipelineConfig(t), nil)

		req := httptest.NewRequest(http.MethodGet, "/status/"+tk.ID.String(), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp StatusResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "error", resp.Status)
		assert.Equal(t, "acquisition failed: video unavailable", resp.Error)
	})

	t.Run("returns 404 for an unknown task", func(t *testing.T) {
		t.Parallel()
		router := newTestRouter(&stubService{}, testPipelineConfig(t), nil)

		req := httptest.NewRequest(http.MethodGet, "/status/"+uuid.New().String(), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("returns 400 for a malformed task id", func(t *testing.T) {
		t.Parallel()
		router := newTestRouter(&stubService{}, testPipelineConfig(t), nil)

		req := httptest.NewRequest(http.MethodGet, "/status/not-a-uuid", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestPreview(t *testing.T) {
	t.Parallel()

	t.Run("returns the inline transcript", func(t *testing.T) {
		t.Parallel()
		tk := completedTask(t, "/data/outputs/base.txt")
		svc := &stubService{
			statusFn: func(context.Context, uuid.UUID) (*domain.Task, error) { return tk, nil },
		}
		router := newTestRouter(svc, testPipelineConfig(t), nil)

		req := httptest.NewRequest(http.MethodGet, "/preview/"+tk.ID.String(), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp PreviewResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "hello world", resp.Text)
		assert.Equal(t, "base.txt", resp.Filename)
	})

	t.Run("rejects tasks that are still running", func(t *testing.T) {
		t.Parallel()
		tk := queuedTask(t, domain.Source{Kind: domain.SourceKindURL, Address: "https://example.com/v"})
		svc := &stubService{
			statusFn: func(context.Context, uuid.UUID) (*domain.Task, error) { return tk, nil },
		}
		router := newTestRouter(svc, testPipelineConfig(t), nil)

		req := httptest.NewRequest(http.MethodGet, "/preview/"+tk.ID.String(), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestDownload(t *testing.T) {
	t.Parallel()

	t.Run("serves the transcript as an attachment", func(t *testing.T) {
		t.Parallel()
		cfg := testPipelineConfig(t)
		transcriptPath := filepath.Join(cfg.OutputDir, "base.txt")
		require.NoError(t, os.WriteFile(transcriptPath, []byte("full transcript"), 0o644))

		tk := completedTask(t, transcriptPath)
		svc := &stubService{
			statusFn: func(context.Context, uuid.UUID) (*domain.Task, error) { return tk, nil },
		}
		router := newTestRouter(svc, cfg, nil)

		req := httptest.NewRequest(http.MethodGet, "/download/"+tk.ID.String(), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "full transcript", rec.Body.String())
		assert.Contains(t, rec.Header().Get("Content-Disposition"), `attachment; filename="base.txt"`)
	})

	t.Run("refuses artifacts outside the output directory", func(t *testing.T) {
		t.Parallel()
		cfg := testPipelineConfig(t)
		tk := completedTask(t, filepath.Join(cfg.OutputDir, "..", "escape.txt"))
		svc := &stubService{
			statusFn: func(context.Context, uuid.UUID) (*domain.Task, error) { return tk, nil },
		}
		router := newTestRouter(svc, cfg, nil)

		req := httptest.NewRequest(http.MethodGet, "/download/"+tk.ID.String(), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("returns 404 when the artifact was cleaned up", func(t *testing.T) {
		t.Parallel()
		cfg := testPipelineConfig(t)
		tk := completedTask(t, filepath.Join(cfg.OutputDir, "gone.txt"))
		svc := &stubService{
			statusFn: func(context.Context, uuid.UUID) (*domain.Task, error) { return tk, nil },
		}
		router := newTestRouter(svc, cfg, nil)

		req := httptest.NewRequest(http.MethodGet, "/download/"+tk.ID.String(), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("rejects tasks without a result", func(t *testing.T) {
		t.Parallel()
		tk := queuedTask(t, domain.Source{Kind: domain.SourceKindURL, Address: "https://example.com/v"})
		svc := &stubService{
			statusFn: func(context.Context, uuid.UUID) (*domain.Task, error) { return tk, nil },
		}
		router := newTestRouter(svc, testPipelineConfig(t), nil)

		req := httptest.NewRequest(http.MethodGet, "/download/"+tk.ID.String(), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCancelTask(t *testing.T) {
	t.Parallel()

	t.Run("acknowledges a cancellation request", func(t *testing.T) {
		t.Parallel()
		id := uuid.New()
		svc := &stubService{
			cancelFn: func(_ context.Context, got uuid.UUID) error {
				assert.Equal(t, id, got)
				return nil
			},
		}
		router := newTestRouter(svc, testPipelineConfig(t), nil)

		req := httptest.NewRequest(http.MethodPost, "/cancel/"+id.String(), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp CancelResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, id.String(), resp.TaskID)
		assert.Equal(t, "cancel_requested", resp.Status)
	})

	t.Run("returns 409 for terminal tasks", func(t *testing.T) {
		t.Parallel()
		svc := &stubService{
			cancelFn: func(context.Context, uuid.UUID) error { return domain.ErrTerminalTask },
		}
		router := newTestRouter(svc, testPipelineConfig(t), nil)

		req := httptest.NewRequest(http.MethodPost, "/cancel/"+uuid.New().String(), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("returns 404 for unknown tasks", func(t *testing.T) {
		t.Parallel()
		svc := &stubService{
			cancelFn: func(context.Context, uuid.UUID) error { return store.ErrTaskNotFound },
		}
		router := newTestRouter(svc, testPipelineConfig(t), nil)

		req := httptest.NewRequest(http.MethodPost, "/cancel/"+uuid.New().String(), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHistory(t *testing.T) {
	t.Parallel()

	t.Run("lists tasks with source labels", func(t *testing.T) {
		t.Parallel()
		urlTask := queuedTask(t, domain.Source{Kind: domain.SourceKindURL, Address: "https://example.com/v"})
		uploadTask := completedTask(t, "/data/outputs/base.txt")
		uploadTask.Source = domain.Source{Kind: domain.SourceKindUpload, Path: "/data/uploads/1_talk.mp3"}

		svc := &stubService{
			historyFn: func(_ context.Context, limit int) ([]*domain.Task, error) {
				assert.Equal(t, 10, limit)
				return []*domain.Task{uploadTask, urlTask}, nil
			},
		}
		router := newTestRouter(svc, testPipelineConfig(t), nil)

		req := httptest.NewRequest(http.MethodGet, "/history?limit=10", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp HistoryResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, 2, resp.Count)
		assert.Equal(t, "1_talk.mp3", resp.Tasks[0].SourceLabel)
		assert.Equal(t, "base.txt", resp.Tasks[0].Filename)
		assert.Equal(t, "https://example.com/v", resp.Tasks[1].SourceLabel)
		assert.Empty(t, resp.Tasks[1].Filename)
	})

	t.Run("rejects a non-numeric limit", func(t *testing.T) {
		t.Parallel()
		router := newTestRouter(&stubService{}, testPipelineConfig(t), nil)

		req := httptest.NewRequest(http.MethodGet, "/history?limit=ten", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("returns an empty listing when no tasks exist", func(t *testing.T) {
		t.Parallel()
		router := newTestRouter(&stubService{}, testPipelineConfig(t), nil)

		req := httptest.NewRequest(http.MethodGet, "/history", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp HistoryResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Zero(t, resp.Count)
		assert.Empty(t, resp.Tasks)
	})
}

func TestHealth(t *testing.T) {
	t.Parallel()

	svc := &stubService{
		historyFn: func(context.Context, int) ([]*domain.Task, error) {
			return []*domain.Task{
				queuedTask(t, domain.Source{Kind: domain.SourceKindURL, Address: "https://example.com/a"}),
				queuedTask(t, domain.Source{Kind: domain.SourceKindURL, Address: "https://example.com/b"}),
			}, nil
		},
		queueDepthFn: func() int { return 2 },
	}
	features := map[string]bool{"diarization": false, "summarization": true, "events": true}
	router := newTestRouter(svc, testPipelineConfig(t), features)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.QueueDepth)
	assert.Equal(t, 2, resp.TotalTasks)
	assert.Equal(t, features, resp.Features)
}
