package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/scribe-dev/scribe-api/internal/config"
	"github.com/scribe-dev/scribe-api/internal/events"
	"github.com/scribe-dev/scribe-api/internal/platform/filestore"
	"github.com/scribe-dev/scribe-api/internal/platform/gemini"
	"github.com/scribe-dev/scribe-api/internal/platform/logger"
	"github.com/scribe-dev/scribe-api/internal/platform/media"
	"github.com/scribe-dev/scribe-api/internal/platform/postgres"
	"github.com/scribe-dev/scribe-api/internal/store"
	"github.com/scribe-dev/scribe-api/internal/task"
)

// application wires configuration, storage, the pipeline engines and the
// orchestration manager together, and owns their shutdown order.
type application struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   store.TaskStore
	manager *task.Manager
	janitor *media.Janitor

	features map[string]bool

	db          *sql.DB
	natsEmitter *events.NATSEmitter
}

// interruptedRecoverer marks stores that can fail over tasks left mid-flight
// by a previous process.
type interruptedRecoverer interface {
	RecoverInterrupted(ctx context.Context) (int, error)
}

func newApplication() (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	for _, dir := range []string{cfg.Pipeline.UploadDir, cfg.Pipeline.WorkDir, cfg.Pipeline.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	app := &application{
		cfg:      cfg,
		logger:   appLogger,
		features: map[string]bool{},
	}

	if err := app.setupStore(); err != nil {
		return nil, err
	}
	app.recoverInterrupted()

	emitter, err := app.setupEvents()
	if err != nil {
		return nil, err
	}

	engines, err := app.setupEngines()
	if err != nil {
		return nil, err
	}

	app.manager = task.NewManager(app.store, engines, emitter, cfg.Pipeline, appLogger)
	app.janitor = media.NewJanitor(
		[]string{cfg.Pipeline.UploadDir, cfg.Pipeline.WorkDir, cfg.Pipeline.OutputDir},
		time.Duration(cfg.Pipeline.RetentionHours)*time.Hour,
		appLogger,
	)

	appLogger.Info("application initialized",
		"storage_driver", cfg.Storage.Driver,
		"workers", cfg.Pipeline.Workers,
		"summarization", app.features["summarization"],
		"diarization", app.features["diarization"],
		"events", app.features["events"])
	return app, nil
}

func (app *application) setupStore() error {
	switch app.cfg.Storage.Driver {
	case "postgres":
		db, err := postgres.Open(app.cfg.Storage.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		app.db = db
		app.store = postgres.NewTaskStore(db, app.logger)
	default:
		fileStore, err := filestore.New(app.cfg.Storage.FilePath, app.logger)
		if err != nil {
			return fmt.Errorf("failed to open task ledger: %w", err)
		}
		app.store = fileStore
	}
	return nil
}

// recoverInterrupted fails over tasks a previous process left mid-flight.
// Recovery failure is logged rather than fatal; the records stay visible and
// new work is unaffected.
func (app *application) recoverInterrupted() {
	recoverer, ok := app.store.(interruptedRecoverer)
	if !ok {
		return
	}
	n, err := recoverer.RecoverInterrupted(context.Background())
	if err != nil {
		app.logger.Error("failed to recover interrupted tasks", "error", err)
		return
	}
	if n > 0 {
		app.logger.Warn("recovered interrupted tasks", "count", n)
	}
}

// setupEvents builds the state-change emitter. NATS publication is attached
// as a handler when configured, so additional in-process handlers can share
// the same fan-out.
func (app *application) setupEvents() (events.EventEmitter, error) {
	emitter := events.NewInMemoryEventEmitter(app.logger)

	if app.cfg.Events.NATSURL != "" {
		natsEmitter, err := events.NewNATSEmitter(app.cfg.Events.NATSURL, app.cfg.Events.Subject, app.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		app.natsEmitter = natsEmitter
		emitter.RegisterHandler(natsForwarder{emitter: natsEmitter})
		app.features["events"] = true
	}

	return emitter, nil
}

func (app *application) setupEngines() (task.Engines, error) {
	retryDelay := time.Duration(app.cfg.Pipeline.RetryDelaySeconds) * time.Second

	transcriber, err := media.NewWhisperEngine(app.cfg.Pipeline.WhisperModel, app.cfg.Pipeline.Language, app.logger)
	if err != nil {
		return task.Engines{}, fmt.Errorf("failed to set up transcription engine: %w", err)
	}

	engines := task.Engines{
		Acquirer:    media.NewYtDlpAcquirer(app.cfg.Pipeline.DownloadRetries, retryDelay, app.logger),
		Extractor:   media.NewFFmpegExtractor(app.logger),
		Transcriber: transcriber,
	}

	if app.cfg.LLM.GeminiAPIKey != "" {
		summarizer, err := gemini.NewSummarizer(context.Background(), app.logger, app.cfg.LLM)
		if err != nil {
			return task.Engines{}, fmt.Errorf("failed to set up summarizer: %w", err)
		}
		engines.Summarizer = summarizer
		app.features["summarization"] = true
	} else {
		app.logger.Warn("no Gemini API key configured, summaries disabled")
	}

	// Speaker identification requires an external diarization backend and is
	// off unless one is wired in.
	app.features["diarization"] = app.cfg.Pipeline.Diarization && engines.Diarizer != nil

	return engines, nil
}

// cleanup releases resources after the HTTP server and the manager have
// stopped.
func (app *application) cleanup() {
	if app.natsEmitter != nil {
		app.natsEmitter.Close()
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Warn("failed to close database", "error", err)
		}
	}
}

// natsForwarder adapts the NATS emitter to the in-process handler interface
// so published events share the in-memory fan-out.
type natsForwarder struct {
	emitter *events.NATSEmitter
}

func (f natsForwarder) HandleEvent(ctx context.Context, event *events.TaskStateEvent) error {
	return f.emitter.EmitEvent(ctx, event)
}
