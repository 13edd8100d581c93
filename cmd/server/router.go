package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/scribe-dev/scribe-api/internal/api"
	"github.com/scribe-dev/scribe-api/internal/api/middleware"
)

// newRouter assembles the HTTP surface of the service.
func (app *application) newRouter() http.Handler {
	handler := api.NewTaskHandler(app.manager, app.cfg.Pipeline, app.features, app.logger)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(middleware.TraceMiddleware)

	r.Post("/start", handler.Start)
	r.Post("/upload", handler.Upload)
	r.Get("/status/{task_id}", handler.Status)
	r.Get("/preview/{task_id}", handler.Preview)
	r.Get("/download/{task_id}", handler.Download)
	r.Post("/cancel/{task_id}", handler.CancelTask)
	r.Get("/history", handler.History)
	r.Get("/health", handler.Health)

	return r
}
