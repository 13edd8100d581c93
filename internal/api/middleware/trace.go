package middleware

import (
	"log/slog"
	"net/http"

	"github.com/scribe-dev/scribe-api/internal/api/shared"
	"github.com/scribe-dev/scribe-api/internal/platform/logger"
)

// TraceMiddleware stamps each request with a trace ID and carries a
// trace-scoped logger on the context, so store and pipeline code reached
// from a handler logs with the request's ID. Apply it before any handler
// that responds with errors.
func TraceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := shared.SetTraceID(r.Context())
		log := slog.With(slog.String("trace_id", shared.GetTraceID(ctx)))
		ctx = logger.WithContext(ctx, log)

		log.Debug("request started",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote_addr", r.RemoteAddr))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
