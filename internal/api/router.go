package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"trade-surveillance-etl/internal/api/handler"
	"trade-surveillance-etl/internal/metrics"
)

// NewRouter wires the run endpoints, request logging, and the metrics
// endpoint.
func NewRouter(logger *slog.Logger, collector *metrics.Collector) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := handler.New(logger, collector)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Route("/api/v1/runs", func(r chi.Router) {
		r.Post("/", h.CreateRun)
		r.Get("/", h.ListRuns)
		r.Get("/{id}", h.GetRun)
		r.Get("/{id}/summary", h.GetRunSummary)
		r.Get("/{id}/breaches", h.GetRunBreaches)
		r.Get("/{id}/errors", h.GetRunErrors)
	})
	r.Handle("/metrics", collector.Handler())

	return r
}

// requestLogger logs method, path, status, and latency for every request.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
			next.ServeHTTP(ww, req)
			logger.Info("request",
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("elapsed", time.Since(start)))
		})
	}
}
