package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/nudge-api/internal/api"
	apiMiddleware "github.com/phrazzld/nudge-api/internal/api/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRouter creates the router with the API, health and metrics routes.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware(app.logger))

	r.Route("/api", func(r chi.Router) {
		api.Mount(r,
			apiMiddleware.NewAuthMiddleware(app.jwtService),
			api.NewTaskHandler(app.taskService, app.scheduler),
			api.NewStatsHandler(app.aggregator),
		)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})
	r.Handle("/metrics", promhttp.HandlerFor(app.metrics, promhttp.HandlerOpts{}))

	return r
}
