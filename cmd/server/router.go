package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ovehub/asset-manager/internal/api"
	apimiddleware "github.com/ovehub/asset-manager/internal/api/middleware"
	"github.com/ovehub/asset-manager/internal/service"
)

// setupRouter configures the application router with all routes and
// middleware.
func (app *application) setupRouter() http.Handler {
	return buildRouter(app.scheduler, app.assets, app.config.Auth.JWTSecret, app.logger)
}

// buildRouter wires the route tree. Split from the application so tests
// can assemble it over fakes.
func buildRouter(scheduler *service.Scheduler, assets api.AssetDirectory,
	jwtSecret string, logger *slog.Logger) http.Handler {

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(apimiddleware.Trace)

	queueHandler := api.NewQueueHandler(scheduler, assets, logger)
	workerHandler := api.NewWorkerHandler(scheduler, logger)
	authMiddleware := apimiddleware.NewAuthMiddleware(jwtSecret)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Route("/workers/queue", func(r chi.Router) {
				r.Post("/", queueHandler.ScheduleTask)
				r.Get("/", queueHandler.ListTasks)
				r.Delete("/", queueHandler.CancelTask)
				r.Patch("/", queueHandler.ResetTask)
			})
		})

		// Registry endpoints are called by worker processes inside the
		// deployment; they carry no user token.
		r.Route("/workers", func(r chi.Router) {
			r.Post("/", workerHandler.RegisterWorker)
			r.Get("/", workerHandler.ListWorkers)
			r.Delete("/", workerHandler.RemoveWorker)
			r.Patch("/", workerHandler.UpdateWorkerStatus)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return r
}
