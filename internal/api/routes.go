package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/nudge-api/internal/api/middleware"
)

// Mount registers the task and stats routes under r, behind auth.
func Mount(r chi.Router, auth *middleware.AuthMiddleware, tasks *TaskHandler, stats *StatsHandler) {
	r.Group(func(r chi.Router) {
		r.Use(auth.Authenticate)

		r.Route("/tasks", func(r chi.Router) {
			r.Post("/", tasks.CreateTask)
			r.Get("/", tasks.ListTasks)
			r.Post("/run-due", tasks.RunDue)
			r.Get("/{id}", tasks.GetTask)
			r.Post("/{id}/cancel", tasks.CancelTask)
		})

		r.Route("/stats", func(r chi.Router) {
			r.Get("/tasks", stats.TaskStats)
			r.Get("/records/{recordType}", stats.RecordStats)
		})
	})
}
