package api

import (
	"github.com/St1cky1/taskflow/internal/api/handlers"
	"github.com/St1cky1/taskflow/internal/usecase"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(taskStore usecase.TaskStore) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	taskHandler := handlers.NewTaskHandler(taskStore)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", taskHandler.ListTasks)
			r.Post("/", taskHandler.CreateTask)
			r.Post("/clear-completed", taskHandler.ClearCompleted)
			r.Route("/{id}", func(r chi.Router) {
				r.Patch("/", taskHandler.UpdateTask)
				r.Delete("/", taskHandler.DeleteTask)
				r.Post("/toggle", taskHandler.ToggleTask)
			})
		})
		r.Get("/stats", taskHandler.Stats)
	})

	return r
}
