package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/St1cky1/taskflow/internal/entity"
	"github.com/St1cky1/taskflow/internal/usecase"
	"github.com/go-chi/chi/v5"
)

type TaskHandler struct {
	taskStore usecase.TaskStore
}

func NewTaskHandler(taskStore usecase.TaskStore) *TaskHandler {
	return &TaskHandler{
		taskStore: taskStore,
	}
}

type listTasksResponse struct {
	Tasks  []entity.Task     `json:"tasks"`
	Counts entity.TaskCounts `json:"counts"`
}

type statsResponse struct {
	entity.TaskCounts
	CompletionPercentage int `json:"completion_percentage"`
}

type clearCompletedResponse struct {
	Count int `json:"count"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// ListTasks - GET /tasks?filter=all|active|completed, счетчики всегда по всем задачам
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	filter, err := entity.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		writeError(w, err)
		return
	}

	tasks, err := h.taskStore.GetAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listTasksResponse{
		Tasks:  entity.FilterTasks(tasks, filter),
		Counts: entity.CountTasks(tasks),
	})
}

// создаем новую задачу
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req entity.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil { // распарсиваем ответ в структурку
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON"}) // если ошибка, 400 выводим
		return
	}

	task, err := h.taskStore.Create(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	taskId := chi.URLParam(r, "id")

	var req entity.UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON"})
		return
	}

	task, err := h.taskStore.Update(r.Context(), taskId, &req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, task)
}

// ToggleTask переключает completed относительно текущего состояния в хранилище
func (h *TaskHandler) ToggleTask(w http.ResponseWriter, r *http.Request) {
	taskId := chi.URLParam(r, "id")

	task, err := findTask(r.Context(), h.taskStore, taskId)
	if err != nil {
		writeError(w, err)
		return
	}

	completed := !task.Completed
	updated, err := h.taskStore.Update(r.Context(), taskId, &entity.UpdateTaskRequest{Completed: &completed})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	taskId := chi.URLParam(r, "id")

	if err := h.taskStore.Delete(r.Context(), taskId); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) ClearCompleted(w http.ResponseWriter, r *http.Request) {
	count, err := h.taskStore.ClearCompleted(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, clearCompletedResponse{Count: count})
}

func (h *TaskHandler) Stats(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.taskStore.GetAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	counts := entity.CountTasks(tasks)
	writeJSON(w, http.StatusOK, statsResponse{
		TaskCounts:           counts,
		CompletionPercentage: counts.CompletionPercentage(),
	})
}

func findTask(ctx context.Context, store usecase.TaskStore, id string) (*entity.Task, error) {
	tasks, err := store.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range tasks {
		if tasks[i].ID == id {
			return &tasks[i], nil
		}
	}
	return nil, entity.ErrTaskNotFound
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("❌ Error encoding response: %v", err)
	}
}

// writeError переводит ошибки хранилища в HTTP статусы
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entity.ErrInvalidTaskData), errors.Is(err, entity.ErrInvalidFilter):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()}) // 400
	case errors.Is(err, entity.ErrTaskNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "task not found"}) // 404
	case errors.Is(err, entity.ErrStorageUnavailable), errors.Is(err, entity.ErrPartialBatchFailure):
		log.Printf("❌ Storage error: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()}) // 503
	default:
		log.Printf("❌ Internal error: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"}) // 500
	}
}
