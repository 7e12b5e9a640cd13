package usecase

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/St1cky1/taskflow/internal/entity"
	"github.com/St1cky1/taskflow/internal/repository"
)

// AuditPublisher интерфейс для публикации аудита (RabbitMQ)
type AuditPublisher interface {
	PublishAuditMessage(ctx context.Context, message *entity.AuditMessage) error
}

// TaskService - правила жизненного цикла задачи поверх хранилища
type TaskService struct {
	taskRepo repository.ITaskRepository
	audit    AuditPublisher
	now      func() time.Time
	pending  sync.WaitGroup
}

// NewTaskService - audit может быть nil, тогда аудит не отправляется
func NewTaskService(taskRepo repository.ITaskRepository, audit AuditPublisher) *TaskService {
	return &TaskService{
		taskRepo: taskRepo,
		audit:    audit,
		now:      time.Now,
	}
}

// WithClock подменяет источник времени (для тестов)
func (s *TaskService) WithClock(now func() time.Time) *TaskService {
	s.now = now
	return s
}

func (s *TaskService) GetAll(ctx context.Context) ([]entity.Task, error) {
	return s.taskRepo.List(ctx)
}

func (s *TaskService) Create(ctx context.Context, req *entity.CreateTaskRequest) (*entity.Task, error) {
	// 1. Валидация
	if req == nil {
		return nil, fmt.Errorf("%w: empty request", entity.ErrInvalidTaskData)
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", entity.ErrInvalidTaskData)
	}

	// 2. Значения по умолчанию
	task := &entity.Task{
		Title:       title,
		Description: req.Description,
		Priority:    entity.ParsePriority(req.Priority),
		Completed:   false,
		CreatedAt:   s.now().UTC(),
	}

	// 3. Сохраняем, ID присваивает хранилище
	created, err := s.taskRepo.Create(ctx, task)
	if err != nil {
		return nil, err
	}

	s.sendAuditMessage(s.newAuditMessage(entity.ActionCreate, created.ID, nil, created))
	return created, nil
}

func (s *TaskService) Update(ctx context.Context, id string, req *entity.UpdateTaskRequest) (*entity.Task, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: empty request", entity.ErrInvalidTaskData)
	}

	// 1. Получаем текущую задачу
	oldTask, err := s.taskRepo.GetByTaskId(ctx, id)
	if err != nil {
		return nil, err
	}
	if oldTask == nil {
		return nil, entity.ErrTaskNotFound
	}

	if req.IsEmpty() {
		return oldTask, nil
	}

	// 2. Применяем только переданные поля
	task := *oldTask
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title is required", entity.ErrInvalidTaskData)
		}
		task.Title = title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Priority != nil {
		if !req.Priority.IsValid() {
			return nil, fmt.Errorf("%w: unknown priority %q", entity.ErrInvalidTaskData, *req.Priority)
		}
		task.Priority = *req.Priority
	}

	// 3. completed_at меняется только на переходе
	if req.Completed != nil && *req.Completed != oldTask.Completed {
		task.Completed = *req.Completed
		if task.Completed {
			completedAt := s.now().UTC()
			task.CompletedAt = &completedAt
		} else {
			task.CompletedAt = nil
		}
	}

	// 4. Обновляем
	updatedTask, err := s.taskRepo.Update(ctx, &task)
	if err != nil {
		return nil, err
	}

	s.sendAuditMessage(s.newAuditMessage(entity.ActionUpdate, id, oldTask, updatedTask))
	return updatedTask, nil
}

func (s *TaskService) Delete(ctx context.Context, id string) error {
	if err := s.taskRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.sendAuditMessage(s.newAuditMessage(entity.ActionDelete, id, nil, nil))
	return nil
}

func (s *TaskService) ClearCompleted(ctx context.Context) (int, error) {
	count, err := s.taskRepo.DeleteCompleted(ctx)
	if err != nil {
		return 0, err
	}

	if count > 0 {
		auditMsg := s.newAuditMessage(entity.ActionClearCompleted, "", nil, nil)
		auditMsg.Changes = map[string]any{"removed": count}
		s.sendAuditMessage(auditMsg)
	}
	return count, nil
}

func (s *TaskService) newAuditMessage(
	action entity.ActionType,
	taskID string,
	oldTask *entity.Task,
	newTask *entity.Task,
) *entity.AuditMessage {
	auditMsg := &entity.AuditMessage{
		Action:    action,
		EntityID:  taskID,
		Timestamp: s.now().UTC(),
	}

	if oldTask != nil {
		auditMsg.OldValues = taskValues(oldTask)
	}
	if newTask != nil {
		auditMsg.NewValues = taskValues(newTask)
	}
	if oldTask != nil && newTask != nil {
		auditMsg.Changes = taskChanges(oldTask, newTask)
	}
	return auditMsg
}

// Асинхронная отправка аудита, ошибка только логируется
func (s *TaskService) sendAuditMessage(auditMsg *entity.AuditMessage) {
	if s.audit == nil {
		return
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.audit.PublishAuditMessage(context.Background(), auditMsg); err != nil {
			log.Printf("❌ Ошибка отправки аудита: %v", err)
		} else {
			log.Printf("Аудит отправлен: %s задача ID=%s", auditMsg.Action, auditMsg.EntityID)
		}
	}()
}

// WaitAudit ждет отправки уже поставленных сообщений аудита.
// Нужен короткоживущим командам CLI перед закрытием соединения с RabbitMQ.
func (s *TaskService) WaitAudit() {
	s.pending.Wait()
}

func taskValues(task *entity.Task) map[string]any {
	values := map[string]any{
		"title":       task.Title,
		"description": task.Description,
		"priority":    task.Priority,
		"completed":   task.Completed,
	}
	if task.CompletedAt != nil {
		values["completed_at"] = entity.FormatTime(*task.CompletedAt)
	}
	return values
}

func taskChanges(oldTask, newTask *entity.Task) map[string]any {
	changes := make(map[string]any)
	if oldTask.Title != newTask.Title {
		changes["title"] = map[string]any{"old": oldTask.Title, "new": newTask.Title}
	}
	if oldTask.Description != newTask.Description {
		changes["description"] = map[string]any{"old": oldTask.Description, "new": newTask.Description}
	}
	if oldTask.Priority != newTask.Priority {
		changes["priority"] = map[string]any{"old": oldTask.Priority, "new": newTask.Priority}
	}
	if oldTask.Completed != newTask.Completed {
		changes["completed"] = map[string]any{"old": oldTask.Completed, "new": newTask.Completed}
	}
	return changes
}
