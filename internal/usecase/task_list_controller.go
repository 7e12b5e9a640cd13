package usecase

import (
	"context"
	"fmt"
	"iter"
	"log"
	"slices"
	"sync"

	"github.com/St1cky1/taskflow/internal/entity"
)

// TaskStore - контракт хранилища задач, который видит контроллер
type TaskStore interface {
	GetAll(ctx context.Context) ([]entity.Task, error)
	Create(ctx context.Context, req *entity.CreateTaskRequest) (*entity.Task, error)
	Update(ctx context.Context, id string, req *entity.UpdateTaskRequest) (*entity.Task, error)
	Delete(ctx context.Context, id string) error
	ClearCompleted(ctx context.Context) (int, error)
}

var _ TaskStore = (*TaskService)(nil)

type NotificationLevel string

const (
	LevelSuccess NotificationLevel = "success"
	LevelError   NotificationLevel = "error"
)

type Notification struct {
	Level   NotificationLevel
	Message string
}

// Notifier - слой представления (тост, строка статуса, вывод CLI)
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc позволяет использовать функцию как Notifier
type NotifierFunc func(n Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// TaskListController держит рабочую копию задач для отображения.
// Локальная копия меняется только после успешного ответа хранилища.
// Мьютекс не держится во время вызова хранилища: удаление, пришедшее
// во время незавершенного переключения той же задачи, может потеряться.
type TaskListController struct {
	store    TaskStore
	notifier Notifier

	mu        sync.Mutex
	tasks     []entity.Task
	filter    entity.Filter
	loading   bool
	lastError error
}

func NewTaskListController(store TaskStore, notifier Notifier) *TaskListController {
	if notifier == nil {
		notifier = NotifierFunc(func(Notification) {})
	}
	return &TaskListController{
		store:    store,
		notifier: notifier,
		tasks:    []entity.Task{},
		filter:   entity.FilterAll,
		loading:  true,
	}
}

func (c *TaskListController) notifyError(message string, err error) {
	log.Printf("❌ %s: %v", message, err)
	c.notifier.Notify(Notification{Level: LevelError, Message: message})
}

func (c *TaskListController) notifySuccess(message string) {
	c.notifier.Notify(Notification{Level: LevelSuccess, Message: message})
}

// Load - единственная операция с полной пересинхронизацией
func (c *TaskListController) Load(ctx context.Context) error {
	c.mu.Lock()
	c.loading = true
	c.lastError = nil
	c.mu.Unlock()

	tasks, err := c.store.GetAll(ctx)

	c.mu.Lock()
	c.loading = false
	if err != nil {
		c.lastError = err
		c.mu.Unlock()
		c.notifyError("Failed to load tasks", err)
		return err
	}
	c.tasks = slices.Clone(tasks)
	if c.tasks == nil {
		c.tasks = []entity.Task{}
	}
	c.mu.Unlock()
	return nil
}

// AddTask - новая задача самая свежая, поэтому встает в начало
func (c *TaskListController) AddTask(ctx context.Context, req *entity.CreateTaskRequest) (*entity.Task, error) {
	task, err := c.store.Create(ctx, req)
	if err != nil {
		c.notifyError("Failed to add task", err)
		return nil, err
	}

	c.mu.Lock()
	c.tasks = slices.Insert(c.tasks, 0, *task)
	c.mu.Unlock()

	c.notifySuccess("Task added successfully!")
	return task, nil
}

// ToggleComplete заменяет запись ответом хранилища, completed_at локально не вычисляется
func (c *TaskListController) ToggleComplete(ctx context.Context, id string) error {
	c.mu.Lock()
	i := c.indexOf(id)
	if i < 0 {
		c.mu.Unlock()
		return nil
	}
	completed := !c.tasks[i].Completed
	c.mu.Unlock()

	updated, err := c.store.Update(ctx, id, &entity.UpdateTaskRequest{Completed: &completed})
	if err != nil {
		c.notifyError("Failed to update task", err)
		return err
	}

	c.mu.Lock()
	if i := c.indexOf(id); i >= 0 {
		c.tasks[i] = *updated
	}
	c.mu.Unlock()

	if updated.Completed {
		c.notifySuccess("Task completed! 🎉")
	}
	return nil
}

func (c *TaskListController) DeleteTask(ctx context.Context, id string) error {
	if err := c.store.Delete(ctx, id); err != nil {
		c.notifyError("Failed to delete task", err)
		return err
	}

	c.mu.Lock()
	c.tasks = slices.DeleteFunc(c.tasks, func(t entity.Task) bool { return t.ID == id })
	c.mu.Unlock()

	c.notifySuccess("Task deleted")
	return nil
}

// ClearCompleted доверяет локальному предикату: хранилище удалило те же задачи
func (c *TaskListController) ClearCompleted(ctx context.Context) (int, error) {
	count, err := c.store.ClearCompleted(ctx)
	if err != nil {
		c.notifyError("Failed to clear completed tasks", err)
		return 0, err
	}

	c.mu.Lock()
	c.tasks = slices.DeleteFunc(c.tasks, func(t entity.Task) bool { return t.Completed })
	c.mu.Unlock()

	c.notifySuccess(fmt.Sprintf("%d completed tasks cleared", count))
	return count, nil
}

func (c *TaskListController) SetFilter(f entity.Filter) {
	c.mu.Lock()
	c.filter = f
	c.mu.Unlock()
}

func (c *TaskListController) Filter() entity.Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

// FilteredTasks - ленивое представление; каждый проход берет свежий снимок
func (c *TaskListController) FilteredTasks() iter.Seq[entity.Task] {
	return func(yield func(entity.Task) bool) {
		c.mu.Lock()
		snapshot := slices.Clone(c.tasks)
		filter := c.filter
		c.mu.Unlock()

		for _, task := range snapshot {
			if !filter.Match(task) {
				continue
			}
			if !yield(task) {
				return
			}
		}
	}
}

// Tasks - копия рабочего набора
func (c *TaskListController) Tasks() []entity.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.tasks)
}

func (c *TaskListController) Counts() entity.TaskCounts {
	c.mu.Lock()
	defer c.mu.Unlock()
	return entity.CountTasks(c.tasks)
}

func (c *TaskListController) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

func (c *TaskListController) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastError
}

// indexOf вызывается под c.mu
func (c *TaskListController) indexOf(id string) int {
	return slices.IndexFunc(c.tasks, func(t entity.Task) bool { return t.ID == id })
}
