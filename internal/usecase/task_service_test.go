package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/St1cky1/taskflow/internal/entity"
	"github.com/St1cky1/taskflow/internal/repository"
)

// MockTaskRepository - мок для ITaskRepository
type MockTaskRepository struct {
	ListFunc            func(ctx context.Context) ([]entity.Task, error)
	GetByTaskIdFunc     func(ctx context.Context, id string) (*entity.Task, error)
	CreateFunc          func(ctx context.Context, task *entity.Task) (*entity.Task, error)
	UpdateFunc          func(ctx context.Context, task *entity.Task) (*entity.Task, error)
	DeleteFunc          func(ctx context.Context, id string) error
	DeleteCompletedFunc func(ctx context.Context) (int, error)
}

var _ repository.ITaskRepository = (*MockTaskRepository)(nil)

func (m *MockTaskRepository) List(ctx context.Context) ([]entity.Task, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return nil, nil
}

func (m *MockTaskRepository) GetByTaskId(ctx context.Context, id string) (*entity.Task, error) {
	if m.GetByTaskIdFunc != nil {
		return m.GetByTaskIdFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockTaskRepository) Create(ctx context.Context, task *entity.Task) (*entity.Task, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, task)
	}
	return nil, nil
}

func (m *MockTaskRepository) Update(ctx context.Context, task *entity.Task) (*entity.Task, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, task)
	}
	return nil, nil
}

func (m *MockTaskRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockTaskRepository) DeleteCompleted(ctx context.Context) (int, error) {
	if m.DeleteCompletedFunc != nil {
		return m.DeleteCompletedFunc(ctx)
	}
	return 0, nil
}

// MockAuditPublisher - мок для AuditPublisher
type MockAuditPublisher struct {
	mu       sync.Mutex
	messages []*entity.AuditMessage
	done     chan struct{}
}

func newMockAuditPublisher() *MockAuditPublisher {
	return &MockAuditPublisher{done: make(chan struct{}, 16)}
}

func (m *MockAuditPublisher) PublishAuditMessage(ctx context.Context, message *entity.AuditMessage) error {
	m.mu.Lock()
	m.messages = append(m.messages, message)
	m.mu.Unlock()
	m.done <- struct{}{}
	return nil
}

func (m *MockAuditPublisher) wait(t *testing.T) *entity.AuditMessage {
	t.Helper()
	select {
	case <-m.done:
	case <-time.After(time.Second):
		t.Fatal("audit message was not published")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.messages[len(m.messages)-1]
}

// memBlob - IBlobStore в памяти
type memBlob struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func newMemBlob() *memBlob {
	return &memBlob{data: make(map[string][]byte)}
}

func (b *memBlob) Load(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return nil, b.err
	}
	return b.data[key], nil
}

func (b *memBlob) Save(_ context.Context, key string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.data[key] = append([]byte(nil), data...)
	return nil
}

// steppingClock - каждый вызов на секунду позже предыдущего
func steppingClock() func() time.Time {
	var mu sync.Mutex
	current := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(time.Second)
		return current
	}
}

func newLocalService() *TaskService {
	repo := repository.NewLocalTaskRepository(newMemBlob(), "")
	return NewTaskService(repo, nil).WithClock(steppingClock())
}

func boolPtr(b bool) *bool { return &b }

func strPtr(s string) *string { return &s }

// Tests

func TestCreateTaskDefaults(t *testing.T) {
	ctx := context.Background()
	service := newLocalService()

	task, err := service.Create(ctx, &entity.CreateTaskRequest{Title: "  Buy milk  "})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if task.ID == "" {
		t.Error("Expected ID to be assigned")
	}
	if task.Title != "Buy milk" {
		t.Errorf("Expected trimmed title, got %q", task.Title)
	}
	if task.Description != "" {
		t.Errorf("Expected empty description, got %q", task.Description)
	}
	if task.Priority != entity.PriorityMedium {
		t.Errorf("Expected priority medium, got %s", task.Priority)
	}
	if task.Completed {
		t.Error("Expected completed = false")
	}
	if task.CompletedAt != nil {
		t.Errorf("Expected no completed_at, got %v", task.CompletedAt)
	}
	if task.CreatedAt.IsZero() {
		t.Error("Expected created_at to be set")
	}
}

func TestCreateTaskUnknownPriorityFallsBackToMedium(t *testing.T) {
	service := newLocalService()

	task, err := service.Create(context.Background(), &entity.CreateTaskRequest{Title: "Walk dog", Priority: "urgent"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if task.Priority != entity.PriorityMedium {
		t.Errorf("Expected priority medium, got %s", task.Priority)
	}
}

func TestCreateTaskEmptyTitle(t *testing.T) {
	ctx := context.Background()
	created := false

	mockTaskRepo := &MockTaskRepository{
		CreateFunc: func(ctx context.Context, task *entity.Task) (*entity.Task, error) {
			created = true
			return task, nil
		},
	}
	service := NewTaskService(mockTaskRepo, nil)

	for _, title := range []string{"", "   ", "\t\n"} {
		result, err := service.Create(ctx, &entity.CreateTaskRequest{Title: title})
		if !errors.Is(err, entity.ErrInvalidTaskData) {
			t.Errorf("Expected ErrInvalidTaskData for %q, got %v", title, err)
		}
		if result != nil {
			t.Errorf("Expected nil task, got %v", result)
		}
	}

	if created {
		t.Error("Expected repository Create not to be called")
	}
}

func TestUpdateTaskNotFound(t *testing.T) {
	ctx := context.Background()
	updated := false

	mockTaskRepo := &MockTaskRepository{
		GetByTaskIdFunc: func(ctx context.Context, id string) (*entity.Task, error) {
			return nil, nil // Task not found
		},
		UpdateFunc: func(ctx context.Context, task *entity.Task) (*entity.Task, error) {
			updated = true
			return task, nil
		},
	}
	service := NewTaskService(mockTaskRepo, nil)

	result, err := service.Update(ctx, "missing", &entity.UpdateTaskRequest{Completed: boolPtr(true)})
	if err != entity.ErrTaskNotFound {
		t.Errorf("Expected ErrTaskNotFound, got %v", err)
	}
	if result != nil {
		t.Errorf("Expected nil task, got %v", result)
	}
	if updated {
		t.Error("Expected repository Update not to be called")
	}
}

func TestUpdateUnknownIdLeavesStoreUnchanged(t *testing.T) {
	ctx := context.Background()
	service := newLocalService()

	task, err := service.Create(ctx, &entity.CreateTaskRequest{Title: "Buy milk"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := service.Update(ctx, "unknown", &entity.UpdateTaskRequest{Completed: boolPtr(true)}); !errors.Is(err, entity.ErrTaskNotFound) {
		t.Fatalf("Expected ErrTaskNotFound, got %v", err)
	}

	tasks, err := service.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != task.ID || tasks[0].Completed {
		t.Errorf("Expected store to be unchanged, got %+v", tasks)
	}
}

func TestUpdateTaskPartialFields(t *testing.T) {
	ctx := context.Background()
	service := newLocalService()

	task, err := service.Create(ctx, &entity.CreateTaskRequest{
		Title:       "Old Title",
		Description: "Old Description",
		Priority:    "high",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	result, err := service.Update(ctx, task.ID, &entity.UpdateTaskRequest{Title: strPtr("New Title")})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if result.Title != "New Title" {
		t.Errorf("Expected title %q, got %q", "New Title", result.Title)
	}
	if result.Description != "Old Description" {
		t.Errorf("Expected description to stay, got %q", result.Description)
	}
	if result.Priority != entity.PriorityHigh {
		t.Errorf("Expected priority to stay high, got %s", result.Priority)
	}
	if !result.CreatedAt.Equal(task.CreatedAt) {
		t.Errorf("Expected created_at %v, got %v", task.CreatedAt, result.CreatedAt)
	}
}

func TestUpdateTaskInvalidFields(t *testing.T) {
	ctx := context.Background()
	service := newLocalService()

	task, err := service.Create(ctx, &entity.CreateTaskRequest{Title: "Title"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := service.Update(ctx, task.ID, &entity.UpdateTaskRequest{Title: strPtr("  ")}); !errors.Is(err, entity.ErrInvalidTaskData) {
		t.Errorf("Expected ErrInvalidTaskData for blank title, got %v", err)
	}

	bad := entity.Priority("urgent")
	if _, err := service.Update(ctx, task.ID, &entity.UpdateTaskRequest{Priority: &bad}); !errors.Is(err, entity.ErrInvalidTaskData) {
		t.Errorf("Expected ErrInvalidTaskData for unknown priority, got %v", err)
	}
}

func TestNilRequestIsInvalidTaskData(t *testing.T) {
	ctx := context.Background()
	service := newLocalService()

	task, err := service.Create(ctx, &entity.CreateTaskRequest{Title: "Title"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if result, err := service.Create(ctx, nil); !errors.Is(err, entity.ErrInvalidTaskData) || result != nil {
		t.Errorf("Expected ErrInvalidTaskData for nil create request, got %v, %v", result, err)
	}
	if result, err := service.Update(ctx, task.ID, nil); !errors.Is(err, entity.ErrInvalidTaskData) || result != nil {
		t.Errorf("Expected ErrInvalidTaskData for nil update request, got %v, %v", result, err)
	}

	tasks, _ := service.GetAll(ctx)
	if len(tasks) != 1 || tasks[0].Title != "Title" {
		t.Errorf("Expected store unchanged, got %+v", tasks)
	}
}

func TestUpdateCompletedSetsAndClearsCompletedAt(t *testing.T) {
	ctx := context.Background()
	service := newLocalService()

	task, err := service.Create(ctx, &entity.CreateTaskRequest{Title: "Buy milk"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	done, err := service.Update(ctx, task.ID, &entity.UpdateTaskRequest{Completed: boolPtr(true)})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !done.Completed || done.CompletedAt == nil {
		t.Fatalf("Expected completed task with completed_at, got %+v", done)
	}

	// повторное completed=true не переставляет completed_at
	again, err := service.Update(ctx, task.ID, &entity.UpdateTaskRequest{Completed: boolPtr(true), Title: strPtr("Buy oat milk")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if again.CompletedAt == nil || !again.CompletedAt.Equal(*done.CompletedAt) {
		t.Errorf("Expected completed_at %v to be untouched, got %v", done.CompletedAt, again.CompletedAt)
	}

	reopened, err := service.Update(ctx, task.ID, &entity.UpdateTaskRequest{Completed: boolPtr(false)})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if reopened.Completed || reopened.CompletedAt != nil {
		t.Errorf("Expected active task without completed_at, got %+v", reopened)
	}
}

func TestDeleteUnknownIdIsTolerated(t *testing.T) {
	service := newLocalService()

	if err := service.Delete(context.Background(), "missing"); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestClearCompletedReturnsCount(t *testing.T) {
	ctx := context.Background()
	service := newLocalService()

	var ids []string
	for _, title := range []string{"one", "two", "three"} {
		task, err := service.Create(ctx, &entity.CreateTaskRequest{Title: title})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		ids = append(ids, task.ID)
	}
	for _, id := range ids[:2] {
		if _, err := service.Update(ctx, id, &entity.UpdateTaskRequest{Completed: boolPtr(true)}); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}

	count, err := service.ClearCompleted(ctx)
	if err != nil {
		t.Fatalf("ClearCompleted: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 removed, got %d", count)
	}

	count, err = service.ClearCompleted(ctx)
	if err != nil {
		t.Fatalf("ClearCompleted: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected second call to remove 0, got %d", count)
	}

	tasks, _ := service.GetAll(ctx)
	if len(tasks) != 1 || tasks[0].ID != ids[2] {
		t.Errorf("Expected only %s to remain, got %+v", ids[2], tasks)
	}
}

func TestScenarioBuyMilkWalkDog(t *testing.T) {
	ctx := context.Background()
	service := newLocalService()

	a, err := service.Create(ctx, &entity.CreateTaskRequest{Title: "Buy milk"})
	if err != nil {
		t.Fatalf("Create A: %v", err)
	}
	tasks, _ := service.GetAll(ctx)
	if len(tasks) != 1 || tasks[0].ID != a.ID || tasks[0].Completed {
		t.Fatalf("Expected [A] active, got %+v", tasks)
	}

	if _, err := service.Update(ctx, a.ID, &entity.UpdateTaskRequest{Completed: boolPtr(true)}); err != nil {
		t.Fatalf("Toggle A: %v", err)
	}
	tasks, _ = service.GetAll(ctx)
	if len(tasks) != 1 || !tasks[0].Completed || tasks[0].CompletedAt == nil {
		t.Fatalf("Expected [A] completed, got %+v", tasks)
	}

	b, err := service.Create(ctx, &entity.CreateTaskRequest{Title: "Walk dog"})
	if err != nil {
		t.Fatalf("Create B: %v", err)
	}
	tasks, _ = service.GetAll(ctx)
	if len(tasks) != 2 || tasks[0].ID != b.ID || tasks[1].ID != a.ID {
		t.Fatalf("Expected [B, A], got %+v", tasks)
	}

	count, err := service.ClearCompleted(ctx)
	if err != nil || count != 1 {
		t.Fatalf("Expected ClearCompleted to remove 1, got %d, %v", count, err)
	}
	tasks, _ = service.GetAll(ctx)
	if len(tasks) != 1 || tasks[0].ID != b.ID {
		t.Fatalf("Expected [B], got %+v", tasks)
	}
}

func TestGetAllStorageUnavailable(t *testing.T) {
	blob := newMemBlob()
	blob.err = errors.New("disk on fire")
	service := NewTaskService(repository.NewLocalTaskRepository(blob, ""), nil)

	if _, err := service.GetAll(context.Background()); !errors.Is(err, entity.ErrStorageUnavailable) {
		t.Errorf("Expected ErrStorageUnavailable, got %v", err)
	}
}

func TestAuditMessagePublished(t *testing.T) {
	ctx := context.Background()
	publisher := newMockAuditPublisher()
	repo := repository.NewLocalTaskRepository(newMemBlob(), "")
	service := NewTaskService(repo, publisher).WithClock(steppingClock())

	task, err := service.Create(ctx, &entity.CreateTaskRequest{Title: "Buy milk"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	msg := publisher.wait(t)
	if msg.Action != entity.ActionCreate || msg.EntityID != task.ID {
		t.Errorf("Expected Create audit for %s, got %s %s", task.ID, msg.Action, msg.EntityID)
	}

	if _, err := service.Update(ctx, task.ID, &entity.UpdateTaskRequest{Completed: boolPtr(true)}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	msg = publisher.wait(t)
	if msg.Action != entity.ActionUpdate {
		t.Errorf("Expected Update audit, got %s", msg.Action)
	}
	if _, ok := msg.Changes["completed"]; !ok {
		t.Errorf("Expected completed change, got %v", msg.Changes)
	}
}

func TestWaitAuditBlocksUntilPublished(t *testing.T) {
	publisher := newMockAuditPublisher()
	repo := repository.NewLocalTaskRepository(newMemBlob(), "")
	service := NewTaskService(repo, publisher)

	for _, title := range []string{"a", "b", "c"} {
		if _, err := service.Create(context.Background(), &entity.CreateTaskRequest{Title: title}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	service.WaitAudit()

	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	if len(publisher.messages) != 3 {
		t.Errorf("Expected 3 audit messages after WaitAudit, got %d", len(publisher.messages))
	}
}
