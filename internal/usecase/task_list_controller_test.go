package usecase

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/St1cky1/taskflow/internal/entity"
)

// MockTaskStore - мок для TaskStore
type MockTaskStore struct {
	GetAllFunc         func(ctx context.Context) ([]entity.Task, error)
	CreateFunc         func(ctx context.Context, req *entity.CreateTaskRequest) (*entity.Task, error)
	UpdateFunc         func(ctx context.Context, id string, req *entity.UpdateTaskRequest) (*entity.Task, error)
	DeleteFunc         func(ctx context.Context, id string) error
	ClearCompletedFunc func(ctx context.Context) (int, error)
}

func (m *MockTaskStore) GetAll(ctx context.Context) ([]entity.Task, error) {
	if m.GetAllFunc != nil {
		return m.GetAllFunc(ctx)
	}
	return nil, nil
}

func (m *MockTaskStore) Create(ctx context.Context, req *entity.CreateTaskRequest) (*entity.Task, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, req)
	}
	return nil, nil
}

func (m *MockTaskStore) Update(ctx context.Context, id string, req *entity.UpdateTaskRequest) (*entity.Task, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, req)
	}
	return nil, nil
}

func (m *MockTaskStore) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockTaskStore) ClearCompleted(ctx context.Context) (int, error) {
	if m.ClearCompletedFunc != nil {
		return m.ClearCompletedFunc(ctx)
	}
	return 0, nil
}

// recordingNotifier запоминает все уведомления
type recordingNotifier struct {
	mu    sync.Mutex
	items []Notification
}

func (r *recordingNotifier) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

func (r *recordingNotifier) last() Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 {
		return Notification{}
	}
	return r.items[len(r.items)-1]
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

var errStoreDown = errors.New("store down")

func sampleTasks() []entity.Task {
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	done := base.Add(time.Hour)
	return []entity.Task{
		{ID: "3", Title: "Walk dog", Priority: entity.PriorityLow, CreatedAt: base.Add(2 * time.Minute)},
		{ID: "2", Title: "Buy milk", Priority: entity.PriorityMedium, Completed: true, CreatedAt: base.Add(time.Minute), CompletedAt: &done},
		{ID: "1", Title: "Pay rent", Priority: entity.PriorityHigh, CreatedAt: base},
	}
}

func loadedController(t *testing.T, store *MockTaskStore, notifier Notifier) *TaskListController {
	t.Helper()
	if store.GetAllFunc == nil {
		store.GetAllFunc = func(ctx context.Context) ([]entity.Task, error) {
			return sampleTasks(), nil
		}
	}
	controller := NewTaskListController(store, notifier)
	if err := controller.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return controller
}

func ids(tasks []entity.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, task.ID)
	}
	return out
}

func TestControllerInitialState(t *testing.T) {
	controller := NewTaskListController(&MockTaskStore{}, nil)

	if !controller.Loading() {
		t.Error("Expected loading = true before first Load")
	}
	if len(controller.Tasks()) != 0 {
		t.Errorf("Expected no tasks, got %d", len(controller.Tasks()))
	}
	if controller.Filter() != entity.FilterAll {
		t.Errorf("Expected filter all, got %s", controller.Filter())
	}
}

func TestControllerLoad(t *testing.T) {
	controller := loadedController(t, &MockTaskStore{}, nil)

	if controller.Loading() {
		t.Error("Expected loading = false after Load")
	}
	if got := ids(controller.Tasks()); !slices.Equal(got, []string{"3", "2", "1"}) {
		t.Errorf("Expected store order, got %v", got)
	}
	counts := controller.Counts()
	if counts.All != 3 || counts.Active != 2 || counts.Completed != 1 {
		t.Errorf("Unexpected counts %+v", counts)
	}
}

func TestControllerLoadFailure(t *testing.T) {
	notifier := &recordingNotifier{}
	store := &MockTaskStore{
		GetAllFunc: func(ctx context.Context) ([]entity.Task, error) {
			return nil, errStoreDown
		},
	}
	controller := NewTaskListController(store, notifier)

	if err := controller.Load(context.Background()); !errors.Is(err, errStoreDown) {
		t.Fatalf("Expected store error, got %v", err)
	}
	if controller.Loading() {
		t.Error("Expected loading = false after failed Load")
	}
	if controller.LastError() == nil {
		t.Error("Expected LastError to be set")
	}
	if n := notifier.last(); n.Level != LevelError || n.Message != "Failed to load tasks" {
		t.Errorf("Unexpected notification %+v", n)
	}
}

func TestControllerAddTaskPrepends(t *testing.T) {
	notifier := &recordingNotifier{}
	store := &MockTaskStore{
		CreateFunc: func(ctx context.Context, req *entity.CreateTaskRequest) (*entity.Task, error) {
			return &entity.Task{ID: "4", Title: req.Title, Priority: entity.PriorityMedium, CreatedAt: time.Now().UTC()}, nil
		},
	}
	controller := loadedController(t, store, notifier)

	task, err := controller.AddTask(context.Background(), &entity.CreateTaskRequest{Title: "Call mom"})
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	if task.ID != "4" {
		t.Errorf("Expected ID 4, got %s", task.ID)
	}
	if got := ids(controller.Tasks()); !slices.Equal(got, []string{"4", "3", "2", "1"}) {
		t.Errorf("Expected new task first, got %v", got)
	}
	if n := notifier.last(); n.Level != LevelSuccess {
		t.Errorf("Expected success notification, got %+v", n)
	}
}

func TestControllerFailuresLeaveTasksUntouched(t *testing.T) {
	ctx := context.Background()
	notifier := &recordingNotifier{}
	store := &MockTaskStore{
		CreateFunc: func(ctx context.Context, req *entity.CreateTaskRequest) (*entity.Task, error) {
			return nil, errStoreDown
		},
		UpdateFunc: func(ctx context.Context, id string, req *entity.UpdateTaskRequest) (*entity.Task, error) {
			return nil, errStoreDown
		},
		DeleteFunc: func(ctx context.Context, id string) error {
			return errStoreDown
		},
		ClearCompletedFunc: func(ctx context.Context) (int, error) {
			return 0, &entity.BatchError{Succeeded: 1, Failed: 1, Message: "boom"}
		},
	}
	controller := loadedController(t, store, notifier)
	before := controller.Tasks()

	tests := []struct {
		name    string
		run     func() error
		message string
	}{
		{"add", func() error {
			_, err := controller.AddTask(ctx, &entity.CreateTaskRequest{Title: "x"})
			return err
		}, "Failed to add task"},
		{"toggle", func() error { return controller.ToggleComplete(ctx, "3") }, "Failed to update task"},
		{"delete", func() error { return controller.DeleteTask(ctx, "3") }, "Failed to delete task"},
		{"clear", func() error {
			_, err := controller.ClearCompleted(ctx)
			return err
		}, "Failed to clear completed tasks"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); err == nil {
				t.Fatal("Expected error")
			}
			if n := notifier.last(); n.Level != LevelError || n.Message != tt.message {
				t.Errorf("Unexpected notification %+v", n)
			}
			if !slices.EqualFunc(before, controller.Tasks(), func(a, b entity.Task) bool {
				return a.ID == b.ID && a.Completed == b.Completed
			}) {
				t.Errorf("Expected tasks to be unchanged")
			}
		})
	}
}

func TestControllerToggleUsesStoreRecord(t *testing.T) {
	completedAt := time.Date(2024, 2, 2, 12, 0, 0, 0, time.UTC)
	var requested *bool
	notifier := &recordingNotifier{}
	store := &MockTaskStore{
		UpdateFunc: func(ctx context.Context, id string, req *entity.UpdateTaskRequest) (*entity.Task, error) {
			requested = req.Completed
			return &entity.Task{ID: id, Title: "Walk dog", Completed: true, CompletedAt: &completedAt}, nil
		},
	}
	controller := loadedController(t, store, notifier)

	if err := controller.ToggleComplete(context.Background(), "3"); err != nil {
		t.Fatalf("ToggleComplete: %v", err)
	}
	if requested == nil || !*requested {
		t.Fatalf("Expected completed=true to be requested, got %v", requested)
	}

	task := controller.Tasks()[0]
	if !task.Completed || task.CompletedAt == nil || !task.CompletedAt.Equal(completedAt) {
		t.Errorf("Expected store completed_at %v, got %+v", completedAt, task)
	}
	if n := notifier.last(); n.Level != LevelSuccess {
		t.Errorf("Expected success notification, got %+v", n)
	}
}

func TestControllerToggleUnknownIdIsNoop(t *testing.T) {
	called := false
	store := &MockTaskStore{
		UpdateFunc: func(ctx context.Context, id string, req *entity.UpdateTaskRequest) (*entity.Task, error) {
			called = true
			return nil, nil
		},
	}
	controller := loadedController(t, store, nil)

	if err := controller.ToggleComplete(context.Background(), "missing"); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if called {
		t.Error("Expected store Update not to be called")
	}
}

func TestControllerDeleteAndClear(t *testing.T) {
	ctx := context.Background()
	notifier := &recordingNotifier{}
	store := &MockTaskStore{
		ClearCompletedFunc: func(ctx context.Context) (int, error) {
			return 1, nil
		},
	}
	controller := loadedController(t, store, notifier)

	if err := controller.DeleteTask(ctx, "1"); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if got := ids(controller.Tasks()); !slices.Equal(got, []string{"3", "2"}) {
		t.Errorf("Expected [3 2], got %v", got)
	}

	count, err := controller.ClearCompleted(ctx)
	if err != nil {
		t.Fatalf("ClearCompleted: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 cleared, got %d", count)
	}
	if got := ids(controller.Tasks()); !slices.Equal(got, []string{"3"}) {
		t.Errorf("Expected [3], got %v", got)
	}
	if n := notifier.last(); n.Message != "1 completed tasks cleared" {
		t.Errorf("Unexpected notification %+v", n)
	}
}

func TestControllerFilteredTasks(t *testing.T) {
	controller := loadedController(t, &MockTaskStore{}, nil)

	tests := []struct {
		filter entity.Filter
		want   []string
	}{
		{entity.FilterAll, []string{"3", "2", "1"}},
		{entity.FilterActive, []string{"3", "1"}},
		{entity.FilterCompleted, []string{"2"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.filter), func(t *testing.T) {
			controller.SetFilter(tt.filter)
			got := slices.Collect(controller.FilteredTasks())
			if !slices.Equal(ids(got), tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, ids(got))
			}
		})
	}

	// фильтр не меняет счетчики
	counts := controller.Counts()
	if counts.All != 3 {
		t.Errorf("Expected All = 3, got %d", counts.All)
	}
}

func TestControllerNilNotifier(t *testing.T) {
	store := &MockTaskStore{
		CreateFunc: func(ctx context.Context, req *entity.CreateTaskRequest) (*entity.Task, error) {
			return nil, errStoreDown
		},
	}
	controller := loadedController(t, store, nil)

	if _, err := controller.AddTask(context.Background(), &entity.CreateTaskRequest{Title: "x"}); err == nil {
		t.Error("Expected error")
	}
}

func TestControllerNotifiesOncePerOperation(t *testing.T) {
	notifier := &recordingNotifier{}
	store := &MockTaskStore{
		DeleteFunc: func(ctx context.Context, id string) error { return nil },
	}
	controller := loadedController(t, store, notifier)

	if err := controller.DeleteTask(context.Background(), "2"); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if notifier.count() != 1 {
		t.Errorf("Expected 1 notification, got %d", notifier.count())
	}
}
