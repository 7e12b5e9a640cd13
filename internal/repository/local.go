package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"slices"
	"sync"

	"github.com/St1cky1/taskflow/internal/entity"
	"github.com/google/uuid"
)

// DefaultTasksKey - ключ коллекции в локальном хранилище
const DefaultTasksKey = "taskflow_tasks"

// LocalTaskRepository хранит все задачи одним JSON-массивом под ключом key.
// Каждая мутация читает всю коллекцию и перезаписывает ее целиком.
type LocalTaskRepository struct {
	blob  IBlobStore
	key   string
	newID func() string

	// read-modify-write в пределах одного процесса
	mu sync.Mutex
}

func NewLocalTaskRepository(blob IBlobStore, key string) *LocalTaskRepository {
	if key == "" {
		key = DefaultTasksKey
	}
	return &LocalTaskRepository{
		blob:  blob,
		key:   key,
		newID: uuid.NewString,
	}
}

// load - битый JSON считаем пустой коллекцией
func (r *LocalTaskRepository) load(ctx context.Context) ([]entity.Task, error) {
	data, err := r.blob.Load(ctx, r.key)
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %v", entity.ErrStorageUnavailable, r.key, err)
	}
	if len(data) == 0 {
		return []entity.Task{}, nil
	}

	var tasks []entity.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		log.Printf("⚠️  Не удалось разобрать %s, начинаем с пустого списка: %v", r.key, err)
		return []entity.Task{}, nil
	}
	return tasks, nil
}

func (r *LocalTaskRepository) save(ctx context.Context, tasks []entity.Task) error {
	data, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("encode tasks: %w", err)
	}
	if err := r.blob.Save(ctx, r.key, data); err != nil {
		return fmt.Errorf("%w: save %s: %v", entity.ErrStorageUnavailable, r.key, err)
	}
	return nil
}

// List - задачи хранятся в порядке добавления, отдаем новые первыми
func (r *LocalTaskRepository) List(ctx context.Context) ([]entity.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tasks, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	slices.Reverse(tasks)
	slices.SortStableFunc(tasks, func(a, b entity.Task) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return tasks, nil
}

func (r *LocalTaskRepository) GetByTaskId(ctx context.Context, id string) (*entity.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tasks, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	if i := indexOf(tasks, id); i >= 0 {
		return &tasks[i], nil
	}
	return nil, nil
}

func (r *LocalTaskRepository) Create(ctx context.Context, task *entity.Task) (*entity.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tasks, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	created := *task
	created.ID = r.newID()
	tasks = append(tasks, created)

	if err := r.save(ctx, tasks); err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *LocalTaskRepository) Update(ctx context.Context, task *entity.Task) (*entity.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tasks, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	i := indexOf(tasks, task.ID)
	if i < 0 {
		return nil, entity.ErrTaskNotFound
	}

	// CreatedAt не меняется никогда
	updated := *task
	updated.CreatedAt = tasks[i].CreatedAt
	tasks[i] = updated

	if err := r.save(ctx, tasks); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *LocalTaskRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tasks, err := r.load(ctx)
	if err != nil {
		return err
	}

	remaining := slices.DeleteFunc(tasks, func(t entity.Task) bool { return t.ID == id })
	return r.save(ctx, remaining)
}

func (r *LocalTaskRepository) DeleteCompleted(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tasks, err := r.load(ctx)
	if err != nil {
		return 0, err
	}

	total := len(tasks)
	active := slices.DeleteFunc(tasks, func(t entity.Task) bool { return t.Completed })
	if err := r.save(ctx, active); err != nil {
		return 0, err
	}
	return total - len(active), nil
}

func indexOf(tasks []entity.Task, id string) int {
	return slices.IndexFunc(tasks, func(t entity.Task) bool { return t.ID == id })
}
