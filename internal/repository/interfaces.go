package repository

import (
	"context"

	"github.com/St1cky1/taskflow/internal/entity"
)

// ITaskRepository - хранилище задач (локальное или удаленный record API).
// Ошибки провайдера приводятся к entity.Err* внутри реализаций.
type ITaskRepository interface {
	// List - все задачи, created_at по убыванию
	List(ctx context.Context) ([]entity.Task, error)
	// GetByTaskId возвращает nil, nil если задачи нет
	GetByTaskId(ctx context.Context, id string) (*entity.Task, error)
	// Create присваивает ID; CreatedAt уже заполнен сервисом
	Create(ctx context.Context, task *entity.Task) (*entity.Task, error)
	// Update перезаписывает изменяемые поля, ErrTaskNotFound если задачи нет
	Update(ctx context.Context, task *entity.Task) (*entity.Task, error)
	// Delete не падает на несуществующем id
	Delete(ctx context.Context, id string) error
	DeleteCompleted(ctx context.Context) (int, error)
}

// IBlobStore - одна сериализованная коллекция под фиксированным ключом
type IBlobStore interface {
	// Load возвращает nil, nil если ключа нет
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}

// IRecordRepository - хранилище записей record API на стороне сервера
type IRecordRepository interface {
	Fetch(ctx context.Context, req *entity.FetchRecordsRequest) ([]entity.Record, error)
	Create(ctx context.Context, table string, fields entity.Record) (entity.Record, error)
	// Update возвращает nil, nil если записи нет
	Update(ctx context.Context, table string, id int64, fields entity.Record) (entity.Record, error)
	// Delete возвращает false если записи нет
	Delete(ctx context.Context, table string, id int64) (bool, error)
}

// ITaskAuditRepository - интерфейс для TaskAuditRepository
type ITaskAuditRepository interface {
	Create(ctx context.Context, audit *entity.TaskAudit) error
	GetByEntityId(ctx context.Context, entityID string) ([]entity.TaskAudit, error)
}

// IRecordClient - клиент record API (SDK хостинга записей)
type IRecordClient interface {
	FetchRecords(ctx context.Context, req *entity.FetchRecordsRequest) (*entity.FetchRecordsResponse, error)
	CreateRecord(ctx context.Context, req *entity.CreateRecordRequest) (*entity.RecordResponse, error)
	UpdateRecord(ctx context.Context, req *entity.UpdateRecordRequest) (*entity.RecordResponse, error)
	DeleteRecord(ctx context.Context, req *entity.DeleteRecordRequest) (*entity.RecordResponse, error)
}
