package repository

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/St1cky1/taskflow/internal/entity"
)

// DefaultTasksTable - таблица задач в record API
const DefaultTasksTable = "tasks"

// Имена полей на границе с record API, должны совпадать байт в байт
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldPriority    = "priority"
	FieldCompleted   = "completed"
	FieldCreatedAt   = "created_at"
	FieldCompletedAt = "completed_at"
)

var taskFields = []string{
	FieldTitle,
	FieldDescription,
	FieldPriority,
	FieldCompleted,
	FieldCreatedAt,
	FieldCompletedAt,
}

type RemoteTaskRepository struct {
	client IRecordClient
	table  string
}

func NewRemoteTaskRepository(client IRecordClient, table string) *RemoteTaskRepository {
	if table == "" {
		table = DefaultTasksTable
	}
	return &RemoteTaskRepository{
		client: client,
		table:  table,
	}
}

func (r *RemoteTaskRepository) List(ctx context.Context) ([]entity.Task, error) {
	return r.fetch(ctx, nil)
}

func (r *RemoteTaskRepository) GetByTaskId(ctx context.Context, id string) (*entity.Task, error) {
	if _, err := parseRecordID(id); err != nil {
		return nil, nil
	}

	tasks, err := r.fetch(ctx, []entity.Condition{{
		FieldName: entity.RecordIDField,
		Operator:  entity.OperatorEqualTo,
		Values:    []string{id},
	}})
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, nil
	}
	return &tasks[0], nil
}

func (r *RemoteTaskRepository) fetch(ctx context.Context, where []entity.Condition) ([]entity.Task, error) {
	resp, err := r.client.FetchRecords(ctx, &entity.FetchRecordsRequest{
		Table:   r.table,
		Fields:  taskFields,
		Where:   where,
		OrderBy: []entity.OrderBy{{FieldName: FieldCreatedAt, SortType: entity.SortDESC}},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: fetch records: %v", entity.ErrStorageUnavailable, err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("%w: %s", entity.ErrStorageUnavailable, resp.Message)
	}

	tasks := make([]entity.Task, 0, len(resp.Data))
	for _, record := range resp.Data {
		task, err := recordToTask(record)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	// record API сортирует created_at как текст; запись в другом формате времени
	// встанет не на свое место, поэтому досортировываем по разобранному времени.
	// Стабильная сортировка сохраняет порядок сервера (id DESC) для равных created_at
	slices.SortStableFunc(tasks, func(a, b entity.Task) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return tasks, nil
}

func (r *RemoteTaskRepository) Create(ctx context.Context, task *entity.Task) (*entity.Task, error) {
	resp, err := r.client.CreateRecord(ctx, &entity.CreateRecordRequest{
		Table:   r.table,
		Records: []entity.Record{taskToRecord(task, true)},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create record: %v", entity.ErrStorageUnavailable, err)
	}

	result, err := singleResult(resp)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, fmt.Errorf("%w: %s", entity.ErrStorageUnavailable, result.Message)
	}
	return recordToTask(result.Data)
}

func (r *RemoteTaskRepository) Update(ctx context.Context, task *entity.Task) (*entity.Task, error) {
	id, err := parseRecordID(task.ID)
	if err != nil {
		return nil, entity.ErrTaskNotFound
	}

	record := taskToRecord(task, false)
	record[entity.RecordIDField] = id

	resp, err := r.client.UpdateRecord(ctx, &entity.UpdateRecordRequest{
		Table:   r.table,
		Records: []entity.Record{record},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: update record: %v", entity.ErrStorageUnavailable, err)
	}

	result, err := singleResult(resp)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		if result.Code == entity.CodeNotFound {
			return nil, entity.ErrTaskNotFound
		}
		return nil, fmt.Errorf("%w: %s", entity.ErrStorageUnavailable, result.Message)
	}
	return recordToTask(result.Data)
}

func (r *RemoteTaskRepository) Delete(ctx context.Context, id string) error {
	recordID, err := parseRecordID(id)
	if err != nil {
		return nil
	}

	_, err = r.deleteRecords(ctx, []int64{recordID})
	return err
}

// DeleteCompleted при частичном сбое возвращает число удаленных и *entity.BatchError
func (r *RemoteTaskRepository) DeleteCompleted(ctx context.Context) (int, error) {
	resp, err := r.client.FetchRecords(ctx, &entity.FetchRecordsRequest{
		Table: r.table,
		Where: []entity.Condition{{
			FieldName: FieldCompleted,
			Operator:  entity.OperatorEqualTo,
			Values:    []string{"true"},
		}},
	})
	if err != nil {
		return 0, fmt.Errorf("%w: fetch records: %v", entity.ErrStorageUnavailable, err)
	}
	if !resp.Success {
		return 0, fmt.Errorf("%w: %s", entity.ErrStorageUnavailable, resp.Message)
	}

	ids := make([]int64, 0, len(resp.Data))
	for _, record := range resp.Data {
		id, ok := record.ID()
		if !ok {
			return 0, fmt.Errorf("%w: record without %s", entity.ErrStorageUnavailable, entity.RecordIDField)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	return r.deleteRecords(ctx, ids)
}

// deleteRecords - NOT_FOUND не считаем ошибкой, запись уже удалена
func (r *RemoteTaskRepository) deleteRecords(ctx context.Context, ids []int64) (int, error) {
	resp, err := r.client.DeleteRecord(ctx, &entity.DeleteRecordRequest{
		Table:     r.table,
		RecordIDs: ids,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: delete records: %v", entity.ErrStorageUnavailable, err)
	}
	if !resp.Success && len(resp.Results) == 0 {
		return 0, fmt.Errorf("%w: %s", entity.ErrStorageUnavailable, resp.Message)
	}

	var deleted int
	batchErr := &entity.BatchError{}
	for _, result := range resp.Results {
		switch {
		case result.Success:
			deleted++
		case result.Code == entity.CodeNotFound:
		default:
			if batchErr.Failed == 0 {
				batchErr.Message = result.Message
			}
			batchErr.Failed++
		}
	}

	if batchErr.Failed > 0 {
		batchErr.Succeeded = deleted
		return deleted, batchErr
	}
	return deleted, nil
}

func singleResult(resp *entity.RecordResponse) (entity.RecordResult, error) {
	if len(resp.Results) == 0 {
		if resp.Message == "" {
			resp.Message = "empty response"
		}
		return entity.RecordResult{}, fmt.Errorf("%w: %s", entity.ErrStorageUnavailable, resp.Message)
	}
	return resp.Results[0], nil
}

func parseRecordID(id string) (int64, error) {
	return strconv.ParseInt(id, 10, 64)
}

func taskToRecord(task *entity.Task, withCreatedAt bool) entity.Record {
	record := entity.Record{
		FieldTitle:       task.Title,
		FieldDescription: task.Description,
		FieldPriority:    string(task.Priority),
		FieldCompleted:   task.Completed,
		FieldCompletedAt: nil,
	}
	if task.CompletedAt != nil {
		record[FieldCompletedAt] = entity.FormatTime(*task.CompletedAt)
	}
	if withCreatedAt {
		record[FieldCreatedAt] = entity.FormatTime(task.CreatedAt)
	}
	return record
}

// recordToTask - любая неожиданная форма записи считается битым ответом
func recordToTask(record entity.Record) (*entity.Task, error) {
	if record == nil {
		return nil, fmt.Errorf("%w: empty record", entity.ErrStorageUnavailable)
	}

	id, ok := record.ID()
	if !ok {
		return nil, fmt.Errorf("%w: record without %s", entity.ErrStorageUnavailable, entity.RecordIDField)
	}

	title, ok := record[FieldTitle].(string)
	if !ok {
		return nil, malformed(FieldTitle)
	}
	description, _ := record[FieldDescription].(string)
	priority, _ := record[FieldPriority].(string)
	completed, _ := record[FieldCompleted].(bool)

	createdRaw, ok := record[FieldCreatedAt].(string)
	if !ok {
		return nil, malformed(FieldCreatedAt)
	}
	createdAt, err := entity.ParseTime(createdRaw)
	if err != nil {
		return nil, malformed(FieldCreatedAt)
	}

	var completedAt *time.Time
	if raw, ok := record[FieldCompletedAt].(string); ok && raw != "" {
		t, err := entity.ParseTime(raw)
		if err != nil {
			return nil, malformed(FieldCompletedAt)
		}
		completedAt = &t
	}

	return &entity.Task{
		ID:          strconv.FormatInt(id, 10),
		Title:       title,
		Description: description,
		Priority:    entity.ParsePriority(priority),
		Completed:   completed,
		CreatedAt:   createdAt,
		CompletedAt: completedAt,
	}, nil
}

func malformed(field string) error {
	return fmt.Errorf("%w: malformed field %q", entity.ErrStorageUnavailable, field)
}
