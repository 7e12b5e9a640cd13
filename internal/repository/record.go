package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/St1cky1/taskflow/internal/entity"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrUnsupportedQuery - условие или сортировка, которые record API не поддерживает
var ErrUnsupportedQuery = errors.New("unsupported query")

// RecordRepository хранит записи всех таблиц record API в одной таблице records (jsonb)
type RecordRepository struct {
	db *pgxpool.Pool
}

func NewRecordRepository(db *pgxpool.Pool) *RecordRepository {
	return &RecordRepository{
		db: db,
	}
}

func (r *RecordRepository) Fetch(ctx context.Context, req *entity.FetchRecordsRequest) ([]entity.Record, error) {
	query, args, err := buildFetchQuery(req)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []entity.Record{}
	for rows.Next() {
		var id int64
		var fields map[string]any
		if err := rows.Scan(&id, &fields); err != nil {
			return nil, err
		}
		records = append(records, project(id, fields, req.Fields))
	}
	return records, rows.Err()
}

// buildFetchQuery - динамически строим WHERE и ORDER BY, имена полей идут только параметрами
func buildFetchQuery(req *entity.FetchRecordsRequest) (string, []any, error) {
	query := `
	SELECT id, fields
	FROM records
	WHERE table_name = $1`
	args := []any{req.Table}

	for _, cond := range req.Where {
		if cond.Operator != entity.OperatorEqualTo {
			return "", nil, fmt.Errorf("%w: operator %q", ErrUnsupportedQuery, cond.Operator)
		}

		if cond.FieldName == entity.RecordIDField {
			ids := make([]int64, 0, len(cond.Values))
			for _, v := range cond.Values {
				id, err := strconv.ParseInt(v, 10, 64)
				if err != nil {
					return "", nil, fmt.Errorf("%w: id %q", ErrUnsupportedQuery, v)
				}
				ids = append(ids, id)
			}
			args = append(args, ids)
			query += " AND id = ANY($" + strconv.Itoa(len(args)) + "::bigint[])"
			continue
		}

		args = append(args, cond.FieldName)
		fieldArg := len(args)
		args = append(args, cond.Values)
		query += " AND fields->>($" + strconv.Itoa(fieldArg) + "::text) = ANY($" + strconv.Itoa(len(args)) + "::text[])"
	}

	order := make([]string, 0, len(req.OrderBy)+1)
	for _, o := range req.OrderBy {
		dir := strings.ToUpper(o.SortType)
		if dir == "" {
			dir = entity.SortASC
		}
		if dir != entity.SortASC && dir != entity.SortDESC {
			return "", nil, fmt.Errorf("%w: sort type %q", ErrUnsupportedQuery, o.SortType)
		}

		if o.FieldName == entity.RecordIDField {
			order = append(order, "id "+dir)
			continue
		}
		// значения сравниваются как текст; время сортируется верно только в entity.TimeLayout
		args = append(args, o.FieldName)
		order = append(order, "fields->>($"+strconv.Itoa(len(args))+"::text) "+dir)
	}
	// при равенстве полей сортировки новые записи первыми
	order = append(order, "id DESC")

	query += "\n\tORDER BY " + strings.Join(order, ", ")
	return query, args, nil
}

func (r *RecordRepository) Create(ctx context.Context, table string, fields entity.Record) (entity.Record, error) {
	query := `
	INSERT INTO records (table_name, fields)
	VALUES ($1, $2::jsonb)
	RETURNING id, fields
	`

	var id int64
	var stored map[string]any
	err := r.db.QueryRow(ctx, query, table, withoutID(fields)).Scan(&id, &stored)
	if err != nil {
		return nil, err
	}
	return project(id, stored, nil), nil
}

// Update - частичное обновление: jsonb || patch
func (r *RecordRepository) Update(ctx context.Context, table string, id int64, fields entity.Record) (entity.Record, error) {
	query := `
	UPDATE records
	SET fields = fields || $1::jsonb, updated_at = CURRENT_TIMESTAMP
	WHERE table_name = $2 AND id = $3
	RETURNING id, fields
	`

	var stored map[string]any
	err := r.db.QueryRow(ctx, query, withoutID(fields), table, id).Scan(&id, &stored)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return project(id, stored, nil), nil
}

func (r *RecordRepository) Delete(ctx context.Context, table string, id int64) (bool, error) {
	query := `DELETE FROM records WHERE table_name = $1 AND id = $2`
	tag, err := r.db.Exec(ctx, query, table, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// project оставляет только запрошенные поля и добавляет Id
func project(id int64, fields map[string]any, only []string) entity.Record {
	record := entity.Record{}
	if len(only) == 0 {
		for k, v := range fields {
			record[k] = v
		}
	} else {
		for _, k := range only {
			if v, ok := fields[k]; ok {
				record[k] = v
			}
		}
	}
	record[entity.RecordIDField] = id
	return record
}

func withoutID(fields entity.Record) map[string]any {
	clean := make(map[string]any, len(fields))
	for k, v := range fields {
		if k == entity.RecordIDField {
			continue
		}
		clean[k] = v
	}
	return clean
}
