package repository

import (
	"context"

	"github.com/St1cky1/taskflow/internal/entity"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TaskAuditRepository struct {
	db *pgxpool.Pool
}

func NewTaskAuditRepository(db *pgxpool.Pool) *TaskAuditRepository {
	return &TaskAuditRepository{
		db: db,
	}
}

func (r *TaskAuditRepository) Create(ctx context.Context, audit *entity.TaskAudit) error {
	query := `
	INSERT INTO "task_audit" (action, entity_type, entity_id, old_values, new_values, changes, changed_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING id, changed_at
	`

	return r.db.QueryRow(
		ctx,
		query,
		audit.Action,
		audit.EntityType,
		audit.EntityID,
		audit.OldValues,
		audit.NewValues,
		audit.Changes,
		audit.ChangesAt,
	).Scan(&audit.ID, &audit.ChangesAt)
}

func (r *TaskAuditRepository) GetByEntityId(ctx context.Context, entityID string) ([]entity.TaskAudit, error) {
	query := `
	SELECT id, action, entity_type, entity_id, old_values, new_values, changes, changed_at
	FROM "task_audit"
	WHERE entity_id = $1 AND entity_type = 'task'
	ORDER BY changed_at DESC
	`
	rows, err := r.db.Query(ctx, query, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var audits []entity.TaskAudit
	for rows.Next() {
		var audit entity.TaskAudit
		err := rows.Scan(
			&audit.ID,
			&audit.Action,
			&audit.EntityType,
			&audit.EntityID,
			&audit.OldValues,
			&audit.NewValues,
			&audit.Changes,
			&audit.ChangesAt,
		)
		if err != nil {
			return nil, err
		}
		audits = append(audits, audit)
	}
	return audits, rows.Err()
}
