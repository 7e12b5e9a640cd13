package entity

import (
	"time"
)

type ActionType string

const (
	ActionCreate         ActionType = "Create"
	ActionUpdate         ActionType = "Update"
	ActionDelete         ActionType = "Delete"
	ActionClearCompleted ActionType = "ClearCompleted"
)

type TaskAudit struct {
	ID         int        `json:"id"`
	Action     ActionType `json:"action"`
	EntityType string     `json:"entity_type"`
	EntityID   string     `json:"entity_id"`
	OldValues  *string    `json:"old_values"`
	NewValues  *string    `json:"new_values"`
	Changes    *string    `json:"changes"`
	ChangesAt  time.Time  `json:"changed_at"`
}

// AuditMessage - сообщение в очередь task_audit_logs
type AuditMessage struct {
	Action    ActionType     `json:"action"`
	EntityID  string         `json:"entity_id"`
	OldValues map[string]any `json:"old_values"`
	NewValues map[string]any `json:"new_values"`
	Changes   map[string]any `json:"changes"`
	Timestamp time.Time      `json:"timestamp"`
}
