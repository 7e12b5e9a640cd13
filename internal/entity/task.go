package entity

import (
	"strings"
	"time"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Priorities в порядке отображения
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ParsePriority возвращает medium для пустого или неизвестного значения
func ParsePriority(s string) Priority {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if !p.IsValid() {
		return PriorityMedium
	}
	return p
}

// Next - следующий приоритет по кругу (для формы в TUI)
func (p Priority) Next() Priority {
	for i, candidate := range Priorities {
		if candidate == p {
			return Priorities[(i+1)%len(Priorities)]
		}
	}
	return PriorityMedium
}

type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    Priority   `json:"priority"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// CreateTaskRequest - title проверяет TaskService.Create
type CreateTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"` // пустое или неизвестное значение -> medium
}

// UpdateTaskRequest - частичное обновление, nil означает "не менять"
type UpdateTaskRequest struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Priority    *Priority `json:"priority"`
	Completed   *bool     `json:"completed"`
}

func (r *UpdateTaskRequest) IsEmpty() bool {
	return r.Title == nil && r.Description == nil && r.Priority == nil && r.Completed == nil
}

// TimeLayout - фиксированная ширина, поэтому строки сортируются как время
const TimeLayout = "2006-01-02T15:04:05.000000Z07:00"

func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Parse(time.RFC3339Nano, s)
	}
	return t, nil
}
