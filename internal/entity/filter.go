package entity

import (
	"math"
	"strings"
)

type Filter string

const (
	FilterAll       Filter = "all"
	FilterActive    Filter = "active"
	FilterCompleted Filter = "completed"
)

var Filters = []Filter{FilterAll, FilterActive, FilterCompleted}

// ParseFilter - пустая строка означает all
func ParseFilter(s string) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterActive, FilterCompleted:
		return f, nil
	default:
		return "", ErrInvalidFilter
	}
}

func (f Filter) Match(task Task) bool {
	switch f {
	case FilterActive:
		return !task.Completed
	case FilterCompleted:
		return task.Completed
	default:
		return true
	}
}

// FilterTasks сохраняет относительный порядок задач
func FilterTasks(tasks []Task, f Filter) []Task {
	result := make([]Task, 0, len(tasks))
	for _, task := range tasks {
		if f.Match(task) {
			result = append(result, task)
		}
	}
	return result
}

type TaskCounts struct {
	All       int `json:"all"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
}

func CountTasks(tasks []Task) TaskCounts {
	counts := TaskCounts{All: len(tasks)}
	for _, task := range tasks {
		if task.Completed {
			counts.Completed++
		} else {
			counts.Active++
		}
	}
	return counts
}

// Of возвращает счетчик для вкладки фильтра
func (c TaskCounts) Of(f Filter) int {
	switch f {
	case FilterActive:
		return c.Active
	case FilterCompleted:
		return c.Completed
	default:
		return c.All
	}
}

func (c TaskCounts) CompletionPercentage() int {
	if c.All == 0 {
		return 0
	}
	return int(math.Round(100 * float64(c.Completed) / float64(c.All)))
}
