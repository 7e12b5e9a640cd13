package entity

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTaskData     = errors.New("invalid task data")
	ErrTaskNotFound        = errors.New("task not found")
	ErrStorageUnavailable  = errors.New("storage unavailable")
	ErrPartialBatchFailure = errors.New("partial batch failure")
	ErrInvalidFilter       = errors.New("invalid filter")
)

// BatchError - часть записей пакета сохранена, часть нет.
// Message берется из первой неудачной записи.
type BatchError struct {
	Succeeded int
	Failed    int
	Message   string
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%d of %d records failed: %s", e.Failed, e.Succeeded+e.Failed, e.Message)
}

func (e *BatchError) Unwrap() error {
	return ErrPartialBatchFailure
}
