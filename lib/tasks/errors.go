package tasks

import (
	"errors"
	"fmt"
)

var (
	// ErrTaskNotFound indicates the referenced task id does not exist
	// in the store.
	ErrTaskNotFound = errors.New("task not found")
	// ErrTaskExists indicates an id collision on create. Should not
	// happen given unique id generation.
	ErrTaskExists = errors.New("task already exists")
	// ErrNoData indicates a CSV export was requested for a task that
	// completed with zero records.
	ErrNoData = errors.New("no data available")
)

// NotReadyError is returned when results are requested for a task that
// has not completed. It carries the current status so the caller can
// decide whether polling again makes sense.
type NotReadyError struct {
	Status Status
	// TaskError is the stored failure cause when Status is failed,
	// polling again is pointless in that case.
	TaskError string
}

func (e NotReadyError) Error() string {
	if e.Status == StatusFailed {
		return fmt.Sprintf("task failed: %s", e.TaskError)
	}
	return fmt.Sprintf("task is not completed yet (status: %s)", e.Status)
}

type retryableError struct {
	err error
}

func (e retryableError) Error() string {
	return e.err.Error()
}

func (e retryableError) Unwrap() error {
	return e.err
}

// Retryable marks an error as a transient condition the runner is
// allowed to retry, e.g. a rate limit or an upstream 5xx.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return retryableError{err: err}
}

func IsRetryable(err error) bool {
	var r retryableError
	return errors.As(err, &r)
}
