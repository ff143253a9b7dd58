package board

import (
	"errors"
	"fmt"

	"github.com/phrazzld/taskboard-api/internal/access"
	"github.com/phrazzld/taskboard-api/internal/store"
)

var (
	// ErrTaskNotFound is returned when the task is missing or deleted.
	ErrTaskNotFound = store.ErrTaskNotFound

	// ErrAccessDenied is returned when the actor may not change the board.
	ErrAccessDenied = access.ErrAccessDenied

	// ErrInvalidTarget is returned when a move names an unknown status or an
	// unusable position.
	ErrInvalidTarget = errors.New("invalid move target")

	// ErrInvalidInput is returned when a create or edit carries invalid fields.
	ErrInvalidInput = errors.New("invalid task input")

	// ErrPersistenceConflict is returned when a write kept losing the version
	// race until the retry budget ran out.
	ErrPersistenceConflict = errors.New("persistence conflict")
)

// ServiceError adds the failed operation to an error from the board service.
type ServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("board %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("board %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{Operation: operation, Message: message, Err: err}
}
