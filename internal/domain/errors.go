package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidStatus is returned when a status is not one of the known board columns.
	ErrInvalidStatus = errors.New("invalid task status")

	// ErrInvalidPosition is returned when a position is NaN or infinite.
	ErrInvalidPosition = errors.New("invalid task position")

	// ErrEmptyTaskName is returned when a task is created or renamed with an empty name.
	ErrEmptyTaskName = errors.New("task name cannot be empty")

	// ErrEmptyWorkspaceID is returned when a task has no owning workspace.
	ErrEmptyWorkspaceID = errors.New("task workspace ID cannot be empty")

	// ErrEmptyTaskID is returned when a task has no identifier.
	ErrEmptyTaskID = errors.New("task ID cannot be empty")
)
