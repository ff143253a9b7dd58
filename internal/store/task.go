package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/taskboard-api/internal/domain"
	"github.com/phrazzld/taskboard-api/internal/ordering"
)

// ColumnFn runs with exclusive access to one (workspace, status) column.
// The TaskStore it receives must be used for every read and write made
// under the lock.
type ColumnFn func(ctx context.Context, tasks TaskStore) error

// TaskStore defines the interface for task persistence.
//
// Every write is guarded by the task's Version: the write only applies when
// the stored version equals the expected one, and the stored version is
// incremented on success. A mismatch yields ErrVersionConflict; a missing or
// deleted task yields ErrTaskNotFound.
type TaskStore interface {
	// Create inserts a new task. The task must pass domain validation.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves an active task by its ID.
	// Returns ErrTaskNotFound if the task does not exist or has been deleted.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// Update writes the task's mutable fields (name, description, assignee,
	// due date, status, position) if task.Version matches the stored version.
	// On success task.Version and task.UpdatedAt are refreshed.
	Update(ctx context.Context, task *domain.Task) error

	// PersistMove atomically sets status and position for a task whose stored
	// version equals expectedVersion, returning the updated task.
	PersistMove(
		ctx context.Context,
		id uuid.UUID,
		status domain.TaskStatus,
		position float64,
		expectedVersion int64,
	) (*domain.Task, error)

	// SoftDelete marks a task inactive if its version matches.
	SoftDelete(ctx context.Context, id uuid.UUID, expectedVersion int64) error

	// LoadColumn reads the active tasks of one column ordered by position.
	LoadColumn(ctx context.Context, scope ordering.Scope, status domain.TaskStatus) (ordering.Column, error)

	// RewritePositions stores new positions for the given tasks, bumping each
	// task's version. Used when a column is rebalanced.
	RewritePositions(ctx context.Context, entries []ordering.Entry) error

	// WithColumnLock runs fn while holding the store-level lock for the
	// (workspace, status) column. Implementations backed by a shared database
	// must make the lock visible to every process using that database.
	WithColumnLock(ctx context.Context, workspaceID uuid.UUID, status domain.TaskStatus, fn ColumnFn) error
}

// UserDirectory resolves user identities to the details shown in events.
type UserDirectory interface {
	// GetUser returns the user with the given ID.
	// Returns ErrUserNotFound if the user does not exist.
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
}
