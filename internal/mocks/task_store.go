package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/taskboard-api/internal/domain"
	"github.com/phrazzld/taskboard-api/internal/ordering"
	"github.com/phrazzld/taskboard-api/internal/store"
)

// MockTaskStore implements store.TaskStore for testing. Calls whose function
// field is nil are forwarded to Base, so a test can override a single
// method of a working store.
type MockTaskStore struct {
	Base store.TaskStore

	CreateFn           func(ctx context.Context, task *domain.Task) error
	GetByIDFn          func(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	UpdateFn           func(ctx context.Context, task *domain.Task) error
	PersistMoveFn      func(ctx context.Context, id uuid.UUID, status domain.TaskStatus, position float64, expectedVersion int64) (*domain.Task, error)
	SoftDeleteFn       func(ctx context.Context, id uuid.UUID, expectedVersion int64) error
	LoadColumnFn       func(ctx context.Context, scope ordering.Scope, status domain.TaskStatus) (ordering.Column, error)
	RewritePositionsFn func(ctx context.Context, entries []ordering.Entry) error
	WithColumnLockFn   func(ctx context.Context, workspaceID uuid.UUID, status domain.TaskStatus, fn store.ColumnFn) error
}

var _ store.TaskStore = (*MockTaskStore)(nil)

// Create implements store.TaskStore.
func (m *MockTaskStore) Create(ctx context.Context, task *domain.Task) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, task)
	}
	return m.Base.Create(ctx, task)
}

// GetByID implements store.TaskStore.
func (m *MockTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return m.Base.GetByID(ctx, id)
}

// Update implements store.TaskStore.
func (m *MockTaskStore) Update(ctx context.Context, task *domain.Task) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, task)
	}
	return m.Base.Update(ctx, task)
}

// PersistMove implements store.TaskStore.
func (m *MockTaskStore) PersistMove(
	ctx context.Context,
	id uuid.UUID,
	status domain.TaskStatus,
	position float64,
	expectedVersion int64,
) (*domain.Task, error) {
	if m.PersistMoveFn != nil {
		return m.PersistMoveFn(ctx, id, status, position, expectedVersion)
	}
	return m.Base.PersistMove(ctx, id, status, position, expectedVersion)
}

// SoftDelete implements store.TaskStore.
func (m *MockTaskStore) SoftDelete(ctx context.Context, id uuid.UUID, expectedVersion int64) error {
	if m.SoftDeleteFn != nil {
		return m.SoftDeleteFn(ctx, id, expectedVersion)
	}
	return m.Base.SoftDelete(ctx, id, expectedVersion)
}

// LoadColumn implements store.TaskStore.
func (m *MockTaskStore) LoadColumn(
	ctx context.Context,
	scope ordering.Scope,
	status domain.TaskStatus,
) (ordering.Column, error) {
	if m.LoadColumnFn != nil {
		return m.LoadColumnFn(ctx, scope, status)
	}
	return m.Base.LoadColumn(ctx, scope, status)
}

// RewritePositions implements store.TaskStore.
func (m *MockTaskStore) RewritePositions(ctx context.Context, entries []ordering.Entry) error {
	if m.RewritePositionsFn != nil {
		return m.RewritePositionsFn(ctx, entries)
	}
	return m.Base.RewritePositions(ctx, entries)
}

// WithColumnLock implements store.TaskStore. The store handed to fn is the
// mock itself, so overrides stay in effect under the lock.
func (m *MockTaskStore) WithColumnLock(
	ctx context.Context,
	workspaceID uuid.UUID,
	status domain.TaskStatus,
	fn store.ColumnFn,
) error {
	if m.WithColumnLockFn != nil {
		return m.WithColumnLockFn(ctx, workspaceID, status, fn)
	}
	return m.Base.WithColumnLock(ctx, workspaceID, status, func(ctx context.Context, _ store.TaskStore) error {
		return fn(ctx, m)
	})
}
