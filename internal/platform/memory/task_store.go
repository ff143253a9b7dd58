package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskboard-api/internal/domain"
	"github.com/phrazzld/taskboard-api/internal/ordering"
	"github.com/phrazzld/taskboard-api/internal/store"
)

// TaskStore keeps tasks in a map guarded by a RWMutex. Column locks are
// per (workspace, status) and independent of the map lock.
type TaskStore struct {
	mu    sync.RWMutex
	tasks map[uuid.UUID]domain.Task
	locks *keyedMutex
	now   func() time.Time

	// BeforeWrite, when set, runs before every versioned write is checked.
	// Tests use it to interleave a competing writer.
	BeforeWrite func(ctx context.Context, taskID uuid.UUID)
}

var _ store.TaskStore = (*TaskStore)(nil)

// NewTaskStore creates an empty TaskStore.
func NewTaskStore() *TaskStore {
	return &TaskStore{
		tasks: make(map[uuid.UUID]domain.Task),
		locks: newKeyedMutex(),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Create implements store.TaskStore.
func (s *TaskStore) Create(ctx context.Context, task *domain.Task) error {
	if err := task.Validate(); err != nil {
		return store.NewStoreError("task", "create", "validation failed",
			fmt.Errorf("%w: %v", store.ErrInvalidEntity, err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tasks[task.ID]; exists {
		return store.NewStoreError("task", "create", "task id already used", store.ErrDuplicate)
	}
	if task.Version == 0 {
		task.Version = 1
	}
	task.Active = true
	s.tasks[task.ID] = *task
	return nil
}

// GetByID implements store.TaskStore.
func (s *TaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok || !t.Active {
		return nil, store.ErrTaskNotFound
	}
	return &t, nil
}

// checkVersion returns the stored task if it is active and at the expected
// version. Callers hold s.mu.
func (s *TaskStore) checkVersion(id uuid.UUID, expected int64) (domain.Task, error) {
	t, ok := s.tasks[id]
	if !ok || !t.Active {
		return domain.Task{}, store.ErrTaskNotFound
	}
	if t.Version != expected {
		return domain.Task{}, fmt.Errorf("%w: task %s at version %d, expected %d",
			store.ErrVersionConflict, id, t.Version, expected)
	}
	return t, nil
}

func (s *TaskStore) beforeWrite(ctx context.Context, id uuid.UUID) {
	if s.BeforeWrite != nil {
		s.BeforeWrite(ctx, id)
	}
}

// Update implements store.TaskStore.
func (s *TaskStore) Update(ctx context.Context, task *domain.Task) error {
	if err := task.Validate(); err != nil {
		return store.NewStoreError("task", "update", "validation failed",
			fmt.Errorf("%w: %v", store.ErrInvalidEntity, err))
	}
	s.beforeWrite(ctx, task.ID)

	s.mu.Lock()
	defer s.mu.Unlock()
	stored, err := s.checkVersion(task.ID, task.Version)
	if err != nil {
		return err
	}

	stored.ProjectID = task.ProjectID
	stored.Name = task.Name
	stored.Description = task.Description
	stored.AssigneeID = task.AssigneeID
	stored.DueAt = task.DueAt
	stored.Status = task.Status
	stored.Position = task.Position
	stored.Version++
	stored.UpdatedAt = s.now()
	s.tasks[task.ID] = stored

	task.Version = stored.Version
	task.UpdatedAt = stored.UpdatedAt
	return nil
}

// PersistMove implements store.TaskStore.
func (s *TaskStore) PersistMove(
	ctx context.Context,
	id uuid.UUID,
	status domain.TaskStatus,
	position float64,
	expectedVersion int64,
) (*domain.Task, error) {
	s.beforeWrite(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	stored, err := s.checkVersion(id, expectedVersion)
	if err != nil {
		return nil, err
	}
	stored.Status = status
	stored.Position = position
	stored.Version++
	stored.UpdatedAt = s.now()
	s.tasks[id] = stored
	return &stored, nil
}

// SoftDelete implements store.TaskStore.
func (s *TaskStore) SoftDelete(ctx context.Context, id uuid.UUID, expectedVersion int64) error {
	s.beforeWrite(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	stored, err := s.checkVersion(id, expectedVersion)
	if err != nil {
		return err
	}
	stored.Active = false
	stored.Version++
	stored.UpdatedAt = s.now()
	s.tasks[id] = stored
	return nil
}

// LoadColumn implements store.TaskStore.
func (s *TaskStore) LoadColumn(
	ctx context.Context,
	scope ordering.Scope,
	status domain.TaskStatus,
) (ordering.Column, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []ordering.Entry
	for _, t := range s.tasks {
		if !t.Active || t.Status != status {
			continue
		}
		switch scope.Kind {
		case ordering.ScopeWorkspace:
			if t.WorkspaceID != scope.ID {
				continue
			}
		case ordering.ScopeProject:
			if t.ProjectID != scope.ID {
				continue
			}
		default:
			return ordering.Column{}, fmt.Errorf("unknown column scope %q", scope.Kind)
		}
		entries = append(entries, ordering.Entry{TaskID: t.ID, Position: t.Position})
	}
	return ordering.NewColumn(scope, status, entries), nil
}

// RewritePositions implements store.TaskStore. Either every entry is
// applied or none is.
func (s *TaskStore) RewritePositions(ctx context.Context, entries []ordering.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		if t, ok := s.tasks[e.TaskID]; !ok || !t.Active {
			return store.ErrTaskNotFound
		}
	}
	now := s.now()
	for _, e := range entries {
		t := s.tasks[e.TaskID]
		t.Position = e.Position
		t.Version++
		t.UpdatedAt = now
		s.tasks[e.TaskID] = t
	}
	return nil
}

// WithColumnLock implements store.TaskStore.
func (s *TaskStore) WithColumnLock(
	ctx context.Context,
	workspaceID uuid.UUID,
	status domain.TaskStatus,
	fn store.ColumnFn,
) error {
	unlock, err := s.locks.lock(ctx, columnKey(workspaceID, status))
	if err != nil {
		return err
	}
	defer unlock()
	return fn(ctx, s)
}

// Len returns the number of stored tasks, including deleted ones.
func (s *TaskStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

func columnKey(workspaceID uuid.UUID, status domain.TaskStatus) string {
	return workspaceID.String() + "/" + string(status)
}
