package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskboard-api/internal/domain"
	"github.com/phrazzld/taskboard-api/internal/events"
	"github.com/phrazzld/taskboard-api/internal/ordering"
	"github.com/phrazzld/taskboard-api/internal/store"
)

// CreateTaskInput describes a new task. An empty Status means the default
// column; Position and Index follow the same rules as MoveCommand.
type CreateTaskInput struct {
	WorkspaceID uuid.UUID
	ProjectID   uuid.UUID
	Name        string
	Description string
	Status      domain.TaskStatus
	AssigneeID  uuid.UUID
	DueAt       *time.Time
	Position    *float64
	Index       *int
}

// UpdateTaskInput carries the fields of an edit. Nil fields are left as
// they are. ClearDueAt removes the due date.
type UpdateTaskInput struct {
	Name        *string
	Description *string
	DueAt       *time.Time
	ClearDueAt  bool
	Status      *domain.TaskStatus
}

// Get returns an active task the actor can see.
func (s *Service) Get(ctx context.Context, actorID, taskID uuid.UUID) (*domain.Task, error) {
	return s.loadTask(ctx, "get", actorID, taskID)
}

// Create adds a task to a workspace column and publishes task_created.
func (s *Service) Create(ctx context.Context, actorID uuid.UUID, in CreateTaskInput) (*domain.Task, error) {
	const op = "create"

	status := in.Status
	if status == "" {
		status = domain.DefaultStatus
	}
	if !status.Valid() {
		return nil, NewServiceError(op, "unknown status", fmt.Errorf("%w: %q", ErrInvalidInput, status))
	}
	if in.Position != nil && !domain.ValidPosition(*in.Position) {
		return nil, NewServiceError(op, "unusable position",
			fmt.Errorf("%w: position must be a finite number", ErrInvalidTarget))
	}

	task, err := domain.NewTask(in.WorkspaceID, actorID, in.Name, status, ordering.Spacing)
	if err != nil {
		return nil, NewServiceError(op, "invalid task", fmt.Errorf("%w: %v", ErrInvalidInput, err))
	}
	task.ProjectID = in.ProjectID
	task.Description = strings.TrimSpace(in.Description)
	task.AssigneeID = in.AssigneeID
	task.DueAt = in.DueAt

	if err := s.checkWorkspace(ctx, op, actorID, in.WorkspaceID); err != nil {
		return nil, err
	}
	if task.HasProject() {
		if err := s.access.CheckProject(ctx, actorID, task.ProjectID); err != nil {
			return nil, NewServiceError(op, "actor may not change this project", accessError(err))
		}
	}
	if task.HasAssignee() {
		if err := s.checkAssignee(ctx, task.WorkspaceID, task.AssigneeID); err != nil {
			return nil, NewServiceError(op, "invalid assignee", err)
		}
	}

	target := ordering.Target{Position: in.Position, Index: in.Index}
	err = s.withRetry(ctx, op, func(ctx context.Context) error {
		return s.withColumn(ctx, task.WorkspaceID, status,
			func(ctx context.Context, tasks store.TaskStore) error {
				col, err := tasks.LoadColumn(ctx, ordering.WorkspaceScope(task.WorkspaceID), status)
				if err != nil {
					return err
				}
				pos, _, err := s.place(ctx, tasks, col, task.ID, target)
				if err != nil {
					return err
				}
				task.Position = pos
				return tasks.Create(ctx, task)
			})
	})
	if err != nil {
		if errors.Is(err, store.ErrInvalidEntity) {
			return nil, NewServiceError(op, "invalid task", fmt.Errorf("%w: %v", ErrInvalidInput, err))
		}
		return nil, NewServiceError(op, "failed to create task", err)
	}

	s.log(ctx).Info("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("workspace_id", task.WorkspaceID.String()),
		slog.String("status", string(task.Status)),
		slog.Float64("position", task.Position))

	s.publish(ctx, task, events.NewTaskCreated(task, s.actor(ctx, actorID)), true)
	return task, nil
}

// Update edits a task. A status change appends the task to the new
// column and publishes task_status_changed; any other edit publishes
// task_updated.
func (s *Service) Update(
	ctx context.Context,
	actorID, taskID uuid.UUID,
	in UpdateTaskInput,
) (*domain.Task, error) {
	const op = "update"

	task, err := s.loadTask(ctx, op, actorID, taskID)
	if err != nil {
		return nil, err
	}
	if in.Status != nil && !in.Status.Valid() {
		return nil, NewServiceError(op, "unknown status", fmt.Errorf("%w: %q", ErrInvalidInput, *in.Status))
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return nil, NewServiceError(op, "invalid name", fmt.Errorf("%w: %v", ErrInvalidInput, domain.ErrEmptyTaskName))
	}

	if in.Status != nil && *in.Status != task.Status {
		return s.changeStatus(ctx, actorID, task, in)
	}

	var updated *domain.Task
	err = s.withRetry(ctx, op, func(ctx context.Context) error {
		current, err := s.tasks.GetByID(ctx, taskID)
		if err != nil {
			return err
		}
		applyEdits(current, in)
		if err := s.tasks.Update(ctx, current); err != nil {
			return err
		}
		updated = current
		return nil
	})
	if err != nil {
		return nil, s.writeError(op, err)
	}

	s.publish(ctx, updated, events.NewTaskUpdated(updated, s.actor(ctx, actorID)), false)
	return updated, nil
}

func (s *Service) changeStatus(
	ctx context.Context,
	actorID uuid.UUID,
	task *domain.Task,
	in UpdateTaskInput,
) (*domain.Task, error) {
	const op = "update"
	status := *in.Status

	var (
		updated   *domain.Task
		oldStatus domain.TaskStatus
		oldPos    float64
	)
	err := s.withRetry(ctx, op, func(ctx context.Context) error {
		return s.withColumn(ctx, task.WorkspaceID, status,
			func(ctx context.Context, tasks store.TaskStore) error {
				current, err := tasks.GetByID(ctx, task.ID)
				if err != nil {
					return err
				}
				col, err := tasks.LoadColumn(ctx, ordering.WorkspaceScope(current.WorkspaceID), status)
				if err != nil {
					return err
				}
				pos, rebalanced, err := s.place(ctx, tasks, col, current.ID, ordering.Target{})
				if err != nil {
					return err
				}
				if rebalanced && col.IndexOf(current.ID) >= 0 {
					if current, err = tasks.GetByID(ctx, task.ID); err != nil {
						return err
					}
				}

				oldStatus, oldPos = current.Status, current.Position
				applyEdits(current, in)
				current.Status = status
				current.Position = pos
				if err := tasks.Update(ctx, current); err != nil {
					return err
				}
				updated = current
				return nil
			})
	})
	if err != nil {
		return nil, s.writeError(op, err)
	}

	s.log(ctx).Info("task status changed",
		slog.String("task_id", updated.ID.String()),
		slog.String("from_status", string(oldStatus)),
		slog.String("status", string(updated.Status)))

	ev := events.NewTaskStatusChanged(updated, s.actor(ctx, actorID), oldStatus, oldPos)
	s.publish(ctx, updated, ev, true)
	return updated, nil
}

func applyEdits(task *domain.Task, in UpdateTaskInput) {
	if in.Name != nil {
		task.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		task.Description = strings.TrimSpace(*in.Description)
	}
	if in.ClearDueAt {
		task.DueAt = nil
	} else if in.DueAt != nil {
		due := in.DueAt.UTC()
		task.DueAt = &due
	}
}

// Assign sets or clears a task's assignee. Assigning publishes
// task_assigned; clearing publishes task_updated.
func (s *Service) Assign(ctx context.Context, actorID, taskID, assigneeID uuid.UUID) (*domain.Task, error) {
	const op = "assign"

	task, err := s.loadTask(ctx, op, actorID, taskID)
	if err != nil {
		return nil, err
	}
	var assignee events.Actor
	if assigneeID != uuid.Nil {
		if err := s.checkAssignee(ctx, task.WorkspaceID, assigneeID); err != nil {
			return nil, NewServiceError(op, "invalid assignee", err)
		}
		assignee = s.actor(ctx, assigneeID)
	}

	var updated *domain.Task
	err = s.withRetry(ctx, op, func(ctx context.Context) error {
		current, err := s.tasks.GetByID(ctx, taskID)
		if err != nil {
			return err
		}
		current.AssigneeID = assigneeID
		if err := s.tasks.Update(ctx, current); err != nil {
			return err
		}
		updated = current
		return nil
	})
	if err != nil {
		return nil, s.writeError(op, err)
	}

	actor := s.actor(ctx, actorID)
	if assigneeID == uuid.Nil {
		s.publish(ctx, updated, events.NewTaskUpdated(updated, actor), false)
	} else {
		s.publish(ctx, updated, events.NewTaskAssigned(updated, actor, assignee), false)
	}
	return updated, nil
}

// checkAssignee requires the assignee to exist and belong to the workspace.
func (s *Service) checkAssignee(ctx context.Context, workspaceID, assigneeID uuid.UUID) error {
	if _, err := s.users.GetUser(ctx, assigneeID); err != nil {
		if store.IsNotFoundError(err) {
			return fmt.Errorf("%w: assignee %s does not exist", ErrInvalidInput, assigneeID)
		}
		return err
	}
	if err := s.access.CheckWorkspace(ctx, assigneeID, workspaceID); err != nil {
		if errors.Is(err, ErrAccessDenied) {
			return fmt.Errorf("%w: assignee %s is not a workspace member", ErrInvalidInput, assigneeID)
		}
		return err
	}
	return nil
}

// Delete soft-deletes a task and publishes task_deleted.
func (s *Service) Delete(ctx context.Context, actorID, taskID uuid.UUID) error {
	const op = "delete"

	if _, err := s.loadTask(ctx, op, actorID, taskID); err != nil {
		return err
	}

	var deleted *domain.Task
	err := s.withRetry(ctx, op, func(ctx context.Context) error {
		current, err := s.tasks.GetByID(ctx, taskID)
		if err != nil {
			return err
		}
		if err := s.tasks.SoftDelete(ctx, current.ID, current.Version); err != nil {
			return err
		}
		deleted = current
		return nil
	})
	if err != nil {
		return s.writeError(op, err)
	}

	s.log(ctx).Info("task deleted", slog.String("task_id", taskID.String()))
	s.publish(ctx, deleted, events.NewTaskDeleted(deleted, s.actor(ctx, actorID)), true)
	return nil
}

// Column returns the ordered workspace column.
func (s *Service) Column(
	ctx context.Context,
	actorID, workspaceID uuid.UUID,
	status domain.TaskStatus,
) (ordering.Column, error) {
	const op = "column"
	if !status.Valid() {
		return ordering.Column{}, NewServiceError(op, "unknown status", fmt.Errorf("%w: %q", ErrInvalidInput, status))
	}
	if err := s.access.CheckWorkspace(ctx, actorID, workspaceID); err != nil {
		return ordering.Column{}, NewServiceError(op, "actor may not view this workspace", accessError(err))
	}
	col, err := s.tasks.LoadColumn(ctx, ordering.WorkspaceScope(workspaceID), status)
	if err != nil {
		return ordering.Column{}, NewServiceError(op, "failed to load column", err)
	}
	return col, nil
}

// ProjectColumn returns the ordered project column.
func (s *Service) ProjectColumn(
	ctx context.Context,
	actorID, projectID uuid.UUID,
	status domain.TaskStatus,
) (ordering.Column, error) {
	const op = "project_column"
	if !status.Valid() {
		return ordering.Column{}, NewServiceError(op, "unknown status", fmt.Errorf("%w: %q", ErrInvalidInput, status))
	}
	if err := s.access.CheckProject(ctx, actorID, projectID); err != nil {
		return ordering.Column{}, NewServiceError(op, "actor may not view this project", accessError(err))
	}
	col, err := s.tasks.LoadColumn(ctx, ordering.ProjectScope(projectID), status)
	if err != nil {
		return ordering.Column{}, NewServiceError(op, "failed to load column", err)
	}
	return col, nil
}

// Rebalance respaces a workspace column to Spacing intervals, keeping its
// order, and returns the rewritten column.
func (s *Service) Rebalance(
	ctx context.Context,
	actorID, workspaceID uuid.UUID,
	status domain.TaskStatus,
) (ordering.Column, error) {
	const op = "rebalance"
	if !status.Valid() {
		return ordering.Column{}, NewServiceError(op, "unknown status", fmt.Errorf("%w: %q", ErrInvalidInput, status))
	}
	if err := s.checkWorkspace(ctx, op, actorID, workspaceID); err != nil {
		return ordering.Column{}, err
	}

	var balanced ordering.Column
	err := s.withColumn(ctx, workspaceID, status, func(ctx context.Context, tasks store.TaskStore) error {
		col, err := tasks.LoadColumn(ctx, ordering.WorkspaceScope(workspaceID), status)
		if err != nil {
			return err
		}
		if err := s.rewrite(ctx, tasks, col); err != nil {
			return err
		}
		balanced = ordering.Rebalance(col)
		return nil
	})
	if err != nil {
		return ordering.Column{}, NewServiceError(op, "failed to rebalance column", err)
	}

	s.log(ctx).Info("column rebalanced",
		slog.String("workspace_id", workspaceID.String()),
		slog.String("status", string(status)),
		slog.Int("tasks", balanced.Len()))
	return balanced, nil
}

func (s *Service) writeError(op string, err error) error {
	switch {
	case store.IsNotFoundError(err):
		return NewServiceError(op, "task not found", ErrTaskNotFound)
	case errors.Is(err, store.ErrInvalidEntity):
		return NewServiceError(op, "invalid task", fmt.Errorf("%w: %v", ErrInvalidInput, err))
	default:
		return NewServiceError(op, "failed to persist change", err)
	}
}
