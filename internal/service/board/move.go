package board

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/taskboard-api/internal/domain"
	"github.com/phrazzld/taskboard-api/internal/events"
	"github.com/phrazzld/taskboard-api/internal/ordering"
	"github.com/phrazzld/taskboard-api/internal/store"
)

// MoveCommand asks for a task to be placed in a column. At most one of
// TargetPosition and TargetIndex is expected; if both are set the position
// wins. With neither the task is appended.
type MoveCommand struct {
	TaskID         uuid.UUID
	TargetStatus   domain.TaskStatus
	TargetPosition *float64
	TargetIndex    *int
}

func (c MoveCommand) target() ordering.Target {
	return ordering.Target{Position: c.TargetPosition, Index: c.TargetIndex}
}

// Move places a task in the target column and returns the persisted task.
//
// The task, the target and the actor's access are all checked before
// anything is written. The write happens under the destination column's
// lock, against a fresh read of the column with the moving task excluded,
// and is retried on a version conflict. The task_moved event is published
// after the write is durable; delivery problems never fail the move.
func (s *Service) Move(ctx context.Context, actorID uuid.UUID, cmd MoveCommand) (*domain.Task, error) {
	const op = "move"
	log := s.log(ctx).With(
		slog.String("task_id", cmd.TaskID.String()),
		slog.String("target_status", string(cmd.TargetStatus)))

	task, err := s.getTask(ctx, op, cmd.TaskID)
	if err != nil {
		return nil, err
	}
	if !cmd.TargetStatus.Valid() {
		return nil, NewServiceError(op, "unknown target status",
			fmt.Errorf("%w: %q", ErrInvalidTarget, cmd.TargetStatus))
	}
	if cmd.TargetPosition != nil && !domain.ValidPosition(*cmd.TargetPosition) {
		return nil, NewServiceError(op, "unusable target position",
			fmt.Errorf("%w: position must be a finite number", ErrInvalidTarget))
	}
	if err := s.checkWorkspace(ctx, op, actorID, task.WorkspaceID); err != nil {
		return nil, err
	}

	var (
		moved     *domain.Task
		oldStatus domain.TaskStatus
		oldPos    float64
	)
	err = s.withRetry(ctx, op, func(ctx context.Context) error {
		return s.withColumn(ctx, task.WorkspaceID, cmd.TargetStatus,
			func(ctx context.Context, tasks store.TaskStore) error {
				current, err := tasks.GetByID(ctx, cmd.TaskID)
				if err != nil {
					return err
				}
				col, err := tasks.LoadColumn(ctx, ordering.WorkspaceScope(current.WorkspaceID), cmd.TargetStatus)
				if err != nil {
					return err
				}

				pos, rebalanced, err := s.place(ctx, tasks, col, current.ID, cmd.target())
				if err != nil {
					return err
				}
				if rebalanced && col.IndexOf(current.ID) >= 0 {
					// The rebalance rewrote this task too.
					if current, err = tasks.GetByID(ctx, cmd.TaskID); err != nil {
						return err
					}
				}

				oldStatus, oldPos = current.Status, current.Position
				moved, err = tasks.PersistMove(ctx, current.ID, cmd.TargetStatus, pos, current.Version)
				return err
			})
	})
	if err != nil {
		log.Warn("move failed", slog.String("error", err.Error()))
		if store.IsNotFoundError(err) {
			return nil, NewServiceError(op, "task not found", ErrTaskNotFound)
		}
		return nil, NewServiceError(op, "failed to persist move", err)
	}

	log.Info("task moved",
		slog.String("from_status", string(oldStatus)),
		slog.Float64("from_position", oldPos),
		slog.Float64("position", moved.Position),
		slog.Int64("version", moved.Version))

	s.publish(ctx, moved, events.NewTaskMoved(moved, s.actor(ctx, actorID), oldStatus, oldPos), true)
	return moved, nil
}
