package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskboard-api/internal/access"
	"github.com/phrazzld/taskboard-api/internal/broadcast"
	"github.com/phrazzld/taskboard-api/internal/config"
	"github.com/phrazzld/taskboard-api/internal/domain"
	"github.com/phrazzld/taskboard-api/internal/events"
	"github.com/phrazzld/taskboard-api/internal/ordering"
	"github.com/phrazzld/taskboard-api/internal/platform/logger"
	"github.com/phrazzld/taskboard-api/internal/store"
	"github.com/sethvargo/go-retry"
)

// Config tunes allocation and retries.
type Config struct {
	// MaxAttempts bounds how often a write is tried when it loses a
	// version race.
	MaxAttempts int
	// RetryBackoff is the pause between attempts.
	RetryBackoff time.Duration
	// CollisionEpsilon is the smallest gap an allocation may leave to a
	// neighbor before the column is rebalanced.
	CollisionEpsilon float64
}

// DefaultConfig returns the settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:      3,
		RetryBackoff:     10 * time.Millisecond,
		CollisionEpsilon: ordering.DefaultEpsilon,
	}
}

// ConfigFromOrdering converts the ordering section of the application config.
func ConfigFromOrdering(cfg config.OrderingConfig) Config {
	out := DefaultConfig()
	if cfg.MaxMoveAttempts > 0 {
		out.MaxAttempts = cfg.MaxMoveAttempts
	}
	if cfg.CollisionEpsilon > 0 {
		out.CollisionEpsilon = cfg.CollisionEpsilon
	}
	return out
}

// Service implements the board operations.
type Service struct {
	tasks     store.TaskStore
	users     store.UserDirectory
	access    access.Checker
	publisher broadcast.Publisher
	locks     *columnLocks
	cfg       Config
	logger    *slog.Logger
}

// NewService creates a board service. It returns an error if any required
// dependency is nil.
func NewService(
	tasks store.TaskStore,
	users store.UserDirectory,
	checker access.Checker,
	publisher broadcast.Publisher,
	cfg Config,
	logger *slog.Logger,
) (*Service, error) {
	switch {
	case tasks == nil:
		return nil, fmt.Errorf("%w: task store cannot be nil", domain.ErrValidation)
	case users == nil:
		return nil, fmt.Errorf("%w: user directory cannot be nil", domain.ErrValidation)
	case checker == nil:
		return nil, fmt.Errorf("%w: access checker cannot be nil", domain.ErrValidation)
	case publisher == nil:
		return nil, fmt.Errorf("%w: publisher cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}

	def := DefaultConfig()
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = def.RetryBackoff
	}
	if cfg.CollisionEpsilon <= 0 {
		cfg.CollisionEpsilon = def.CollisionEpsilon
	}

	return &Service{
		tasks:     tasks,
		users:     users,
		access:    checker,
		publisher: publisher,
		locks:     newColumnLocks(),
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "board_service")),
	}, nil
}

func (s *Service) log(ctx context.Context) *slog.Logger {
	return logger.FromContextOrDefault(ctx, s.logger)
}

func (s *Service) getTask(ctx context.Context, op string, taskID uuid.UUID) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, NewServiceError(op, "task not found", ErrTaskNotFound)
		}
		return nil, NewServiceError(op, "failed to load task", err)
	}
	return task, nil
}

func (s *Service) checkWorkspace(ctx context.Context, op string, actorID, workspaceID uuid.UUID) error {
	if err := s.access.CheckWorkspace(ctx, actorID, workspaceID); err != nil {
		return NewServiceError(op, "actor may not change this workspace", accessError(err))
	}
	return nil
}

// loadTask fetches an active task and checks the actor may change its
// workspace.
func (s *Service) loadTask(ctx context.Context, op string, actorID, taskID uuid.UUID) (*domain.Task, error) {
	task, err := s.getTask(ctx, op, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.checkWorkspace(ctx, op, actorID, task.WorkspaceID); err != nil {
		return nil, err
	}
	return task, nil
}

// accessError makes sure a refusal from the checker matches ErrAccessDenied
// while other failures pass through.
func accessError(err error) error {
	if errors.Is(err, ErrAccessDenied) {
		return err
	}
	return fmt.Errorf("access check failed: %w", err)
}

// withColumn runs fn holding the in-process lock and the store lock for
// the (workspace, status) column.
func (s *Service) withColumn(
	ctx context.Context,
	workspaceID uuid.UUID,
	status domain.TaskStatus,
	fn store.ColumnFn,
) error {
	unlock := s.locks.lock(workspaceID.String() + "/" + string(status))
	defer unlock()
	return s.tasks.WithColumnLock(ctx, workspaceID, status, fn)
}

// withRetry runs fn until it succeeds, fails with anything but a version
// conflict, or uses up MaxAttempts. Running out of attempts yields
// ErrPersistenceConflict.
func (s *Service) withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(uint64(s.cfg.MaxAttempts-1), retry.NewConstant(s.cfg.RetryBackoff))

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if errors.Is(err, store.ErrVersionConflict) {
			s.log(ctx).Debug("version conflict, retrying",
				slog.String("operation", op),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
			return retry.RetryableError(err)
		}
		return err
	})
	if errors.Is(err, store.ErrVersionConflict) {
		s.log(ctx).Warn("giving up after repeated version conflicts",
			slog.String("operation", op),
			slog.Int("attempts", attempt))
		return fmt.Errorf("%w: gave up after %d attempts: %v", ErrPersistenceConflict, attempt, err)
	}
	return err
}

// place allocates a position for a task entering the column at target.
// col must contain every task currently in the column, including the one
// being placed if it is already there. An allocation that comes too close
// to a neighbor triggers a rebalance of the column followed by a second
// allocation against the rewritten positions. rebalanced reports whether
// that happened, in which case every task in col has a new version.
func (s *Service) place(
	ctx context.Context,
	tasks store.TaskStore,
	col ordering.Column,
	taskID uuid.UUID,
	target ordering.Target,
) (position float64, rebalanced bool, err error) {
	others := col.Without(taskID)
	alloc := ordering.Allocate(others, target)

	if alloc.Explicit {
		if !domain.ValidPosition(alloc.Position) {
			return 0, false, fmt.Errorf("%w: position must be a finite number", ErrInvalidTarget)
		}
		if others.Occupied(alloc.Position) {
			return 0, false, fmt.Errorf("%w: position %v is already taken", ErrInvalidTarget, alloc.Position)
		}
		return alloc.Position, false, nil
	}
	if !ordering.Collides(alloc, s.cfg.CollisionEpsilon) {
		return alloc.Position, false, nil
	}

	s.log(ctx).Info("position collision, rebalancing column",
		slog.String("scope", col.Scope.String()),
		slog.String("status", string(col.Status)),
		slog.Int("tasks", col.Len()))

	if err := s.rewrite(ctx, tasks, col); err != nil {
		return 0, false, err
	}
	reloaded, err := tasks.LoadColumn(ctx, col.Scope, col.Status)
	if err != nil {
		return 0, true, err
	}
	return ordering.Allocate(reloaded.Without(taskID), target).Position, true, nil
}

// rewrite stores the rebalanced positions of col.
func (s *Service) rewrite(ctx context.Context, tasks store.TaskStore, col ordering.Column) error {
	changed := ordering.Changed(col, ordering.Rebalance(col))
	if len(changed) == 0 {
		return nil
	}
	if err := tasks.RewritePositions(ctx, changed); err != nil {
		return fmt.Errorf("failed to rebalance column: %w", err)
	}
	return nil
}

// actor resolves the display name credited in events. Lookup failures
// fall back to the unknown user name and are not errors.
func (s *Service) actor(ctx context.Context, userID uuid.UUID) events.Actor {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		s.log(ctx).Debug("actor lookup failed",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()))
		return events.Actor{ID: userID, Name: domain.UnknownUserName}
	}
	return events.Actor{ID: userID, Name: user.DisplayName()}
}

// publish fans an event out to the task topics of its workspace and
// project. kanban adds the column-layout topic for changes that move a
// task between or within columns.
func (s *Service) publish(ctx context.Context, task *domain.Task, ev events.UpdateEvent, kanban bool) {
	s.publisher.Publish(ctx, events.WorkspaceTasks(task.WorkspaceID), ev)
	if task.HasProject() {
		s.publisher.Publish(ctx, events.ProjectTasks(task.ProjectID), ev)
	}
	if kanban {
		s.publisher.Publish(ctx, events.WorkspaceKanban(task.WorkspaceID), ev)
	}
	s.publisher.Publish(ctx, events.WorkspaceActivity(task.WorkspaceID), ev)
}
