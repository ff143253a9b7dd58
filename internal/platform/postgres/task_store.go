package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskboard-api/internal/domain"
	"github.com/phrazzld/taskboard-api/internal/ordering"
	"github.com/phrazzld/taskboard-api/internal/platform/logger"
	"github.com/phrazzld/taskboard-api/internal/store"
)

const taskColumns = `id, workspace_id, project_id, name, description, assignee_id, status,
	position, is_active, version, created_by, due_at, created_at, updated_at`

// PostgresTaskStore implements store.TaskStore on PostgreSQL.
//
// A store created with NewPostgresTaskStore owns a *sql.DB and opens its own
// transactions. The store handed to a ColumnFn is bound to the transaction
// holding the column lock.
type PostgresTaskStore struct {
	db     *sql.DB
	q      store.DBTX
	tx     *sql.Tx
	logger *slog.Logger
	now    func() time.Time
}

var _ store.TaskStore = (*PostgresTaskStore)(nil)

// NewPostgresTaskStore creates a task store backed by db.
func NewPostgresTaskStore(db *sql.DB, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTaskStore{
		db:     db,
		q:      db,
		logger: logger.With(slog.String("component", "task_store")),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithTx returns a store that runs every statement on tx.
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) *PostgresTaskStore {
	return &PostgresTaskStore{db: s.db, q: tx, tx: tx, logger: s.logger, now: s.now}
}

func (s *PostgresTaskStore) log(ctx context.Context) *slog.Logger {
	return logger.FromContextOrDefault(ctx, s.logger)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		t        domain.Task
		project  uuid.NullUUID
		assignee uuid.NullUUID
		status   string
		dueAt    sql.NullTime
	)
	err := row.Scan(&t.ID, &t.WorkspaceID, &project, &t.Name, &t.Description, &assignee, &status,
		&t.Position, &t.Active, &t.Version, &t.CreatedBy, &dueAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Status = domain.TaskStatus(status)
	if project.Valid {
		t.ProjectID = project.UUID
	}
	if assignee.Valid {
		t.AssigneeID = assignee.UUID
	}
	if dueAt.Valid {
		due := dueAt.Time.UTC()
		t.DueAt = &due
	}
	return &t, nil
}

func nullUUID(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: id != uuid.Nil}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// Create implements store.TaskStore.
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	if err := task.Validate(); err != nil {
		return store.NewStoreError("task", "create", "validation failed",
			fmt.Errorf("%w: %v", store.ErrInvalidEntity, err))
	}
	if task.Version == 0 {
		task.Version = 1
	}
	task.Active = true

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		task.ID, task.WorkspaceID, nullUUID(task.ProjectID), task.Name, task.Description,
		nullUUID(task.AssigneeID), string(task.Status), task.Position, task.Active, task.Version,
		task.CreatedBy, nullTime(task.DueAt), task.CreatedAt, task.UpdatedAt)
	if err != nil {
		s.log(ctx).Error("failed to create task",
			slog.String("task_id", task.ID.String()),
			slog.String("error", err.Error()))
		return store.NewStoreError("task", "create", "insert failed", MapError(err))
	}
	return nil
}

// GetByID implements store.TaskStore.
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND is_active`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrTaskNotFound
	}
	if err != nil {
		return nil, store.NewStoreError("task", "get", "query failed", MapError(err))
	}
	return task, nil
}

// versionMiss explains why a versioned write matched no row.
func (s *PostgresTaskStore) versionMiss(ctx context.Context, id uuid.UUID, expected int64) error {
	var (
		version int64
		active  bool
	)
	err := s.q.QueryRowContext(ctx,
		`SELECT version, is_active FROM tasks WHERE id = $1`, id).Scan(&version, &active)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !active) {
		return store.ErrTaskNotFound
	}
	if err != nil {
		return store.NewStoreError("task", "check_version", "query failed", MapError(err))
	}
	return fmt.Errorf("%w: task %s at version %d, expected %d",
		store.ErrVersionConflict, id, version, expected)
}

// Update implements store.TaskStore.
func (s *PostgresTaskStore) Update(ctx context.Context, task *domain.Task) error {
	if err := task.Validate(); err != nil {
		return store.NewStoreError("task", "update", "validation failed",
			fmt.Errorf("%w: %v", store.ErrInvalidEntity, err))
	}

	err := s.q.QueryRowContext(ctx, `
		UPDATE tasks
		SET name = $1, description = $2, assignee_id = $3, due_at = $4,
			status = $5, position = $6, project_id = $7,
			version = version + 1, updated_at = $8
		WHERE id = $9 AND version = $10 AND is_active
		RETURNING version, updated_at`,
		task.Name, task.Description, nullUUID(task.AssigneeID), nullTime(task.DueAt),
		string(task.Status), task.Position, nullUUID(task.ProjectID), s.now(),
		task.ID, task.Version,
	).Scan(&task.Version, &task.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return s.versionMiss(ctx, task.ID, task.Version)
	}
	if err != nil {
		return store.NewStoreError("task", "update", "update failed", MapError(err))
	}
	return nil
}

// PersistMove implements store.TaskStore.
func (s *PostgresTaskStore) PersistMove(
	ctx context.Context,
	id uuid.UUID,
	status domain.TaskStatus,
	position float64,
	expectedVersion int64,
) (*domain.Task, error) {
	row := s.q.QueryRowContext(ctx, `
		UPDATE tasks
		SET status = $1, position = $2, version = version + 1, updated_at = $3
		WHERE id = $4 AND version = $5 AND is_active
		RETURNING `+taskColumns,
		string(status), position, s.now(), id, expectedVersion)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, s.versionMiss(ctx, id, expectedVersion)
	}
	if err != nil {
		return nil, store.NewStoreError("task", "move", "update failed", MapError(err))
	}
	return task, nil
}

// SoftDelete implements store.TaskStore.
func (s *PostgresTaskStore) SoftDelete(ctx context.Context, id uuid.UUID, expectedVersion int64) error {
	result, err := s.q.ExecContext(ctx, `
		UPDATE tasks
		SET is_active = FALSE, version = version + 1, updated_at = $1
		WHERE id = $2 AND version = $3 AND is_active`,
		s.now(), id, expectedVersion)
	if err != nil {
		return store.NewStoreError("task", "delete", "update failed", MapError(err))
	}
	if err := CheckRowsAffected(result, store.ErrNotFound); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return s.versionMiss(ctx, id, expectedVersion)
		}
		return err
	}
	return nil
}

// LoadColumn implements store.TaskStore.
func (s *PostgresTaskStore) LoadColumn(
	ctx context.Context,
	scope ordering.Scope,
	status domain.TaskStatus,
) (ordering.Column, error) {
	var query string
	switch scope.Kind {
	case ordering.ScopeWorkspace:
		query = `SELECT id, position FROM tasks
			WHERE workspace_id = $1 AND status = $2 AND is_active
			ORDER BY position, id`
	case ordering.ScopeProject:
		query = `SELECT id, position FROM tasks
			WHERE project_id = $1 AND status = $2 AND is_active
			ORDER BY position, id`
	default:
		return ordering.Column{}, fmt.Errorf("unknown column scope %q", scope.Kind)
	}

	rows, err := s.q.QueryContext(ctx, query, scope.ID, string(status))
	if err != nil {
		return ordering.Column{}, store.NewStoreError("column", "load", "query failed", MapError(err))
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.log(ctx).Warn("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var entries []ordering.Entry
	for rows.Next() {
		var e ordering.Entry
		if err := rows.Scan(&e.TaskID, &e.Position); err != nil {
			return ordering.Column{}, store.NewStoreError("column", "load", "scan failed", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return ordering.Column{}, store.NewStoreError("column", "load", "iteration failed", MapError(err))
	}
	return ordering.NewColumn(scope, status, entries), nil
}

// RewritePositions implements store.TaskStore. Outside a column lock it
// opens its own transaction so the rewrite is all or nothing.
func (s *PostgresTaskStore) RewritePositions(ctx context.Context, entries []ordering.Entry) error {
	if s.tx == nil {
		return store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
			return s.WithTx(tx).RewritePositions(ctx, entries)
		})
	}

	now := s.now()
	for _, e := range entries {
		result, err := s.q.ExecContext(ctx, `
			UPDATE tasks SET position = $1, version = version + 1, updated_at = $2
			WHERE id = $3 AND is_active`,
			e.Position, now, e.TaskID)
		if err != nil {
			return store.NewStoreError("column", "rebalance", "update failed", MapError(err))
		}
		if err := CheckRowsAffected(result, store.ErrTaskNotFound); err != nil {
			return err
		}
	}
	return nil
}

// WithColumnLock implements store.TaskStore. The lock is a transaction
// scoped advisory lock keyed on the column, so it is shared by every
// process using the database and released on commit or rollback.
func (s *PostgresTaskStore) WithColumnLock(
	ctx context.Context,
	workspaceID uuid.UUID,
	status domain.TaskStatus,
	fn store.ColumnFn,
) error {
	key := workspaceID.String() + "/" + string(status)
	lock := func(ctx context.Context, tasks *PostgresTaskStore) error {
		if _, err := tasks.q.ExecContext(ctx,
			`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key); err != nil {
			return store.NewStoreError("column", "lock", "advisory lock failed", MapError(err))
		}
		return fn(ctx, tasks)
	}

	if s.tx != nil {
		return lock(ctx, s)
	}
	return store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return lock(ctx, s.WithTx(tx))
	})
}
