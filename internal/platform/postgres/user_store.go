package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/phrazzld/taskboard-api/internal/domain"
	"github.com/phrazzld/taskboard-api/internal/store"
)

// PostgresUserStore resolves users for event attribution.
type PostgresUserStore struct {
	db store.DBTX
}

var _ store.UserDirectory = (*PostgresUserStore)(nil)

// NewPostgresUserStore creates a user directory backed by db.
func NewPostgresUserStore(db store.DBTX) *PostgresUserStore {
	if db == nil {
		panic("db cannot be nil")
	}
	return &PostgresUserStore{db: db}
}

// GetUser implements store.UserDirectory.
func (s *PostgresUserStore) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var u domain.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, name FROM users WHERE id = $1`, id).Scan(&u.ID, &u.Email, &u.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrUserNotFound
	}
	if err != nil {
		return nil, store.NewStoreError("user", "get", "query failed", MapError(err))
	}
	return &u, nil
}
