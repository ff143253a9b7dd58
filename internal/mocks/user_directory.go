package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/taskboard-api/internal/domain"
	"github.com/phrazzld/taskboard-api/internal/store"
)

// MockUserDirectory implements store.UserDirectory for testing.
type MockUserDirectory struct {
	GetUserFn func(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// Users is consulted when GetUserFn is nil.
	Users map[uuid.UUID]*domain.User
}

var _ store.UserDirectory = (*MockUserDirectory)(nil)

// GetUser implements store.UserDirectory.
func (m *MockUserDirectory) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if m.GetUserFn != nil {
		return m.GetUserFn(ctx, id)
	}
	if u, ok := m.Users[id]; ok {
		return u, nil
	}
	return nil, store.ErrUserNotFound
}
