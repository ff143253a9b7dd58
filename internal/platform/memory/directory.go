package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/taskboard-api/internal/access"
	"github.com/phrazzld/taskboard-api/internal/domain"
	"github.com/phrazzld/taskboard-api/internal/store"
)

// Directory holds users, workspace memberships and project ownership. It
// serves as both a store.UserDirectory and an access.Checker.
type Directory struct {
	mu       sync.RWMutex
	users    map[uuid.UUID]domain.User
	members  map[uuid.UUID]map[uuid.UUID]bool
	projects map[uuid.UUID]uuid.UUID
}

var (
	_ store.UserDirectory = (*Directory)(nil)
	_ access.Checker      = (*Directory)(nil)
)

// NewDirectory creates an empty Directory.
func NewDirectory() *Directory {
	return &Directory{
		users:    make(map[uuid.UUID]domain.User),
		members:  make(map[uuid.UUID]map[uuid.UUID]bool),
		projects: make(map[uuid.UUID]uuid.UUID),
	}
}

// AddUser registers or replaces a user.
func (d *Directory) AddUser(u domain.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.ID] = u
}

// AddMember grants a user access to a workspace.
func (d *Directory) AddMember(workspaceID, userID uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.members[workspaceID] == nil {
		d.members[workspaceID] = make(map[uuid.UUID]bool)
	}
	d.members[workspaceID][userID] = true
}

// AddProject records that a project belongs to a workspace.
func (d *Directory) AddProject(projectID, workspaceID uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.projects[projectID] = workspaceID
}

// GetUser implements store.UserDirectory.
func (d *Directory) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return &u, nil
}

// CheckWorkspace implements access.Checker.
func (d *Directory) CheckWorkspace(ctx context.Context, userID, workspaceID uuid.UUID) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.members[workspaceID][userID] {
		return fmt.Errorf("%w: workspace %s", access.ErrAccessDenied, workspaceID)
	}
	return nil
}

// CheckProject implements access.Checker. Project access follows
// membership of the owning workspace.
func (d *Directory) CheckProject(ctx context.Context, userID, projectID uuid.UUID) error {
	d.mu.RLock()
	workspaceID, ok := d.projects[projectID]
	d.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: project %s", access.ErrAccessDenied, projectID)
	}
	return d.CheckWorkspace(ctx, userID, workspaceID)
}
