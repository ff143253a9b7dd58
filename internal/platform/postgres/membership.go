package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/taskboard-api/internal/access"
	"github.com/phrazzld/taskboard-api/internal/store"
)

// MembershipChecker authorizes board access from the workspace_members
// table. A project is visible to members of its workspace.
type MembershipChecker struct {
	db store.DBTX
}

var _ access.Checker = (*MembershipChecker)(nil)

// NewMembershipChecker creates a checker backed by db.
func NewMembershipChecker(db store.DBTX) *MembershipChecker {
	if db == nil {
		panic("db cannot be nil")
	}
	return &MembershipChecker{db: db}
}

// CheckWorkspace implements access.Checker.
func (c *MembershipChecker) CheckWorkspace(ctx context.Context, userID, workspaceID uuid.UUID) error {
	var ok bool
	err := c.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM workspace_members WHERE workspace_id = $1 AND user_id = $2
		)`, workspaceID, userID).Scan(&ok)
	if err != nil {
		return store.NewStoreError("membership", "check", "query failed", MapError(err))
	}
	if !ok {
		return fmt.Errorf("%w: workspace %s", access.ErrAccessDenied, workspaceID)
	}
	return nil
}

// CheckProject implements access.Checker.
func (c *MembershipChecker) CheckProject(ctx context.Context, userID, projectID uuid.UUID) error {
	var ok bool
	err := c.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM projects p
			JOIN workspace_members m ON m.workspace_id = p.workspace_id
			WHERE p.id = $1 AND m.user_id = $2
		)`, projectID, userID).Scan(&ok)
	if err != nil {
		return store.NewStoreError("membership", "check", "query failed", MapError(err))
	}
	if !ok {
		return fmt.Errorf("%w: project %s", access.ErrAccessDenied, projectID)
	}
	return nil
}
