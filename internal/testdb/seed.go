//go:build integration

package testdb

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/taskboard-api/internal/store"
	"github.com/stretchr/testify/require"
)

// Fixture is a user who is a member of a fresh workspace with one project.
type Fixture struct {
	UserID      uuid.UUID
	WorkspaceID uuid.UUID
	ProjectID   uuid.UUID
}

// SeedWorkspace inserts a user, a workspace, a membership and a project.
func SeedWorkspace(t *testing.T, db store.DBTX) Fixture {
	t.Helper()
	ctx := context.Background()
	f := Fixture{UserID: uuid.New(), WorkspaceID: uuid.New(), ProjectID: uuid.New()}

	stmts := []struct {
		query string
		args  []any
	}{
		{`INSERT INTO users (id, email, name) VALUES ($1, $2, $3)`,
			[]any{f.UserID, f.UserID.String() + "@example.com", "Test User"}},
		{`INSERT INTO workspaces (id, name) VALUES ($1, $2)`, []any{f.WorkspaceID, "Test Workspace"}},
		{`INSERT INTO workspace_members (workspace_id, user_id) VALUES ($1, $2)`,
			[]any{f.WorkspaceID, f.UserID}},
		{`INSERT INTO projects (id, workspace_id, name) VALUES ($1, $2, $3)`,
			[]any{f.ProjectID, f.WorkspaceID, "Test Project"}},
	}
	for _, s := range stmts {
		_, err := db.ExecContext(ctx, s.query, s.args...)
		require.NoError(t, err, "seed: %s", s.query)
	}
	return f
}
