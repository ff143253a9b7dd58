// Package access defines the permission check the board delegates to an
// external membership system.
package access

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrAccessDenied is returned when a user may not see or change a board.
var ErrAccessDenied = errors.New("access denied")

// Checker decides whether a user may act on a workspace or project.
// Implementations return ErrAccessDenied (possibly wrapped) to refuse.
type Checker interface {
	CheckWorkspace(ctx context.Context, userID, workspaceID uuid.UUID) error
	CheckProject(ctx context.Context, userID, projectID uuid.UUID) error
}

// AllowAll grants every request. It is used when membership is enforced
// upstream of this service.
type AllowAll struct{}

var _ Checker = AllowAll{}

func (AllowAll) CheckWorkspace(context.Context, uuid.UUID, uuid.UUID) error { return nil }

func (AllowAll) CheckProject(context.Context, uuid.UUID, uuid.UUID) error { return nil }

// CheckerFunc adapts a single function into a Checker that applies it to
// both workspaces and projects.
type CheckerFunc func(ctx context.Context, userID, boardID uuid.UUID) error

var _ Checker = CheckerFunc(nil)

func (f CheckerFunc) CheckWorkspace(ctx context.Context, userID, workspaceID uuid.UUID) error {
	return f(ctx, userID, workspaceID)
}

func (f CheckerFunc) CheckProject(ctx context.Context, userID, projectID uuid.UUID) error {
	return f(ctx, userID, projectID)
}
