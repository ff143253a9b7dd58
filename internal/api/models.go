package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskboard-api/internal/domain"
	"github.com/phrazzld/taskboard-api/internal/ordering"
)

// CreateTaskRequest is the payload for POST /api/workspaces/{workspaceID}/tasks.
type CreateTaskRequest struct {
	Name        string     `json:"name"                  validate:"required,max=200"`
	Description string     `json:"description,omitempty" validate:"max=2000"`
	ProjectID   string     `json:"project_id,omitempty"  validate:"omitempty,uuid"`
	AssigneeID  string     `json:"assignee_id,omitempty" validate:"omitempty,uuid"`
	Status      string     `json:"status,omitempty"`
	Position    *float64   `json:"position,omitempty"`
	Index       *int       `json:"index,omitempty"       validate:"omitempty,gte=0"`
	DueAt       *time.Time `json:"due_at,omitempty"`
}

// UpdateTaskRequest is the payload for PATCH /api/tasks/{id}. Omitted
// fields are left unchanged.
type UpdateTaskRequest struct {
	Name        *string    `json:"name,omitempty"        validate:"omitempty,min=1,max=200"`
	Description *string    `json:"description,omitempty" validate:"omitempty,max=2000"`
	Status      *string    `json:"status,omitempty"`
	DueAt       *time.Time `json:"due_at,omitempty"`
	ClearDueAt  bool       `json:"clear_due_at,omitempty"`
}

// MoveTaskRequest is the payload for POST /api/tasks/{id}/move.
type MoveTaskRequest struct {
	TargetStatus   string   `json:"target_status"             validate:"required"`
	TargetPosition *float64 `json:"target_position,omitempty"`
	TargetIndex    *int     `json:"target_index,omitempty"    validate:"omitempty,gte=0"`
}

// AssignTaskRequest is the payload for POST /api/tasks/{id}/assign. An
// empty assignee clears the assignment.
type AssignTaskRequest struct {
	AssigneeID string `json:"assignee_id" validate:"omitempty,uuid"`
}

// TaskResponse is the API representation of a task.
type TaskResponse struct {
	ID          string     `json:"id"`
	WorkspaceID string     `json:"workspace_id"`
	ProjectID   string     `json:"project_id,omitempty"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	AssigneeID  string     `json:"assignee_id,omitempty"`
	Status      string     `json:"status"`
	Position    float64    `json:"position"`
	Version     int64      `json:"version"`
	CreatedBy   string     `json:"created_by"`
	DueAt       *time.Time `json:"due_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ColumnEntryResponse is one task's place in a column.
type ColumnEntryResponse struct {
	TaskID   string  `json:"task_id"`
	Position float64 `json:"position"`
	Index    int     `json:"index"`
}

// ColumnResponse is an ordered column view.
type ColumnResponse struct {
	Scope   string                `json:"scope"`
	Status  string                `json:"status"`
	Title   string                `json:"title"`
	Entries []ColumnEntryResponse `json:"entries"`
}

// BoardResponse lists every column of a workspace in display order.
type BoardResponse struct {
	WorkspaceID string           `json:"workspace_id"`
	Columns     []ColumnResponse `json:"columns"`
}

// StatusResponse describes one board column.
type StatusResponse struct {
	Value string `json:"value"`
	Title string `json:"title"`
}

func optionalID(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}

func taskToResponse(t *domain.Task) TaskResponse {
	return TaskResponse{
		ID:          t.ID.String(),
		WorkspaceID: t.WorkspaceID.String(),
		ProjectID:   optionalID(t.ProjectID),
		Name:        t.Name,
		Description: t.Description,
		AssigneeID:  optionalID(t.AssigneeID),
		Status:      string(t.Status),
		Position:    t.Position,
		Version:     t.Version,
		CreatedBy:   t.CreatedBy.String(),
		DueAt:       t.DueAt,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func columnToResponse(c ordering.Column) ColumnResponse {
	entries := make([]ColumnEntryResponse, 0, len(c.Entries))
	for i, e := range c.Entries {
		entries = append(entries, ColumnEntryResponse{
			TaskID:   e.TaskID.String(),
			Position: e.Position,
			Index:    i,
		})
	}
	return ColumnResponse{
		Scope:   c.Scope.String(),
		Status:  string(c.Status),
		Title:   c.Status.DisplayName(),
		Entries: entries,
	}
}
