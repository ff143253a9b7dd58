package domain

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Task is a unit of work placed on a workspace board. Its Position orders it
// within the (workspace, status) column and, when ProjectID is set, within
// the (project, status) column as well.
type Task struct {
	ID          uuid.UUID  `json:"id"`
	WorkspaceID uuid.UUID  `json:"workspace_id"`
	ProjectID   uuid.UUID  `json:"project_id,omitempty"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	AssigneeID  uuid.UUID  `json:"assignee_id,omitempty"`
	Status      TaskStatus `json:"status"`
	Position    float64    `json:"position"`
	Active      bool       `json:"-"`
	Version     int64      `json:"version"`
	CreatedBy   uuid.UUID  `json:"created_by"`
	DueAt       *time.Time `json:"due_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewTask creates an active task in the given column. The caller is
// responsible for allocating its position.
func NewTask(
	workspaceID, createdBy uuid.UUID,
	name string,
	status TaskStatus,
	position float64,
) (*Task, error) {
	now := time.Now().UTC()
	task := &Task{
		ID:          uuid.New(),
		WorkspaceID: workspaceID,
		Name:        strings.TrimSpace(name),
		Status:      status,
		Position:    position,
		Active:      true,
		Version:     1,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}
	if t.WorkspaceID == uuid.Nil {
		return ErrEmptyWorkspaceID
	}
	if strings.TrimSpace(t.Name) == "" {
		return ErrEmptyTaskName
	}
	if !t.Status.Valid() {
		return ErrInvalidStatus
	}
	if !ValidPosition(t.Position) {
		return ErrInvalidPosition
	}
	return nil
}

// HasProject reports whether the task belongs to a project.
func (t *Task) HasProject() bool {
	return t.ProjectID != uuid.Nil
}

// HasAssignee reports whether the task is assigned to someone.
func (t *Task) HasAssignee() bool {
	return t.AssigneeID != uuid.Nil
}

// ValidPosition reports whether p can be stored as a column position.
func ValidPosition(p float64) bool {
	return !math.IsNaN(p) && !math.IsInf(p, 0)
}
