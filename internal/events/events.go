package events

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskboard-api/internal/domain"
)

// Kind identifies the variant of an UpdateEvent.
type Kind string

const (
	KindTaskCreated       Kind = "task_created"
	KindTaskUpdated       Kind = "task_updated"
	KindTaskMoved         Kind = "task_moved"
	KindTaskAssigned      Kind = "task_assigned"
	KindTaskDeleted       Kind = "task_deleted"
	KindTaskStatusChanged Kind = "task_status_changed"
)

// Actor is a user credited with a change.
type Actor struct {
	ID   uuid.UUID
	Name string
}

// Movement is the payload of moved and status-changed events.
type Movement struct {
	OldStatus   domain.TaskStatus `json:"old_status"`
	NewStatus   domain.TaskStatus `json:"new_status"`
	OldPosition float64           `json:"old_position"`
	NewPosition float64           `json:"new_position"`
}

// Assignment is the payload of assigned events.
type Assignment struct {
	AssigneeID   uuid.UUID `json:"assignee_id"`
	AssigneeName string    `json:"assignee_name"`
}

// UpdateEvent describes one change to a task. Kind-specific payloads are
// embedded pointers and are flattened into the JSON object when present.
type UpdateEvent struct {
	ID            uuid.UUID  `json:"id"`
	Kind          Kind       `json:"event_type"`
	WorkspaceID   uuid.UUID  `json:"workspace_id"`
	ProjectID     *uuid.UUID `json:"project_id,omitempty"`
	TaskID        uuid.UUID  `json:"task_id"`
	TaskName      string     `json:"task_name"`
	UpdatedBy     uuid.UUID  `json:"updated_by"`
	UpdatedByName string     `json:"updated_by_name"`
	Timestamp     time.Time  `json:"timestamp"`
	Message       string     `json:"message"`

	*Movement
	*Assignment
}

func newEvent(kind Kind, task *domain.Task, actor Actor, message string) UpdateEvent {
	ev := UpdateEvent{
		ID:            uuid.New(),
		Kind:          kind,
		WorkspaceID:   task.WorkspaceID,
		TaskID:        task.ID,
		TaskName:      task.Name,
		UpdatedBy:     actor.ID,
		UpdatedByName: actorName(actor),
		Timestamp:     time.Now().UTC(),
		Message:       message,
	}
	if task.HasProject() {
		id := task.ProjectID
		ev.ProjectID = &id
	}
	return ev
}

func actorName(a Actor) string {
	if a.Name == "" {
		return domain.UnknownUserName
	}
	return a.Name
}

// NewTaskCreated builds the event for a newly created task.
func NewTaskCreated(task *domain.Task, actor Actor) UpdateEvent {
	return newEvent(KindTaskCreated, task, actor,
		fmt.Sprintf("%s created task: %s", actorName(actor), task.Name))
}

// NewTaskUpdated builds the event for an edit that did not change the column.
func NewTaskUpdated(task *domain.Task, actor Actor) UpdateEvent {
	return newEvent(KindTaskUpdated, task, actor,
		fmt.Sprintf("%s updated task: %s", actorName(actor), task.Name))
}

// NewTaskMoved builds the event for a drag-and-drop move. task holds the
// persisted state after the move.
func NewTaskMoved(task *domain.Task, actor Actor, oldStatus domain.TaskStatus, oldPosition float64) UpdateEvent {
	ev := newEvent(KindTaskMoved, task, actor,
		fmt.Sprintf("%s moved %s from %s to %s",
			actorName(actor), task.Name, oldStatus.DisplayName(), task.Status.DisplayName()))
	ev.Movement = &Movement{
		OldStatus:   oldStatus,
		NewStatus:   task.Status,
		OldPosition: oldPosition,
		NewPosition: task.Position,
	}
	return ev
}

// NewTaskStatusChanged builds the event for an edit that changed the
// task's column without an explicit placement.
func NewTaskStatusChanged(task *domain.Task, actor Actor, oldStatus domain.TaskStatus, oldPosition float64) UpdateEvent {
	ev := newEvent(KindTaskStatusChanged, task, actor,
		fmt.Sprintf("%s changed status of %s from %s to %s",
			actorName(actor), task.Name, oldStatus.DisplayName(), task.Status.DisplayName()))
	ev.Movement = &Movement{
		OldStatus:   oldStatus,
		NewStatus:   task.Status,
		OldPosition: oldPosition,
		NewPosition: task.Position,
	}
	return ev
}

// NewTaskAssigned builds the event for an assignment change.
func NewTaskAssigned(task *domain.Task, actor Actor, assignee Actor) UpdateEvent {
	ev := newEvent(KindTaskAssigned, task, actor,
		fmt.Sprintf("%s assigned %s to %s", actorName(actor), task.Name, actorName(assignee)))
	ev.Assignment = &Assignment{
		AssigneeID:   assignee.ID,
		AssigneeName: actorName(assignee),
	}
	return ev
}

// NewTaskDeleted builds the event for a soft-deleted task.
func NewTaskDeleted(task *domain.Task, actor Actor) UpdateEvent {
	return newEvent(KindTaskDeleted, task, actor,
		fmt.Sprintf("%s deleted task: %s", actorName(actor), task.Name))
}
