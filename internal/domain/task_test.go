package domain

import (
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTask(t *testing.T) {
	t.Parallel()

	workspaceID := uuid.New()
	creator := uuid.New()

	task, err := NewTask(workspaceID, creator, "  Write release notes ", StatusTodo, 1000)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, task.ID)
	assert.Equal(t, workspaceID, task.WorkspaceID)
	assert.Equal(t, "Write release notes", task.Name)
	assert.Equal(t, StatusTodo, task.Status)
	assert.Equal(t, 1000.0, task.Position)
	assert.True(t, task.Active)
	assert.Equal(t, int64(1), task.Version)
	assert.False(t, task.HasProject())
	assert.False(t, task.HasAssignee())
	assert.False(t, task.CreatedAt.IsZero())
}

func TestTaskValidate(t *testing.T) {
	t.Parallel()

	valid := func() Task {
		return Task{
			ID:          uuid.New(),
			WorkspaceID: uuid.New(),
			Name:        "task",
			Status:      StatusBacklog,
			Position:    500,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Task)
		wantErr error
	}{
		{"valid", func(*Task) {}, nil},
		{"missing id", func(t *Task) { t.ID = uuid.Nil }, ErrEmptyTaskID},
		{"missing workspace", func(t *Task) { t.WorkspaceID = uuid.Nil }, ErrEmptyWorkspaceID},
		{"blank name", func(t *Task) { t.Name = "   " }, ErrEmptyTaskName},
		{"unknown status", func(t *Task) { t.Status = "archived" }, ErrInvalidStatus},
		{"nan position", func(t *Task) { t.Position = math.NaN() }, ErrInvalidPosition},
		{"infinite position", func(t *Task) { t.Position = math.Inf(-1) }, ErrInvalidPosition},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			task := valid()
			tc.mutate(&task)
			err := task.Validate()
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestParseTaskStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want TaskStatus
	}{
		{"backlog", StatusBacklog},
		{"TODO", StatusTodo},
		{"in-progress", StatusInProgress},
		{"inprogress", StatusInProgress},
		{"In-Review", StatusInReview},
		{"inreview", StatusInReview},
		{" done ", StatusDone},
	}
	for _, tc := range tests {
		got, err := ParseTaskStatus(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	_, err := ParseTaskStatus("archived")
	assert.True(t, errors.Is(err, ErrInvalidStatus))
}

func TestTaskStatusDisplayName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Backlog", StatusBacklog.DisplayName())
	assert.Equal(t, "To Do", StatusTodo.DisplayName())
	assert.Equal(t, "In Progress", StatusInProgress.DisplayName())
	assert.Equal(t, "In Review", StatusInReview.DisplayName())
	assert.Equal(t, "Done", StatusDone.DisplayName())

	for _, s := range AllStatuses() {
		assert.True(t, s.Valid())
	}
	assert.False(t, TaskStatus("inprogress").Valid())
}
