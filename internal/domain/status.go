package domain

import (
	"fmt"
	"strings"
)

// TaskStatus identifies the board column a task lives in.
type TaskStatus string

// The closed set of board columns.
const (
	StatusBacklog    TaskStatus = "backlog"
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in-progress"
	StatusInReview   TaskStatus = "in-review"
	StatusDone       TaskStatus = "done"
)

// DefaultStatus is the column new tasks land in when no status is given.
const DefaultStatus = StatusTodo

// AllStatuses returns the board columns in display order.
func AllStatuses() []TaskStatus {
	return []TaskStatus{StatusBacklog, StatusTodo, StatusInProgress, StatusInReview, StatusDone}
}

// ParseTaskStatus converts a client-supplied value into a TaskStatus.
// Matching is case-insensitive and accepts the unhyphenated spellings
// ("inprogress", "inreview") older clients send.
func ParseTaskStatus(s string) (TaskStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "backlog":
		return StatusBacklog, nil
	case "todo":
		return StatusTodo, nil
	case "in-progress", "inprogress", "in_progress":
		return StatusInProgress, nil
	case "in-review", "inreview", "in_review":
		return StatusInReview, nil
	case "done":
		return StatusDone, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

// Valid reports whether s is one of the known board columns.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusBacklog, StatusTodo, StatusInProgress, StatusInReview, StatusDone:
		return true
	default:
		return false
	}
}

// DisplayName returns the human-readable column title used in activity messages.
func (s TaskStatus) DisplayName() string {
	switch s {
	case StatusBacklog:
		return "Backlog"
	case StatusTodo:
		return "To Do"
	case StatusInProgress:
		return "In Progress"
	case StatusInReview:
		return "In Review"
	case StatusDone:
		return "Done"
	default:
		return string(s)
	}
}

func (s TaskStatus) String() string {
	return string(s)
}
