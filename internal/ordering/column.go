package ordering

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/phrazzld/taskboard-api/internal/domain"
)

// ScopeKind distinguishes workspace columns from project columns.
type ScopeKind string

const (
	ScopeWorkspace ScopeKind = "workspace"
	ScopeProject   ScopeKind = "project"
)

// Scope names the board a column belongs to.
type Scope struct {
	Kind ScopeKind
	ID   uuid.UUID
}

// WorkspaceScope returns the scope of a workspace board.
func WorkspaceScope(id uuid.UUID) Scope {
	return Scope{Kind: ScopeWorkspace, ID: id}
}

// ProjectScope returns the scope of a project board.
func ProjectScope(id uuid.UUID) Scope {
	return Scope{Kind: ScopeProject, ID: id}
}

func (s Scope) String() string {
	return fmt.Sprintf("%s/%s", s.Kind, s.ID)
}

// Entry is a single task's place in a column.
type Entry struct {
	TaskID   uuid.UUID `json:"task_id"`
	Position float64   `json:"position"`
}

// Column is a snapshot of one status column, ascending by position.
// It is derived from storage on every use and never cached.
type Column struct {
	Scope   Scope             `json:"-"`
	Status  domain.TaskStatus `json:"status"`
	Entries []Entry           `json:"entries"`
}

// NewColumn builds a column from entries in any order. Ties on position are
// broken by task ID so the resulting order is deterministic.
func NewColumn(scope Scope, status domain.TaskStatus, entries []Entry) Column {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Position != sorted[j].Position {
			return sorted[i].Position < sorted[j].Position
		}
		return sorted[i].TaskID.String() < sorted[j].TaskID.String()
	})
	return Column{Scope: scope, Status: status, Entries: sorted}
}

// Len returns the number of tasks in the column.
func (c Column) Len() int {
	return len(c.Entries)
}

// Positions returns the positions of the column in order.
func (c Column) Positions() []float64 {
	out := make([]float64, len(c.Entries))
	for i, e := range c.Entries {
		out[i] = e.Position
	}
	return out
}

// TaskIDs returns the task IDs of the column in order.
func (c Column) TaskIDs() []uuid.UUID {
	out := make([]uuid.UUID, len(c.Entries))
	for i, e := range c.Entries {
		out[i] = e.TaskID
	}
	return out
}

// IndexOf returns the index of the task in the column, or -1.
func (c Column) IndexOf(taskID uuid.UUID) int {
	for i, e := range c.Entries {
		if e.TaskID == taskID {
			return i
		}
	}
	return -1
}

// Without returns a copy of the column with the given task removed. A task
// being moved within its own column must not count as its own neighbor.
func (c Column) Without(taskID uuid.UUID) Column {
	out := Column{Scope: c.Scope, Status: c.Status, Entries: make([]Entry, 0, len(c.Entries))}
	for _, e := range c.Entries {
		if e.TaskID != taskID {
			out.Entries = append(out.Entries, e)
		}
	}
	return out
}

// Occupied reports whether some task in the column sits exactly at p.
func (c Column) Occupied(p float64) bool {
	i := sort.Search(len(c.Entries), func(i int) bool { return c.Entries[i].Position >= p })
	return i < len(c.Entries) && c.Entries[i].Position == p
}
