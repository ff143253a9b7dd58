package ordering

import (
	"errors"
	"fmt"
)

// ErrOrderViolation is returned by Verify when two neighbors are not strictly ascending.
var ErrOrderViolation = errors.New("column positions are not strictly ascending")

// Rebalance returns the column with positions reassigned to Spacing,
// 2*Spacing, ... N*Spacing in the existing order.
func Rebalance(c Column) Column {
	out := Column{Scope: c.Scope, Status: c.Status, Entries: make([]Entry, len(c.Entries))}
	for i, e := range c.Entries {
		out.Entries[i] = Entry{TaskID: e.TaskID, Position: float64(i+1) * Spacing}
	}
	return out
}

// Changed returns the entries of after whose position differs from before.
// Both columns must list the same tasks in the same order.
func Changed(before, after Column) []Entry {
	var out []Entry
	for i, e := range after.Entries {
		if i >= len(before.Entries) || before.Entries[i].Position != e.Position {
			out = append(out, e)
		}
	}
	return out
}

// Verify checks that positions are strictly ascending and returns the first
// offending pair wrapped in ErrOrderViolation.
func Verify(c Column) error {
	for i := 1; i < len(c.Entries); i++ {
		prev, cur := c.Entries[i-1], c.Entries[i]
		if cur.Position <= prev.Position {
			return fmt.Errorf("%w: %s at %v then %s at %v",
				ErrOrderViolation, prev.TaskID, prev.Position, cur.TaskID, cur.Position)
		}
	}
	return nil
}
