package ordering

// Spacing is the gap between consecutive positions after an append or a
// rebalance, and the position given to the first task of an empty column.
const Spacing = 1000.0

// DefaultEpsilon is the smallest gap between neighbors an allocation may
// leave before the column is considered exhausted and must be rebalanced.
const DefaultEpsilon = 1e-6

// Target describes where a caller wants a task placed. Position wins over
// Index when both are set; neither means append.
type Target struct {
	Position *float64
	Index    *int
}

// Allocation is the outcome of placing a task in a column.
type Allocation struct {
	Position float64
	// Explicit is set when the caller supplied the position verbatim.
	Explicit bool
	// Prev and Next are the neighbors the position was derived from.
	Prev *float64
	Next *float64
}

// Allocate computes a position for a task entering the column. The column
// must not contain the task being placed.
func Allocate(c Column, t Target) Allocation {
	switch {
	case t.Position != nil:
		return Allocation{Position: *t.Position, Explicit: true}
	case t.Index != nil:
		return allocateAtIndex(c, *t.Index)
	default:
		return allocateAppend(c)
	}
}

// Append returns the position for a task added to the end of the column.
func Append(c Column) float64 {
	return allocateAppend(c).Position
}

// AtIndex returns the position for a task inserted before the task currently
// at index i. Indexes past the end append; negative indexes prepend.
func AtIndex(c Column, i int) float64 {
	return allocateAtIndex(c, i).Position
}

// Between returns a position strictly between prev and next when both are
// given, or one Spacing beyond whichever neighbor exists.
func Between(prev, next *float64) float64 {
	switch {
	case prev != nil && next != nil:
		return (*prev + *next) / 2
	case prev != nil:
		return *prev + Spacing
	case next != nil:
		return *next - Spacing
	default:
		return Spacing
	}
}

func allocateAppend(c Column) Allocation {
	if c.Len() == 0 {
		return Allocation{Position: Spacing}
	}
	last := c.Entries[c.Len()-1].Position
	return Allocation{Position: Between(&last, nil), Prev: &last}
}

func allocateAtIndex(c Column, i int) Allocation {
	n := c.Len()
	if n == 0 {
		return Allocation{Position: Spacing}
	}
	if i < 0 {
		i = 0
	}
	if i >= n {
		return allocateAppend(c)
	}
	next := c.Entries[i].Position
	if i == 0 {
		return Allocation{Position: Between(nil, &next), Next: &next}
	}
	prev := c.Entries[i-1].Position
	return Allocation{Position: Between(&prev, &next), Prev: &prev, Next: &next}
}

// Collides reports whether the allocation sits within epsilon of a neighbor
// or fails to land strictly between them. Explicit positions never collide;
// they are stored as given.
func Collides(a Allocation, epsilon float64) bool {
	if a.Explicit {
		return false
	}
	if a.Prev != nil && a.Position-*a.Prev <= epsilon {
		return true
	}
	if a.Next != nil && *a.Next-a.Position <= epsilon {
		return true
	}
	return false
}
