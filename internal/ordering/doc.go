// Package ordering implements fractional indexing for board columns.
//
// A column is the ordered set of active tasks sharing a scope (workspace or
// project) and a status. Positions are float64 values spaced Spacing apart
// when freshly assigned; inserting between two tasks takes the midpoint of
// their positions, so repeated inserts at the same spot halve the gap each
// time. When a gap becomes too small to split the column is rebalanced to
// evenly spaced positions that preserve the existing order.
//
// Everything here is pure: callers load a Column, ask for an Allocation, and
// persist the result themselves.
package ordering
