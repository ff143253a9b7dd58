// Package board coordinates every change to a board: it serializes writers
// per column, allocates positions, persists with optimistic versioning and
// publishes the resulting events once the change is durable.
package board
