// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying data storage mechanism from
// the board services, so ordering and broadcast logic stay independent of
// the database in use. Implementations live under internal/platform.
package store
