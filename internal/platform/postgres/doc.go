// Package postgres implements the store interfaces on PostgreSQL. Column
// locks are transaction-scoped advisory locks, so every server instance
// sharing the database serializes writes to the same column. The schema is
// managed with goose migrations embedded in the binary.
package postgres
