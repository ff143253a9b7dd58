// Package testdb provides helpers for integration tests that need a real
// PostgreSQL database. Tests using it carry the integration build tag and
// skip when no database URL is configured.
package testdb
