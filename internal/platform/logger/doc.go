// Package logger provides structured logging for the application using the
// standard log/slog package: JSON output, a configurable level, and helpers
// for carrying a request-scoped logger through a context.
package logger
