// Package api serves the board's REST surface: task CRUD, moves,
// assignment and column views under /api. Handlers decode and validate
// requests, call the board service and map its errors to status codes
// without leaking internal details.
package api
