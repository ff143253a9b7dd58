// Package config loads the server and boardctl settings. Values come from
// built-in defaults, an optional config.yaml in the working directory and
// KANBAN_* environment variables, in increasing order of precedence, and
// are validated before use.
package config
