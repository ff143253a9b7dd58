// Package memory provides in-process implementations of the store
// interfaces. They back the single-instance server mode, the boardctl
// dry runs, and tests that need real concurrency without a database.
package memory
