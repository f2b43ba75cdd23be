// Package logging assembles structured slog loggers and formatting helpers
// used across hlssafe.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes attribute helpers plus standardized field names so
// the daemon, IPC server and encoder emit log lines with the same shape. A
// no-op logger is provided for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup.
package logging
