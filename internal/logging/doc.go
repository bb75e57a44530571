// Package logging wraps log/slog with the handlers, attribute helpers, and
// context plumbing shared by the daemon, CLI, and every pipeline stage.
// Console output favors operators tailing a terminal; JSON output feeds log
// aggregation.
package logging
