// Package queue persists processing jobs in SQLite and exposes helpers for
// driving their lifecycle.
//
// The Store manages database connections, schema migrations, stats queries,
// and status transitions. Jobs capture the input telemetry and video paths,
// progress, attempt counts, and the result manifest so stages can coordinate
// without additional state.
//
// The database is treated as transient storage for in-flight jobs rather than
// a long-term archive. Completed and failed are terminal states: once a job
// reaches either, further transitions are ignored.
package queue
