// Package main hosts the Courtreel CLI entrypoint and command graph.
//
// The Cobra-based command tree covers one-shot pipeline runs over local
// telemetry files, queue inspection and maintenance against the shared
// SQLite store, dependency checks, notification tests, and configuration
// scaffolding. Configuration resolution happens once per invocation so
// subcommands can focus on user experience instead of wiring.
package main
