// Package config loads, normalizes, and validates the TOML configuration
// shared by the daemon, the CLI, and every pipeline component. Construction
// happens once per process; the resulting value is passed explicitly and
// never mutated afterward.
package config
