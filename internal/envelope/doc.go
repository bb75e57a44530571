// Package envelope parses JSON Lines telemetry emitted by the vision
// service. Each line is one envelope; stats and insights objects may sit at
// the top level or one level under a payload key, and rally lists contributed
// by multiple envelopes are concatenated in file order.
package envelope
