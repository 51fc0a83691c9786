// Package logging assembles structured slog loggers and formatting helpers used
// across cadence.
//
// It owns the console and JSON handlers, routes file output through a rotating
// lumberjack writer, and exposes attribute helpers plus standard field names so
// conversion code emits the same shape everywhere. The package also provides a
// no-op logger for tests and wiring code that cannot fail.
package logging
