// Package history persists a record of every conversion attempt in a small
// SQLite database under the state directory.
//
// The schema is versioned through embedded migrations applied on Open. Records
// are written from a convert.Coordinator reporter and read back by the
// `cadence history` command.
package history
