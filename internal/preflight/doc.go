// Package preflight checks that the programs and directories a conversion
// run depends on are usable before any work starts.
//
// The CLI "cadence check" command renders every result; "cadence sync" runs
// the same checks and refuses to start when a required one fails.
package preflight
