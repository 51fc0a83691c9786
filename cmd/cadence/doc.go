// Package main hosts the cadence CLI entrypoint and command graph.
//
// The Cobra command tree loads configuration once, wires the conversion
// coordinator to the metadata stores and history database, and turns SIGINT
// or SIGTERM into a cooperative cancel of whatever conversion is running.
// Commands stay thin; the work lives in the internal packages.
package main
