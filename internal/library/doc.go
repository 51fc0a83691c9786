// Package library mirrors a source music library into a converted target
// library.
//
// Plan walks the source tree and maps every file with the decoder's extension
// onto the target tree with the encoder's extension, skipping targets that are
// already at least as new as their source. Syncer then converts the planned
// jobs one at a time through a single convert.Coordinator, so a Cancel stops
// the whole run. CleanStale removes temp files a crashed tag write left
// behind. Watcher waits for the source tree to change so sync can run
// again.
package library
