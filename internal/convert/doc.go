// Package convert runs one decoder-to-encoder conversion at a time and
// guarantees that an aborted attempt leaves no partial destination behind.
//
// A Coordinator validates the request, reads the source tags, spawns the
// decoder and encoder, relays bytes between them through a pipe.Pipe, and on
// success writes the tags and modification time onto the destination. Any
// failure, including cancellation through Cancel or the caller's context,
// removes the destination this attempt produced before the coordinator
// returns to Idle.
package convert
