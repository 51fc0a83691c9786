// Package pipe relays bytes from one stream to another with cooperative
// cancellation.
//
// A Pipe copies fixed-size chunks from its source to its destination until the
// source reports EOF, either side fails, or Stop is called from another
// goroutine. Stop takes effect between chunks, so cancellation latency is
// bounded by a single read/write round trip rather than by the amount of data
// left to transfer. Both streams are always closed when Run returns, which is
// what lets the processes on either end observe EOF or a broken pipe and exit
// on their own.
package pipe
