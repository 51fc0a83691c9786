// Package metadata reads and writes the tag fields cadence copies from a
// source file onto its converted counterpart.
//
// FLAC files are handled natively through their vorbis comment block; every
// other container goes through ffprobe for reads and an ffmpeg stream-copy
// remux for writes. Dispatcher picks the right backend by file extension, and
// EncoderTagArgs renders the same values as encoder command-line options so
// tags can be embedded while the file is being encoded.
package metadata
