// Package ffprobe provides a typed wrapper around ffprobe JSON output for
// audio files.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual stream properties including its tag dictionary
//   - Format: container-level metadata (duration, size, bitrate, tags)
//
// Primary entry point:
//   - Inspect: executes ffprobe and returns parsed Result
//
// Helper methods on Result provide access to audio stream counts, duration
// parsing, and case-insensitive tag lookup across container and stream tags.
package ffprobe
