package preflight

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"cadence/internal/config"
	"cadence/internal/deps"
)

// CheckDirectoryAccess verifies that path is a directory cadence can traverse
// and read, and also write when writable is set.
func CheckDirectoryAccess(name, path string, writable bool) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}

	mode := uint32(unix.R_OK | unix.X_OK)
	label := "read ok"
	if writable {
		mode |= unix.W_OK
		label = "read/write ok"
	}
	if err := unix.Access(path, mode); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, label)}
}

// CheckSystemDeps evaluates the external programs cfg refers to. The ffmpeg
// pair is only required when converted files are not FLAC, since FLAC tags
// are written natively.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	nativeTags := strings.EqualFold(cfg.Encoder.Extension, ".flac")
	requirements := []deps.Requirement{
		{
			Name:        "Decoder",
			Command:     cfg.Decoder.Binary,
			Description: "Decodes source files to stdout",
		},
		{
			Name:        "Encoder",
			Command:     cfg.Encoder.Binary,
			Description: "Encodes stdin into the target format",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.Metadata.FFprobeBinary,
			Description: "Reads tags from non-FLAC files",
			Optional:    nativeTags,
		},
		{
			Name:        "FFmpeg",
			Command:     cfg.Metadata.FFmpegBinary,
			Description: "Writes tags into non-FLAC files",
			Optional:    nativeTags,
		},
	}
	return deps.CheckBinaries(requirements)
}
