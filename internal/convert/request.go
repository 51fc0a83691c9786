package convert

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"cadence/internal/metadata"
)

var (
	// ErrNotFound reports a missing or unusable source or destination path.
	ErrNotFound = errors.New("path not found")
	// ErrInvalidPath reports a path that exists but is not a regular file.
	// It matches ErrNotFound under errors.Is.
	ErrInvalidPath = fmt.Errorf("%w: not a regular file", ErrNotFound)
)

// Program is an executable plus the options passed before the paths.
type Program struct {
	Binary  string
	Options []string
}

// Request describes one conversion.
type Request struct {
	Source      string
	Destination string
	// Simulate reports what would run without touching the filesystem.
	Simulate bool
	Decoder  Program
	Encoder  Program
	TagStyle metadata.TagStyle
}

// validate checks the request paths and reports whether the destination
// already existed.
func (r Request) validate() (sourceInfo fs.FileInfo, destinationExisted bool, err error) {
	if strings.TrimSpace(r.Source) == "" {
		return nil, false, fmt.Errorf("%w: empty source path", ErrNotFound)
	}
	if strings.TrimSpace(r.Destination) == "" {
		return nil, false, fmt.Errorf("%w: empty destination path", ErrNotFound)
	}
	if strings.TrimSpace(r.Decoder.Binary) == "" || strings.TrimSpace(r.Encoder.Binary) == "" {
		return nil, false, errors.New("decoder and encoder binaries are required")
	}

	sourceInfo, err = os.Stat(r.Source)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, fmt.Errorf("%w: source %q", ErrNotFound, r.Source)
		}
		return nil, false, fmt.Errorf("%w: source %q: %v", ErrInvalidPath, r.Source, err)
	}
	if !sourceInfo.Mode().IsRegular() {
		return nil, false, fmt.Errorf("%w: source %q", ErrInvalidPath, r.Source)
	}

	destInfo, err := os.Stat(r.Destination)
	switch {
	case err == nil:
		if !destInfo.Mode().IsRegular() {
			return nil, false, fmt.Errorf("%w: destination %q", ErrInvalidPath, r.Destination)
		}
		if os.SameFile(sourceInfo, destInfo) {
			return nil, false, fmt.Errorf("%w: destination %q is the source", ErrInvalidPath, r.Destination)
		}
		return sourceInfo, true, nil
	case errors.Is(err, fs.ErrNotExist):
		return sourceInfo, false, nil
	default:
		return nil, false, fmt.Errorf("%w: destination %q: %v", ErrInvalidPath, r.Destination, err)
	}
}
