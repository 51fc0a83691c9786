package metadata

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// TempTag marks the hidden sibling files tag writers stage their output in.
// A crash mid-write can leave one behind.
const TempTag = "tagging"

// ErrUnsupported is returned by a Dispatcher with no store for an extension.
var ErrUnsupported = errors.New("metadata: unsupported file type")

// Dispatcher routes each call to a Store chosen by file extension.
type Dispatcher struct {
	byExt    map[string]Store
	fallback Store
}

// NewDispatcher returns a dispatcher that uses fallback for any extension
// without a registered store. fallback may be nil.
func NewDispatcher(fallback Store) *Dispatcher {
	return &Dispatcher{byExt: make(map[string]Store), fallback: fallback}
}

// NewDefaultDispatcher wires the native FLAC store and an ffmpeg-backed
// fallback for every other container.
func NewDefaultDispatcher(ffprobeBinary, ffmpegBinary string) *Dispatcher {
	d := NewDispatcher(FFmpegStore{FFprobe: ffprobeBinary, FFmpeg: ffmpegBinary})
	d.Register(".flac", FLACStore{})
	return d
}

// Register assigns store to the given extension (with or without dot).
func (d *Dispatcher) Register(ext string, store Store) {
	d.byExt[normalizeExt(ext)] = store
}

// Read implements Store.
func (d *Dispatcher) Read(ctx context.Context, path string) (Metadata, error) {
	store, err := d.storeFor(path)
	if err != nil {
		return Metadata{}, err
	}
	return store.Read(ctx, path)
}

// Write implements Store.
func (d *Dispatcher) Write(ctx context.Context, path string, m Metadata, overwrite bool) error {
	store, err := d.storeFor(path)
	if err != nil {
		return err
	}
	return store.Write(ctx, path, m, overwrite)
}

func (d *Dispatcher) storeFor(path string) (Store, error) {
	if store, ok := d.byExt[normalizeExt(filepath.Ext(path))]; ok {
		return store, nil
	}
	if d.fallback != nil {
		return d.fallback, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupported, filepath.Ext(path))
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
