package metadata

import (
	"context"
	"fmt"
	"os"

	"github.com/go-flac/go-flac"

	"cadence/internal/fileutil"
)

// FLACStore reads and writes the vorbis comment block of FLAC files.
type FLACStore struct {
	// Vendor is stored when a new comment block has to be created.
	Vendor string
}

// Read returns the tags stored in path's vorbis comment block. A file with no
// comment block yields zero Metadata.
func (s FLACStore) Read(ctx context.Context, path string) (Metadata, error) {
	if err := ctx.Err(); err != nil {
		return Metadata{}, err
	}
	f, err := flac.ParseFile(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("parse flac %q: %w", path, err)
	}
	block := findComment(f)
	if block == nil {
		return Metadata{}, nil
	}
	vc, err := parseVorbisComment(block.Data)
	if err != nil {
		return Metadata{}, fmt.Errorf("parse vorbis comments in %q: %w", path, err)
	}
	return vc.metadata(), nil
}

// Write merges m into path's vorbis comment block and saves the file through
// a temporary sibling so a failed save never truncates the original.
func (s FLACStore) Write(ctx context.Context, path string, m Metadata, overwrite bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := flac.ParseFile(path)
	if err != nil {
		return fmt.Errorf("parse flac %q: %w", path, err)
	}

	block := findComment(f)
	vc := &vorbisComment{Vendor: s.vendor()}
	if block != nil {
		if vc, err = parseVorbisComment(block.Data); err != nil {
			return fmt.Errorf("parse vorbis comments in %q: %w", path, err)
		}
	} else {
		block = &flac.MetaDataBlock{Type: flac.VorbisComment}
		f.Meta = append(f.Meta, block)
	}
	vc.apply(m, overwrite)
	block.Data = vc.Marshal()

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	tmp := fileutil.TempSibling(path, TempTag)
	if err := f.Save(tmp); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("save flac %q: %w", path, err)
	}
	_ = os.Chmod(tmp, info.Mode().Perm())
	if err := fileutil.ReplaceFile(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace %q: %w", path, err)
	}
	return nil
}

func (s FLACStore) vendor() string {
	if s.Vendor != "" {
		return s.Vendor
	}
	return defaultVendor
}

func findComment(f *flac.File) *flac.MetaDataBlock {
	for _, block := range f.Meta {
		if block.Type == flac.VorbisComment {
			return block
		}
	}
	return nil
}
