package metadata

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"cadence/internal/fileutil"
	"cadence/internal/media/ffprobe"
)

// FFmpegStore reads tags with ffprobe and writes them by remuxing the file
// with ffmpeg in stream-copy mode.
type FFmpegStore struct {
	FFprobe string
	FFmpeg  string
}

var ffmpegReadKeys = map[Field][]string{
	FieldAlbum:       {"album"},
	FieldAlbumArtist: {"album_artist", "albumartist", "album artist", "TPE2"},
	FieldArtist:      {"artist"},
	FieldDate:        {"date", "year", "TDRC", "TYER"},
	FieldDiscNumber:  {"disc", "discnumber", "TPOS"},
	FieldDiscTotal:   {"disctotal", "totaldiscs"},
	FieldGenre:       {"genre"},
	FieldTitle:       {"title"},
	FieldTrackNumber: {"track", "tracknumber", "TRCK"},
	FieldTrackTotal:  {"tracktotal", "totaltracks"},
}

// Read returns the tags ffprobe reports for path.
func (s FFmpegStore) Read(ctx context.Context, path string) (Metadata, error) {
	result, err := ffprobe.Inspect(ctx, s.FFprobe, path)
	if err != nil {
		return Metadata{}, err
	}
	var m Metadata
	for _, field := range Fields {
		for _, key := range ffmpegReadKeys[field] {
			if value := result.Tag(key); value != "" {
				m.Set(field, value)
				break
			}
		}
	}
	if number, total := splitPosition(m.TrackNumber); total != "" {
		m.TrackNumber = number
		if m.TrackTotal == "" {
			m.TrackTotal = total
		}
	}
	if number, total := splitPosition(m.DiscNumber); total != "" {
		m.DiscNumber = number
		if m.DiscTotal == "" {
			m.DiscTotal = total
		}
	}
	return m, nil
}

// Write remuxes path with the merged tags into a hidden sibling and replaces
// the original once ffmpeg succeeds.
func (s FFmpegStore) Write(ctx context.Context, path string, m Metadata, overwrite bool) error {
	merged := m
	if !overwrite {
		current, err := s.Read(ctx, path)
		if err != nil {
			return err
		}
		merged = Merge(current, m, false)
	}
	args := s.writeArgs(path, merged)
	if args == nil {
		return nil
	}

	tmp := args[len(args)-1]
	binary := strings.TrimSpace(s.FFmpeg)
	if binary == "" {
		binary = "ffmpeg"
	}
	cmd := exec.CommandContext(ctx, binary, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("ffmpeg tag %q: %w: %s", path, err, strings.TrimSpace(string(output)))
	}
	if err := fileutil.ReplaceFile(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace %q: %w", path, err)
	}
	return nil
}

// writeArgs builds the ffmpeg argument list. It returns nil when m carries no
// values. The final element is always the temporary output path.
func (s FFmpegStore) writeArgs(path string, m Metadata) []string {
	tags := ffmpegTagPairs(m)
	if len(tags) == 0 {
		return nil
	}
	args := []string{"-hide_banner", "-loglevel", "error", "-y", "-i", path, "-map", "0", "-c", "copy"}
	for _, tag := range tags {
		args = append(args, "-metadata", tag)
	}
	if strings.EqualFold(filepath.Ext(path), ".mp3") {
		args = append(args, "-id3v2_version", "3")
	}
	return append(args, fileutil.TempSibling(path, TempTag))
}

// ffmpegTagPairs renders m as key=value pairs using ffmpeg's generic tag names.
func ffmpegTagPairs(m Metadata) []string {
	var pairs []string
	add := func(key, value string) {
		if value != "" {
			pairs = append(pairs, key+"="+value)
		}
	}
	add("title", m.Title)
	add("artist", m.Artist)
	add("album_artist", m.AlbumArtist)
	add("album", m.Album)
	add("date", m.Date)
	add("genre", m.Genre)
	add("track", joinPosition(m.TrackNumber, m.TrackTotal))
	add("disc", joinPosition(m.DiscNumber, m.DiscTotal))
	return pairs
}
