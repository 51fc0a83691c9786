package metadata

import (
	"context"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Field names the tag values cadence carries from source to destination.
type Field string

const (
	FieldAlbum       Field = "album"
	FieldAlbumArtist Field = "album_artist"
	FieldArtist      Field = "artist"
	FieldDate        Field = "date"
	FieldDiscNumber  Field = "disc_number"
	FieldDiscTotal   Field = "disc_total"
	FieldGenre       Field = "genre"
	FieldTitle       Field = "title"
	FieldTrackNumber Field = "track_number"
	FieldTrackTotal  Field = "track_total"
)

// Fields lists every supported field in a stable order.
var Fields = []Field{
	FieldAlbum,
	FieldAlbumArtist,
	FieldArtist,
	FieldDate,
	FieldDiscNumber,
	FieldDiscTotal,
	FieldGenre,
	FieldTitle,
	FieldTrackNumber,
	FieldTrackTotal,
}

// Metadata is the set of tag values copied from a source file to its
// converted counterpart. Values are passed through uninterpreted.
type Metadata struct {
	Album       string
	AlbumArtist string
	Artist      string
	Date        string
	DiscNumber  string
	DiscTotal   string
	Genre       string
	Title       string
	TrackNumber string
	TrackTotal  string
}

// Store reads and writes tags on audio files.
type Store interface {
	Read(ctx context.Context, path string) (Metadata, error)
	// Write applies m to path. With overwrite set every non-empty value in m
	// replaces the existing one; otherwise only fields missing on path are filled.
	Write(ctx context.Context, path string, m Metadata, overwrite bool) error
}

// Get returns the value stored for field.
func (m Metadata) Get(field Field) string {
	switch field {
	case FieldAlbum:
		return m.Album
	case FieldAlbumArtist:
		return m.AlbumArtist
	case FieldArtist:
		return m.Artist
	case FieldDate:
		return m.Date
	case FieldDiscNumber:
		return m.DiscNumber
	case FieldDiscTotal:
		return m.DiscTotal
	case FieldGenre:
		return m.Genre
	case FieldTitle:
		return m.Title
	case FieldTrackNumber:
		return m.TrackNumber
	case FieldTrackTotal:
		return m.TrackTotal
	default:
		return ""
	}
}

// Set stores a trimmed, NFC-normalized value for field.
func (m *Metadata) Set(field Field, value string) {
	value = norm.NFC.String(strings.TrimSpace(value))
	switch field {
	case FieldAlbum:
		m.Album = value
	case FieldAlbumArtist:
		m.AlbumArtist = value
	case FieldArtist:
		m.Artist = value
	case FieldDate:
		m.Date = value
	case FieldDiscNumber:
		m.DiscNumber = value
	case FieldDiscTotal:
		m.DiscTotal = value
	case FieldGenre:
		m.Genre = value
	case FieldTitle:
		m.Title = value
	case FieldTrackNumber:
		m.TrackNumber = value
	case FieldTrackTotal:
		m.TrackTotal = value
	}
}

// IsZero reports whether no field carries a value.
func (m Metadata) IsZero() bool {
	for _, field := range Fields {
		if m.Get(field) != "" {
			return false
		}
	}
	return true
}

// Merge returns base with fields from overlay applied. Empty overlay values
// never clear base; when overwrite is false only empty base fields are filled.
func Merge(base, overlay Metadata, overwrite bool) Metadata {
	out := base
	for _, field := range Fields {
		value := overlay.Get(field)
		if value == "" {
			continue
		}
		if !overwrite && out.Get(field) != "" {
			continue
		}
		out.Set(field, value)
	}
	return out
}

// splitPosition splits "3/12" style positions into number and total.
func splitPosition(value string) (string, string) {
	number, total, found := strings.Cut(strings.TrimSpace(value), "/")
	if !found {
		return strings.TrimSpace(number), ""
	}
	return strings.TrimSpace(number), strings.TrimSpace(total)
}

func joinPosition(number, total string) string {
	if number == "" {
		return ""
	}
	if total == "" {
		return number
	}
	return number + "/" + total
}
