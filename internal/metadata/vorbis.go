package metadata

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

const defaultVendor = "cadence"

// vorbisComment is the payload of a FLAC VORBIS_COMMENT metadata block.
type vorbisComment struct {
	Vendor   string
	Comments []string
}

func parseVorbisComment(data []byte) (*vorbisComment, error) {
	r := bytes.NewReader(data)

	vendor, err := readLengthPrefixed(r)
	if err != nil {
		return nil, fmt.Errorf("vendor string: %w", err)
	}

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("comment count: %w", err)
	}
	if int64(count) > int64(r.Len())/4 {
		return nil, fmt.Errorf("comment count %d exceeds block size", count)
	}

	comments := make([]string, 0, count)
	for i := uint32(0); i < count; i++ {
		comment, err := readLengthPrefixed(r)
		if err != nil {
			return nil, fmt.Errorf("comment %d: %w", i, err)
		}
		comments = append(comments, comment)
	}
	return &vorbisComment{Vendor: vendor, Comments: comments}, nil
}

func readLengthPrefixed(r *bytes.Reader) (string, error) {
	var length uint32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return "", err
	}
	if int64(length) > int64(r.Len()) {
		return "", io.ErrUnexpectedEOF
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func (vc *vorbisComment) Marshal() []byte {
	var buf bytes.Buffer
	writeLengthPrefixed(&buf, vc.Vendor)
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(vc.Comments)))
	for _, comment := range vc.Comments {
		writeLengthPrefixed(&buf, comment)
	}
	return buf.Bytes()
}

func writeLengthPrefixed(buf *bytes.Buffer, value string) {
	_ = binary.Write(buf, binary.LittleEndian, uint32(len(value)))
	buf.WriteString(value)
}

// get returns the first value stored under any of the given names.
func (vc *vorbisComment) get(names ...string) string {
	for _, name := range names {
		for _, comment := range vc.Comments {
			key, value, ok := strings.Cut(comment, "=")
			if ok && strings.EqualFold(key, name) && strings.TrimSpace(value) != "" {
				return value
			}
		}
	}
	return ""
}

// set replaces every comment stored under name (and its aliases) with value.
func (vc *vorbisComment) set(value string, name string, aliases ...string) {
	names := append([]string{name}, aliases...)
	kept := vc.Comments[:0]
	for _, comment := range vc.Comments {
		key, _, _ := strings.Cut(comment, "=")
		drop := false
		for _, n := range names {
			if strings.EqualFold(key, n) {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, comment)
		}
	}
	vc.Comments = append(kept, name+"="+value)
}

type vorbisKey struct {
	name    string
	aliases []string
}

var vorbisKeys = map[Field]vorbisKey{
	FieldAlbum:       {name: "ALBUM"},
	FieldAlbumArtist: {name: "ALBUMARTIST", aliases: []string{"ALBUM ARTIST", "ALBUM_ARTIST"}},
	FieldArtist:      {name: "ARTIST"},
	FieldDate:        {name: "DATE", aliases: []string{"YEAR"}},
	FieldDiscNumber:  {name: "DISCNUMBER"},
	FieldDiscTotal:   {name: "DISCTOTAL", aliases: []string{"TOTALDISCS"}},
	FieldGenre:       {name: "GENRE"},
	FieldTitle:       {name: "TITLE"},
	FieldTrackNumber: {name: "TRACKNUMBER"},
	FieldTrackTotal:  {name: "TRACKTOTAL", aliases: []string{"TOTALTRACKS"}},
}

func (vc *vorbisComment) metadata() Metadata {
	var m Metadata
	for _, field := range Fields {
		key := vorbisKeys[field]
		m.Set(field, vc.get(append([]string{key.name}, key.aliases...)...))
	}
	// "3/12" style positions are common in files tagged by older tools.
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
	return m
}

func (vc *vorbisComment) apply(m Metadata, overwrite bool) {
	current := vc.metadata()
	for _, field := range Fields {
		value := m.Get(field)
		if value == "" {
			continue
		}
		if !overwrite && current.Get(field) != "" {
			continue
		}
		key := vorbisKeys[field]
		vc.set(value, key.name, key.aliases...)
	}
}
