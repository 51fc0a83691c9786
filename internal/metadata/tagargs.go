package metadata

import (
	"fmt"
	"strings"
)

// TagStyle selects how tags are passed to an encoder on its command line.
type TagStyle string

const (
	TagStyleNone    TagStyle = "none"
	TagStyleLame    TagStyle = "lame"
	TagStyleFFmpeg  TagStyle = "ffmpeg"
	TagStyleOpusenc TagStyle = "opusenc"
)

// ParseTagStyle validates a configured tag style. Empty means none.
func ParseTagStyle(value string) (TagStyle, error) {
	switch style := TagStyle(strings.ToLower(strings.TrimSpace(value))); style {
	case "", TagStyleNone:
		return TagStyleNone, nil
	case TagStyleLame, TagStyleFFmpeg, TagStyleOpusenc:
		return style, nil
	default:
		return "", fmt.Errorf("unknown tag style %q (want lame, ffmpeg, opusenc, or none)", value)
	}
}

// EncoderTagArgs renders m as command-line options for the given encoder style.
// Empty fields are omitted.
func EncoderTagArgs(style TagStyle, m Metadata) []string {
	var args []string
	add := func(flag, value string) {
		if value != "" {
			args = append(args, flag, value)
		}
	}

	switch style {
	case TagStyleLame:
		add("--tt", m.Title)
		add("--ta", m.Artist)
		add("--tl", m.Album)
		add("--ty", year(m.Date))
		add("--tn", joinPosition(m.TrackNumber, m.TrackTotal))
		add("--tg", m.Genre)
		if m.AlbumArtist != "" {
			add("--tv", "TPE2="+m.AlbumArtist)
		}
		if disc := joinPosition(m.DiscNumber, m.DiscTotal); disc != "" {
			add("--tv", "TPOS="+disc)
		}
	case TagStyleFFmpeg:
		for _, pair := range ffmpegTagPairs(m) {
			add("-metadata", pair)
		}
	case TagStyleOpusenc:
		add("--title", m.Title)
		add("--artist", m.Artist)
		add("--album", m.Album)
		add("--date", m.Date)
		add("--genre", m.Genre)
		add("--tracknumber", m.TrackNumber)
		if m.AlbumArtist != "" {
			add("--comment", "ALBUMARTIST="+m.AlbumArtist)
		}
		if m.TrackTotal != "" {
			add("--comment", "TRACKTOTAL="+m.TrackTotal)
		}
		if m.DiscNumber != "" {
			add("--comment", "DISCNUMBER="+m.DiscNumber)
		}
		if m.DiscTotal != "" {
			add("--comment", "DISCTOTAL="+m.DiscTotal)
		}
	}
	return args
}

// year extracts the leading four digit year lame's --ty option expects.
func year(date string) string {
	date = strings.TrimSpace(date)
	if len(date) >= 4 {
		prefix := date[:4]
		for _, r := range prefix {
			if r < '0' || r > '9' {
				return date
			}
		}
		return prefix
	}
	return date
}
