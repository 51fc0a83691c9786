package metadata

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestParseTagStyle(t *testing.T) {
	for input, want := range map[string]TagStyle{
		"":         TagStyleNone,
		"LAME":     TagStyleLame,
		" ffmpeg ": TagStyleFFmpeg,
		"opusenc":  TagStyleOpusenc,
		"none":     TagStyleNone,
	} {
		got, err := ParseTagStyle(input)
		if err != nil || got != want {
			t.Errorf("ParseTagStyle(%q) = %q, %v", input, got, err)
		}
	}
	if _, err := ParseTagStyle("id3"); err == nil {
		t.Fatal("expected error for unknown style")
	}
}

func TestEncoderTagArgsLame(t *testing.T) {
	m := Metadata{
		Title:       "Song",
		Artist:      "Band",
		Album:       "Record",
		Date:        "2001-02-03",
		TrackNumber: "4",
		TrackTotal:  "10",
		AlbumArtist: "Various",
		DiscNumber:  "1",
	}
	got := EncoderTagArgs(TagStyleLame, m)
	want := []string{
		"--tt", "Song",
		"--ta", "Band",
		"--tl", "Record",
		"--ty", "2001",
		"--tn", "4/10",
		"--tv", "TPE2=Various",
		"--tv", "TPOS=1",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("lame args = %q\nwant %q", got, want)
	}
}

func TestEncoderTagArgsOpusencAndNone(t *testing.T) {
	m := Metadata{Title: "Song", TrackNumber: "4", TrackTotal: "10"}
	got := EncoderTagArgs(TagStyleOpusenc, m)
	want := []string{"--title", "Song", "--tracknumber", "4", "--comment", "TRACKTOTAL=10"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("opusenc args = %q", got)
	}
	if args := EncoderTagArgs(TagStyleNone, m); len(args) != 0 {
		t.Fatalf("expected no args for none, got %q", args)
	}
	ff := EncoderTagArgs(TagStyleFFmpeg, m)
	if !reflect.DeepEqual(ff, []string{"-metadata", "title=Song", "-metadata", "track=4/10"}) {
		t.Fatalf("ffmpeg args = %q", ff)
	}
}

type recordingStore struct {
	reads []string
}

func (s *recordingStore) Read(_ context.Context, path string) (Metadata, error) {
	s.reads = append(s.reads, path)
	return Metadata{Title: path}, nil
}

func (s *recordingStore) Write(context.Context, string, Metadata, bool) error { return nil }

func TestDispatcherRoutesByExtension(t *testing.T) {
	flacStore := &recordingStore{}
	other := &recordingStore{}
	d := NewDispatcher(other)
	d.Register("FLAC", flacStore)

	ctx := context.Background()
	if _, err := d.Read(ctx, "/a/one.Flac"); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Read(ctx, "/a/two.mp3"); err != nil {
		t.Fatal(err)
	}
	if len(flacStore.reads) != 1 || len(other.reads) != 1 {
		t.Fatalf("unexpected routing flac=%v other=%v", flacStore.reads, other.reads)
	}

	bare := NewDispatcher(nil)
	if _, err := bare.Read(ctx, "/a/three.wav"); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}
