package metadata

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
)

// writeMinimalFLAC writes a stream marker, an empty STREAMINFO block and a
// few frame bytes starting with a frame sync code.
func writeMinimalFLAC(t *testing.T, path string) []byte {
	t.Helper()
	frames := []byte{0xff, 0xf8, 0x69, 0x08, 0x00, 0x00, 0x5a, 0x5a}
	var buf bytes.Buffer
	buf.WriteString("fLaC")
	buf.Write([]byte{0x80, 0x00, 0x00, 34})
	buf.Write(make([]byte, 34))
	buf.Write(frames)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return frames
}

func TestFLACStoreWriteThenRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.flac")
	frames := writeMinimalFLAC(t, path)
	store := FLACStore{}
	ctx := context.Background()

	empty, err := store.Read(ctx, path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !empty.IsZero() {
		t.Fatalf("expected no tags, got %+v", empty)
	}

	want := Metadata{Title: "Intro", Artist: "Band", TrackNumber: "1", TrackTotal: "9"}
	if err := store.Write(ctx, path, want, true); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := store.Read(ctx, path)
	if err != nil {
		t.Fatalf("Read after write: %v", err)
	}
	if got != want {
		t.Fatalf("read back %+v, want %+v", got, want)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasSuffix(data, frames) {
		t.Fatal("expected audio frames preserved after tagging")
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(path), ".track.tagging.flac")); !os.IsNotExist(err) {
		t.Fatalf("expected temporary file removed, stat err=%v", err)
	}
}

func TestFLACStoreWriteWithoutOverwriteFillsGaps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.flac")
	writeMinimalFLAC(t, path)
	store := FLACStore{}
	ctx := context.Background()

	if err := store.Write(ctx, path, Metadata{Title: "Original"}, true); err != nil {
		t.Fatal(err)
	}
	if err := store.Write(ctx, path, Metadata{Title: "Ignored", Album: "Filled"}, false); err != nil {
		t.Fatal(err)
	}
	got, err := store.Read(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Original" || got.Album != "Filled" {
		t.Fatalf("unexpected tags %+v", got)
	}
}

func TestFLACStoreRejectsNonFLAC(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.flac")
	if err := os.WriteFile(path, []byte("ID3 not a flac"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := (FLACStore{}).Read(context.Background(), path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestFLACStoreHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (FLACStore{}).Read(ctx, "/does/not/matter.flac"); err == nil {
		t.Fatal("expected context error")
	}
}
