package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCopyFileModeSetsPermissions(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")

	if err := os.WriteFile(src, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := CopyFileMode(src, dst, 0o755); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	// umask may clear some bits.
	if info.Mode().Perm()&0o111 == 0 {
		t.Fatalf("expected executable bits, got %o", info.Mode().Perm())
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "data" {
		t.Fatalf("content mismatch: got %q", got)
	}
}

func TestCopyFileVerified(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.mp3")
	dst := filepath.Join(dir, "dst.mp3")

	content := []byte("verified copy content")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := CopyFileVerified(src, dst, 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: got %q, want %q", got, content)
	}
}

func TestCopyFileVerifiedMissingSource(t *testing.T) {
	dir := t.TempDir()
	if err := CopyFileVerified(filepath.Join(dir, "nope"), filepath.Join(dir, "dst"), 0o644); err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestTempSiblingKeepsExtensionAndDirectory(t *testing.T) {
	got := TempSibling("/music/Album/01 Intro.mp3", "tagging")
	want := "/music/Album/.01 Intro.tagging.mp3"
	if got != want {
		t.Fatalf("TempSibling = %q, want %q", got, want)
	}
}

func TestIsTempSibling(t *testing.T) {
	if !IsTempSibling(TempSibling("/music/a b.mp3", "tagging"), "tagging") {
		t.Fatal("expected generated name to match")
	}
	for _, name := range []string{"a.tagging.mp3", ".hidden.mp3", ".a.other.mp3"} {
		if IsTempSibling(name, "tagging") {
			t.Fatalf("%q should not match", name)
		}
	}
}

func TestReplaceFileOverwritesTarget(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, ".track.tmp.mp3")
	dst := filepath.Join(dir, "track.mp3")
	if err := os.WriteFile(src, []byte("new"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dst, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := ReplaceFile(src, dst); err != nil {
		t.Fatalf("ReplaceFile: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "new" {
		t.Fatalf("expected replaced content, got %q", got)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("expected source removed, stat err=%v", err)
	}
}

func TestReplaceFileMissingSource(t *testing.T) {
	dir := t.TempDir()
	if err := ReplaceFile(filepath.Join(dir, "missing"), filepath.Join(dir, "dst")); err == nil {
		t.Fatal("expected error for missing source")
	}
}
