package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// WriteFLAC writes the smallest file FLAC parsers accept: the stream marker,
// a zeroed STREAMINFO block marked last, and a few frame bytes.
func WriteFLAC(t testing.TB, path string) {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("fLaC")
	buf.Write([]byte{0x80, 0x00, 0x00, 34})
	buf.Write(make([]byte, 34))
	buf.Write([]byte{0xff, 0xf8, 0x69, 0x08, 0x00, 0x00, 0x5a, 0x5a})
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write flac %s: %v", path, err)
	}
}

// FFmpegCopyScript is a stand-in for ffmpeg that copies the -i input to the
// last argument, enough for stream-copy tag writes.
const FFmpegCopyScript = `in=""
prev=""
for a; do
  if [ "$prev" = "-i" ]; then in="$a"; fi
  prev="$a"
done
cp "$in" "$prev"`
