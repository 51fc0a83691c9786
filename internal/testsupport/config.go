package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"cadence/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Source and target roots are created; log and state directories are not.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.SourceDir = filepath.Join(base, "source")
	cfgVal.Paths.TargetDir = filepath.Join(base, "target")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Encoder.TagStyle = "none"
	for _, dir := range []string{cfgVal.Paths.SourceDir, cfgVal.Paths.TargetDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithCopyPrograms points the decoder and encoder at stub scripts that copy
// the source file to stdout and stdin to the last argument. The stubs are
// placed on PATH as "stubdec" and "stubenc".
func WithCopyPrograms() ConfigOption {
	return func(b *configBuilder) {
		binDir := b.binDir()
		WriteScript(b.t, filepath.Join(binDir, "stubdec"), `cat "$1"`)
		WriteScript(b.t, filepath.Join(binDir, "stubenc"), `for last; do :; done
cat > "$last"`)
		b.cfg.Decoder.Binary = "stubdec"
		b.cfg.Decoder.Options = []string{}
		b.cfg.Encoder.Binary = "stubenc"
		b.cfg.Encoder.Options = []string{}
		b.prependPath(binDir)
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default decoder, encoder and
// metadata tools are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{
				b.cfg.Decoder.Binary,
				b.cfg.Encoder.Binary,
				b.cfg.Metadata.FFprobeBinary,
				b.cfg.Metadata.FFmpegBinary,
			}
		}
		binDir := b.binDir()
		for _, name := range names {
			WriteScript(b.t, filepath.Join(binDir, name), "exit 0")
		}
		b.prependPath(binDir)
	}
}

func (b *configBuilder) binDir() string {
	binDir := filepath.Join(b.baseDir, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		b.t.Fatalf("mkdir bin dir: %v", err)
	}
	return binDir
}

func (b *configBuilder) prependPath(dir string) {
	oldPath := os.Getenv("PATH")
	if err := os.Setenv("PATH", dir+string(os.PathListSeparator)+oldPath); err != nil {
		b.t.Fatalf("set PATH: %v", err)
	}
	b.t.Cleanup(func() {
		_ = os.Setenv("PATH", oldPath)
	})
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.SourceDir)
}
