package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"cadence/internal/config"
	"cadence/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithCopyPrograms())
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Chdir(base)

	cfg.Metadata.FFmpegBinary = testsupport.WriteScript(t, filepath.Join(base, "bin", "ffmpeg-copy"), testsupport.FFmpegCopyScript)
	cfg.Metadata.FFprobeBinary = testsupport.WriteScript(t, filepath.Join(base, "bin", "ffprobe-empty"), `echo '{"streams":[],"format":{}}'`)

	configPath := filepath.Join(homeDir, ".config", "cadence", "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.configPath)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
}

func TestConfigShowPrintsEffectiveConfig(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "[decoder]")
	requireContains(t, out, env.cfg.Paths.SourceDir)
}

func TestConvertCommandConvertsAndRecordsHistory(t *testing.T) {
	env := setupCLITestEnv(t)
	source := filepath.Join(env.cfg.Paths.SourceDir, "Album", "01.flac")
	testsupport.WriteFLAC(t, source)
	destination := filepath.Join(env.baseDir, "single", "01.flac")

	out, _, err := runCLI(t, []string{"convert", source, destination}, env.configPath)
	if err != nil {
		t.Fatalf("convert: %v\n%s", err, out)
	}
	requireContains(t, out, "Converted "+destination)
	requireContains(t, out, "$ stubdec")

	want, _ := os.ReadFile(source)
	got, err := os.ReadFile(destination)
	if err != nil {
		t.Fatalf("read destination: %v", err)
	}
	if !bytes.HasPrefix(got, []byte("fLaC")) || len(got) < len(want) {
		t.Fatalf("unexpected destination content (%d bytes)", len(got))
	}

	out, _, err = runCLI(t, []string{"history", "--limit", "5"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "succeeded")
	requireContains(t, out, "01.flac")
	requireContains(t, out, "1 attempts: 1 succeeded")
}

func TestConvertCommandSimulate(t *testing.T) {
	env := setupCLITestEnv(t)
	source := filepath.Join(env.cfg.Paths.SourceDir, "01.flac")
	testsupport.WriteFLAC(t, source)
	destination := filepath.Join(env.baseDir, "out", "01.mp3")

	out, _, err := runCLI(t, []string{"convert", "--simulate", source, destination}, env.configPath)
	if err != nil {
		t.Fatalf("convert --simulate: %v", err)
	}
	requireContains(t, out, "Simulation complete")
	requireContains(t, out, "would create directory")
	if _, err := os.Stat(filepath.Dir(destination)); !os.IsNotExist(err) {
		t.Fatalf("simulate created the destination directory: %v", err)
	}
	if _, err := os.Stat(env.cfg.HistoryPath()); !os.IsNotExist(err) {
		t.Fatalf("simulate recorded history: %v", err)
	}
}

func TestConvertCommandReportsMissingSource(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"convert", filepath.Join(env.baseDir, "nope.flac"), filepath.Join(env.baseDir, "x.mp3")}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestConvertCommandFailure(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Decoder.Binary = testsupport.WriteScript(t, filepath.Join(env.baseDir, "bin", "brokendec"), "exit 4")
	writeTestConfig(t, env.configPath, env.cfg)
	source := filepath.Join(env.cfg.Paths.SourceDir, "01.flac")
	testsupport.WriteFLAC(t, source)
	destination := filepath.Join(env.baseDir, "out", "01.flac")

	_, _, err := runCLI(t, []string{"convert", source, destination}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "conversion failed") {
		t.Fatalf("expected conversion failure, got %v", err)
	}
	if _, statErr := os.Stat(destination); !os.IsNotExist(statErr) {
		t.Fatal("failed conversion must not leave a destination behind")
	}
}

func TestSyncCommandMirrorsLibrary(t *testing.T) {
	env := setupCLITestEnv(t)
	for _, name := range []string{"A/01.flac", "A/02.flac", "B/01.flac"} {
		testsupport.WriteFLAC(t, filepath.Join(env.cfg.Paths.SourceDir, name))
	}

	out, _, err := runCLI(t, []string{"sync"}, env.configPath)
	if err != nil {
		t.Fatalf("sync: %v\n%s", err, out)
	}
	requireContains(t, out, "3 to convert")
	requireContains(t, out, "Converted 3")
	for _, name := range []string{"A/01.mp3", "A/02.mp3", "B/01.mp3"} {
		if _, err := os.Stat(filepath.Join(env.cfg.Paths.TargetDir, name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}

	out, _, err = runCLI(t, []string{"sync"}, env.configPath)
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	requireContains(t, out, "0 to convert")
	requireContains(t, out, "3 up to date")
}

func TestSyncCommandSimulate(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteFLAC(t, filepath.Join(env.cfg.Paths.SourceDir, "01.flac"))

	out, _, err := runCLI(t, []string{"sync", "--simulate"}, env.configPath)
	if err != nil {
		t.Fatalf("sync --simulate: %v", err)
	}
	requireContains(t, out, "simulated 1")
	if _, err := os.Stat(filepath.Join(env.cfg.Paths.TargetDir, "01.mp3")); !os.IsNotExist(err) {
		t.Fatalf("simulate produced output: %v", err)
	}
	if _, err := os.Stat(env.cfg.HistoryPath()); !os.IsNotExist(err) {
		t.Fatalf("simulate recorded history: %v", err)
	}
}

// syncBuffer lets a test read command output while the command is running.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitForOutput(t *testing.T, out *syncBuffer, substr string) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for !strings.Contains(out.String(), substr) {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %q in:\n%s", substr, out.String())
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestSyncCommandWatchConvertsNewFiles(t *testing.T) {
	env := setupCLITestEnv(t)

	cmd := newRootCommand()
	var out, errOut syncBuffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"--config", env.configPath, "sync", "--watch", "--settle", "200ms"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	waitForOutput(t, &out, "Watching")
	testsupport.WriteFLAC(t, filepath.Join(env.cfg.Paths.SourceDir, "Album", "01.flac"))
	waitForOutput(t, &out, "Converted 1")
	if _, err := os.Stat(filepath.Join(env.cfg.Paths.TargetDir, "Album", "01.mp3")); err != nil {
		t.Fatalf("expected converted file: %v", err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("sync --watch: %v\n%s", err, errOut.String())
		}
	case <-time.After(10 * time.Second):
		t.Fatal("sync --watch did not stop after cancellation")
	}
	requireContains(t, out.String(), "Watch stopped")
}

func TestSyncCommandRefusesWhenLocked(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.MkdirAll(env.cfg.Paths.StateDir, 0o755); err != nil {
		t.Fatal(err)
	}
	lock := testsupport.HoldLock(t, env.cfg.LockPath())
	defer lock()

	_, _, err := runCLI(t, []string{"sync"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("expected lock contention error, got %v", err)
	}
}

func TestCheckCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"check"}, env.configPath)
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	requireContains(t, out, "All checks passed")
	requireContains(t, out, "Target library")

	env.cfg.Encoder.Binary = "cadence-test-missing-encoder"
	writeTestConfig(t, env.configPath, env.cfg)
	out, _, err = runCLI(t, []string{"check"}, env.configPath)
	if err == nil {
		t.Fatal("expected check failure with a missing encoder")
	}
	requireContains(t, out, "not found")
}

func TestHistoryEmptyAndPrune(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No conversion attempts recorded")

	out, _, err = runCLI(t, []string{"history", "prune", "--days", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("history prune: %v", err)
	}
	requireContains(t, out, "Removed 0 attempts")
}
