package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"

	"cadence/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	// Level is the minimum level for every output.
	Level string
	// Format selects the console rendering: "console" or "json".
	Format string
	// Console receives interactive output. Nil means os.Stderr.
	Console io.Writer
	// FilePath enables a rotating JSON log file when set.
	FilePath      string
	MaxSizeMB     int
	RetentionDays int
}

// New constructs a slog logger using the provided options. The returned
// closer flushes and closes the log file, if any.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}
	levelVar := new(slog.LevelVar)
	levelVar.Set(level)
	addSource := level <= slog.LevelDebug

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	var consoleHandler slog.Handler
	switch format := strings.ToLower(strings.TrimSpace(opts.Format)); format {
	case "", "console":
		consoleHandler = newConsoleHandler(console, levelVar, addSource, isTerminal(console))
	case "json":
		consoleHandler = newJSONHandler(console, levelVar, addSource)
	default:
		return nil, nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	path := strings.TrimSpace(opts.FilePath)
	if path == "" {
		return slog.New(consoleHandler), closerFunc(func() error { return nil }), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("ensure log directory: %w", err)
	}
	file := &lumberjack.Logger{
		Filename:  path,
		MaxSize:   opts.MaxSizeMB,
		MaxAge:    opts.RetentionDays,
		LocalTime: true,
		Compress:  true,
	}
	logger := slog.New(newTeeHandler(consoleHandler, newJSONHandler(file, levelVar, addSource)))
	return logger, file, nil
}

// NewFromConfig creates a logger using application config: the configured
// console format on stderr plus a rotating JSON file under the log directory.
func NewFromConfig(cfg *config.Config) (*slog.Logger, io.Closer, error) {
	return New(OptionsFromConfig(cfg))
}

// OptionsFromConfig maps the logging section of cfg onto Options. Console is
// left nil.
func OptionsFromConfig(cfg *config.Config) Options {
	if cfg == nil {
		return Options{Level: "info", Format: "console"}
	}
	opts := Options{
		Level:         cfg.Logging.Level,
		Format:        cfg.Logging.Format,
		MaxSizeMB:     cfg.Logging.MaxSizeMB,
		RetentionDays: cfg.Logging.RetentionDays,
	}
	if strings.TrimSpace(cfg.Paths.LogDir) != "" {
		opts.FilePath = cfg.LogPath()
	}
	return opts
}

// ParseLevel maps a configured level name onto slog levels.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log level: unsupported value %q", level)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
