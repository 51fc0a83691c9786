package library

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"cadence/internal/logging"
)

// DefaultSettle is how long the source tree must stay quiet before Wait
// returns.
const DefaultSettle = 5 * time.Second

// ErrWatcherClosed is returned by Wait after Close.
var ErrWatcherClosed = errors.New("library watcher closed")

// Watcher reports changes to source files so a sync can be re-run.
type Watcher struct {
	fs     *fsnotify.Watcher
	layout Layout
	settle time.Duration
	logger *slog.Logger
}

// NewWatcher watches every directory under layout.SourceDir. Directories
// created later are added as they appear.
func NewWatcher(layout Layout, settle time.Duration, logger *slog.Logger) (*Watcher, error) {
	if settle <= 0 {
		settle = DefaultSettle
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	w := &Watcher{
		fs:     fsw,
		layout: layout,
		settle: settle,
		logger: logging.NewComponentLogger(logger, "watch"),
	}
	if err := w.addTree(layout.SourceDir); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

// Wait blocks until a source file has changed and no further change has
// arrived for the settle period. It returns ctx.Err() when ctx ends first.
func (w *Watcher) Wait(ctx context.Context) error {
	var settled <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fs.Events:
			if !ok {
				return ErrWatcherClosed
			}
			if w.relevant(event) {
				w.logger.Debug("source changed",
					logging.String(logging.FieldSource, event.Name),
					logging.String("op", event.Op.String()),
				)
				settled = time.After(w.settle)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return ErrWatcherClosed
			}
			logging.WarnWithContext(w.logger, "watch error", "watch_error",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "raise fs.inotify.max_user_watches for large libraries"),
				logging.String(logging.FieldImpact, "some changes may go unnoticed until the next event"),
			)
		case <-settled:
			return nil
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") {
		return false
	}
	if event.Has(fsnotify.Create) {
		if isDir(event.Name) {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Debug("watching new directory failed", logging.Error(err))
			}
			return true
		}
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
		return false
	}
	return strings.EqualFold(filepath.Ext(name), w.layout.SourceExt)
}

func (w *Watcher) addTree(root string) error {
	target := filepath.Clean(w.layout.TargetDir)
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && (strings.HasPrefix(d.Name(), ".") || filepath.Clean(path) == target) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
