package library

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cadence/internal/fileutil"
	"cadence/internal/logging"
	"cadence/internal/metadata"
)

// CleanResult contains the outcome of a stale temp file sweep.
type CleanResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStale removes tag-write temp files under targetDir older than maxAge.
func CleanStale(ctx context.Context, targetDir string, maxAge time.Duration, logger *slog.Logger) CleanResult {
	result := CleanResult{}
	if logger == nil {
		logger = logging.NewNop()
	}

	targetDir = strings.TrimSpace(targetDir)
	if targetDir == "" {
		return result
	}
	if _, err := os.Stat(targetDir); err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: targetDir, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	walkErr := filepath.WalkDir(targetDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			if entry != nil && entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if entry.IsDir() || !fileutil.IsTempSibling(entry.Name(), metadata.TempTag) {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			return nil
		}
		if !info.ModTime().Before(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			logging.WarnWithContext(logger, "failed to remove stale temp file", "temp_cleanup_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check target_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			return nil
		}
		result.Removed = append(result.Removed, path)
		logger.Info("removed stale temp file",
			logging.String("path", path),
			logging.Duration("age", time.Since(info.ModTime())),
			logging.String(logging.FieldEventType, "temp_cleanup"),
		)
		return nil
	})
	if walkErr != nil {
		result.Errors = append(result.Errors, CleanupError{Path: targetDir, Error: walkErr})
	}
	return result
}
