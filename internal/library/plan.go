package library

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"cadence/internal/config"
)

// Layout names the two library roots and the extensions that map between
// them.
type Layout struct {
	SourceDir string
	TargetDir string
	SourceExt string
	TargetExt string
}

// LayoutFromConfig builds the layout described by cfg.
func LayoutFromConfig(cfg *config.Config) Layout {
	return Layout{
		SourceDir: cfg.Paths.SourceDir,
		TargetDir: cfg.Paths.TargetDir,
		SourceExt: cfg.Decoder.SourceExtension,
		TargetExt: cfg.Encoder.Extension,
	}
}

// Reason explains why a job was planned.
type Reason string

const (
	ReasonMissing Reason = "missing"
	ReasonStale   Reason = "stale"
)

// Job is one planned conversion.
type Job struct {
	Source      string
	Destination string
	Size        int64
	Reason      Reason
}

// Plan is the outcome of comparing the two trees.
type Plan struct {
	Jobs     []Job
	UpToDate int
}

// TotalBytes sums the source sizes of every job.
func (p Plan) TotalBytes() int64 {
	var total int64
	for _, job := range p.Jobs {
		total += job.Size
	}
	return total
}

// Target maps a source path onto the target tree.
func (l Layout) Target(source string) (string, error) {
	rel, err := filepath.Rel(l.SourceDir, source)
	if err != nil {
		return "", fmt.Errorf("relative path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside %s", source, l.SourceDir)
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel)) + l.TargetExt
	return filepath.Join(l.TargetDir, rel), nil
}

// BuildPlan walks the source tree in lexical order. Hidden files and
// directories are ignored, as is anything inside the target tree when it is
// nested under the source.
func BuildPlan(ctx context.Context, layout Layout) (Plan, error) {
	var plan Plan
	if strings.TrimSpace(layout.SourceDir) == "" || strings.TrimSpace(layout.TargetDir) == "" {
		return plan, errors.New("source and target directories are required")
	}
	targetRoot := filepath.Clean(layout.TargetDir)

	err := filepath.WalkDir(layout.SourceDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if path != layout.SourceDir && strings.HasPrefix(entry.Name(), ".") {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if entry.IsDir() {
			if filepath.Clean(path) == targetRoot {
				return filepath.SkipDir
			}
			return nil
		}
		if !entry.Type().IsRegular() || !strings.EqualFold(filepath.Ext(path), layout.SourceExt) {
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			return err
		}
		dst, err := layout.Target(path)
		if err != nil {
			return err
		}
		job := Job{Source: path, Destination: dst, Size: info.Size(), Reason: ReasonMissing}
		if dstInfo, statErr := os.Stat(dst); statErr == nil {
			if !dstInfo.ModTime().Before(info.ModTime()) {
				plan.UpToDate++
				return nil
			}
			job.Reason = ReasonStale
		}
		plan.Jobs = append(plan.Jobs, job)
		return nil
	})
	if err != nil {
		return Plan{}, fmt.Errorf("scan %s: %w", layout.SourceDir, err)
	}
	return plan, nil
}
