package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"cadence/internal/convert"
	"cadence/internal/deps"
	"cadence/internal/library"
	"cadence/internal/preflight"
)

// staleTempAge is how old a leftover tag-write temp file must be before sync
// removes it.
const staleTempAge = 24 * time.Hour

func newSyncCommand(ctx *commandContext) *cobra.Command {
	var simulate, watch bool
	var settle time.Duration

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Convert every new or changed file in the source library",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			lock := flock.New(cfg.LockPath())
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire sync lock: %w", err)
			}
			if !locked {
				return fmt.Errorf("another cadence sync is already running (lock %s)", cfg.LockPath())
			}
			defer func() {
				_ = lock.Unlock()
			}()

			if failed := preflight.Failed(preflight.RunAll(cfg)); len(failed) > 0 {
				return fmt.Errorf("preflight failed: %s: %s", failed[0].Name, failed[0].Detail)
			}
			simulating := simulate || cfg.Conversion.Simulate
			if statuses := preflight.CheckSystemDeps(cfg); !simulating && !deps.Satisfied(statuses) {
				return errors.New("required programs are missing; run `cadence check` for details")
			}

			logger, closer, err := ctx.logger(cmd)
			if err != nil {
				return err
			}
			defer closer.Close()

			library.CleanStale(cmd.Context(), cfg.Paths.TargetDir, staleTempAge, logger)

			store, err := ctx.historyFor(simulate)
			if err != nil {
				return err
			}
			if store != nil {
				defer store.Close()
			}

			progress := newSyncProgress(out)
			syncer, err := library.NewSyncer(
				ctx.metadataStore(),
				ctx.requestTemplate(simulate),
				append(ctx.coordinatorOptions(logger, store), convert.WithSink(convert.LogSink{Logger: logger})),
				library.WithObserver(progress),
				library.WithSyncLogger(logger),
			)
			if err != nil {
				return err
			}

			runCtx, release := onInterrupt(cmd.Context(), syncer.Coordinator().Cancel)
			defer release()

			layout := library.LayoutFromConfig(cfg)
			if !watch {
				return syncOnce(runCtx, out, syncer, progress, layout)
			}

			// Changes made while a pass runs are picked up by the next Wait.
			watcher, err := library.NewWatcher(layout, settle, logger)
			if err != nil {
				return err
			}
			defer watcher.Close()
			for {
				if err := syncOnce(runCtx, out, syncer, progress, layout); err != nil {
					if runCtx.Err() != nil {
						return err
					}
					fmt.Fprintf(out, "Sync pass failed: %v\n", err)
				}
				fmt.Fprintf(out, "Watching %s for changes\n", layout.SourceDir)
				if err := watcher.Wait(runCtx); err != nil {
					if runCtx.Err() != nil {
						fmt.Fprintln(out, "Watch stopped")
						return nil
					}
					return err
				}
			}
		},
	}

	cmd.Flags().BoolVarP(&simulate, "simulate", "n", false, "Plan and print the commands without running them")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep running and sync again whenever the source library changes")
	cmd.Flags().DurationVar(&settle, "settle", library.DefaultSettle, "Quiet period after a change before a watch pass starts")
	return cmd
}

// syncOnce plans and runs one pass over the library.
func syncOnce(ctx context.Context, out io.Writer, syncer *library.Syncer, progress *syncProgress, layout library.Layout) error {
	plan, err := library.BuildPlan(ctx, layout)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%d to convert (%s), %d up to date\n",
		len(plan.Jobs), humanize.Bytes(uint64(plan.TotalBytes())), plan.UpToDate)
	if len(plan.Jobs) == 0 {
		return nil
	}

	progress.start(len(plan.Jobs))
	summary, runErr := syncer.Run(ctx, plan)
	progress.finish()

	printSummary(out, summary)
	if summary.Cancelled {
		return runErr
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d conversions failed", summary.Failed, summary.Planned)
	}
	return nil
}

func printSummary(out io.Writer, summary library.Summary) {
	fmt.Fprintf(out, "Converted %s, simulated %s, failed %s, %s relayed in %s\n",
		humanize.Comma(int64(summary.Converted)),
		humanize.Comma(int64(summary.Simulated)),
		humanize.Comma(int64(summary.Failed)),
		humanize.Bytes(uint64(summary.Bytes)),
		summary.Elapsed.Round(time.Second),
	)
	for _, failure := range summary.Failures {
		fmt.Fprintf(out, "  failed: %s: %v\n", failure.Job.Source, failure.Err)
	}
	if summary.Cancelled {
		fmt.Fprintln(out, "Sync cancelled")
	}
}

// syncProgress renders a progress bar on terminals and one line per job
// elsewhere. It is restarted for every pass.
type syncProgress struct {
	out io.Writer
	bar *progressbar.ProgressBar
}

func newSyncProgress(out io.Writer) *syncProgress {
	return &syncProgress{out: out}
}

func (p *syncProgress) start(total int) {
	p.bar = nil
	if isTerminalWriter(p.out) {
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionSetDescription("converting"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionClearOnFinish(),
		)
	}
}

func (p *syncProgress) JobStarted(index, total int, job library.Job) {
	if p.bar != nil {
		p.bar.Describe(job.Source)
		return
	}
	fmt.Fprintf(p.out, "[%d/%d] %s\n", index+1, total, job.Source)
}

func (p *syncProgress) JobFinished(_, _ int, job library.Job, report convert.Report) {
	if p.bar != nil {
		_ = p.bar.Add(1)
		return
	}
	if !report.Succeeded() {
		fmt.Fprintf(p.out, "        %s\n", report.Outcome)
	}
}

func (p *syncProgress) finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

func isTerminalWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd())
}
