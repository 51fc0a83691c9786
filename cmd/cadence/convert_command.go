package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"cadence/internal/config"
	"cadence/internal/convert"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var simulate bool

	cmd := &cobra.Command{
		Use:   "convert <source> <destination>",
		Short: "Convert a single file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve source: %w", err)
			}
			destination, err := config.ExpandPath(args[1])
			if err != nil {
				return fmt.Errorf("resolve destination: %w", err)
			}

			logger, closer, err := ctx.logger(cmd)
			if err != nil {
				return err
			}
			defer closer.Close()

			store, err := ctx.historyFor(simulate)
			if err != nil {
				return err
			}
			if store != nil {
				defer store.Close()
			}

			var report convert.Report
			opts := append(ctx.coordinatorOptions(logger, store),
				convert.WithSink(newConsoleSink(cmd.OutOrStdout())),
				convert.WithReporter(func(r convert.Report) { report = r }),
			)
			coord, err := convert.New(ctx.metadataStore(), opts...)
			if err != nil {
				return err
			}

			req := ctx.requestTemplate(simulate)
			req.Source = source
			req.Destination = destination

			runCtx, release := onInterrupt(cmd.Context(), coord.Cancel)
			ok, err := coord.Convert(runCtx, req)
			release()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case ok && report.Outcome == convert.OutcomeSimulated:
				fmt.Fprintln(out, "Simulation complete; nothing was written")
				return nil
			case ok:
				printConverted(out, destination, report)
				return nil
			case report.Outcome == convert.OutcomeCancelled:
				fmt.Fprintln(out, "Conversion cancelled")
				return context.Canceled
			default:
				if report.Err != nil {
					return fmt.Errorf("conversion failed: %w", report.Err)
				}
				return errors.New("conversion failed")
			}
		},
	}

	cmd.Flags().BoolVarP(&simulate, "simulate", "n", false, "Print the commands without running them")
	return cmd
}

func printConverted(out io.Writer, destination string, report convert.Report) {
	size := "unknown size"
	if info, err := os.Stat(destination); err == nil {
		size = humanize.Bytes(uint64(info.Size()))
	}
	fmt.Fprintf(out, "Converted %s (%s, %s relayed in %s)\n",
		destination,
		size,
		humanize.Bytes(uint64(report.BytesRelayed)),
		report.Duration.Round(10*time.Millisecond),
	)
}

// consoleSink prints coordinator progress for interactive commands.
type consoleSink struct {
	out io.Writer
}

func newConsoleSink(out io.Writer) consoleSink {
	return consoleSink{out: out}
}

func (s consoleSink) AddMessage(text string) {
	fmt.Fprintf(s.out, "==> %s\n", text)
}

func (s consoleSink) AddCommand(text string) {
	fmt.Fprintf(s.out, "  $ %s\n", text)
}
