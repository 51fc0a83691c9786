package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"cadence/internal/convert"
	"cadence/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var source string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent conversion attempts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openHistory()
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			var attempts []history.Attempt
			if source != "" {
				attempts, err = store.ForSource(cmd.Context(), source)
			} else {
				attempts, err = store.Recent(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(attempts) == 0 {
				fmt.Fprintln(out, "No conversion attempts recorded")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Started", "Outcome", "File", "Exit", "Relayed", "Duration"},
				historyRows(attempts),
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
			))

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s attempts: %d succeeded, %d failed, %d cancelled; %s relayed\n",
				humanize.Comma(int64(stats.Total)),
				stats.ByOutcome[convert.OutcomeSucceeded],
				stats.ByOutcome[convert.OutcomeFailed],
				stats.ByOutcome[convert.OutcomeCancelled],
				humanize.Bytes(uint64(stats.BytesRelayed)),
			)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Number of attempts to show (0 for all)")
	cmd.Flags().StringVar(&source, "source", "", "Only show attempts for this source file")
	cmd.AddCommand(newHistoryPruneCommand(ctx))
	return cmd
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete attempts older than a number of days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 0 {
				return fmt.Errorf("--days must be non-negative, got %d", days)
			}
			store, err := ctx.openHistory()
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			cutoff := time.Now().Add(-time.Duration(days) * 24 * time.Hour)
			removed, err := store.Prune(cmd.Context(), cutoff)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d attempts older than %s\n", removed, humanize.Time(cutoff))
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 90, "Keep attempts newer than this many days")
	return cmd
}

func historyRows(attempts []history.Attempt) [][]string {
	rows := make([][]string, 0, len(attempts))
	for _, a := range attempts {
		exit := "-"
		if a.DecoderExit >= 0 || a.EncoderExit >= 0 {
			exit = strconv.Itoa(a.DecoderExit) + "/" + strconv.Itoa(a.EncoderExit)
		}
		rows = append(rows, []string{
			a.StartedAt.Local().Format("2006-01-02 15:04"),
			string(a.Outcome),
			filepath.Base(a.Source),
			exit,
			humanize.Bytes(uint64(a.BytesRelayed)),
			a.Duration.Round(time.Millisecond).String(),
		})
	}
	return rows
}
