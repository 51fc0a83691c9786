package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"cadence/internal/deps"
	"cadence/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify programs and directories are ready",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			statuses := preflight.CheckSystemDeps(cfg)
			depRows := make([][]string, 0, len(statuses))
			for _, s := range statuses {
				detail := s.Path
				if !s.Available {
					detail = s.Detail
				}
				depRows = append(depRows, []string{s.Name, s.Command, yesNo(s.Available), yesNo(!s.Optional), detail})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Program", "Command", "Available", "Required", "Detail"},
				depRows,
				nil,
			))

			results := preflight.RunAll(cfg)
			dirRows := make([][]string, 0, len(results))
			for _, r := range results {
				dirRows = append(dirRows, []string{r.Name, yesNo(r.Passed), r.Detail})
			}
			fmt.Fprintln(out, renderTable([]string{"Directory", "OK", "Detail"}, dirRows, nil))

			if !deps.Satisfied(statuses) || len(preflight.Failed(results)) > 0 {
				return errors.New("checks failed")
			}
			fmt.Fprintln(out, "All checks passed")
			return nil
		},
	}
}
