package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded remediation runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listRuns(cmd, ctx)
		},
	}

	runsCmd.AddCommand(newRunsShowCommand(ctx))
	return runsCmd
}

func listRuns(cmd *cobra.Command, ctx *commandContext) error {
	store, err := ctx.openLedger()
	if err != nil {
		return err
	}
	defer store.Close()

	summaries, err := store.Runs(cmd.Context())
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
		return nil
	}

	rows := make([][]string, 0, len(summaries))
	for _, summary := range summaries {
		rows = append(rows, []string{
			summary.Run.ID,
			summary.Run.SectionTitle,
			summary.Run.CreatedAt.Local().Format(time.RFC3339),
			fmt.Sprintf("%d", summary.Total),
			fmt.Sprintf("%d", summary.Completed),
			fmt.Sprintf("%d", summary.Aborted),
			fmt.Sprintf("%d", summary.Open),
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(),
		renderTable([]string{"Run", "Section", "Created", "Units", "Completed", "Aborted", "Open"}, rows))
	return nil
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	var showTransitions bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the units of one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openLedger()
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if run == nil {
				return fmt.Errorf("run %s not found", args[0])
			}

			units, err := store.UnitsForRun(cmd.Context(), run.ID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s (%s), created %s\n",
				run.ID, run.SectionTitle, run.CreatedAt.Local().Format(time.RFC3339))

			rows := make([][]string, 0, len(units))
			for _, unit := range units {
				rows = append(rows, []string{
					unit.ID,
					humanState(unit.State),
					unit.Artist,
					unit.Album,
					unit.ErrorMessage,
				})
			}
			fmt.Fprintln(out, renderTable([]string{"Unit", "State", "Artist", "Album", "Error"}, rows))

			if !showTransitions {
				return nil
			}
			for _, unit := range units {
				transitions, err := store.Transitions(cmd.Context(), unit.ID)
				if err != nil {
					return err
				}
				if len(transitions) == 0 {
					continue
				}
				fmt.Fprintf(out, "\nUnit %s (%s):\n", unit.ID, unit.SourcePath)
				for _, tr := range transitions {
					detail := tr.Detail
					if detail != "" {
						detail = " (" + detail + ")"
					}
					fmt.Fprintf(out, "  %s  %s -> %s%s\n",
						tr.CreatedAt.Local().Format("15:04:05"),
						strings.ToLower(string(tr.From)),
						strings.ToLower(string(tr.To)),
						detail)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showTransitions, "transitions", false, "Include each unit's transition log")
	return cmd
}
