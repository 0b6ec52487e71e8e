package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"plexdance/internal/dance"
	"plexdance/internal/ledger"
	"plexdance/internal/library"
	"plexdance/internal/logging"
	"plexdance/internal/plex"
)

func newDanceCommand(ctx *commandContext) *cobra.Command {
	var assumeYes bool
	var dryRun bool
	var resumeRunID string

	cmd := &cobra.Command{
		Use:   "dance",
		Short: "Repair detected anomalies by moving directories out of the library and back",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}

			release, err := ctx.acquireRunLock()
			if err != nil {
				return err
			}
			defer release()

			store, err := ctx.openLedger()
			if err != nil {
				return err
			}
			defer store.Close()

			lib, err := ctx.openLibrary(cmd.Context())
			if err != nil {
				return err
			}

			var run *ledger.Run
			if resume := strings.TrimSpace(resumeRunID); resume != "" {
				if resume == "latest" {
					run, err = store.LatestOpenRun(cmd.Context())
					if err != nil {
						return err
					}
					if run == nil {
						return fmt.Errorf("no open run to resume")
					}
				} else {
					run, err = store.GetRun(cmd.Context(), resume)
					if err != nil {
						return err
					}
					if run == nil {
						return fmt.Errorf("run %s not found", resume)
					}
				}

				if err := printResumePlan(cmd, store, run); err != nil {
					return err
				}
				if dryRun {
					fmt.Fprintln(cmd.OutOrStdout(), "Dry run; no directories were moved.")
					return nil
				}

				// Resuming moves directories just like a fresh run does.
				prompt := fmt.Sprintf("Resume run %s and continue moving directories?", run.ID)
				ok, err := confirmProceed(cmd, assumeYes, prompt)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}
			} else {
				units, err := planUnits(cmd.Context(), ctx, lib)
				if err != nil {
					return err
				}
				if len(units) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No grouping anomalies detected; nothing to do.")
					return nil
				}

				printPlan(cmd, units)
				if dryRun {
					fmt.Fprintln(cmd.OutOrStdout(), "Dry run; no directories were moved.")
					return nil
				}

				prompt := fmt.Sprintf("Dance %d directories through staging?", len(units))
				ok, err := confirmProceed(cmd, assumeYes, prompt)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}

				run, err = store.CreateRun(cmd.Context(), lib.SectionTitle())
				if err != nil {
					return err
				}
				for _, unit := range units {
					if _, err := store.AddUnit(cmd.Context(), run.ID, unit); err != nil {
						return err
					}
				}
			}

			orchestrator := dance.New(store, lib, logger, dance.Options{
				PollInterval:    cfg.PollInterval(),
				MaxPollAttempts: cfg.Dance.MaxPollAttempts,
				TriggerRescan:   cfg.Dance.TriggerRescan,
			})

			logger.Info("starting run", logging.Args(logging.String(logging.FieldRunID, run.ID))...)
			summary, runErr := orchestrator.Run(cmd.Context(), run.ID)
			printSummary(cmd, run.ID, summary)
			if runErr != nil {
				return runErr
			}
			if summary.Aborted > 0 {
				return fmt.Errorf("%d unit(s) aborted; inspect with 'plexdance runs show %s'", summary.Aborted, run.ID)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip the confirmation prompt")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the plan without moving anything")
	cmd.Flags().StringVar(&resumeRunID, "resume", "", "Resume an interrupted run by identifier, or \"latest\"")
	return cmd
}

func planUnits(runCtx context.Context, ctx *commandContext, lib *plex.Library) ([]library.Unit, error) {
	snap, err := lib.Snapshot(runCtx)
	if err != nil {
		return nil, err
	}
	anomalies := library.Analyze(snap)
	if len(anomalies) == 0 {
		return nil, nil
	}

	staging, err := ctx.stagingDir(lib)
	if err != nil {
		return nil, err
	}
	units := library.Plan(snap, anomalies, staging)

	// A directory outside every library root cannot be danced; moving it
	// would not affect the index. This only happens when the path mapping
	// is misconfigured, so fail loudly instead of filtering.
	for _, unit := range units {
		if !lib.ContainsPath(unit.SourcePath) {
			return nil, fmt.Errorf(
				"planned directory %s is outside the library locations %v; check paths.local_root/plex_root",
				unit.SourcePath, lib.Locations())
		}
	}
	return units, nil
}

func printPlan(cmd *cobra.Command, units []library.Unit) {
	rows := make([][]string, 0, len(units))
	for _, unit := range units {
		rows = append(rows, []string{
			unit.Artist,
			unit.Album,
			truncatePath(unit.SourcePath, 60),
			fmt.Sprintf("%d", len(unit.AlbumKeys)),
		})
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Planned dance for %d directories:\n", len(units))
	fmt.Fprintln(out, renderTable([]string{"Artist", "Album", "Directory", "Identities"}, rows))
}

func printResumePlan(cmd *cobra.Command, store *ledger.Store, run *ledger.Run) error {
	units, err := store.UnitsForRun(cmd.Context(), run.ID)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(units))
	for _, unit := range units {
		rows = append(rows, []string{
			humanState(unit.State),
			unit.Artist,
			unit.Album,
			truncatePath(unit.SourcePath, 60),
		})
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s:\n", run.ID)
	fmt.Fprintln(out, renderTable([]string{"State", "Artist", "Album", "Directory"}, rows))
	return nil
}

func printSummary(cmd *cobra.Command, runID string, summary dance.Summary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s: %d unit(s), %d completed, %d aborted, %d rolled back\n",
		runID, summary.Total, summary.Completed, summary.Aborted, summary.RolledBack)
}
