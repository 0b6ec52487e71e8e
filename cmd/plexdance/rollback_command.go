package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"plexdance/internal/dance"
)

func newRollbackCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rollback <unit-id|run-id>",
		Short: "Move staged directories back to their sources without waiting on the index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			// Rollback never touches the index, but the orchestrator owns the
			// ledger discipline around moves.
			orchestrator := dance.New(store, nil, logger, dance.Options{
				PollInterval:    time.Second,
				MaxPollAttempts: 1,
			})

			unit, err := store.GetUnit(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if unit != nil {
				if err := orchestrator.Rollback(cmd.Context(), unit.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Unit %s rolled back.\n", unit.ID)
				return nil
			}

			// Not a unit; treat the argument as a run and roll back every
			// unit still sitting in staging.
			run, err := store.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if run == nil {
				return fmt.Errorf("no unit or run with id %s", args[0])
			}
			units, err := store.UnitsForRun(cmd.Context(), run.ID)
			if err != nil {
				return err
			}

			var rolled int
			for _, unit := range units {
				if !unit.State.StagedOutside() {
					continue
				}
				if err := orchestrator.Rollback(cmd.Context(), unit.ID); err != nil {
					return fmt.Errorf("rollback unit %s: %w", unit.ID, err)
				}
				rolled++
			}
			if rolled == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Run %s has no staged units to roll back.\n", run.ID)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rolled back %d unit(s) of run %s.\n", rolled, run.ID)
			return nil
		},
	}
}
