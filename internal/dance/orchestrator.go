package dance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"plexdance/internal/fileutil"
	"plexdance/internal/ledger"
	"plexdance/internal/logging"
	"plexdance/internal/plex"
)

// Index is the library view the orchestrator polls while dancing. Implemented
// by plex.Library.
type Index interface {
	AlbumExists(ctx context.Context, ratingKey string) (bool, error)
	AlbumKeysForDirectory(ctx context.Context, dir string) ([]string, error)
	RefreshDirectory(ctx context.Context, dir string) error
}

// Options configures orchestrator timing and behavior.
type Options struct {
	PollInterval    time.Duration
	MaxPollAttempts int
	TriggerRescan   bool
}

// Summary counts unit outcomes after a run.
type Summary struct {
	Total      int
	Completed  int
	Aborted    int
	RolledBack int
}

// Orchestrator processes a run's units strictly one at a time. Library
// rescans triggered by one unit's moves must settle before the next unit's
// probes can be trusted.
type Orchestrator struct {
	store  *ledger.Store
	index  Index
	mover  *Mover
	poller Poller
	rescan bool
	logger *slog.Logger
}

// New builds an orchestrator around a ledger store and an index.
func New(store *ledger.Store, index Index, logger *slog.Logger, opts Options) *Orchestrator {
	return &Orchestrator{
		store:  store,
		index:  index,
		mover:  NewMover(logger),
		poller: Poller{Interval: opts.PollInterval, MaxAttempts: opts.MaxPollAttempts},
		rescan: opts.TriggerRescan,
		logger: logging.WithComponent(logger, "dance"),
	}
}

// Run processes every non-terminal unit of the given run in plan order. It
// returns a non-nil error only for failures that halt the whole run: ledger
// write failures, index authentication failures, and context cancellation.
// Per-unit failures abort that unit and processing continues.
func (o *Orchestrator) Run(ctx context.Context, runID string) (Summary, error) {
	units, err := o.store.UnitsForRun(ctx, runID)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{Total: len(units)}
	for _, unit := range units {
		if unit.State.Terminal() {
			summary.count(unit.State)
			continue
		}
		if err := o.processUnit(ctx, unit); err != nil {
			summary.count(unit.State)
			return summary, err
		}
		summary.count(unit.State)
	}
	return summary, nil
}

func (s *Summary) count(state ledger.State) {
	switch state {
	case ledger.StateConfirmedPresent:
		s.Completed++
	case ledger.StateAborted:
		s.Aborted++
	case ledger.StateRolledBack:
		s.RolledBack++
	}
}

// processUnit drives one unit through the state machine until it reaches a
// terminal state. The physical directory location is reconciled against the
// recorded state first so a resumed run never acts on a stale record.
func (o *Orchestrator) processUnit(ctx context.Context, unit *ledger.Unit) error {
	log := o.logger.With(logging.Args(
		logging.String(logging.FieldUnitID, unit.ID),
		logging.String(logging.FieldDirectory, unit.SourcePath),
	)...)
	log.Info("processing unit", logging.Args(logging.String(logging.FieldState, string(unit.State)))...)

	if err := o.reconcile(ctx, unit, log); err != nil {
		return err
	}

	for !unit.State.Terminal() {
		var err error
		switch unit.State {
		case ledger.StatePending:
			err = o.stageOut(ctx, unit, log)
		case ledger.StateStagedOut:
			err = o.confirmAbsent(ctx, unit, log)
		case ledger.StateConfirmedAbsent:
			err = o.stageBack(ctx, unit, log)
		case ledger.StateStagedBack:
			err = o.confirmPresent(ctx, unit, log)
		default:
			err = fmt.Errorf("unit %s in unexpected state %s", unit.ID, unit.State)
		}
		if err != nil {
			return err
		}
	}

	log.Info("unit finished", logging.Args(logging.String(logging.FieldState, string(unit.State)))...)
	return nil
}

// reconcile corrects the recorded state when the directory is not where the
// record says it should be. The ledger is written before each move, so after
// a crash the record may be one move ahead of reality; the directory's actual
// location decides. Anything stranger aborts the unit for manual review.
func (o *Orchestrator) reconcile(ctx context.Context, unit *ledger.Unit, log *slog.Logger) error {
	atSource := fileutil.DirExists(unit.SourcePath)
	atStaging := fileutil.DirExists(unit.StagingPath)

	if atSource && atStaging {
		return o.abort(ctx, unit, log, fmt.Sprintf(
			"directory exists at both source and staging (%s, %s); manual review required",
			unit.SourcePath, unit.StagingPath))
	}
	if !atSource && !atStaging {
		return o.abort(ctx, unit, log, fmt.Sprintf(
			"directory missing from both source and staging (%s, %s); manual review required",
			unit.SourcePath, unit.StagingPath))
	}

	expectStaging := unit.State.StagedOutside()
	if atStaging == expectStaging {
		return nil
	}

	var corrected ledger.State
	var detail string
	switch unit.State {
	case ledger.StatePending:
		corrected = ledger.StateStagedOut
		detail = "directory found at staging path; adopting staged_out"
	case ledger.StateStagedOut:
		corrected = ledger.StatePending
		detail = "recorded move was not performed; directory still at source"
	case ledger.StateConfirmedAbsent:
		corrected = ledger.StateStagedBack
		detail = "directory found at source path; adopting staged_back"
	case ledger.StateStagedBack:
		corrected = ledger.StateConfirmedAbsent
		detail = "recorded move was not performed; directory still at staging"
	default:
		return o.abort(ctx, unit, log, fmt.Sprintf(
			"cannot reconcile state %s against directory location", unit.State))
	}

	log.Warn("reconciling recorded state against directory location",
		logging.Args(
			logging.String("recorded", string(unit.State)),
			logging.String("corrected", string(corrected)),
		)...)
	if err := o.store.Reconcile(ctx, unit.ID, unit.State, corrected, detail); err != nil {
		return err
	}
	unit.State = corrected
	return nil
}

func (o *Orchestrator) stageOut(ctx context.Context, unit *ledger.Unit, log *slog.Logger) error {
	if fileutil.DirExists(unit.StagingPath) {
		return o.abort(ctx, unit, log, fmt.Sprintf("%v: %s", ErrStagingCollision, unit.StagingPath))
	}

	same, err := fileutil.SameFilesystem(unit.SourcePath, unit.StagingPath)
	if err != nil {
		return fmt.Errorf("verify filesystems: %w", err)
	}
	if !same {
		// Every unit shares the staging directory, so this halts the run
		// before anything moves.
		return fmt.Errorf("%w: %s -> %s", ErrCrossFilesystem, unit.SourcePath, unit.StagingPath)
	}

	if err := o.store.Append(ctx, unit.ID, ledger.StatePending, ledger.StateStagedOut, "moving directory to staging"); err != nil {
		return err
	}
	if err := o.mover.Move(unit.SourcePath, unit.StagingPath); err != nil {
		if recErr := o.store.Reconcile(ctx, unit.ID, ledger.StateStagedOut, ledger.StatePending, "stage out rename failed"); recErr != nil {
			return recErr
		}
		unit.State = ledger.StatePending
		return o.abort(ctx, unit, log, fmt.Sprintf("stage out failed: %v", err))
	}
	unit.State = ledger.StateStagedOut
	log.Info("staged out", logging.Args(logging.String("staging_path", unit.StagingPath))...)
	return nil
}

func (o *Orchestrator) confirmAbsent(ctx context.Context, unit *ledger.Unit, log *slog.Logger) error {
	probe := func(ctx context.Context) (bool, error) {
		for _, key := range unit.AlbumKeys {
			exists, err := o.index.AlbumExists(ctx, key)
			if err != nil {
				if retryable(err) {
					log.Warn("index unreachable during absence poll", logging.Args(logging.Error(err))...)
					return false, nil
				}
				return false, err
			}
			if exists {
				return false, nil
			}
		}
		return true, nil
	}

	done, err := o.poller.Wait(ctx, probe)
	if err != nil {
		return err
	}
	if !done {
		// The directory stays in staging; an operator can roll it back.
		return o.abort(ctx, unit, log, fmt.Sprintf(
			"%v after %d attempts; directory remains at %s",
			ErrTimeoutAbsent, o.poller.MaxAttempts, unit.StagingPath))
	}

	if err := o.store.Append(ctx, unit.ID, ledger.StateStagedOut, ledger.StateConfirmedAbsent, "index no longer reports album entries"); err != nil {
		return err
	}
	unit.State = ledger.StateConfirmedAbsent
	log.Info("album entries gone from index")
	return nil
}

func (o *Orchestrator) stageBack(ctx context.Context, unit *ledger.Unit, log *slog.Logger) error {
	if fileutil.PathExists(unit.SourcePath) {
		return o.abort(ctx, unit, log, fmt.Sprintf(
			"%v: %s; directory remains at %s", ErrRestoreCollision, unit.SourcePath, unit.StagingPath))
	}

	if err := o.store.Append(ctx, unit.ID, ledger.StateConfirmedAbsent, ledger.StateStagedBack, "moving directory back to source"); err != nil {
		return err
	}
	if err := o.mover.Move(unit.StagingPath, unit.SourcePath); err != nil {
		if recErr := o.store.Reconcile(ctx, unit.ID, ledger.StateStagedBack, ledger.StateConfirmedAbsent, "stage back rename failed"); recErr != nil {
			return recErr
		}
		unit.State = ledger.StateConfirmedAbsent
		return o.abort(ctx, unit, log, fmt.Sprintf("stage back failed: %v", err))
	}
	unit.State = ledger.StateStagedBack
	log.Info("staged back")

	if o.rescan {
		if err := o.index.RefreshDirectory(ctx, unit.SourcePath); err != nil {
			// The periodic scanner will pick the directory up eventually;
			// the presence poll below still bounds the wait.
			log.Warn("rescan request failed", logging.Args(logging.Error(err))...)
		}
	}
	return nil
}

func (o *Orchestrator) confirmPresent(ctx context.Context, unit *ledger.Unit, log *slog.Logger) error {
	var lastCount int
	probe := func(ctx context.Context) (bool, error) {
		keys, err := o.index.AlbumKeysForDirectory(ctx, unit.SourcePath)
		if err != nil {
			if retryable(err) {
				log.Warn("index unreachable during presence poll", logging.Args(logging.Error(err))...)
				return false, nil
			}
			return false, err
		}
		lastCount = len(keys)
		return lastCount == 1, nil
	}

	done, err := o.poller.Wait(ctx, probe)
	if err != nil {
		return err
	}
	if !done {
		// The directory is already restored; the library itself is intact.
		return o.abort(ctx, unit, log, fmt.Sprintf(
			"%v after %d attempts; index reports %d identities for %s",
			ErrTimeoutPresent, o.poller.MaxAttempts, lastCount, unit.SourcePath))
	}

	if err := o.store.Append(ctx, unit.ID, ledger.StateStagedBack, ledger.StateConfirmedPresent, "index reports a single album identity"); err != nil {
		return err
	}
	unit.State = ledger.StateConfirmedPresent
	return nil
}

// Rollback undoes a unit whose directory sits in staging, moving it back to
// its source path without waiting on the index. Legal only from staged_out or
// confirmed_absent.
func (o *Orchestrator) Rollback(ctx context.Context, unitID string) error {
	unit, err := o.store.GetUnit(ctx, unitID)
	if err != nil {
		return err
	}
	if unit == nil {
		return fmt.Errorf("unknown unit %s", unitID)
	}
	if !unit.State.StagedOutside() {
		return fmt.Errorf("unit %s is in state %s and cannot be rolled back", unitID, unit.State)
	}
	if fileutil.PathExists(unit.SourcePath) {
		return fmt.Errorf("%w: %s", ErrRestoreCollision, unit.SourcePath)
	}
	if !fileutil.DirExists(unit.StagingPath) {
		return fmt.Errorf("staged directory missing: %s", unit.StagingPath)
	}

	from := unit.State
	if err := o.store.Append(ctx, unit.ID, from, ledger.StateRolledBack, "operator rollback"); err != nil {
		return err
	}
	if err := o.mover.Move(unit.StagingPath, unit.SourcePath); err != nil {
		// The directory never left staging; undo the write-ahead record so
		// the rollback can be retried.
		if recErr := o.store.Reconcile(ctx, unit.ID, ledger.StateRolledBack, from, "rollback rename failed"); recErr != nil {
			return recErr
		}
		return fmt.Errorf("roll back unit %s: %w", unit.ID, err)
	}
	o.logger.Info("rolled back unit",
		logging.Args(
			logging.String(logging.FieldUnitID, unit.ID),
			logging.String(logging.FieldDirectory, unit.SourcePath),
		)...)
	return nil
}

// abort moves the unit to the aborted state with a reason. A failure to
// record the abort is itself fatal to the run.
func (o *Orchestrator) abort(ctx context.Context, unit *ledger.Unit, log *slog.Logger, reason string) error {
	if err := o.store.Append(ctx, unit.ID, unit.State, ledger.StateAborted, reason); err != nil {
		return err
	}
	if err := o.store.SetError(ctx, unit.ID, reason); err != nil {
		return err
	}
	unit.State = ledger.StateAborted
	unit.ErrorMessage = reason
	log.Warn("unit aborted", logging.Args(logging.String("reason", reason))...)
	return nil
}

// retryable reports whether an index error should consume a poll attempt
// instead of halting the run. Authentication failures are never retried.
func retryable(err error) bool {
	return errors.Is(err, plex.ErrUnreachable) && !errors.Is(err, plex.ErrAuth)
}
