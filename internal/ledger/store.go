package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"plexdance/internal/config"
	"plexdance/internal/library"
)

// ErrWrite indicates a ledger write failed. This is fatal to a run: the
// orchestrator must never perform a physical move it cannot record.
var ErrWrite = errors.New("ledger write failed")

// ErrIllegalTransition indicates a requested state change violates the dance
// state machine.
var ErrIllegalTransition = errors.New("illegal state transition")

// Store manages ledger persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the ledger database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.StateDir, "ledger.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=FULL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// CreateRun records a new remediation run.
func (s *Store) CreateRun(ctx context.Context, sectionTitle string) (*Run, error) {
	run := &Run{
		ID:           uuid.NewString(),
		SectionTitle: sectionTitle,
		CreatedAt:    time.Now().UTC(),
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO runs (id, section_title, created_at) VALUES (?, ?, ?)`,
		run.ID, run.SectionTitle, run.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: insert run: %v", ErrWrite, err)
	}
	return run, nil
}

// AddUnit persists one planned remediation unit under a run.
func (s *Store) AddUnit(ctx context.Context, runID string, planned library.Unit) (*Unit, error) {
	keysJSON, err := json.Marshal(planned.AlbumKeys)
	if err != nil {
		return nil, fmt.Errorf("marshal album keys: %w", err)
	}

	now := time.Now().UTC()
	unit := &Unit{
		ID:          uuid.NewString(),
		RunID:       runID,
		SourcePath:  planned.SourcePath,
		StagingPath: planned.StagingPath,
		Artist:      planned.Artist,
		Album:       planned.Album,
		AlbumKeys:   append([]string(nil), planned.AlbumKeys...),
		State:       StatePending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO units (
            id, run_id, source_path, staging_path, artist, album,
            album_keys_json, state, error_message, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		unit.ID,
		unit.RunID,
		unit.SourcePath,
		unit.StagingPath,
		nullableString(unit.Artist),
		nullableString(unit.Album),
		string(keysJSON),
		unit.State,
		nil,
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: insert unit: %v", ErrWrite, err)
	}
	return unit, nil
}

// GetUnit fetches a unit by identifier. Returns nil when not found.
func (s *Store) GetUnit(ctx context.Context, id string) (*Unit, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+unitColumns+` FROM units WHERE id = ?`, id)
	unit, err := scanUnit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get unit: %w", err)
	}
	return unit, nil
}

// UnitsForRun returns a run's units ordered by source path, matching the
// deterministic plan order.
func (s *Store) UnitsForRun(ctx context.Context, runID string) ([]*Unit, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+unitColumns+` FROM units WHERE run_id = ? ORDER BY source_path`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query units: %w", err)
	}
	defer rows.Close()

	var units []*Unit
	for rows.Next() {
		unit, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, unit)
	}
	return units, rows.Err()
}

// Append records a state transition in the append-only log and advances the
// unit's state. The write lands before the orchestrator performs the
// corresponding physical move (write-ahead discipline); any failure is
// ErrWrite and halts the run.
func (s *Store) Append(ctx context.Context, unitID string, from, to State, detail string) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", ErrWrite, err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(
		ctx,
		`UPDATE units SET state = ?, updated_at = ? WHERE id = ? AND state = ?`,
		to, now, unitID, from,
	)
	if err != nil {
		return fmt.Errorf("%w: update unit state: %v", ErrWrite, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %v", ErrWrite, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: unit %s is not in state %s", ErrIllegalTransition, unitID, from)
	}

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO transitions (unit_id, from_state, to_state, detail, created_at)
         VALUES (?, ?, ?, ?, ?)`,
		unitID, from, to, nullableString(detail), now,
	)
	if err != nil {
		return fmt.Errorf("%w: insert transition: %v", ErrWrite, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrWrite, err)
	}
	return nil
}

// SetError records a unit's last error message without changing state.
func (s *Store) SetError(ctx context.Context, unitID, message string) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE units SET error_message = ?, updated_at = ? WHERE id = ?`,
		nullableString(message),
		time.Now().UTC().Format(time.RFC3339Nano),
		unitID,
	)
	if err != nil {
		return fmt.Errorf("%w: set error: %v", ErrWrite, err)
	}
	return nil
}

// Reconcile force-sets a unit's state outside the legality table, recording
// the correction in the transition log. Used only when physical reality
// diverges from the recorded state after an interrupted move.
func (s *Store) Reconcile(ctx context.Context, unitID string, from, to State, detail string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", ErrWrite, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(
		ctx,
		`UPDATE units SET state = ?, updated_at = ? WHERE id = ?`,
		to, now, unitID,
	); err != nil {
		return fmt.Errorf("%w: reconcile unit state: %v", ErrWrite, err)
	}
	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO transitions (unit_id, from_state, to_state, detail, created_at)
         VALUES (?, ?, ?, ?, ?)`,
		unitID, from, to, nullableString(detail), now,
	); err != nil {
		return fmt.Errorf("%w: insert reconcile transition: %v", ErrWrite, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrWrite, err)
	}
	return nil
}

// Transitions returns a unit's transition log in append order.
func (s *Store) Transitions(ctx context.Context, unitID string) ([]Transition, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, unit_id, from_state, to_state, detail, created_at
         FROM transitions WHERE unit_id = ? ORDER BY id`,
		unitID,
	)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	var transitions []Transition
	for rows.Next() {
		var (
			t          Transition
			fromStr    string
			toStr      string
			detail     sql.NullString
			createdRaw string
		)
		if err := rows.Scan(&t.ID, &t.UnitID, &fromStr, &toStr, &detail, &createdRaw); err != nil {
			return nil, err
		}
		t.From = State(fromStr)
		t.To = State(toStr)
		t.Detail = detail.String
		if created, err := parseTimeString(createdRaw); err == nil {
			t.CreatedAt = created
		}
		transitions = append(transitions, t)
	}
	return transitions, rows.Err()
}

// Runs lists all runs, newest first, with per-run unit summaries.
func (s *Store) Runs(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT r.id, r.section_title, r.created_at,
                COUNT(u.id),
                SUM(CASE WHEN u.state = ? THEN 1 ELSE 0 END),
                SUM(CASE WHEN u.state = ? THEN 1 ELSE 0 END)
         FROM runs r LEFT JOIN units u ON u.run_id = r.id
         GROUP BY r.id ORDER BY r.created_at DESC`,
		StateConfirmedPresent,
		StateAborted,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var summaries []RunSummary
	for rows.Next() {
		var (
			summary    RunSummary
			createdRaw string
			completed  sql.NullInt64
			aborted    sql.NullInt64
		)
		if err := rows.Scan(
			&summary.Run.ID,
			&summary.Run.SectionTitle,
			&createdRaw,
			&summary.Total,
			&completed,
			&aborted,
		); err != nil {
			return nil, err
		}
		if created, err := parseTimeString(createdRaw); err == nil {
			summary.Run.CreatedAt = created
		}
		summary.Completed = int(completed.Int64)
		summary.Aborted = int(aborted.Int64)
		summary.Open = summary.Total - summary.Completed - summary.Aborted
		rolled, err := s.countState(ctx, summary.Run.ID, StateRolledBack)
		if err != nil {
			return nil, err
		}
		summary.Open -= rolled
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

// GetRun fetches one run by identifier. Returns nil when not found.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, section_title, created_at FROM runs WHERE id = ?`, id)
	var (
		run        Run
		createdRaw string
	)
	err := row.Scan(&run.ID, &run.SectionTitle, &createdRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		run.CreatedAt = created
	}
	return &run, nil
}

// LatestOpenRun returns the newest run that still has non-terminal units, or
// nil when every recorded run is settled.
func (s *Store) LatestOpenRun(ctx context.Context) (*Run, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT r.id, r.section_title, r.created_at FROM runs r
         WHERE EXISTS (
             SELECT 1 FROM units u
             WHERE u.run_id = r.id AND u.state NOT IN (?, ?, ?)
         )
         ORDER BY r.created_at DESC LIMIT 1`,
		StateConfirmedPresent, StateAborted, StateRolledBack,
	)
	var (
		run        Run
		createdRaw string
	)
	err := row.Scan(&run.ID, &run.SectionTitle, &createdRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest open run: %w", err)
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		run.CreatedAt = created
	}
	return &run, nil
}

func (s *Store) countState(ctx context.Context, runID string, state State) (int, error) {
	var count int
	err := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM units WHERE run_id = ? AND state = ?`,
		runID, state,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count units: %w", err)
	}
	return count, nil
}

const unitColumns = "id, run_id, source_path, staging_path, artist, album, album_keys_json, state, error_message, created_at, updated_at"

func scanUnit(scanner interface{ Scan(dest ...any) error }) (*Unit, error) {
	var (
		unit       Unit
		artist     sql.NullString
		album      sql.NullString
		keysJSON   string
		stateStr   string
		errMsg     sql.NullString
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(
		&unit.ID,
		&unit.RunID,
		&unit.SourcePath,
		&unit.StagingPath,
		&artist,
		&album,
		&keysJSON,
		&stateStr,
		&errMsg,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	unit.Artist = artist.String
	unit.Album = album.String
	unit.State = State(stateStr)
	unit.ErrorMessage = errMsg.String
	if err := json.Unmarshal([]byte(keysJSON), &unit.AlbumKeys); err != nil {
		return nil, fmt.Errorf("decode album keys: %w", err)
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		unit.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		unit.UpdatedAt = updated
	}
	return &unit, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}
