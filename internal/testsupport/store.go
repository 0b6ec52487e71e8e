package testsupport

import (
	"context"
	"testing"

	"plexdance/internal/config"
	"plexdance/internal/ledger"
	"plexdance/internal/library"
)

// MustOpenLedger opens a ledger.Store for tests and registers cleanup.
func MustOpenLedger(t testing.TB, cfg *config.Config) *ledger.Store {
	t.Helper()

	store, err := ledger.Open(cfg)
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewRunWithUnit creates a run holding a single planned unit.
func NewRunWithUnit(t testing.TB, store *ledger.Store, planned library.Unit) (*ledger.Run, *ledger.Unit) {
	t.Helper()

	ctx := context.Background()
	run, err := store.CreateRun(ctx, "Music")
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	unit, err := store.AddUnit(ctx, run.ID, planned)
	if err != nil {
		t.Fatalf("AddUnit: %v", err)
	}
	return run, unit
}
