package main

import (
	"testing"

	"plexdance/internal/ledger"
)

func TestHumanState(t *testing.T) {
	cases := map[ledger.State]string{
		ledger.StatePending:          "Pending",
		ledger.StateStagedOut:        "Staged Out",
		ledger.StateConfirmedPresent: "Confirmed Present",
	}
	for state, want := range cases {
		if got := humanState(state); got != want {
			t.Errorf("humanState(%s) = %q, want %q", state, got, want)
		}
	}
}

func TestYesNo(t *testing.T) {
	if yesNo(true) != "yes" || yesNo(false) != "no" {
		t.Fatal("yesNo mapping broken")
	}
}

func TestTruncatePath(t *testing.T) {
	if got := truncatePath("/short", 20); got != "/short" {
		t.Fatalf("short path should pass through, got %q", got)
	}
	long := "/very/long/path/to/some/album/directory"
	got := truncatePath(long, 20)
	if len(got) != 20 {
		t.Fatalf("expected truncation to 20 chars, got %d (%q)", len(got), got)
	}
	if got[:3] != "..." {
		t.Fatalf("expected leading ellipsis, got %q", got)
	}
}
