package ledger

import (
	"strings"
	"time"
)

// State represents the lifecycle of a remediation unit.
type State string

const (
	StatePending          State = "pending"
	StateStagedOut        State = "staged_out"
	StateConfirmedAbsent  State = "confirmed_absent"
	StateStagedBack       State = "staged_back"
	StateConfirmedPresent State = "confirmed_present"
	StateAborted          State = "aborted"
	StateRolledBack       State = "rolled_back"
)

var allStates = []State{
	StatePending,
	StateStagedOut,
	StateConfirmedAbsent,
	StateStagedBack,
	StateConfirmedPresent,
	StateAborted,
	StateRolledBack,
}

var stateSet = func() map[State]struct{} {
	set := make(map[State]struct{}, len(allStates))
	for _, state := range allStates {
		set[state] = struct{}{}
	}
	return set
}()

// legalTransitions encodes the dance state machine. RolledBack is reachable
// only from the staged-out side via an explicit operator undo; Aborted is
// reachable from any non-terminal state.
var legalTransitions = map[State][]State{
	StatePending:         {StateStagedOut, StateAborted},
	StateStagedOut:       {StateConfirmedAbsent, StateAborted, StateRolledBack},
	StateConfirmedAbsent: {StateStagedBack, StateAborted, StateRolledBack},
	StateStagedBack:      {StateConfirmedPresent, StateAborted},
}

// AllStates returns the ordered list of known states.
func AllStates() []State {
	cp := make([]State, len(allStates))
	copy(cp, allStates)
	return cp
}

// ParseState converts a string into a known State.
func ParseState(value string) (State, bool) {
	normalized := State(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := stateSet[normalized]
	return normalized, ok
}

// Terminal reports whether a unit in this state will never transition again.
func (s State) Terminal() bool {
	switch s {
	case StateConfirmedPresent, StateAborted, StateRolledBack:
		return true
	default:
		return false
	}
}

// StagedOutside reports whether the unit's directory is expected at the
// staging path rather than the source path in this state.
func (s State) StagedOutside() bool {
	return s == StateStagedOut || s == StateConfirmedAbsent
}

// CanTransition reports whether moving from one state to another is legal.
func CanTransition(from, to State) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Run groups the units produced by one planning pass.
type Run struct {
	ID           string
	SectionTitle string
	CreatedAt    time.Time
}

// Unit is the persisted form of a remediation unit.
type Unit struct {
	ID           string
	RunID        string
	SourcePath   string
	StagingPath  string
	Artist       string
	Album        string
	AlbumKeys    []string
	State        State
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Transition is one appended ledger record.
type Transition struct {
	ID        int64
	UnitID    string
	From      State
	To        State
	Detail    string
	CreatedAt time.Time
}

// RunSummary aggregates unit states for one run.
type RunSummary struct {
	Run       Run
	Total     int
	Completed int
	Aborted   int
	Open      int
}
