// Package ledger persists the remediation run ledger in SQLite: runs, their
// units, and an append-only log of state transitions. The ledger is the
// single source of truth for what has physically happened to each directory;
// the orchestrator consults it before every move and appends to it before
// acting (write-ahead), so an interrupted run can resume without re-issuing
// completed moves. Ledger rows are never deleted automatically; completed
// runs remain as an audit trail.
package ledger
