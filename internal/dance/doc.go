// Package dance drives the remediation state machine: each unit's directory
// is moved to staging, held until the index drops its album entries, moved
// back, and held again until the index reports a single album identity. Every
// transition is recorded in the ledger before the corresponding physical move
// so an interrupted run can be resumed safely.
package dance
