// Package library holds the music-library data model and the pure analysis
// pipeline: a Snapshot of tracks as the index reports them, the consistency
// Analyzer that flags split and merged albums, and the Planner that turns
// anomalies into an ordered remediation work-list. Nothing in this package
// performs I/O; every function is deterministic over its input.
package library
