// Package testsupport provides shared fixtures for package tests: temp-dir
// configs, ledger stores, and on-disk album trees.
package testsupport

import (
	"path/filepath"
	"testing"

	"plexdance/internal/config"
)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Plex.URL = "http://127.0.0.1:32400"
	cfg.Plex.Token = "test-token"
	return &cfg
}
