package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"plexdance/internal/config"
	"plexdance/internal/ledger"
	"plexdance/internal/library"
	"plexdance/internal/logging"
	"plexdance/internal/plex"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) newLogger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.NewForRun(cfg.Logging.Level, cfg.Logging.Format, cfg.Paths.LogDir)
}

// openLibrary connects to the Plex server and resolves the configured music
// section.
func (c *commandContext) openLibrary(ctx context.Context) (*plex.Library, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	client, err := plex.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	mapping := library.PathMapping{
		LocalRoot: cfg.Paths.LocalRoot,
		PlexRoot:  cfg.Paths.PlexRoot,
	}
	return client.OpenLibrary(ctx, cfg.Plex.Library, mapping)
}

func (c *commandContext) openLedger() (*ledger.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return ledger.Open(cfg)
}

// acquireRunLock takes the single-instance lock guarding physical moves.
// Returns a release function on success.
func (c *commandContext) acquireRunLock() (func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	lock := flock.New(filepath.Join(cfg.Paths.StateDir, "plexdance.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another plexdance run holds the lock at %s", lock.Path())
	}
	return func() { _ = lock.Unlock() }, nil
}

// stagingDir resolves the staging location: the configured directory, or a
// tmp.plexdance directory beside the library's first root.
func (c *commandContext) stagingDir(lib *plex.Library) (string, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(cfg.Paths.StagingDir) != "" {
		return cfg.Paths.StagingDir, nil
	}
	locations := lib.Locations()
	if len(locations) == 0 {
		return "", fmt.Errorf("library %q reports no locations", lib.SectionTitle())
	}
	return library.DefaultStagingDir(locations[0]), nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
