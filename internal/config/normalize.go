package config

import (
	"os"
	"strings"
)

func (c *Config) normalize() error {
	var err error

	c.Plex.URL = strings.TrimRight(strings.TrimSpace(c.Plex.URL), "/")
	c.Plex.Token = strings.TrimSpace(c.Plex.Token)
	c.Plex.Library = strings.TrimSpace(c.Plex.Library)

	// Environment fills in credentials the file leaves empty.
	if c.Plex.URL == "" || c.Plex.URL == defaultPlexURL {
		if env := strings.TrimSpace(os.Getenv("PLEX_URL")); env != "" {
			c.Plex.URL = strings.TrimRight(env, "/")
		}
	}
	if c.Plex.Token == "" {
		c.Plex.Token = strings.TrimSpace(os.Getenv("PLEX_TOKEN"))
	}

	if c.Plex.Library == "" {
		c.Plex.Library = defaultLibrary
	}
	if c.Plex.TimeoutSeconds <= 0 {
		c.Plex.TimeoutSeconds = defaultTimeoutSeconds
	}

	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return err
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	c.Paths.LocalRoot = strings.TrimRight(strings.TrimSpace(c.Paths.LocalRoot), "/")
	c.Paths.PlexRoot = strings.TrimRight(strings.TrimSpace(c.Paths.PlexRoot), "/")

	if c.Dance.PollIntervalSeconds <= 0 {
		c.Dance.PollIntervalSeconds = defaultPollIntervalSeconds
	}
	if c.Dance.MaxPollAttempts <= 0 {
		c.Dance.MaxPollAttempts = defaultMaxPollAttempts
	}

	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}

	return nil
}
