package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks configuration invariants that do not depend on the remote
// server being reachable.
func (c *Config) Validate() error {
	var problems []string

	if c.Plex.Library == "" {
		problems = append(problems, "plex.library must not be empty")
	}
	if c.Dance.PollIntervalSeconds <= 0 {
		problems = append(problems, "dance.poll_interval_seconds must be positive")
	}
	if c.Dance.MaxPollAttempts <= 0 {
		problems = append(problems, "dance.max_poll_attempts must be positive")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q is not one of console, json", c.Logging.Format))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}

	// Path mapping must be configured as a pair.
	if (c.Paths.LocalRoot == "") != (c.Paths.PlexRoot == "") {
		problems = append(problems, "paths.local_root and paths.plex_root must be set together")
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.New("invalid configuration: " + strings.Join(problems, "; "))
}
