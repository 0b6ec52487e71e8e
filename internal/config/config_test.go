package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"plexdance/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("PLEX_URL", "")
	t.Setenv("PLEX_TOKEN", "")

	path := writeConfig(t, "")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected resolved existing path %s, got %s exists=%v", path, resolved, exists)
	}
	if cfg.Plex.Library != "Music" {
		t.Fatalf("expected default library, got %q", cfg.Plex.Library)
	}
	if cfg.PollInterval() != 5*time.Second {
		t.Fatalf("unexpected poll interval: %v", cfg.PollInterval())
	}
	if cfg.Dance.MaxPollAttempts != 60 {
		t.Fatalf("unexpected max attempts: %d", cfg.Dance.MaxPollAttempts)
	}
	if !cfg.Dance.TriggerRescan {
		t.Fatal("trigger_rescan should default to true")
	}
}

func TestLoadParsesSections(t *testing.T) {
	t.Setenv("PLEX_TOKEN", "")
	path := writeConfig(t, `
[plex]
url = "http://plex.local:32400/"
token = "abc123"
library = "Tunes"

[paths]
local_root = "/mnt/music/"
plex_root = "/media/Music"

[dance]
poll_interval_seconds = 2
max_poll_attempts = 10
trigger_rescan = false
`)
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Plex.URL != "http://plex.local:32400" {
		t.Fatalf("url not trimmed: %q", cfg.Plex.URL)
	}
	if cfg.Plex.Library != "Tunes" || cfg.Plex.Token != "abc123" {
		t.Fatalf("unexpected plex settings: %+v", cfg.Plex)
	}
	if cfg.Paths.LocalRoot != "/mnt/music" || cfg.Paths.PlexRoot != "/media/Music" {
		t.Fatalf("unexpected mapping: %+v", cfg.Paths)
	}
	if cfg.Dance.PollIntervalSeconds != 2 || cfg.Dance.MaxPollAttempts != 10 || cfg.Dance.TriggerRescan {
		t.Fatalf("unexpected dance settings: %+v", cfg.Dance)
	}
	if err := cfg.RequirePlex(); err != nil {
		t.Fatalf("RequirePlex: %v", err)
	}
}

func TestEnvironmentFillsCredentials(t *testing.T) {
	t.Setenv("PLEX_URL", "http://env.plex:32400")
	t.Setenv("PLEX_TOKEN", "env-token")

	path := writeConfig(t, "")
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Plex.URL != "http://env.plex:32400" {
		t.Fatalf("expected env url, got %q", cfg.Plex.URL)
	}
	if cfg.Plex.Token != "env-token" {
		t.Fatalf("expected env token, got %q", cfg.Plex.Token)
	}
}

func TestValidateRejectsHalfMapping(t *testing.T) {
	t.Setenv("PLEX_TOKEN", "")
	path := writeConfig(t, `
[paths]
local_root = "/mnt/music"
`)
	_, _, _, err := config.Load(path)
	if err == nil || !strings.Contains(err.Error(), "must be set together") {
		t.Fatalf("expected mapping validation error, got %v", err)
	}
}

func TestValidateRejectsBadFormat(t *testing.T) {
	t.Setenv("PLEX_TOKEN", "")
	path := writeConfig(t, `
[logging]
format = "yaml"
`)
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for unsupported log format")
	}
}

func TestRequirePlexMissingToken(t *testing.T) {
	t.Setenv("PLEX_URL", "")
	t.Setenv("PLEX_TOKEN", "")
	path := writeConfig(t, "")
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.RequirePlex(); err == nil {
		t.Fatal("expected RequirePlex to fail without token")
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	t.Setenv("PLEX_TOKEN", "")
	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("sample config should load cleanly: exists=%v err=%v", exists, err)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.LogDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s", dir)
		}
	}
}
