package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"plexdance/internal/config"
	"plexdance/internal/ledger"
	"plexdance/internal/library"
)

const sectionsJSON = `{"MediaContainer":{"Directory":[
  {"key":"5","type":"artist","title":"Music","Location":[{"path":"/media/Music"}]}
]}}`

const tracksJSON = `{"MediaContainer":{"Metadata":[
  {"ratingKey":"101","parentRatingKey":"A1","parentTitle":"Album X","grandparentTitle":"Artist",
   "Media":[{"Part":[{"file":"/media/Music/Artist/AlbumX/01.flac"}]}]},
  {"ratingKey":"102","parentRatingKey":"A2","parentTitle":"Album X","grandparentTitle":"Artist",
   "Media":[{"Part":[{"file":"/media/Music/Artist/AlbumX/02.flac"}]}]}
]}}`

type cliTestEnv struct {
	baseDir    string
	musicRoot  string
	configPath string
	server     *httptest.Server
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", base)
	t.Setenv("PLEX_URL", "")
	t.Setenv("PLEX_TOKEN", "")

	mux := http.NewServeMux()
	mux.HandleFunc("/library/sections", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sectionsJSON))
	})
	mux.HandleFunc("/library/sections/5/all", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(tracksJSON))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	musicRoot := filepath.Join(base, "music")
	if err := os.MkdirAll(musicRoot, 0o755); err != nil {
		t.Fatalf("mkdir music root: %v", err)
	}

	configPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[plex]
url = %q
token = "good-token"
library = "Music"

[paths]
staging_dir = %q
state_dir = %q
log_dir = %q
local_root = %q
plex_root = "/media/Music"

[logging]
level = "error"
`,
		server.URL,
		filepath.Join(base, "staging"),
		filepath.Join(base, "state"),
		filepath.Join(base, "logs"),
		musicRoot,
	)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return &cliTestEnv{
		baseDir:    base,
		musicRoot:  musicRoot,
		configPath: configPath,
		server:     server,
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}

func TestCLIDetectReportsSplitAlbum(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"detect"}, env.configPath)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	requireContains(t, out, "Split albums (1)")
	requireContains(t, out, "AlbumX")
}

func TestCLIDetectJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"detect", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("detect --json: %v", err)
	}
	requireContains(t, out, `"Kind": "split"`)
}

func TestCLIDetectPlain(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"detect", "--plain"}, env.configPath)
	if err != nil {
		t.Fatalf("detect --plain: %v", err)
	}
	want := filepath.Join(env.musicRoot, "Artist", "AlbumX") + "\n"
	if out != want {
		t.Fatalf("expected plain directory listing %q, got %q", want, out)
	}
}

func TestCLIDanceDryRun(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"dance", "--dry-run"}, env.configPath)
	if err != nil {
		t.Fatalf("dance --dry-run: %v", err)
	}
	requireContains(t, out, "Planned dance for 1 directories")
	requireContains(t, out, "Dry run; no directories were moved.")
}

func TestCLIDanceRequiresConfirmation(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"dance"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "--yes") {
		t.Fatalf("expected confirmation error, got %v", err)
	}
}

func TestCLIDanceResumeRequiresConfirmation(t *testing.T) {
	env := setupCLITestEnv(t)

	// Seed an interrupted run directly in the ledger.
	cfg, _, _, err := config.Load(env.configPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	store, err := ledger.Open(cfg)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	ctx := context.Background()
	run, err := store.CreateRun(ctx, "Music")
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if _, err := store.AddUnit(ctx, run.ID, library.Unit{
		SourcePath:  filepath.Join(env.musicRoot, "Artist", "AlbumX"),
		StagingPath: filepath.Join(cfg.Paths.StagingDir, "0_Artist_AlbumX"),
		Artist:      "Artist",
		Album:       "AlbumX",
		AlbumKeys:   []string{"A1"},
	}); err != nil {
		t.Fatalf("AddUnit: %v", err)
	}
	store.Close()

	out, _, err := runCLI(t, []string{"dance", "--resume", "latest"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "--yes") {
		t.Fatalf("expected confirmation error, got %v", err)
	}
	requireContains(t, out, "Run "+run.ID)
}

func TestCLIRunsEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"runs"}, env.configPath)
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	requireContains(t, out, "No runs recorded.")
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, "")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(env.baseDir, "fresh", "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
}
