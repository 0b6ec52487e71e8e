package plex_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"plexdance/internal/config"
	"plexdance/internal/library"
	"plexdance/internal/plex"
)

const sectionsJSON = `{"MediaContainer":{"Directory":[
  {"key":"5","type":"artist","title":"Music","Location":[{"path":"/media/Music"}]},
  {"key":"2","type":"movie","title":"Movies","Location":[{"path":"/media/Movies"}]}
]}}`

const tracksJSON = `{"MediaContainer":{"Metadata":[
  {"ratingKey":"101","parentRatingKey":"A1","parentTitle":"Album X","grandparentTitle":"Artist",
   "Media":[{"Part":[{"file":"/media/Music/Artist/AlbumX/01.flac"}]}]},
  {"ratingKey":"102","parentRatingKey":"A2","parentTitle":"Album X","grandparentTitle":"Artist",
   "Media":[{"Part":[{"file":"/media/Music/Artist/AlbumX/02.flac"}]}]},
  {"ratingKey":"103","parentRatingKey":"","parentTitle":"","grandparentTitle":"",
   "Media":[{"Part":[{"file":"/media/Music/New/Arrival/01.flac"}]}]}
]}}`

func newFakeServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	withAuth := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-Plex-Token") != "good-token" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			next(w, r)
		}
	}
	mux.HandleFunc("/library/sections", withAuth(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sectionsJSON))
	}))
	mux.HandleFunc("/library/sections/5/all", withAuth(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("type") != "10" {
			http.Error(w, "expected track listing", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(tracksJSON))
	}))
	mux.HandleFunc("/library/metadata/A1", withAuth(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"MediaContainer":{}}`))
	}))
	mux.HandleFunc("/library/metadata/", withAuth(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	mux.HandleFunc("/library/sections/5/refresh", withAuth(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("path") == "" {
			http.Error(w, "expected partial scan", http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newClient(t *testing.T, url, token string) *plex.Client {
	t.Helper()
	cfg := config.Default()
	cfg.Plex.URL = url
	cfg.Plex.Token = token
	client, err := plex.NewClient(&cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestMusicSectionResolves(t *testing.T) {
	server := newFakeServer(t)
	client := newClient(t, server.URL, "good-token")

	section, err := client.MusicSection(context.Background(), "Music")
	if err != nil {
		t.Fatalf("MusicSection: %v", err)
	}
	if section.Key != "5" {
		t.Fatalf("unexpected section: %+v", section)
	}

	if _, err := client.MusicSection(context.Background(), "Movies"); err == nil {
		t.Fatal("expected error for non-music section")
	}
	if _, err := client.MusicSection(context.Background(), "Podcasts"); err == nil {
		t.Fatal("expected error for missing section")
	}
}

func TestSnapshotAppliesPathMapping(t *testing.T) {
	server := newFakeServer(t)
	client := newClient(t, server.URL, "good-token")

	mapping := library.PathMapping{LocalRoot: "/mnt/music", PlexRoot: "/media/Music"}
	lib, err := client.OpenLibrary(context.Background(), "Music", mapping)
	if err != nil {
		t.Fatalf("OpenLibrary: %v", err)
	}

	snap, err := lib.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	group := snap.Groups["/mnt/music/Artist/AlbumX"]
	if group == nil {
		t.Fatalf("expected mapped directory group, have %v", snap.Groups)
	}
	if !reflect.DeepEqual(group.AlbumKeys, []string{"A1", "A2"}) {
		t.Fatalf("unexpected album keys: %v", group.AlbumKeys)
	}

	if got := lib.Locations(); !reflect.DeepEqual(got, []string{"/mnt/music"}) {
		t.Fatalf("unexpected locations: %v", got)
	}
	if !lib.ContainsPath("/mnt/music/Artist/AlbumX") {
		t.Fatal("ContainsPath should accept library paths")
	}
	if lib.ContainsPath("/mnt/musically/evil") {
		t.Fatal("ContainsPath must not match sibling prefixes")
	}
}

func TestAlbumExists(t *testing.T) {
	server := newFakeServer(t)
	client := newClient(t, server.URL, "good-token")
	ctx := context.Background()

	exists, err := client.AlbumExists(ctx, "A1")
	if err != nil || !exists {
		t.Fatalf("expected A1 to exist: exists=%v err=%v", exists, err)
	}
	exists, err = client.AlbumExists(ctx, "A9")
	if err != nil || exists {
		t.Fatalf("expected A9 to be absent: exists=%v err=%v", exists, err)
	}
}

func TestAuthErrorClassification(t *testing.T) {
	server := newFakeServer(t)
	client := newClient(t, server.URL, "bad-token")

	_, err := client.Sections(context.Background())
	if !errors.Is(err, plex.ErrAuth) {
		t.Fatalf("expected ErrAuth, got %v", err)
	}
}

func TestUnreachableClassification(t *testing.T) {
	client := newClient(t, "http://127.0.0.1:1", "token")

	_, err := client.Sections(context.Background())
	if !errors.Is(err, plex.ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable, got %v", err)
	}
}

func TestRefreshDirectoryMapsPath(t *testing.T) {
	server := newFakeServer(t)
	client := newClient(t, server.URL, "good-token")

	mapping := library.PathMapping{LocalRoot: "/mnt/music", PlexRoot: "/media/Music"}
	lib, err := client.OpenLibrary(context.Background(), "Music", mapping)
	if err != nil {
		t.Fatalf("OpenLibrary: %v", err)
	}
	if err := lib.RefreshDirectory(context.Background(), "/mnt/music/Artist/AlbumX"); err != nil {
		t.Fatalf("RefreshDirectory: %v", err)
	}
}
