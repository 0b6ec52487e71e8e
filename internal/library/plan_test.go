package library_test

import (
	"reflect"
	"strings"
	"testing"

	"plexdance/internal/library"
)

func brokenSnapshot() (*library.Snapshot, []library.Anomaly) {
	tracks := []library.Track{
		track("1", "/music/Artist/AlbumX/01.flac", "A1", "Album X"),
		track("2", "/music/Artist/AlbumX/02.flac", "A2", "Album X"),
		track("3", "/music/Artist/Vol1/01.flac", "A3", "Anthology"),
		track("4", "/music/Artist/Vol2/01.flac", "A3", "Anthology"),
	}
	snap := library.BuildSnapshot(tracks)
	return snap, library.Analyze(snap)
}

func TestPlanOneUnitPerDirectory(t *testing.T) {
	snap, anomalies := brokenSnapshot()
	units := library.Plan(snap, anomalies, "/staging")

	if len(units) != 3 {
		t.Fatalf("expected three units, got %+v", units)
	}
	wantOrder := []string{"/music/Artist/AlbumX", "/music/Artist/Vol1", "/music/Artist/Vol2"}
	for i, want := range wantOrder {
		if units[i].SourcePath != want {
			t.Fatalf("unit %d: got %s, want %s", i, units[i].SourcePath, want)
		}
		if !strings.HasPrefix(units[i].StagingPath, "/staging/") {
			t.Fatalf("unit %d staging path outside staging dir: %s", i, units[i].StagingPath)
		}
	}
	if !reflect.DeepEqual(units[0].AlbumKeys, []string{"A1", "A2"}) {
		t.Fatalf("split unit should watch both identities: %v", units[0].AlbumKeys)
	}
	if !reflect.DeepEqual(units[1].AlbumKeys, []string{"A3"}) {
		t.Fatalf("merged unit should watch the shared identity: %v", units[1].AlbumKeys)
	}
}

func TestPlanDeduplicatesDirectories(t *testing.T) {
	// One directory implicated by both a split and a merged anomaly yields
	// one unit.
	tracks := []library.Track{
		track("1", "/music/Artist/Album/01.flac", "A1", ""),
		track("2", "/music/Artist/Album/02.flac", "A2", ""),
		track("3", "/music/Artist/Other/01.flac", "A2", ""),
	}
	snap := library.BuildSnapshot(tracks)
	units := library.Plan(snap, library.Analyze(snap), "/staging")

	if len(units) != 2 {
		t.Fatalf("expected two units, got %+v", units)
	}
}

func TestPlanIdempotent(t *testing.T) {
	snap, anomalies := brokenSnapshot()
	first := library.Plan(snap, anomalies, "/staging")
	second := library.Plan(snap, anomalies, "/staging")

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("planner not idempotent:\n%+v\n%+v", first, second)
	}
}

func TestPlanUsesArtistAndAlbumNames(t *testing.T) {
	snap, anomalies := brokenSnapshot()
	units := library.Plan(snap, anomalies, "/staging")

	if units[0].Artist != "Artist" || units[0].Album != "AlbumX" {
		t.Fatalf("unexpected artist/album: %+v", units[0])
	}
}

func TestDefaultStagingDir(t *testing.T) {
	if got := library.DefaultStagingDir("/srv/media/music"); got != "/srv/media/tmp.plexdance" {
		t.Fatalf("DefaultStagingDir: %s", got)
	}
}
