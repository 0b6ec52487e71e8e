package library

import (
	"path/filepath"
	"sort"
)

// Unit is one directory scheduled for a dance: the remediation work item the
// orchestrator executes. AlbumKeys lists every album identity whose absence
// must be confirmed once the directory is staged out.
type Unit struct {
	SourcePath  string
	StagingPath string
	Artist      string
	Album       string
	AlbumKeys   []string
}

// Plan converts an anomaly list into a deduplicated, deterministically
// ordered list of remediation units. A split implicates its one directory; a
// merged anomaly implicates every directory it spans. Directories referenced
// by several anomalies collapse into a single unit. Ordering is lexicographic
// by source path so re-planning an unchanged anomaly list yields an identical
// work-list.
func Plan(snap *Snapshot, anomalies []Anomaly, stagingDir string) []Unit {
	implicated := make(map[string]struct{})
	for _, anomaly := range anomalies {
		switch anomaly.Kind {
		case KindSplit:
			implicated[anomaly.Directory] = struct{}{}
		case KindMerged:
			for _, dir := range anomaly.Directories {
				implicated[dir] = struct{}{}
			}
		}
	}

	dirs := make([]string, 0, len(implicated))
	for dir := range implicated {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	units := make([]Unit, 0, len(dirs))
	for i, dir := range dirs {
		album := filepath.Base(dir)
		artist := filepath.Base(filepath.Dir(dir))

		var keys []string
		if snap != nil {
			if group := snap.Groups[dir]; group != nil {
				keys = append([]string(nil), group.AlbumKeys...)
			}
		}

		units = append(units, Unit{
			SourcePath:  dir,
			StagingPath: filepath.Join(stagingDir, StagingName(i, artist, album)),
			Artist:      artist,
			Album:       album,
			AlbumKeys:   keys,
		})
	}
	return units
}

// DefaultStagingDir returns the staging location used when none is
// configured: a tmp.plexdance directory beside the library root, which keeps
// staging on the same filesystem while being invisible to the library scan.
func DefaultStagingDir(libraryRoot string) string {
	return filepath.Join(filepath.Dir(libraryRoot), "tmp.plexdance")
}
