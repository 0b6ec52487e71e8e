package library

import "sort"

// AnomalyKind distinguishes the two inconsistency classes.
type AnomalyKind string

const (
	// KindSplit flags a directory whose tracks span multiple album identities.
	KindSplit AnomalyKind = "split"
	// KindMerged flags an album identity drawing tracks from multiple directories.
	KindMerged AnomalyKind = "merged"
)

// Anomaly is one detected inconsistency between on-disk grouping and index
// grouping. For KindSplit, Directory and AlbumKeys are set; for KindMerged,
// AlbumKey, AlbumTitle, and Directories are set.
type Anomaly struct {
	Kind        AnomalyKind
	Directory   string
	AlbumKeys   []string
	AlbumKey    string
	AlbumTitle  string
	Directories []string
}

// Analyze inspects a snapshot and returns all split and merged anomalies.
// The result is deterministic for a given snapshot: splits ordered by
// directory path, then merged anomalies ordered by album key. A directory
// with no indexed tracks, or whose tracks are all unassigned, is never an
// anomaly; absence of index data is not an inconsistency.
func Analyze(snap *Snapshot) []Anomaly {
	if snap == nil {
		return nil
	}

	var anomalies []Anomaly

	dirs := make([]string, 0, len(snap.Groups))
	for path := range snap.Groups {
		dirs = append(dirs, path)
	}
	sort.Strings(dirs)
	for _, path := range dirs {
		group := snap.Groups[path]
		if len(group.AlbumKeys) < 2 {
			continue
		}
		anomalies = append(anomalies, Anomaly{
			Kind:      KindSplit,
			Directory: group.Path,
			AlbumKeys: append([]string(nil), group.AlbumKeys...),
		})
	}

	albumKeys := make([]string, 0, len(snap.Albums))
	for key := range snap.Albums {
		albumKeys = append(albumKeys, key)
	}
	sort.Strings(albumKeys)
	for _, key := range albumKeys {
		album := snap.Albums[key]
		if len(album.Dirs) < 2 {
			continue
		}
		anomalies = append(anomalies, Anomaly{
			Kind:        KindMerged,
			AlbumKey:    album.Key,
			AlbumTitle:  album.Title,
			Directories: append([]string(nil), album.Dirs...),
		})
	}

	return anomalies
}
