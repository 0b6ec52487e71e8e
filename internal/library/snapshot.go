package library

import (
	"path/filepath"
	"sort"
	"strings"
)

// Track is one track as the index reports it: where its file lives on disk
// and which album identity the index currently assigns it to. AlbumKey is
// empty for unassigned tracks.
type Track struct {
	RatingKey  string
	File       string
	Dir        string
	AlbumKey   string
	AlbumTitle string
	Artist     string
}

// Album is one album identity in the index together with the directories its
// tracks are drawn from.
type Album struct {
	Key        string
	Title      string
	Artist     string
	Dirs       []string
	TrackCount int
}

// DirectoryGroup is one on-disk directory together with the album identities
// its tracks are assigned to.
type DirectoryGroup struct {
	Path       string
	AlbumKeys  []string
	TrackCount int
}

// Snapshot is a point-in-time view of the index. It is rebuilt from scratch
// every analysis run; the index can change between runs.
type Snapshot struct {
	Tracks []Track
	Albums map[string]*Album
	Groups map[string]*DirectoryGroup
}

// PathMapping translates between Plex-reported paths and local paths when the
// server runs with different mount points (containers).
type PathMapping struct {
	LocalRoot string
	PlexRoot  string
}

// IsZero reports whether no mapping is configured.
func (m PathMapping) IsZero() bool {
	return m.LocalRoot == "" && m.PlexRoot == ""
}

// ToLocal rewrites a Plex-reported path into a local path.
func (m PathMapping) ToLocal(path string) string {
	if m.IsZero() || !strings.HasPrefix(path, m.PlexRoot) {
		return path
	}
	return m.LocalRoot + strings.TrimPrefix(path, m.PlexRoot)
}

// ToPlex rewrites a local path into the path Plex knows it by.
func (m PathMapping) ToPlex(path string) string {
	if m.IsZero() || !strings.HasPrefix(path, m.LocalRoot) {
		return path
	}
	return m.PlexRoot + strings.TrimPrefix(path, m.LocalRoot)
}

// BuildSnapshot groups tracks into albums and directory groups. Tracks with
// no file path are ignored; tracks with no album assignment count toward
// their directory group's track total but contribute no album membership.
func BuildSnapshot(tracks []Track) *Snapshot {
	snap := &Snapshot{
		Albums: make(map[string]*Album),
		Groups: make(map[string]*DirectoryGroup),
	}

	albumDirs := make(map[string]map[string]struct{})
	groupAlbums := make(map[string]map[string]struct{})

	for _, track := range tracks {
		if track.File == "" {
			continue
		}
		if track.Dir == "" {
			track.Dir = filepath.Dir(track.File)
		}
		snap.Tracks = append(snap.Tracks, track)

		group := snap.Groups[track.Dir]
		if group == nil {
			group = &DirectoryGroup{Path: track.Dir}
			snap.Groups[track.Dir] = group
			groupAlbums[track.Dir] = make(map[string]struct{})
		}
		group.TrackCount++

		if track.AlbumKey == "" {
			continue
		}

		album := snap.Albums[track.AlbumKey]
		if album == nil {
			album = &Album{Key: track.AlbumKey, Title: track.AlbumTitle, Artist: track.Artist}
			snap.Albums[track.AlbumKey] = album
			albumDirs[track.AlbumKey] = make(map[string]struct{})
		}
		album.TrackCount++
		albumDirs[track.AlbumKey][track.Dir] = struct{}{}
		groupAlbums[track.Dir][track.AlbumKey] = struct{}{}
	}

	for key, album := range snap.Albums {
		album.Dirs = sortedKeys(albumDirs[key])
	}
	for path, group := range snap.Groups {
		group.AlbumKeys = sortedKeys(groupAlbums[path])
	}
	return snap
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for key := range set {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}
