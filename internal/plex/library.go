package plex

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"plexdance/internal/library"
)

// Library binds a client to one resolved music section plus the configured
// path mapping. It is the index view the analyzer and orchestrator consume.
type Library struct {
	client  *Client
	section Section
	mapping library.PathMapping
}

// OpenLibrary resolves the named music section on the server.
func (c *Client) OpenLibrary(ctx context.Context, name string, mapping library.PathMapping) (*Library, error) {
	section, err := c.MusicSection(ctx, name)
	if err != nil {
		return nil, err
	}
	return &Library{client: c, section: section, mapping: mapping}, nil
}

// SectionTitle returns the resolved section's display title.
func (l *Library) SectionTitle() string {
	return l.section.Title
}

// Locations returns the section's root directories as local paths, sorted.
func (l *Library) Locations() []string {
	out := make([]string, 0, len(l.section.Locations))
	for _, loc := range l.section.Locations {
		out = append(out, l.mapping.ToLocal(loc.Path))
	}
	sort.Strings(out)
	return out
}

// ContainsPath reports whether a local directory sits under one of the
// section's library roots. Directories outside the library are never danced;
// moving them would not affect the index at all.
func (l *Library) ContainsPath(path string) bool {
	for _, root := range l.Locations() {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// Snapshot fetches every track in the section and assembles the library
// snapshot, with Plex paths rewritten to local paths.
func (l *Library) Snapshot(ctx context.Context) (*library.Snapshot, error) {
	raw, err := l.client.Tracks(ctx, l.section.Key)
	if err != nil {
		return nil, err
	}

	tracks := make([]library.Track, 0, len(raw))
	for _, meta := range raw {
		file := firstFile(meta)
		if file == "" {
			continue
		}
		local := l.mapping.ToLocal(file)
		tracks = append(tracks, library.Track{
			RatingKey:  meta.RatingKey,
			File:       local,
			Dir:        filepath.Dir(local),
			AlbumKey:   meta.ParentRatingKey,
			AlbumTitle: meta.ParentTitle,
			Artist:     meta.GrandparentTitle,
		})
	}
	return library.BuildSnapshot(tracks), nil
}

// AlbumExists probes one album identity by rating key.
func (l *Library) AlbumExists(ctx context.Context, ratingKey string) (bool, error) {
	return l.client.AlbumExists(ctx, ratingKey)
}

// AlbumKeysForDirectory re-fetches the section and returns the album
// identities whose tracks currently live under the given local directory.
// Results are never cached: the index may be mid-rescan.
func (l *Library) AlbumKeysForDirectory(ctx context.Context, dir string) ([]string, error) {
	snap, err := l.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	group := snap.Groups[dir]
	if group == nil {
		return nil, nil
	}
	return group.AlbumKeys, nil
}

// RefreshDirectory asks Plex to rescan the section limited to the given
// local directory.
func (l *Library) RefreshDirectory(ctx context.Context, dir string) error {
	if err := l.client.RefreshSection(ctx, l.section.Key, l.mapping.ToPlex(dir)); err != nil {
		return fmt.Errorf("trigger rescan for %s: %w", dir, err)
	}
	return nil
}

func firstFile(meta TrackMetadata) string {
	for _, media := range meta.Media {
		for _, part := range media.Part {
			if part.File != "" {
				return part.File
			}
		}
	}
	return ""
}
