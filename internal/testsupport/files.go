package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// MakeAlbumDir creates an album directory containing a few dummy track files
// and returns its path.
func MakeAlbumDir(t testing.TB, root, artist, album string, trackCount int) string {
	t.Helper()

	dir := filepath.Join(root, artist, album)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	for i := 0; i < trackCount; i++ {
		name := filepath.Join(dir, filepath.Base(album)+"-"+string(rune('a'+i))+".flac")
		if err := os.WriteFile(name, []byte("audio"), 0o644); err != nil {
			t.Fatalf("write track: %v", err)
		}
	}
	return dir
}
