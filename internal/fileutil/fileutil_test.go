package fileutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"plexdance/internal/fileutil"
)

func TestDirExists(t *testing.T) {
	base := t.TempDir()
	if !fileutil.DirExists(base) {
		t.Fatalf("expected %s to exist", base)
	}
	if fileutil.DirExists(filepath.Join(base, "missing")) {
		t.Fatal("expected missing directory to report false")
	}

	file := filepath.Join(base, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if fileutil.DirExists(file) {
		t.Fatal("regular file should not count as directory")
	}
	if !fileutil.PathExists(file) {
		t.Fatal("regular file should exist")
	}
}

func TestSameFilesystemWithinTempDir(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "src")
	if err := os.Mkdir(src, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	// Destination does not exist yet; the nearest ancestor is checked.
	same, err := fileutil.SameFilesystem(src, filepath.Join(base, "staging", "album"))
	if err != nil {
		t.Fatalf("SameFilesystem: %v", err)
	}
	if !same {
		t.Fatal("paths under one temp dir should share a filesystem")
	}
}

func TestSameFilesystemMissingSource(t *testing.T) {
	base := t.TempDir()
	if _, err := fileutil.SameFilesystem(filepath.Join(base, "missing"), base); err == nil {
		t.Fatal("expected error for missing source path")
	}
}

func TestMoveSidecar(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "Album")
	dst := filepath.Join(base, "out", "Album")
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(fileutil.SidecarPath(src), []byte("meta"), 0o644); err != nil {
		t.Fatalf("write sidecar: %v", err)
	}

	fileutil.MoveSidecar(src, dst)

	if fileutil.PathExists(fileutil.SidecarPath(src)) {
		t.Fatal("sidecar should have been moved away from source")
	}
	if !fileutil.PathExists(fileutil.SidecarPath(dst)) {
		t.Fatal("sidecar should exist next to destination")
	}
}
