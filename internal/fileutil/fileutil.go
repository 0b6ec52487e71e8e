// Package fileutil provides filesystem helpers for staging moves: directory
// presence checks, same-filesystem verification, and AppleDouble sidecar
// handling.
package fileutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// DirExists reports whether path exists and is a directory.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// PathExists reports whether path exists at all.
func PathExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// SameFilesystem reports whether a and b live on the same filesystem, so that
// a rename between them is a metadata-only operation. When b does not exist
// its nearest existing ancestor is checked instead.
func SameFilesystem(a, b string) (bool, error) {
	devA, err := deviceOf(a)
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", a, err)
	}

	probe := b
	for {
		devB, err := deviceOf(probe)
		if err == nil {
			return devA == devB, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return false, fmt.Errorf("stat %s: %w", probe, err)
		}
		parent := filepath.Dir(probe)
		if parent == probe {
			return false, fmt.Errorf("no existing ancestor for %s", b)
		}
		probe = parent
	}
}

func deviceOf(path string) (uint64, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		if errors.Is(err, unix.ENOENT) {
			return 0, fs.ErrNotExist
		}
		return 0, err
	}
	return uint64(st.Dev), nil
}

// SidecarPath returns the AppleDouble companion path for a file or directory
// ("._name" in the same parent directory).
func SidecarPath(path string) string {
	return filepath.Join(filepath.Dir(path), "._"+filepath.Base(path))
}

// MoveSidecar renames the AppleDouble companion of src alongside dst when one
// exists. Sidecar files are metadata droppings from macOS clients; failing to
// move one is not fatal.
func MoveSidecar(src, dst string) {
	sidecar := SidecarPath(src)
	if !PathExists(sidecar) {
		return
	}
	_ = os.Rename(sidecar, SidecarPath(dst))
}
