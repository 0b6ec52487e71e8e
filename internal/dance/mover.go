package dance

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"plexdance/internal/fileutil"
	"plexdance/internal/logging"
)

// Mover performs the physical directory renames for the dance. Moves must be
// atomic, which means source and destination have to share a filesystem.
type Mover struct {
	logger *slog.Logger
}

// NewMover returns a Mover logging through the given logger.
func NewMover(logger *slog.Logger) *Mover {
	return &Mover{logger: logging.WithComponent(logger, "mover")}
}

// Move renames src to dst, creating dst's parent directory first and carrying
// any AppleDouble sidecar along.
func (m *Mover) Move(src, dst string) error {
	same, err := fileutil.SameFilesystem(src, dst)
	if err != nil {
		return fmt.Errorf("verify filesystems for %s: %w", src, err)
	}
	if !same {
		return fmt.Errorf("%w: %s -> %s", ErrCrossFilesystem, src, dst)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create parent of %s: %w", dst, err)
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("rename %s -> %s: %w", src, dst, err)
	}
	fileutil.MoveSidecar(src, dst)

	m.logger.Debug("moved directory",
		logging.Args(
			logging.String("from", src),
			logging.String("to", dst),
		)...)
	return nil
}
