package dance

import "errors"

var (
	// ErrStagingCollision means the staging path already exists before stage
	// out. The source directory is left untouched.
	ErrStagingCollision = errors.New("staging path already exists")

	// ErrRestoreCollision means the source path reappeared while the unit's
	// directory was staged. The directory stays in staging for manual review.
	ErrRestoreCollision = errors.New("source path already exists")

	// ErrCrossFilesystem means a rename between source and staging would not
	// be atomic. Nothing is moved; the run halts so staging can be relocated.
	ErrCrossFilesystem = errors.New("source and staging are on different filesystems")

	// ErrTimeoutAbsent means the index kept reporting the unit's album
	// entries past the poll budget. The directory stays in staging.
	ErrTimeoutAbsent = errors.New("timed out waiting for album entries to disappear")

	// ErrTimeoutPresent means the index never settled on a single album
	// identity after the move back. The directory is already restored.
	ErrTimeoutPresent = errors.New("timed out waiting for a single album identity")
)
