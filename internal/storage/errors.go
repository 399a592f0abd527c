package storage

import (
	"errors"
	"fmt"
)

// Storage errors.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrVersionConflict is returned when a dump write does not follow the
	// stored version, meaning another writer got there first.
	ErrVersionConflict = errors.New("version conflict: dump was modified concurrently")
)

// InvalidDumpError reports a stored document that could not be read back.
// Version is the stored version when the backend tracks it outside the
// document, and 0 otherwise.
type InvalidDumpError struct {
	Mint    string
	Version int64
	Err     error
}

func (e *InvalidDumpError) Error() string {
	return fmt.Sprintf("dump %s at version %d: %v", e.Mint, e.Version, e.Err)
}

func (e *InvalidDumpError) Unwrap() error { return e.Err }

// storedVersion returns the version an unreadable document was stored at.
func storedVersion(err error) int64 {
	var invalid *InvalidDumpError
	if errors.As(err, &invalid) {
		return invalid.Version
	}
	return 0
}
