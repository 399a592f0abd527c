package offchain

import (
	"errors"
	"fmt"
)

// ErrMetadataFetch matches every FetchError.
var ErrMetadataFetch = errors.New("off-chain metadata fetch failed")

// FetchError is returned when a metadata URI could not be fetched within the retry bound.
type FetchError struct {
	URI        string
	Attempts   int
	LastStatus int // zero when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.LastStatus != 0 {
		return fmt.Sprintf("fetch %s: %d attempts, last status %d: %v", e.URI, e.Attempts, e.LastStatus, e.Err)
	}
	return fmt.Sprintf("fetch %s: %d attempts: %v", e.URI, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrMetadataFetch) true for every FetchError.
func (e *FetchError) Is(target error) bool { return target == ErrMetadataFetch }
