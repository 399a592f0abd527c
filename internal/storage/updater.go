package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"solana-nft-lab/internal/domain"
)

// maxConflictRetries bounds re-reads after another process wins a write.
const maxConflictRetries = 3

// UpdateFunc receives the stored dump (nil when absent) and returns the
// document to write. It may modify and return current.
type UpdateFunc func(current *domain.NftDump) (*domain.NftDump, error)

// Updater performs versioned read-modify-write cycles on a DumpStore,
// serialized per mint within the process.
type Updater struct {
	store DumpStore
	locks *KeyedMutex
	now   func() time.Time
}

// NewUpdater creates an Updater over store.
func NewUpdater(store DumpStore) *Updater {
	return &Updater{
		store: store,
		locks: NewKeyedMutex(),
		now:   time.Now,
	}
}

// Store returns the underlying dump store.
func (u *Updater) Store() DumpStore {
	return u.store
}

// Update applies fn to the dump for mint under the mint's lock, bumps the
// version and stamps the update time. Version conflicts from other
// processes are retried with a fresh read. A stored document that fails to
// decode is passed to fn as nil and overwritten.
func (u *Updater) Update(ctx context.Context, mint string, fn UpdateFunc) (*domain.NftDump, error) {
	if mint == "" {
		return nil, ErrInvalidInput
	}

	release := u.locks.Lock(mint)
	defer release()

	var lastErr error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var prevVersion int64
		current, err := u.store.Get(ctx, mint)
		switch {
		case err == nil:
			prevVersion = current.Version
		case errors.Is(err, ErrNotFound):
			current = nil
		case errors.Is(err, domain.ErrInvalidDump):
			// fn rebuilds the record, which then replaces the unreadable one.
			current = nil
			prevVersion = storedVersion(err)
		default:
			return nil, fmt.Errorf("read dump %s: %w", mint, err)
		}

		next, err := fn(current)
		if err != nil {
			return nil, err
		}
		if next == nil {
			return nil, fmt.Errorf("update dump %s: %w", mint, ErrInvalidInput)
		}

		next.Mint = mint
		next.Version = prevVersion + 1
		next.UpdatedAt = u.now().UnixMilli()

		err = u.store.Put(ctx, next)
		if err == nil {
			return next, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return nil, fmt.Errorf("write dump %s: %w", mint, err)
		}
		lastErr = err
	}

	return nil, lastErr
}
