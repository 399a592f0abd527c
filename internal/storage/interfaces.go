package storage

import (
	"context"
	"fmt"

	"solana-nft-lab/internal/domain"
)

// DumpStore persists one NftDump document per mint.
type DumpStore interface {
	// Get retrieves the dump for mint. Returns ErrNotFound if absent.
	Get(ctx context.Context, mint string) (*domain.NftDump, error)

	// Put writes the dump wholesale. A dump with Version > 0 must follow the
	// stored version by exactly one, else ErrVersionConflict. Version 0 is
	// written unconditionally.
	Put(ctx context.Context, dump *domain.NftDump) error

	// ListMints returns every stored mint in ascending order.
	ListMints(ctx context.Context) ([]string, error)
}

// ObservationStore is an append-only log of per-signature price signals.
type ObservationStore interface {
	// InsertBulk appends observations. Re-inserting an observation id is a no-op.
	InsertBulk(ctx context.Context, obs []*domain.PriceObservation) error

	// GetByMint retrieves observations for mint ordered by observed_at, then slot.
	GetByMint(ctx context.Context, mint string) ([]*domain.PriceObservation, error)
}

// CheckVersion validates that next may replace stored (nil when absent).
func CheckVersion(stored, next *domain.NftDump) error {
	if next.Version == 0 {
		return nil
	}
	var current int64
	if stored != nil {
		current = stored.Version
	}
	if next.Version != current+1 {
		return fmt.Errorf("%w: mint %s stored version %d, write version %d", ErrVersionConflict, next.Mint, current, next.Version)
	}
	return nil
}
