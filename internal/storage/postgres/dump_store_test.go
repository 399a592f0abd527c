package postgres

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-nft-lab/internal/domain"
	"solana-nft-lab/internal/storage"
)

func TestDumpStore_PutAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewDumpStore(pool)

	price := decimal.RequireFromString("2.5")
	dump := &domain.NftDump{
		Account:         "wallet-1",
		Mint:            "mint-1",
		MetadataAccount: "meta-1",
		Metadata: &domain.OnChainMetadata{
			Key:  domain.MetadataKeyMetadataV1,
			Mint: "mint-1",
			Data: domain.MetadataData{Name: "Ape #9", URI: "https://example.com/9.json"},
		},
		NftMetadata:    json.RawMessage(`{"name":"Ape #9"}`),
		PurchasedPrice: &price,
		TransactionData: []domain.TransactionRecord{
			{Signature: "sig-1", Slot: 100},
		},
		Version: 1,
		Extra:   map[string]json.RawMessage{"legacy": json.RawMessage(`true`)},
	}

	require.NoError(t, store.Put(ctx, dump))

	got, err := store.Get(ctx, "mint-1")
	require.NoError(t, err)

	assert.Equal(t, int64(1), got.Version)
	assert.Equal(t, "wallet-1", got.Account)
	assert.Equal(t, "https://example.com/9.json", got.MetadataURI())
	require.NotNil(t, got.PurchasedPrice)
	assert.True(t, price.Equal(*got.PurchasedPrice))
	assert.JSONEq(t, `{"name":"Ape #9"}`, string(got.NftMetadata))
	assert.JSONEq(t, `true`, string(got.Extra["legacy"]))
}

func TestDumpStore_GetNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := NewDumpStore(pool).Get(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDumpStore_VersionConflict(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewDumpStore(pool)

	require.NoError(t, store.Put(ctx, &domain.NftDump{Mint: "mint-v", Version: 1}))
	require.NoError(t, store.Put(ctx, &domain.NftDump{Mint: "mint-v", Version: 2}))

	// Stale writer
	err := store.Put(ctx, &domain.NftDump{Mint: "mint-v", Version: 2})
	assert.ErrorIs(t, err, storage.ErrVersionConflict)

	// Second creator
	err = store.Put(ctx, &domain.NftDump{Mint: "mint-v", Version: 1})
	assert.ErrorIs(t, err, storage.ErrVersionConflict)

	// Skipping ahead on a missing row
	err = store.Put(ctx, &domain.NftDump{Mint: "mint-new", Version: 3})
	assert.ErrorIs(t, err, storage.ErrVersionConflict)
}

func TestDumpStore_UpdaterAcrossWriters(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	// Two updaters model two processes sharing the table.
	a := storage.NewUpdater(NewDumpStore(pool))
	b := storage.NewUpdater(NewDumpStore(pool))

	var wg sync.WaitGroup
	for _, u := range []*storage.Updater{a, b} {
		wg.Add(1)
		go func(u *storage.Updater) {
			defer wg.Done()
			_, err := u.Update(ctx, "mint-shared", func(current *domain.NftDump) (*domain.NftDump, error) {
				if current == nil {
					current = &domain.NftDump{}
				}
				current.AddIssue("touched")
				return current, nil
			})
			assert.NoError(t, err)
		}(u)
	}
	wg.Wait()

	got, err := NewDumpStore(pool).Get(ctx, "mint-shared")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
}

func TestDumpStore_UnreadableDocumentIsReplaced(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	_, err := pool.Exec(ctx, `
		INSERT INTO nft_dumps (mint, account, version, document, updated_at)
		VALUES ('mint-bad', 'wallet-1', 3, '{"mint": "someone-else"}', now())
	`)
	require.NoError(t, err)

	store := NewDumpStore(pool)
	_, err = store.Get(ctx, "mint-bad")
	var invalid *storage.InvalidDumpError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, int64(3), invalid.Version)
	assert.ErrorIs(t, err, domain.ErrInvalidDump)

	written, err := storage.NewUpdater(store).Update(ctx, "mint-bad", func(current *domain.NftDump) (*domain.NftDump, error) {
		assert.Nil(t, current)
		return &domain.NftDump{Account: "wallet-2"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), written.Version)

	got, err := store.Get(ctx, "mint-bad")
	require.NoError(t, err)
	assert.Equal(t, "wallet-2", got.Account)
}

func TestDumpStore_ListMints(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewDumpStore(pool)

	for _, m := range []string{"mint-c", "mint-a", "mint-b"} {
		require.NoError(t, store.Put(ctx, &domain.NftDump{Mint: m, Version: 1}))
	}

	mints, err := store.ListMints(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"mint-a", "mint-b", "mint-c"}, mints)
}
