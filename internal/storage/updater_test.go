package storage_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-nft-lab/internal/domain"
	"solana-nft-lab/internal/storage"
	"solana-nft-lab/internal/storage/file"
	"solana-nft-lab/internal/storage/memory"
)

const testMint = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"

func TestUpdater_CreatesAndBumpsVersion(t *testing.T) {
	store := memory.NewDumpStore()
	updater := storage.NewUpdater(store)
	ctx := context.Background()

	first, err := updater.Update(ctx, testMint, func(current *domain.NftDump) (*domain.NftDump, error) {
		assert.Nil(t, current)
		return &domain.NftDump{Account: "acct"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Version)
	assert.Equal(t, testMint, first.Mint)
	assert.NotZero(t, first.UpdatedAt)

	second, err := updater.Update(ctx, testMint, func(current *domain.NftDump) (*domain.NftDump, error) {
		require.NotNil(t, current)
		current.PurchasedDate = "2024-01-01"
		return current, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Version)

	stored, err := store.Get(ctx, testMint)
	require.NoError(t, err)
	assert.Equal(t, "acct", stored.Account)
	assert.Equal(t, "2024-01-01", stored.PurchasedDate)
}

func TestUpdater_SerializesConcurrentWriters(t *testing.T) {
	store := memory.NewDumpStore()
	updater := storage.NewUpdater(store)
	ctx := context.Background()

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := updater.Update(ctx, testMint, func(current *domain.NftDump) (*domain.NftDump, error) {
				if current == nil {
					current = &domain.NftDump{}
				}
				current.TransactionData = append(current.TransactionData, domain.TransactionRecord{Signature: "sig"})
				return current, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, err := store.Get(ctx, testMint)
	require.NoError(t, err)
	assert.Equal(t, int64(writers), stored.Version)
	assert.Len(t, stored.TransactionData, writers)
}

func TestUpdater_PropagatesFuncError(t *testing.T) {
	updater := storage.NewUpdater(memory.NewDumpStore())
	boom := errors.New("boom")

	_, err := updater.Update(context.Background(), testMint, func(*domain.NftDump) (*domain.NftDump, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestUpdater_ReplacesUnreadableFile(t *testing.T) {
	dir := t.TempDir()
	store, err := file.NewDumpStore(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, testMint+".json"), []byte(`{"mint":`), 0o644))

	written, err := storage.NewUpdater(store).Update(context.Background(), testMint, func(current *domain.NftDump) (*domain.NftDump, error) {
		assert.Nil(t, current)
		return &domain.NftDump{Account: "acct"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), written.Version)

	stored, err := store.Get(context.Background(), testMint)
	require.NoError(t, err)
	assert.Equal(t, "acct", stored.Account)
}

// versionedStore reports every stored document as unreadable at a fixed
// version, as a store with a separate version column does.
type versionedStore struct {
	storage.DumpStore
	version int64
	puts    []*domain.NftDump
}

func (s *versionedStore) Get(_ context.Context, mint string) (*domain.NftDump, error) {
	return nil, &storage.InvalidDumpError{Mint: mint, Version: s.version, Err: fmt.Errorf("%w: bad json", domain.ErrInvalidDump)}
}

func (s *versionedStore) Put(_ context.Context, d *domain.NftDump) error {
	s.puts = append(s.puts, d)
	return nil
}

func TestUpdater_UnreadableDocumentKeepsVersionOrder(t *testing.T) {
	store := &versionedStore{version: 4}

	written, err := storage.NewUpdater(store).Update(context.Background(), testMint, func(current *domain.NftDump) (*domain.NftDump, error) {
		assert.Nil(t, current)
		return &domain.NftDump{}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), written.Version)
	require.Len(t, store.puts, 1)
}

func TestUpdater_ReadFailureIsReturned(t *testing.T) {
	boom := errors.New("disk gone")
	store := &failingStore{err: boom}

	_, err := storage.NewUpdater(store).Update(context.Background(), testMint, func(*domain.NftDump) (*domain.NftDump, error) {
		t.Fatal("update func must not run")
		return nil, nil
	})
	assert.ErrorIs(t, err, boom)
}

type failingStore struct {
	storage.DumpStore
	err error
}

func (s *failingStore) Get(context.Context, string) (*domain.NftDump, error) {
	return nil, s.err
}

func TestCheckVersion(t *testing.T) {
	assert.NoError(t, storage.CheckVersion(nil, &domain.NftDump{Version: 1}))
	assert.NoError(t, storage.CheckVersion(&domain.NftDump{Version: 3}, &domain.NftDump{Version: 4}))
	assert.NoError(t, storage.CheckVersion(&domain.NftDump{Version: 3}, &domain.NftDump{Version: 0}))
	assert.ErrorIs(t, storage.CheckVersion(&domain.NftDump{Version: 3}, &domain.NftDump{Version: 3}), storage.ErrVersionConflict)
	assert.ErrorIs(t, storage.CheckVersion(nil, &domain.NftDump{Version: 2}), storage.ErrVersionConflict)
}

func TestKeyedMutex_ReleasesEntries(t *testing.T) {
	km := storage.NewKeyedMutex()
	release := km.Lock("a")
	assert.Equal(t, 1, km.Len())
	release()
	assert.Equal(t, 0, km.Len())
}
