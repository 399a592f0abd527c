package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"solana-nft-lab/internal/domain"
	"solana-nft-lab/internal/storage"
)

// DumpStore is an in-memory implementation of storage.DumpStore.
// Documents are stored encoded so callers never share state with the store.
type DumpStore struct {
	mu    sync.RWMutex
	dumps map[string][]byte // keyed by mint
}

// NewDumpStore creates a new in-memory dump store.
func NewDumpStore() *DumpStore {
	return &DumpStore{
		dumps: make(map[string][]byte),
	}
}

// Get retrieves the dump for mint. Returns ErrNotFound if not exists.
func (s *DumpStore) Get(_ context.Context, mint string) (*domain.NftDump, error) {
	s.mu.RLock()
	data, exists := s.dumps[mint]
	s.mu.RUnlock()

	if !exists {
		return nil, storage.ErrNotFound
	}

	var d domain.NftDump
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode dump %s: %w", mint, err)
	}
	if err := d.Validate(mint); err != nil {
		return nil, err
	}
	return &d, nil
}

// Put writes the dump, enforcing version order.
func (s *DumpStore) Put(_ context.Context, d *domain.NftDump) error {
	if d == nil || d.Mint == "" {
		return storage.ErrInvalidInput
	}

	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode dump %s: %w", d.Mint, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var stored *domain.NftDump
	if prev, ok := s.dumps[d.Mint]; ok {
		var p domain.NftDump
		if err := json.Unmarshal(prev, &p); err == nil {
			stored = &p
		}
	}
	if err := storage.CheckVersion(stored, d); err != nil {
		return err
	}

	s.dumps[d.Mint] = data
	return nil
}

// ListMints returns every stored mint in ascending order.
func (s *DumpStore) ListMints(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mints := make([]string, 0, len(s.dumps))
	for mint := range s.dumps {
		mints = append(mints, mint)
	}
	sort.Strings(mints)
	return mints, nil
}

var _ storage.DumpStore = (*DumpStore)(nil)
