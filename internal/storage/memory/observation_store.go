package memory

import (
	"context"
	"sort"
	"sync"

	"solana-nft-lab/internal/domain"
	"solana-nft-lab/internal/storage"
)

// ObservationStore is an in-memory implementation of storage.ObservationStore.
type ObservationStore struct {
	mu   sync.RWMutex
	byID map[string]*domain.PriceObservation
}

// NewObservationStore creates a new in-memory observation store.
func NewObservationStore() *ObservationStore {
	return &ObservationStore{
		byID: make(map[string]*domain.PriceObservation),
	}
}

// InsertBulk appends observations. Known observation ids are skipped.
func (s *ObservationStore) InsertBulk(_ context.Context, obs []*domain.PriceObservation) error {
	for _, o := range obs {
		if o == nil || o.ObservationID == "" || o.Mint == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range obs {
		if _, exists := s.byID[o.ObservationID]; exists {
			continue
		}
		obsCopy := *o
		s.byID[o.ObservationID] = &obsCopy
	}
	return nil
}

// GetByMint retrieves observations for mint ordered by observed_at, then slot.
func (s *ObservationStore) GetByMint(_ context.Context, mint string) ([]*domain.PriceObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PriceObservation
	for _, o := range s.byID {
		if o.Mint == mint {
			obsCopy := *o
			result = append(result, &obsCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].ObservedAt != result[j].ObservedAt {
			return result[i].ObservedAt < result[j].ObservedAt
		}
		if result[i].Slot != result[j].Slot {
			return result[i].Slot < result[j].Slot
		}
		return result[i].ObservationID < result[j].ObservationID
	})
	return result, nil
}

var _ storage.ObservationStore = (*ObservationStore)(nil)
