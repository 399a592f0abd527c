package offchain

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"solana-nft-lab/internal/domain"
)

type cacheEntry struct {
	doc      *domain.OffChainMetadata
	storedAt time.Time
}

// uriCache is a size-bounded LRU of fetched documents with a TTL.
// A nil cache is valid and never hits.
type uriCache struct {
	ttl   time.Duration
	now   func() time.Time
	mu    sync.Mutex
	store *lru.Cache[string, cacheEntry]
}

func newURICache(maxEntries int, ttl time.Duration) *uriCache {
	if maxEntries <= 0 {
		return nil
	}
	store, err := lru.New[string, cacheEntry](maxEntries)
	if err != nil {
		return nil
	}
	return &uriCache{ttl: ttl, now: time.Now, store: store}
}

func (c *uriCache) Get(uri string) (*domain.OffChainMetadata, bool) {
	if c == nil || uri == "" {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.store.Get(uri)
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(entry.storedAt) > c.ttl {
		c.store.Remove(uri)
		return nil, false
	}
	return entry.doc, true
}

func (c *uriCache) Add(uri string, doc *domain.OffChainMetadata) {
	if c == nil || uri == "" || doc == nil {
		return
	}
	c.mu.Lock()
	c.store.Add(uri, cacheEntry{doc: doc, storedAt: c.now()})
	c.mu.Unlock()
}

func (c *uriCache) Len() int {
	if c == nil {
		return 0
	}
	return c.store.Len()
}
