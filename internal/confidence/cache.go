package confidence

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/veritaschain/veritaschain/internal/model"
)

// CacheEntry is one commit-scoped memoized confidence result.
type CacheEntry struct {
	Aggregated      float64
	Breakdown       model.ConfidenceBreakdown
	ComponentHashes []string
	CachedAt        time.Time
	HitCount        int
}

// DefaultCacheCapacity bounds the LRU ceiling when the caller does not
// override it.
const DefaultCacheCapacity = 10000

// cacheStore is the seam Engine talks to for commit-scoped memoization.
// Cache is the default in-memory implementation; SQLiteCache is an
// optional durable alternative for processes that want the cache to
// survive restarts. Either way the cache remains a pure optimization —
// every entry it serves can be recomputed from scratch.
type cacheStore interface {
	Lookup(key string, componentHashes []string) (*CacheEntry, bool)
	Store(key string, entry *CacheEntry)
	InvalidateLogical(eventHash string)
	Len() int
}

// Cache is the commit-scoped confidence cache: keyed by
// hash.CacheKey(eventHash, commitHash) and evicted by an LRU ceiling.
// Nothing in the commit path calls InvalidateLogical; a stale entry is
// never served because Lookup re-checks the component hashes. It is a pure optimization —
// every result it serves can always be recomputed from scratch.
type Cache struct {
	mu    sync.Mutex
	inner *lru.Cache[string, *CacheEntry]
}

// NewCache returns a Cache bounded to capacity entries (DefaultCacheCapacity
// when capacity <= 0).
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	inner, _ := lru.New[string, *CacheEntry](capacity)
	return &Cache{inner: inner}
}

// Lookup returns the cached entry for key iff componentHashes matches the
// multiset stored at write time (validity condition (b); condition
// (a), commitHash, is already folded into key by the caller).
func (c *Cache) Lookup(key string, componentHashes []string) (*CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.inner.Get(key)
	if !ok {
		return nil, false
	}
	if !sameMultiset(entry.ComponentHashes, componentHashes) {
		return nil, false
	}
	entry.HitCount++
	return entry, true
}

// Store installs entry under key, evicting the LRU victim if the cache is
// at capacity.
func (c *Cache) Store(key string, entry *CacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inner.Add(key, entry)
}

// InvalidateLogical drops every cache entry that lists eventHash among its
// component hashes. An entry cached for eventHash itself is not matched:
// entries do not record their own event hash, only the derived key. The cache's
// own key space (eventHash, commitHash) does not index by component, so a
// full scan is required; this is acceptable because the cache is an LRU of
// bounded size, not an unbounded log.
func (c *Cache) InvalidateLogical(eventHash string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range c.inner.Keys() {
		entry, ok := c.inner.Peek(key)
		if !ok {
			continue
		}
		if containsHash(entry.ComponentHashes, eventHash) {
			c.inner.Remove(key)
		}
	}
}

// Len reports the current entry count.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.Len()
}

func sameMultiset(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, h := range a {
		counts[h]++
	}
	for _, h := range b {
		counts[h]--
	}
	for _, n := range counts {
		if n != 0 {
			return false
		}
	}
	return true
}

func containsHash(hashes []string, h string) bool {
	for _, c := range hashes {
		if c == h {
			return true
		}
	}
	return false
}
