package confidence

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/veritaschain/veritaschain/internal/model"
)

// SQLiteCache is a durable alternative to the in-memory Cache: the same
// commit-scoped memoization, persisted to a single-file SQLite database so
// a restarted process doesn't need to recompute every composite's
// confidence from scratch. It implements the same cacheStore seam Engine
// uses, so it is a drop-in swap via WithCache.
type SQLiteCache struct {
	mu sync.Mutex
	db *sql.DB
}

// NewSQLiteCache opens (creating if necessary) a SQLite-backed cache at
// path. path may be ":memory:" for tests.
func NewSQLiteCache(path string) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("confidence: open sqlite cache: %w", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite serializes writers; one connection avoids SQLITE_BUSY

	const schema = `CREATE TABLE IF NOT EXISTS confidence_cache (
		key TEXT PRIMARY KEY,
		component_hashes TEXT NOT NULL,
		breakdown TEXT NOT NULL,
		cached_at TIMESTAMP NOT NULL,
		hit_count INTEGER NOT NULL DEFAULT 0
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("confidence: init sqlite cache schema: %w", err)
	}
	return &SQLiteCache{db: db}, nil
}

// Close releases the underlying database handle.
func (c *SQLiteCache) Close() error { return c.db.Close() }

// Lookup returns the cached entry for key iff componentHashes matches the
// multiset stored at write time.
func (c *SQLiteCache) Lookup(key string, componentHashes []string) (*CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var componentsCSV, breakdownJSON string
	var cachedAt time.Time
	var hitCount int
	row := c.db.QueryRow(`SELECT component_hashes, breakdown, cached_at, hit_count FROM confidence_cache WHERE key = ?`, key)
	if err := row.Scan(&componentsCSV, &breakdownJSON, &cachedAt, &hitCount); err != nil {
		return nil, false
	}

	stored := splitComponents(componentsCSV)
	if !sameMultiset(stored, componentHashes) {
		return nil, false
	}

	var breakdown model.ConfidenceBreakdown
	if err := json.Unmarshal([]byte(breakdownJSON), &breakdown); err != nil {
		return nil, false
	}

	hitCount++
	_, _ = c.db.Exec(`UPDATE confidence_cache SET hit_count = ? WHERE key = ?`, hitCount, key)

	return &CacheEntry{
		Aggregated:      breakdown.Confidence,
		Breakdown:       breakdown,
		ComponentHashes: stored,
		CachedAt:        cachedAt,
		HitCount:        hitCount,
	}, true
}

// Store upserts entry under key.
func (c *SQLiteCache) Store(key string, entry *CacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	breakdownJSON, err := json.Marshal(entry.Breakdown)
	if err != nil {
		return
	}
	_, _ = c.db.Exec(
		`INSERT INTO confidence_cache (key, component_hashes, breakdown, cached_at, hit_count)
		 VALUES (?, ?, ?, ?, 0)
		 ON CONFLICT(key) DO UPDATE SET component_hashes = excluded.component_hashes,
		   breakdown = excluded.breakdown, cached_at = excluded.cached_at, hit_count = 0`,
		key, joinComponents(entry.ComponentHashes), string(breakdownJSON), entry.CachedAt,
	)
}

// InvalidateLogical drops every cache entry whose stored breakdown
// references eventHash as a component hash. Requires a full scan, same
// trade-off as Cache.InvalidateLogical: acceptable for a bounded cache,
// not an unbounded log.
func (c *SQLiteCache) InvalidateLogical(eventHash string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows, err := c.db.Query(`SELECT key, component_hashes FROM confidence_cache`)
	if err != nil {
		return
	}
	var toDelete []string
	for rows.Next() {
		var key, componentsCSV string
		if err := rows.Scan(&key, &componentsCSV); err != nil {
			continue
		}
		if containsHash(splitComponents(componentsCSV), eventHash) {
			toDelete = append(toDelete, key)
		}
	}
	rows.Close()

	for _, key := range toDelete {
		_, _ = c.db.Exec(`DELETE FROM confidence_cache WHERE key = ?`, key)
	}
}

// Len reports the current entry count.
func (c *SQLiteCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int
	_ = c.db.QueryRow(`SELECT COUNT(*) FROM confidence_cache`).Scan(&n)
	return n
}

func joinComponents(hashes []string) string { return strings.Join(hashes, ",") }

func splitComponents(csv string) []string {
	if csv == "" {
		return nil
	}
	return strings.Split(csv, ",")
}
