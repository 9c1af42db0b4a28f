package confidence_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/veritaschain/veritaschain/internal/confidence"
	"github.com/veritaschain/veritaschain/internal/model"
)

func newTestSQLiteCache(t *testing.T) *confidence.SQLiteCache {
	t.Helper()
	c, err := confidence.NewSQLiteCache(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSQLiteCache_StoreAndLookup(t *testing.T) {
	c := newTestSQLiteCache(t)

	entry := &confidence.CacheEntry{
		Aggregated:      0.72,
		Breakdown:       model.ConfidenceBreakdown{Confidence: 0.72, Formula: "min(0.72, 0.9)"},
		ComponentHashes: []string{"h1", "h2"},
		CachedAt:        time.Now().UTC().Truncate(time.Second),
	}
	c.Store("key1", entry)

	got, ok := c.Lookup("key1", []string{"h2", "h1"})
	require.True(t, ok)
	require.Equal(t, 0.72, got.Breakdown.Confidence)
	require.Equal(t, 1, got.HitCount)
}

func TestSQLiteCache_LookupMissOnComponentMismatch(t *testing.T) {
	c := newTestSQLiteCache(t)

	c.Store("key1", &confidence.CacheEntry{
		Breakdown:       model.ConfidenceBreakdown{Confidence: 0.5},
		ComponentHashes: []string{"h1", "h2"},
		CachedAt:        time.Now().UTC(),
	})

	_, ok := c.Lookup("key1", []string{"h1", "h3"})
	require.False(t, ok)
}

func TestSQLiteCache_LookupMissOnUnknownKey(t *testing.T) {
	c := newTestSQLiteCache(t)
	_, ok := c.Lookup("nonexistent", nil)
	require.False(t, ok)
}

func TestSQLiteCache_InvalidateLogical(t *testing.T) {
	c := newTestSQLiteCache(t)

	c.Store("key1", &confidence.CacheEntry{
		Breakdown:       model.ConfidenceBreakdown{Confidence: 0.5},
		ComponentHashes: []string{"h1", "h2"},
		CachedAt:        time.Now().UTC(),
	})
	c.Store("key2", &confidence.CacheEntry{
		Breakdown:       model.ConfidenceBreakdown{Confidence: 0.9},
		ComponentHashes: []string{"h3"},
		CachedAt:        time.Now().UTC(),
	})
	require.Equal(t, 2, c.Len())

	c.InvalidateLogical("h2")
	require.Equal(t, 1, c.Len())

	_, ok := c.Lookup("key2", []string{"h3"})
	require.True(t, ok)
}

func TestSQLiteCache_StoreOverwritesExistingKey(t *testing.T) {
	c := newTestSQLiteCache(t)

	c.Store("key1", &confidence.CacheEntry{
		Breakdown:       model.ConfidenceBreakdown{Confidence: 0.1},
		ComponentHashes: []string{"h1"},
		CachedAt:        time.Now().UTC(),
	})
	c.Store("key1", &confidence.CacheEntry{
		Breakdown:       model.ConfidenceBreakdown{Confidence: 0.9},
		ComponentHashes: []string{"h1"},
		CachedAt:        time.Now().UTC(),
	})

	require.Equal(t, 1, c.Len())
	got, ok := c.Lookup("key1", []string{"h1"})
	require.True(t, ok)
	require.Equal(t, 0.9, got.Breakdown.Confidence)
}
