package lru_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/hourglass/pkg/alg/lru"
)

const (
	// testMaxEntries is the default max entries for count-based tests.
	testMaxEntries = 100

	// smallMaxEntries limits the cache to 3 entries for eviction tests.
	smallMaxEntries = 3

	// testMaxBytes is a small byte limit for size-based tests.
	testMaxBytes = 100
)

func bytesSize(v []byte) int64 {
	return int64(len(v))
}

func blob(n int) []byte {
	return make([]byte, n)
}

func TestCache_GetPut_CountBased(t *testing.T) {
	t.Parallel()

	cache := lru.New(lru.WithMaxEntries[int, string](testMaxEntries))

	got, found := cache.Get(1)
	assert.False(t, found)
	assert.Empty(t, got)

	cache.Put(1, "hello")

	got, found = cache.Get(1)
	require.True(t, found)
	assert.Equal(t, "hello", got)
}

func TestCache_LRUEviction_CountBased(t *testing.T) {
	t.Parallel()

	cache := lru.New(lru.WithMaxEntries[int, string](smallMaxEntries))

	cache.Put(1, "a")
	cache.Put(2, "b")
	cache.Put(3, "c")

	// Access key 1 to make it recently used.
	cache.Get(1)

	// Adding key 4 should evict key 2 (LRU).
	cache.Put(4, "d")

	_, found := cache.Get(2)
	assert.False(t, found, "key 2 should be evicted (LRU)")

	for _, key := range []int{1, 3, 4} {
		_, found = cache.Get(key)
		assert.True(t, found, "key %d should still exist", key)
	}

	assert.Equal(t, int64(1), cache.Stats().Evictions)
}

func TestCache_DuplicatePut(t *testing.T) {
	t.Parallel()

	cache := lru.New(lru.WithMaxEntries[int, string](smallMaxEntries))

	cache.Put(1, "first")
	cache.Put(2, "x")
	cache.Put(3, "y")
	cache.Put(1, "second")

	got, found := cache.Get(1)
	require.True(t, found)
	assert.Equal(t, "second", got, "duplicate Put should update value")
	assert.Equal(t, smallMaxEntries, cache.Len())
	assert.Equal(t, int64(0), cache.Stats().Evictions)
}

func TestCache_Clear(t *testing.T) {
	t.Parallel()

	cache := lru.New(lru.WithMaxBytes[string, []byte](testMaxBytes, bytesSize))

	cache.Put("a", blob(30))
	cache.Put("b", blob(20))
	assert.Equal(t, int64(50), cache.Stats().CurrentSize)

	cache.Clear()

	assert.Equal(t, 0, cache.Len())
	assert.Equal(t, int64(0), cache.Stats().CurrentSize)

	_, found := cache.Get("a")
	assert.False(t, found)

	cache.Put("c", blob(testMaxBytes))
	assert.Equal(t, 1, cache.Len())
}

func TestCache_Stats(t *testing.T) {
	t.Parallel()

	cache := lru.New(lru.WithMaxEntries[int, string](testMaxEntries))

	cache.Put(1, "a")
	cache.Get(1) // Hit.
	cache.Get(2) // Miss.

	stats := cache.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, testMaxEntries, stats.MaxEntries)
	assert.InDelta(t, 0.5, stats.HitRate(), 0.001)
	assert.InDelta(t, 0.0, lru.Stats{}.HitRate(), 0.001)
}

func TestCache_SizeBased(t *testing.T) {
	t.Parallel()

	cache := lru.New(lru.WithMaxBytes[string, []byte](testMaxBytes, bytesSize))

	cache.Put("one", blob(40))
	cache.Put("two", blob(40))

	// Access "two" to make "one" LRU.
	cache.Get("two")

	// Adding 40 more bytes would exceed 100, so "one" is evicted.
	cache.Put("three", blob(40))

	_, found := cache.Get("one")
	assert.False(t, found, "one should be evicted (size limit)")

	_, found = cache.Get("two")
	assert.True(t, found)

	assert.Equal(t, int64(80), cache.Stats().CurrentSize)
	assert.Equal(t, int64(testMaxBytes), cache.Stats().MaxSize)
}

func TestCache_SizeBased_RejectOversized(t *testing.T) {
	t.Parallel()

	cache := lru.New(lru.WithMaxBytes[string, []byte](testMaxBytes, bytesSize))

	cache.Put("small", blob(10))
	cache.Put("huge", blob(testMaxBytes+1))

	_, found := cache.Get("huge")
	assert.False(t, found, "oversized value should not be cached")

	_, found = cache.Get("small")
	assert.True(t, found, "rejecting an oversized value must not evict")
}

func TestCache_SizeBased_UpdateGrows(t *testing.T) {
	t.Parallel()

	cache := lru.New(lru.WithMaxBytes[string, []byte](testMaxBytes, bytesSize))

	cache.Put("a", blob(40))
	cache.Put("b", blob(40))
	cache.Put("b", blob(90))

	_, found := cache.Get("a")
	assert.False(t, found, "growing b must push a out")

	got, found := cache.Get("b")
	require.True(t, found)
	assert.Len(t, got, 90)
	assert.Equal(t, int64(90), cache.Stats().CurrentSize)
}

func TestCache_PanicsWithoutLimits(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		lru.New[int, string]()
	})
}

func TestCache_BothLimits(t *testing.T) {
	t.Parallel()

	cache := lru.New(
		lru.WithMaxEntries[int, []byte](10),
		lru.WithMaxBytes[int, []byte](testMaxBytes, bytesSize),
	)

	for key := 1; key <= 4; key++ {
		cache.Put(key, blob(30))
	}

	// Size limit is reached before the count limit.
	_, found := cache.Get(1)
	assert.False(t, found)
	assert.Equal(t, 3, cache.Len())
}
