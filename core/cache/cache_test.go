package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/siherrmann/ragpipe/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddingCache(t *testing.T) {
	t.Run("Round trip before eviction", func(t *testing.T) {
		c, err := NewEmbeddingCache(10)
		require.NoError(t, err)

		embedding := []float32{0.1, 0.2, 0.3}
		c.Put("what is the revenue", "all-MiniLM-L6-v2", embedding)

		got, ok := c.Get("what is the revenue", "all-MiniLM-L6-v2")
		assert.True(t, ok, "expected cache hit immediately after put")
		assert.Equal(t, embedding, got)
	})

	t.Run("Different model name misses", func(t *testing.T) {
		c, err := NewEmbeddingCache(10)
		require.NoError(t, err)

		c.Put("query", "model-a", []float32{1})

		_, ok := c.Get("query", "model-b")
		assert.False(t, ok, "expected miss for a different model")
	})

	t.Run("Inserting max_size+1 keys evicts exactly the least recently used", func(t *testing.T) {
		c, err := NewEmbeddingCache(3)
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			c.Put(fmt.Sprintf("query-%d", i), "m", []float32{float32(i)})
		}
		c.Put("query-3", "m", []float32{3})

		_, ok := c.Get("query-0", "m")
		assert.False(t, ok, "expected oldest entry to be evicted")
		for i := 1; i <= 3; i++ {
			_, ok := c.Get(fmt.Sprintf("query-%d", i), "m")
			assert.True(t, ok, "expected entry %d to survive", i)
		}
	})

	t.Run("Get refreshes recency", func(t *testing.T) {
		c, err := NewEmbeddingCache(3)
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			c.Put(fmt.Sprintf("query-%d", i), "m", []float32{float32(i)})
		}

		// Touch the oldest entry, then overflow.
		_, ok := c.Get("query-0", "m")
		require.True(t, ok)
		c.Put("query-3", "m", []float32{3})

		_, ok = c.Get("query-0", "m")
		assert.True(t, ok, "expected touched entry to survive eviction")
		_, ok = c.Get("query-1", "m")
		assert.False(t, ok, "expected untouched oldest entry to be evicted")
	})

	t.Run("Stats track hits and misses", func(t *testing.T) {
		c, err := NewEmbeddingCache(10)
		require.NoError(t, err)

		c.Put("q", "m", []float32{1})
		c.Get("q", "m")
		c.Get("unknown", "m")

		s := c.Stats()
		assert.Equal(t, int64(1), s.Hits)
		assert.Equal(t, int64(2), s.Requests)
		assert.InDelta(t, 0.5, s.HitRate, 1e-9)
	})

	t.Run("Clear empties the cache and resets counters", func(t *testing.T) {
		c, err := NewEmbeddingCache(10)
		require.NoError(t, err)

		c.Put("q", "m", []float32{1})
		c.Get("q", "m")
		c.Clear()

		_, ok := c.Get("q", "m")
		assert.False(t, ok, "expected miss after clear")
		assert.Equal(t, int64(0), c.Stats().Hits)
	})
}

func TestQueryCache(t *testing.T) {
	results := []*model.RetrievalResult{
		{Chunk: &model.Chunk{ID: "c1", Text: "chunk one"}, Score: 0.9},
	}

	t.Run("Round trip keyed by query parameters", func(t *testing.T) {
		c := NewQueryCache(10, time.Hour)

		c.Put("query", 20, true, results)

		got, ok := c.Get("query", 20, true)
		assert.True(t, ok)
		assert.Equal(t, results, got)

		_, ok = c.Get("query", 20, false)
		assert.False(t, ok, "expected different hybrid flag to miss")
		_, ok = c.Get("query", 10, true)
		assert.False(t, ok, "expected different result budget to miss")
	})

	t.Run("Entries expire after the TTL", func(t *testing.T) {
		c := NewQueryCache(10, 30*time.Millisecond)

		c.Put("query", 20, true, results)
		time.Sleep(60 * time.Millisecond)

		_, ok := c.Get("query", 20, true)
		assert.False(t, ok, "expected entry to expire")
	})

	t.Run("LRU eviction at capacity", func(t *testing.T) {
		c := NewQueryCache(2, time.Hour)

		c.Put("a", 1, true, results)
		c.Put("b", 1, true, results)
		c.Put("c", 1, true, results)

		_, ok := c.Get("a", 1, true)
		assert.False(t, ok, "expected oldest entry to be evicted")
	})

	t.Run("Clear empties the cache", func(t *testing.T) {
		c := NewQueryCache(10, time.Hour)

		c.Put("query", 20, true, results)
		c.Clear()

		_, ok := c.Get("query", 20, true)
		assert.False(t, ok)
	})
}
