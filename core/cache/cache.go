// Package cache provides the in-memory LRU caches shared across concurrent
// queries: one for query embeddings, one for full retrieval result sets.
// Both are injectable objects so tests can use isolated instances.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/siherrmann/ragpipe/model"
)

// Stats reports cache effectiveness counters.
type Stats struct {
	Size     int     `json:"size"`
	MaxSize  int     `json:"max_size"`
	Hits     int64   `json:"hits"`
	Misses   int64   `json:"misses"`
	HitRate  float64 `json:"hit_rate"`
	Requests int64   `json:"total_requests"`
}

func key(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{':'})
		}
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// EmbeddingCache is an LRU cache mapping query text (per embedding model)
// to its dense vector. Get refreshes recency.
type EmbeddingCache struct {
	mu      sync.Mutex
	entries *lru.Cache[string, []float32]
	maxSize int
	hits    int64
	misses  int64
}

// NewEmbeddingCache creates an embedding cache holding at most maxSize vectors.
func NewEmbeddingCache(maxSize int) (*EmbeddingCache, error) {
	entries, err := lru.New[string, []float32](maxSize)
	if err != nil {
		return nil, err
	}
	return &EmbeddingCache{entries: entries, maxSize: maxSize}, nil
}

// Get returns the cached embedding for the query, if present.
func (c *EmbeddingCache) Get(query string, modelName string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	embedding, ok := c.entries.Get(key(query, modelName))
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return embedding, ok
}

// Put stores an embedding, evicting the least recently used entry at capacity.
func (c *EmbeddingCache) Put(query string, modelName string, embedding []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries.Add(key(query, modelName), embedding)
}

// Stats returns the current counters.
func (c *EmbeddingCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return stats(c.entries.Len(), c.maxSize, c.hits, c.misses)
}

// Clear drops all entries and resets the counters.
func (c *EmbeddingCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Purge()
	c.hits, c.misses = 0, 0
}

// QueryCache is an LRU cache with absolute TTL expiry mapping one query
// (text + result budget + hybrid flag) to its full retrieval result set.
type QueryCache struct {
	mu      sync.Mutex
	entries *expirable.LRU[string, []*model.RetrievalResult]
	maxSize int
	hits    int64
	misses  int64
}

// NewQueryCache creates a query result cache holding at most maxSize entries,
// each expiring ttl after insertion.
func NewQueryCache(maxSize int, ttl time.Duration) *QueryCache {
	return &QueryCache{
		entries: expirable.NewLRU[string, []*model.RetrievalResult](maxSize, nil, ttl),
		maxSize: maxSize,
	}
}

func queryKey(query string, nResults int, hybrid bool) string {
	return key(query, fmt.Sprintf("%d", nResults), fmt.Sprintf("%t", hybrid))
}

// Get returns the cached result set for the query parameters, if present and
// not expired.
func (c *QueryCache) Get(query string, nResults int, hybrid bool) ([]*model.RetrievalResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	results, ok := c.entries.Get(queryKey(query, nResults, hybrid))
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return results, ok
}

// Put stores a result set under the query parameters.
func (c *QueryCache) Put(query string, nResults int, hybrid bool, results []*model.RetrievalResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries.Add(queryKey(query, nResults, hybrid), results)
}

// Stats returns the current counters.
func (c *QueryCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return stats(c.entries.Len(), c.maxSize, c.hits, c.misses)
}

// Clear drops all entries and resets the counters. Called on reindex so
// stale result sets never outlive the corpus they were retrieved from.
func (c *QueryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Purge()
	c.hits, c.misses = 0, 0
}

func stats(size, maxSize int, hits, misses int64) Stats {
	requests := hits + misses
	hitRate := 0.0
	if requests > 0 {
		hitRate = float64(hits) / float64(requests)
	}
	return Stats{
		Size:     size,
		MaxSize:  maxSize,
		Hits:     hits,
		Misses:   misses,
		HitRate:  hitRate,
		Requests: requests,
	}
}
