// Package retrieval implements sparse and hybrid retrieval over indexed
// chunks: a BM25 index for keyword matching and reciprocal rank fusion to
// combine it with dense vector search.
package retrieval

import (
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/siherrmann/ragpipe/model"
)

// Okapi BM25 parameters.
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// BM25Index is an in-memory keyword index over chunks. The index is
// rebuilt from scratch on every Rebuild; there is no incremental update.
// Safe for concurrent use.
type BM25Index struct {
	mu        sync.RWMutex
	chunks    []*model.Chunk
	docTokens [][]string
	docFreq   map[string]int
	docLen    []int
	avgDocLen float64
}

// NewBM25Index creates an empty index.
func NewBM25Index() *BM25Index {
	return &BM25Index{docFreq: make(map[string]int)}
}

// tokenize lowercases and splits on whitespace.
func tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

// Rebuild replaces the index contents with the given chunks.
func (i *BM25Index) Rebuild(chunks []*model.Chunk) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.chunks = chunks
	i.docTokens = make([][]string, len(chunks))
	i.docFreq = make(map[string]int)
	i.docLen = make([]int, len(chunks))

	totalLen := 0
	for idx, chunk := range chunks {
		tokens := tokenize(chunk.Text)
		i.docTokens[idx] = tokens
		i.docLen[idx] = len(tokens)
		totalLen += len(tokens)

		seen := make(map[string]struct{}, len(tokens))
		for _, token := range tokens {
			if _, ok := seen[token]; ok {
				continue
			}
			seen[token] = struct{}{}
			i.docFreq[token]++
		}
	}

	i.avgDocLen = 0
	if len(chunks) > 0 {
		i.avgDocLen = float64(totalLen) / float64(len(chunks))
	}
}

// Size returns the number of indexed chunks.
func (i *BM25Index) Size() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.chunks)
}

// Search scores all indexed chunks against the query and returns the top
// limit results with strictly positive scores, highest first. Ties keep
// index order.
func (i *BM25Index) Search(query string, limit int) []*model.RetrievalResult {
	i.mu.RLock()
	defer i.mu.RUnlock()

	queryTokens := tokenize(query)
	if len(queryTokens) == 0 || len(i.chunks) == 0 || limit <= 0 {
		return nil
	}

	n := float64(len(i.chunks))

	type scored struct {
		idx   int
		score float64
	}
	var matches []scored

	for idx := range i.chunks {
		termFreq := make(map[string]int, len(i.docTokens[idx]))
		for _, token := range i.docTokens[idx] {
			termFreq[token]++
		}

		score := 0.0
		for _, token := range queryTokens {
			tf := float64(termFreq[token])
			if tf == 0 {
				continue
			}
			df := float64(i.docFreq[token])
			idf := math.Log((n-df+0.5)/(df+0.5) + 1)
			norm := tf * (bm25K1 + 1) / (tf + bm25K1*(1-bm25B+bm25B*float64(i.docLen[idx])/i.avgDocLen))
			score += idf * norm
		}

		if score > 0 {
			matches = append(matches, scored{idx: idx, score: score})
		}
	}

	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].score > matches[b].score
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}

	results := make([]*model.RetrievalResult, 0, len(matches))
	for _, m := range matches {
		chunk := i.chunks[m.idx]
		results = append(results, &model.RetrievalResult{
			Chunk: chunk,
			Score: m.score,
			Metadata: model.Metadata{
				"source":      chunk.Source,
				"chunk_index": chunk.ChunkIndex,
				"bm25_score":  m.score,
			},
			RetrievalMethod: model.RetrievalMethodSparse,
		})
	}

	return results
}
