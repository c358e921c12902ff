package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/siherrmann/ragpipe/core/pipeline"
	"github.com/siherrmann/ragpipe/helper"
	"github.com/siherrmann/ragpipe/model"
	"golang.org/x/sync/errgroup"
)

// VectorSearcher runs dense similarity search over stored chunks.
// *database.ChunksDBHandler satisfies this.
type VectorSearcher interface {
	SearchDense(ctx context.Context, embedding []float32, limit int) ([]*model.RetrievalResult, error)
}

// Engine combines dense vector search and the sparse BM25 index into one
// retrieval surface. Fusion uses reciprocal rank fusion with constant
// rrfK, ranks 1-indexed.
type Engine struct {
	searcher VectorSearcher
	index    *BM25Index
	embed    pipeline.EmbedFunc
	rrfK     int
	logger   *slog.Logger
}

// NewEngine creates a retrieval engine. rrfK values below 1 fall back to
// the conventional 60.
func NewEngine(searcher VectorSearcher, index *BM25Index, embed pipeline.EmbedFunc, rrfK int, logger *slog.Logger) *Engine {
	if rrfK < 1 {
		rrfK = 60
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		searcher: searcher,
		index:    index,
		embed:    embed,
		rrfK:     rrfK,
		logger:   logger,
	}
}

// Retrieve runs retrieval for one query. With hybrid set, dense and sparse
// searches run in parallel and their rankings are fused; otherwise only
// dense search runs. A sparse index with no indexed chunks degrades to
// dense-only silently.
func (e *Engine) Retrieve(ctx context.Context, query string, limit int, hybrid bool) ([]*model.RetrievalResult, error) {
	if limit <= 0 {
		return nil, helper.NewError("retrieve", fmt.Errorf("limit must be positive, got %v", limit))
	}

	var dense, sparse []*model.RetrievalResult

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		embedding, err := e.embed(query)
		if err != nil {
			return helper.NewError("embedding query", err)
		}
		results, err := e.searcher.SearchDense(groupCtx, embedding, limit)
		if err != nil {
			return helper.NewError("dense search", err)
		}
		dense = results
		return nil
	})
	if hybrid && e.index != nil && e.index.Size() > 0 {
		group.Go(func() error {
			sparse = e.index.Search(query, limit)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	if !hybrid || len(sparse) == 0 {
		return dense, nil
	}

	fused := Fuse(dense, sparse, e.rrfK)
	if len(fused) > limit {
		fused = fused[:limit]
	}

	e.logger.Debug(
		"hybrid retrieval",
		slog.Int("dense", len(dense)),
		slog.Int("sparse", len(sparse)),
		slog.Int("fused", len(fused)),
	)

	return fused, nil
}

// Fuse merges a dense and a sparse ranking with reciprocal rank fusion.
// Each list contributes 1/(k+rank) per chunk, ranks starting at 1. Chunks
// are identified by content key, so the same text from both lists merges
// into one result carrying both ranks. Ties keep dense-then-sparse
// encounter order.
func Fuse(dense []*model.RetrievalResult, sparse []*model.RetrievalResult, rrfK int) []*model.RetrievalResult {
	type fusedEntry struct {
		result *model.RetrievalResult
		score  float64
		order  int
	}
	entries := make(map[string]*fusedEntry)
	var keys []string

	add := func(results []*model.RetrievalResult, rankKey string) {
		for rank, result := range results {
			key := model.ChunkKey(result.Chunk.Text)
			contribution := 1.0 / float64(rrfK+rank+1)

			entry, ok := entries[key]
			if !ok {
				merged := result.Clone()
				merged.RetrievalMethod = model.RetrievalMethodHybrid
				entry = &fusedEntry{result: merged, order: len(keys)}
				entries[key] = entry
				keys = append(keys, key)
			}
			entry.score += contribution
			entry.result.Metadata[rankKey] = rank + 1
		}
	}

	add(dense, "dense_rank")
	add(sparse, "sparse_rank")

	fused := make([]*fusedEntry, 0, len(keys))
	for _, key := range keys {
		entry := entries[key]
		entry.result.Score = entry.score
		entry.result.Metadata["rrf_score"] = entry.score
		fused = append(fused, entry)
	}

	sort.SliceStable(fused, func(a, b int) bool {
		if fused[a].score != fused[b].score {
			return fused[a].score > fused[b].score
		}
		return fused[a].order < fused[b].order
	})

	results := make([]*model.RetrievalResult, len(fused))
	for i, entry := range fused {
		results[i] = entry.result
	}
	return results
}
