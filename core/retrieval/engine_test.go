package retrieval

import (
	"context"
	"testing"

	"github.com/siherrmann/ragpipe/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	results []*model.RetrievalResult
	err     error
	calls   int
}

func (f *fakeSearcher) SearchDense(ctx context.Context, embedding []float32, limit int) ([]*model.RetrievalResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.results) > limit {
		return f.results[:limit], nil
	}
	return f.results, nil
}

func denseResult(text string, score float64) *model.RetrievalResult {
	return &model.RetrievalResult{
		Chunk:           testChunk("doc.md", 0, text),
		Score:           score,
		Metadata:        model.Metadata{},
		RetrievalMethod: model.RetrievalMethodDense,
	}
}

func sparseResult(text string, score float64) *model.RetrievalResult {
	r := denseResult(text, score)
	r.RetrievalMethod = model.RetrievalMethodSparse
	return r
}

func fixedEmbed(text string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

func TestFuse(t *testing.T) {
	t.Run("Chunk in both lists outranks single list chunks", func(t *testing.T) {
		dense := []*model.RetrievalResult{denseResult("shared", 0.9), denseResult("dense only", 0.8)}
		sparse := []*model.RetrievalResult{sparseResult("sparse only", 3.0), sparseResult("shared", 2.0)}

		fused := Fuse(dense, sparse, 60)
		require.Len(t, fused, 3)
		assert.Equal(t, "shared", fused[0].Chunk.Text)

		// rank 1 dense + rank 2 sparse
		assert.InDelta(t, 1.0/61.0+1.0/62.0, fused[0].Score, 1e-12)
		// rank 1 sparse only
		assert.InDelta(t, 1.0/61.0, fused[1].Score, 1e-12)
	})

	t.Run("Merged result carries both ranks and rrf score", func(t *testing.T) {
		dense := []*model.RetrievalResult{denseResult("shared", 0.9)}
		sparse := []*model.RetrievalResult{sparseResult("other", 3.0), sparseResult("shared", 2.0)}

		fused := Fuse(dense, sparse, 60)
		var shared *model.RetrievalResult
		for _, r := range fused {
			if r.Chunk.Text == "shared" {
				shared = r
			}
		}
		require.NotNil(t, shared)
		assert.Equal(t, model.RetrievalMethodHybrid, shared.RetrievalMethod)
		assert.Equal(t, 1, shared.Metadata["dense_rank"])
		assert.Equal(t, 2, shared.Metadata["sparse_rank"])

		rrf, ok := shared.FloatMeta("rrf_score")
		require.True(t, ok)
		assert.Equal(t, shared.Score, rrf)
	})

	t.Run("Known ranking fuses to exact scores", func(t *testing.T) {
		// dense [A, B, C], sparse [B, A]
		dense := []*model.RetrievalResult{denseResult("A", 0.9), denseResult("B", 0.8), denseResult("C", 0.7)}
		sparse := []*model.RetrievalResult{sparseResult("B", 3.0), sparseResult("A", 2.0)}

		fused := Fuse(dense, sparse, 60)
		require.Len(t, fused, 3)

		scores := map[string]float64{}
		for _, r := range fused {
			scores[r.Chunk.Text] = r.Score
		}
		assert.InDelta(t, 1.0/61.0+1.0/62.0, scores["A"], 1e-12)
		assert.InDelta(t, 1.0/61.0+1.0/62.0, scores["B"], 1e-12)
		assert.InDelta(t, 1.0/63.0, scores["C"], 1e-12)

		// A and B tie; A was encountered first, C is last.
		assert.Equal(t, "A", fused[0].Chunk.Text)
		assert.Equal(t, "B", fused[1].Chunk.Text)
		assert.Equal(t, "C", fused[2].Chunk.Text)
	})

	t.Run("Ties keep encounter order", func(t *testing.T) {
		dense := []*model.RetrievalResult{denseResult("first", 0.9)}
		sparse := []*model.RetrievalResult{sparseResult("second", 3.0)}

		fused := Fuse(dense, sparse, 60)
		require.Len(t, fused, 2)
		assert.Equal(t, "first", fused[0].Chunk.Text)
		assert.Equal(t, "second", fused[1].Chunk.Text)
	})

	t.Run("Fusion does not mutate inputs", func(t *testing.T) {
		dense := []*model.RetrievalResult{denseResult("shared", 0.9)}
		sparse := []*model.RetrievalResult{sparseResult("shared", 2.0)}

		Fuse(dense, sparse, 60)
		assert.Equal(t, 0.9, dense[0].Score)
		assert.NotContains(t, dense[0].Metadata, "rrf_score")
	})
}

func TestEngineRetrieve(t *testing.T) {
	ctx := context.Background()

	t.Run("Dense only when hybrid disabled", func(t *testing.T) {
		searcher := &fakeSearcher{results: []*model.RetrievalResult{denseResult("match", 0.9)}}
		index := NewBM25Index()
		index.Rebuild([]*model.Chunk{testChunk("doc.md", 0, "match")})

		engine := NewEngine(searcher, index, fixedEmbed, 60, nil)
		results, err := engine.Retrieve(ctx, "match", 10, false)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, model.RetrievalMethodDense, results[0].RetrievalMethod)
	})

	t.Run("Hybrid fuses dense and sparse", func(t *testing.T) {
		searcher := &fakeSearcher{results: []*model.RetrievalResult{denseResult("payment procedure", 0.9)}}
		index := NewBM25Index()
		index.Rebuild([]*model.Chunk{
			testChunk("doc.md", 0, "payment procedure"),
			testChunk("doc.md", 1, "unrelated gardening text"),
		})

		engine := NewEngine(searcher, index, fixedEmbed, 60, nil)
		results, err := engine.Retrieve(ctx, "payment procedure", 10, true)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, model.RetrievalMethodHybrid, results[0].RetrievalMethod)
		assert.InDelta(t, 2.0/61.0, results[0].Score, 1e-12)
	})

	t.Run("Empty sparse index degrades to dense", func(t *testing.T) {
		searcher := &fakeSearcher{results: []*model.RetrievalResult{denseResult("match", 0.9)}}
		engine := NewEngine(searcher, NewBM25Index(), fixedEmbed, 60, nil)

		results, err := engine.Retrieve(ctx, "match", 10, true)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, model.RetrievalMethodDense, results[0].RetrievalMethod)
	})

	t.Run("Dense search error is returned", func(t *testing.T) {
		searcher := &fakeSearcher{err: assert.AnError}
		engine := NewEngine(searcher, NewBM25Index(), fixedEmbed, 60, nil)

		_, err := engine.Retrieve(ctx, "match", 10, true)
		assert.Error(t, err)
	})

	t.Run("Rejects non positive limit", func(t *testing.T) {
		engine := NewEngine(&fakeSearcher{}, NewBM25Index(), fixedEmbed, 60, nil)
		_, err := engine.Retrieve(ctx, "match", 0, true)
		assert.Error(t, err)
	})
}
