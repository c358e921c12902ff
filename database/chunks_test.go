package database

import (
	"context"
	"testing"

	"github.com/siherrmann/ragpipe/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEmbeddingDim = 4

func testEmbedding(values ...float32) []float32 {
	embedding := make([]float32, testEmbeddingDim)
	copy(embedding, values)
	return embedding
}

func TestChunksDBHandler(t *testing.T) {
	db := initDB(t)
	defer db.Instance.Close()

	handler, err := NewChunksDBHandler(db, testEmbeddingDim, true)
	require.NoError(t, err, "failed to create chunks handler")
	require.NoError(t, handler.Clear())

	t.Run("Insert and count chunks", func(t *testing.T) {
		chunk := &model.Chunk{
			Source:     "report.pdf",
			ChunkIndex: 0,
			Text:       "The annual revenue was 2.5 million euros.",
			Embedding:  testEmbedding(1, 0, 0, 0),
			Metadata:   model.Metadata{"file_type": ".pdf"},
		}

		err := handler.InsertChunk(chunk)
		require.NoError(t, err, "failed to insert chunk")
		assert.NotEmpty(t, chunk.ID, "expected chunk to get an id")
		assert.False(t, chunk.CreatedAt.IsZero(), "expected created_at to be set")

		count, err := handler.Count()
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("Batch insert returns ids in input order", func(t *testing.T) {
		chunks := []*model.Chunk{
			{Source: "report.pdf", ChunkIndex: 1, Text: "Second chunk.", Embedding: testEmbedding(0, 1, 0, 0)},
			{Source: "report.pdf", ChunkIndex: 2, Text: "Third chunk.", Embedding: testEmbedding(0, 0, 1, 0)},
		}

		ids, err := handler.InsertChunks(chunks)
		require.NoError(t, err, "failed to insert chunk batch")
		require.Len(t, ids, 2)
		assert.Equal(t, chunks[0].ID, ids[0])
		assert.Equal(t, chunks[1].ID, ids[1])
	})

	t.Run("Dense search orders by similarity", func(t *testing.T) {
		results, err := handler.SearchDense(context.Background(), testEmbedding(1, 0, 0, 0), 3)
		require.NoError(t, err, "failed to search")
		require.NotEmpty(t, results)

		assert.Equal(t, "The annual revenue was 2.5 million euros.", results[0].Chunk.Text,
			"expected the matching embedding to rank first")
		for i := 1; i < len(results); i++ {
			assert.LessOrEqual(t, results[i].Score, results[i-1].Score,
				"expected non-increasing similarity order")
		}

		_, hasRelevance := results[0].Metadata["relevance_score"]
		_, hasDistance := results[0].Metadata["distance"]
		assert.True(t, hasRelevance, "expected relevance_score in metadata")
		assert.True(t, hasDistance, "expected distance in metadata")
	})

	t.Run("Select all chunks for sparse index rebuild", func(t *testing.T) {
		chunks, err := handler.SelectAllChunks()
		require.NoError(t, err)
		assert.Len(t, chunks, 3)
	})

	t.Run("Delete by source", func(t *testing.T) {
		err := handler.DeleteBySource("report.pdf")
		require.NoError(t, err)

		count, err := handler.Count()
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})
}
