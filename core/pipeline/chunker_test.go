package pipeline

import (
	"strings"
	"testing"

	"github.com/siherrmann/ragpipe/core/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEmbeddingCache(t *testing.T) *cache.EmbeddingCache {
	t.Helper()
	embeddingCache, err := cache.NewEmbeddingCache(16)
	require.NoError(t, err)
	return embeddingCache
}

func TestSizeChunker(t *testing.T) {
	t.Run("Rejects invalid budgets", func(t *testing.T) {
		_, err := SizeChunker(0, 0)("text.")
		assert.Error(t, err)

		_, err = SizeChunker(100, 100)("text.")
		assert.Error(t, err)
	})

	t.Run("Empty text yields no chunks", func(t *testing.T) {
		chunks, err := SizeChunker(100, 20)("   \n  ")
		require.NoError(t, err)
		assert.Empty(t, chunks)
	})

	t.Run("Short text fits in one chunk", func(t *testing.T) {
		chunks, err := SizeChunker(200, 40)("First sentence. Second sentence.")
		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Equal(t, 0, chunks[0].ChunkIndex)
		assert.Equal(t, "First sentence. Second sentence.", chunks[0].Content)
	})

	t.Run("Long text splits with sequential indices", func(t *testing.T) {
		var sb strings.Builder
		for i := 0; i < 30; i++ {
			sb.WriteString("This is a sentence with a reasonable amount of words in it. ")
		}

		chunks, err := SizeChunker(200, 40)(sb.String())
		require.NoError(t, err)
		require.Greater(t, len(chunks), 1)
		for i, chunk := range chunks {
			assert.Equal(t, i, chunk.ChunkIndex)
			assert.NotEmpty(t, chunk.Content)
		}
	})

	t.Run("Adjacent chunks share overlap", func(t *testing.T) {
		text := "Alpha sentence one here. Beta sentence two here. Gamma sentence three here. Delta sentence four here."
		chunks, err := SizeChunker(60, 25)(text)
		require.NoError(t, err)
		require.Greater(t, len(chunks), 1)

		// The start of each following chunk repeats the tail of the previous one.
		for i := 1; i < len(chunks); i++ {
			firstSentence := strings.SplitN(chunks[i].Content, ". ", 2)[0]
			assert.Contains(t, chunks[i-1].Content, firstSentence)
		}
	})
}

func TestParagraphChunker(t *testing.T) {
	t.Run("Splits on blank lines and skips empties", func(t *testing.T) {
		chunks, err := ParagraphChunker()("First paragraph.\n\n\n\nSecond paragraph.")
		require.NoError(t, err)
		require.Len(t, chunks, 2)
		assert.Equal(t, "First paragraph.", chunks[0].Content)
		assert.Equal(t, "Second paragraph.", chunks[1].Content)
		assert.Equal(t, 1, chunks[1].ChunkIndex)
	})
}

func TestCachedEmbedder(t *testing.T) {
	t.Run("Second call served from cache", func(t *testing.T) {
		calls := 0
		inner := func(text string) ([]float32, error) {
			calls++
			return []float32{0.1, 0.2, 0.3}, nil
		}

		embed := CachedEmbedder(inner, "test-model", newTestEmbeddingCache(t))

		first, err := embed("hello world")
		require.NoError(t, err)
		second, err := embed("hello world")
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, 1, calls)
	})

	t.Run("Errors are not cached", func(t *testing.T) {
		calls := 0
		inner := func(text string) ([]float32, error) {
			calls++
			if calls == 1 {
				return nil, assert.AnError
			}
			return []float32{1}, nil
		}

		embed := CachedEmbedder(inner, "test-model", newTestEmbeddingCache(t))

		_, err := embed("query")
		assert.Error(t, err)
		_, err = embed("query")
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("Nil cache passes through", func(t *testing.T) {
		inner := func(text string) ([]float32, error) { return []float32{1}, nil }
		embed := CachedEmbedder(inner, "test-model", nil)
		embedding, err := embed("query")
		require.NoError(t, err)
		assert.Equal(t, []float32{1}, embedding)
	})
}
