package ragpipe

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/siherrmann/ragpipe/core/pipeline"
	"github.com/siherrmann/ragpipe/helper"
	"github.com/siherrmann/ragpipe/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEmbedder creates a simple deterministic embedder for testing
func testEmbedder(dimension int) pipeline.EmbedFunc {
	return func(text string) ([]float32, error) {
		embedding := make([]float32, dimension)
		for i := 0; i < dimension; i++ {
			embedding[i] = float32((len(text)+i)%100) / 100.0
		}
		return embedding, nil
	}
}

// testScorer scores longer texts higher, deterministically.
type testScorer struct{}

func (testScorer) Score(query string, texts []string) ([]float64, error) {
	scores := make([]float64, len(texts))
	for i, text := range texts {
		scores[i] = float64(len(text)%100) / 100.0
	}
	return scores, nil
}

// testLLM echoes a canned answer.
type testLLM struct{}

func (testLLM) Generate(ctx context.Context, system string, history []model.Turn, prompt string) (string, error) {
	return "canned answer", nil
}

func testComponents() *Components {
	return &Components{
		Embedder: testEmbedder(pipeline.EmbeddingDimension),
		Chunker:  pipeline.DefaultChunker(),
		Scorer:   testScorer{},
		LLM:      testLLM{},
	}
}

func initRagPipe(t *testing.T) *RagPipe {
	helper.SetTestDatabaseConfigEnvs(t, dbPort)
	dbConfig, err := helper.NewDatabaseConfiguration()
	require.NoError(t, err, "failed to create database configuration")

	pipe, err := NewRagPipe(dbConfig, model.DefaultPipelineConfig(), testComponents())
	require.NoError(t, err, "failed to create pipeline")
	require.NotNil(t, pipe, "expected pipeline to be non-nil")

	t.Cleanup(func() {
		pipe.Close()
	})

	return pipe
}

func TestNewRagPipe(t *testing.T) {
	helper.SetTestDatabaseConfigEnvs(t, dbPort)
	dbConfig, err := helper.NewDatabaseConfiguration()
	require.NoError(t, err)

	t.Run("Valid call NewRagPipe", func(t *testing.T) {
		pipe, err := NewRagPipe(dbConfig, model.DefaultPipelineConfig(), testComponents())
		require.NoError(t, err, "Expected NewRagPipe to not return an error")
		require.NotNil(t, pipe, "Expected NewRagPipe to return a non-nil instance")
		assert.NotNil(t, pipe.DB, "Expected pipeline to have a database instance")
		assert.NotNil(t, pipe.Chunks, "Expected pipeline to have chunks handler")
		assert.NotNil(t, pipe.Documents, "Expected pipeline to have documents handler")
		assert.NotNil(t, pipe.Indexer, "Expected pipeline to have an indexer")
		assert.NotNil(t, pipe.Service, "Expected pipeline to have a query service")

		err = pipe.Close()
		assert.NoError(t, err, "Expected Close to not return an error")
	})

	t.Run("RagPipe with nil database handles Close gracefully", func(t *testing.T) {
		pipe := &RagPipe{}
		err := pipe.Close()
		assert.NoError(t, err, "Expected Close to handle nil DB gracefully")
	})
}

func TestIndexAndAnswer(t *testing.T) {
	pipe := initRagPipe(t)
	require.NoError(t, pipe.Chunks.Clear())
	require.NoError(t, pipe.Documents.Clear())

	dir := t.TempDir()
	docPath := filepath.Join(dir, "procedure.md")
	content := "Invoices must be paid within thirty days. Late payments incur a penalty. Refunds are processed within ten days."
	require.NoError(t, os.WriteFile(docPath, []byte(content), 0o644))

	t.Run("Index writes chunks and records the document", func(t *testing.T) {
		count, err := pipe.Index(docPath)
		require.NoError(t, err)
		assert.Greater(t, count, 0)

		stored, err := pipe.Chunks.Count()
		require.NoError(t, err)
		assert.Equal(t, count, stored)

		docCount, err := pipe.Documents.Count()
		require.NoError(t, err)
		assert.Equal(t, 1, docCount)
	})

	t.Run("Index skips the unchanged document", func(t *testing.T) {
		count, err := pipe.Index(docPath)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("Answer returns a terminal state", func(t *testing.T) {
		answer, err := pipe.Answer(context.Background(), "how long do refunds take", nil)
		require.NoError(t, err)
		require.NotNil(t, answer)
		assert.True(t, answer.State.Terminal(), "expected a terminal state, got %v", answer.State)
	})

	t.Run("Reindex rebuilds the sparse index", func(t *testing.T) {
		require.NoError(t, pipe.Reindex())

		stored, err := pipe.Chunks.Count()
		require.NoError(t, err)
		assert.Equal(t, stored, pipe.sparse.Size())
	})
}
