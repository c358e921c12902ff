package pipeline

import (
	"fmt"

	"github.com/knights-analytics/hugot"
	"github.com/siherrmann/ragpipe/core/cache"
	"github.com/siherrmann/ragpipe/helper"
)

// EmbeddingModelName is the sentence transformer used for dense retrieval.
// It produces 384-dimensional embeddings.
const EmbeddingModelName = "sentence-transformers/all-MiniLM-L6-v2"

// EmbeddingDimension is the vector size of EmbeddingModelName.
const EmbeddingDimension = 384

// DefaultEmbedder creates an embedder backed by all-MiniLM-L6-v2,
// downloading the model on first use.
func DefaultEmbedder() (EmbedFunc, error) {
	modelPath, err := helper.PrepareModel(EmbeddingModelName, "")
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "embedder-pipeline",
	}
	sentencePipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create sentence pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create sentence pipeline: %w", err)
	}

	return func(text string) ([]float32, error) {
		result, err := sentencePipeline.RunPipeline([]string{text})
		if err != nil {
			return nil, fmt.Errorf("failed to generate embedding: %w", err)
		}

		if len(result.Embeddings) == 0 {
			return nil, fmt.Errorf("no embedding generated")
		}

		return result.Embeddings[0], nil
	}, nil
}

// CachedEmbedder wraps an embedder with an LRU cache keyed on model name
// and text content. Cache hits never touch the underlying model.
func CachedEmbedder(embed EmbedFunc, modelName string, embeddingCache *cache.EmbeddingCache) EmbedFunc {
	if embeddingCache == nil {
		return embed
	}
	return func(text string) ([]float32, error) {
		if embedding, ok := embeddingCache.Get(text, modelName); ok {
			return embedding, nil
		}

		embedding, err := embed(text)
		if err != nil {
			return nil, err
		}

		embeddingCache.Put(text, modelName, embedding)
		return embedding, nil
	}
}
