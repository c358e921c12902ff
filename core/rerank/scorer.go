// Package rerank rescores retrieval candidates with a cross-encoder,
// boosts entity matches and filters by a dynamic confidence threshold.
package rerank

import (
	"fmt"
	"strings"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
	"github.com/siherrmann/ragpipe/helper"
)

// RerankerModelName is the cross-encoder used for relevance scoring.
const RerankerModelName = "cross-encoder/ms-marco-MiniLM-L-6-v2"

// Scorer scores each text against the query. Scores align with texts by
// index; higher means more relevant.
type Scorer interface {
	Score(query string, texts []string) ([]float64, error)
}

// ScorerFunc adapts a function to the Scorer interface.
type ScorerFunc func(query string, texts []string) ([]float64, error)

func (f ScorerFunc) Score(query string, texts []string) ([]float64, error) {
	return f(query, texts)
}

// DefaultScorer creates a scorer backed by the ms-marco cross-encoder,
// downloading the model on first use. Query and passage are joined with
// the separator token as one sequence per candidate.
func DefaultScorer() (Scorer, error) {
	modelPath, err := helper.PrepareModel(RerankerModelName, "")
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.TextClassificationConfig{
		ModelPath: modelPath,
		Name:      "reranker-pipeline",
		Options: []hugot.TextClassificationOption{
			pipelines.WithSingleLabel(),
		},
	}
	rerankPipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create reranker pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create reranker pipeline: %w", err)
	}

	return ScorerFunc(func(query string, texts []string) ([]float64, error) {
		if len(texts) == 0 {
			return nil, nil
		}

		inputs := make([]string, len(texts))
		for i, text := range texts {
			inputs[i] = strings.Join([]string{query, text}, " [SEP] ")
		}

		result, err := rerankPipeline.RunPipeline(inputs)
		if err != nil {
			return nil, fmt.Errorf("failed to run reranker: %w", err)
		}
		if len(result.ClassificationOutputs) != len(texts) {
			return nil, fmt.Errorf("reranker output mismatch: got %d scores for %d texts", len(result.ClassificationOutputs), len(texts))
		}

		scores := make([]float64, len(texts))
		for i, output := range result.ClassificationOutputs {
			if len(output) == 0 {
				return nil, fmt.Errorf("reranker returned no score for text %d", i)
			}
			scores[i] = float64(output[0].Score)
		}

		return scores, nil
	}), nil
}
