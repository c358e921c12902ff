package rerank

import (
	"log/slog"
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"github.com/siherrmann/ragpipe/core/extract"
	"github.com/siherrmann/ragpipe/model"
)

// Entity boost weights applied on top of cross-encoder scores.
const (
	entityOverlapWeight = 2.0
	exactMatchWeight    = 0.5
	exactMatchBoostCap  = 3.0
)

// fallbackThreshold is used when no scores are available for the
// percentile computation.
const fallbackThreshold = 0.5

// Reranker rescores candidates with a cross-encoder and entity-aware
// boosting. A nil scorer or a scoring failure degrades gracefully to the
// input order.
type Reranker struct {
	scorer     Scorer
	extractor  *extract.Extractor
	boostExact bool
	logger     *slog.Logger
}

// NewReranker creates a reranker. scorer may be nil, in which case Rerank
// passes candidates through in their input order. Entity boosting requires
// both an extractor and boostExact; otherwise no boost is applied.
func NewReranker(scorer Scorer, extractor *extract.Extractor, boostExact bool, logger *slog.Logger) *Reranker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reranker{
		scorer:     scorer,
		extractor:  extractor,
		boostExact: boostExact,
		logger:     logger,
	}
}

// Rerank rescores the candidates against the query and returns the top
// topK, highest boosted score first. Each result is annotated with
// cross_encoder_score, entity_boost, reranker_score, original_rank and
// reranked_position. On scorer failure the input order is kept, truncated
// to topK, so retrieval quality degrades instead of the query failing.
func (r *Reranker) Rerank(query string, candidates []*model.RetrievalResult, topK int) []*model.RetrievalResult {
	if len(candidates) == 0 {
		return nil
	}
	if topK <= 0 || topK > len(candidates) {
		topK = len(candidates)
	}

	if r.scorer == nil {
		return passthrough(candidates, topK)
	}

	texts := make([]string, len(candidates))
	for i, candidate := range candidates {
		texts[i] = candidate.Chunk.Text
	}

	scores, err := r.scorer.Score(query, texts)
	if err != nil || len(scores) != len(candidates) {
		r.logger.Warn("reranker scoring failed, keeping retrieval order", slog.Any("error", err))
		return passthrough(candidates, topK)
	}

	reranked := make([]*model.RetrievalResult, len(candidates))
	for i, candidate := range candidates {
		result := candidate.Clone()

		boost := 0.0
		if r.boostExact && r.extractor != nil {
			boost += r.extractor.EntityOverlap(query, result.Chunk.Text) * entityOverlapWeight
			exact := float64(len(r.extractor.ExactMatches(query, result.Chunk.Text)))
			boost += math.Min(exactMatchWeight*exact, exactMatchBoostCap)
		}

		result.Score = scores[i] + boost
		result.Metadata["cross_encoder_score"] = scores[i]
		result.Metadata["entity_boost"] = boost
		result.Metadata["reranker_score"] = result.Score
		result.Metadata["original_rank"] = i + 1
		reranked[i] = result
	}

	sort.SliceStable(reranked, func(a, b int) bool {
		return reranked[a].Score > reranked[b].Score
	})

	reranked = reranked[:topK]
	for i, result := range reranked {
		result.Metadata["reranked_position"] = i + 1
	}

	return reranked
}

// passthrough keeps the retrieval order, annotating positions so later
// stages see the same metadata shape as a reranked list.
func passthrough(candidates []*model.RetrievalResult, topK int) []*model.RetrievalResult {
	results := make([]*model.RetrievalResult, 0, topK)
	for i, candidate := range candidates[:topK] {
		result := candidate.Clone()
		result.Metadata["reranker_score"] = result.Score
		result.Metadata["original_rank"] = i + 1
		result.Metadata["reranked_position"] = i + 1
		results = append(results, result)
	}
	return results
}

// DynamicThreshold computes the given percentile of the reranker scores,
// so the confidence cut adapts to each query's score distribution.
// Returns the fallback threshold when no scores are available.
func DynamicThreshold(results []*model.RetrievalResult, percentile float64) float64 {
	var scores []float64
	for _, result := range results {
		if score, ok := result.FloatMeta("reranker_score"); ok {
			scores = append(scores, score)
		}
	}
	if len(scores) == 0 {
		return fallbackThreshold
	}

	threshold, err := stats.Percentile(scores, percentile)
	if err != nil {
		return fallbackThreshold
	}
	return threshold
}

// FilterByConfidence keeps results whose reranker score meets the
// threshold. Results without a reranker score are dropped.
func FilterByConfidence(results []*model.RetrievalResult, threshold float64) []*model.RetrievalResult {
	filtered := make([]*model.RetrievalResult, 0, len(results))
	for _, result := range results {
		score, ok := result.FloatMeta("reranker_score")
		if ok && score >= threshold {
			filtered = append(filtered, result)
		}
	}
	return filtered
}
