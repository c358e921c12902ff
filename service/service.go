// Package service orchestrates the query pipeline: enhancement,
// retrieval, prefiltering, reranking, thresholding, context assembly and
// generation. Degraded outcomes are answers, not errors.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/siherrmann/ragpipe/core/cache"
	"github.com/siherrmann/ragpipe/core/enhance"
	"github.com/siherrmann/ragpipe/core/rerank"
	"github.com/siherrmann/ragpipe/helper"
	"github.com/siherrmann/ragpipe/model"
)

// Retriever runs retrieval for one query string. *retrieval.Engine
// satisfies this.
type Retriever interface {
	Retrieve(ctx context.Context, query string, limit int, hybrid bool) ([]*model.RetrievalResult, error)
}

// QueryService answers questions over the indexed corpus. Construct with
// NewQueryService; the zero value is not usable.
type QueryService struct {
	enhancer   *enhance.Enhancer
	retriever  Retriever
	reranker   *rerank.Reranker
	queryCache *cache.QueryCache
	llm        LLM
	config     model.PipelineConfig
	logger     *slog.Logger
}

// NewQueryService wires the pipeline stages together. queryCache and llm
// may be nil: without a cache every query retrieves fresh, without an LLM
// Answer fails at the generation stage.
func NewQueryService(
	enhancer *enhance.Enhancer,
	retriever Retriever,
	reranker *rerank.Reranker,
	queryCache *cache.QueryCache,
	llm LLM,
	config model.PipelineConfig,
	logger *slog.Logger,
) *QueryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryService{
		enhancer:   enhancer,
		retriever:  retriever,
		reranker:   reranker,
		queryCache: queryCache,
		llm:        llm,
		config:     config,
		logger:     logger,
	}
}

// Answer runs the full pipeline for one question. History carries prior
// conversation turns through to the LLM. Degraded terminal states return
// an explanatory Answer and a nil error; only infrastructure and
// generation failures return an error, alongside a StateFailed Answer.
func (s *QueryService) Answer(ctx context.Context, query string, history []model.Turn) (*model.Answer, error) {
	catalog := catalogFor(s.config.ResponseLanguage)

	if strings.TrimSpace(query) == "" {
		return &model.Answer{Text: catalog.NoDocuments, State: model.StateDegradedNoDocs}, nil
	}

	s.logStage(model.StateEnhancing)
	var enhanced *enhance.EnhancedQuery
	if s.enhancer != nil {
		enhanced = s.enhancer.Enhance(query)
	} else {
		trimmed := strings.TrimSpace(query)
		enhanced = &enhance.EnhancedQuery{Original: query, Corrected: trimmed, Variations: []string{trimmed}}
	}
	suggestion := ""
	if enhanced.Suggestion != "" {
		suggestion = fmt.Sprintf(catalog.DidYouMean, enhanced.Corrected)
	}
	s.logger.Debug(
		"query enhanced",
		slog.String("corrected", enhanced.Corrected),
		slog.Int("variations", len(enhanced.Variations)),
	)

	s.logStage(model.StateRetrieving)
	if err := ctx.Err(); err != nil {
		return &model.Answer{State: model.StateFailed, Suggestion: suggestion}, helper.NewError("retrieval", err)
	}
	candidates, err := s.retrieve(ctx, enhanced)
	if err != nil {
		return &model.Answer{State: model.StateFailed, Suggestion: suggestion}, helper.NewError("retrieval", err)
	}
	if len(candidates) == 0 {
		return &model.Answer{
			Text:       catalog.NoDocuments,
			Suggestion: suggestion,
			State:      model.StateDegradedNoDocs,
		}, nil
	}

	s.logStage(model.StatePrefiltering)
	candidates = s.prefilter(candidates)

	s.logStage(model.StateReranking)
	if err := ctx.Err(); err != nil {
		return &model.Answer{State: model.StateFailed, Suggestion: suggestion}, helper.NewError("reranking", err)
	}
	reranked := s.reranker.Rerank(enhanced.Corrected, candidates, len(candidates))

	s.logStage(model.StateThresholding)
	threshold := s.config.MinRerankerScore
	if s.config.UseDynamicThreshold {
		if dynamic := rerank.DynamicThreshold(reranked, s.config.ThresholdPercentile); dynamic > threshold {
			threshold = dynamic
		}
	}
	confident := rerank.FilterByConfidence(reranked, threshold)
	if len(confident) == 0 {
		return &model.Answer{
			Text:       catalog.LowRelevance,
			Suggestion: suggestion,
			State:      model.StateDegradedLowRelevance,
		}, nil
	}
	if len(confident) > s.config.FinalTopK {
		confident = confident[:s.config.FinalTopK]
	}

	s.logStage(model.StateContextBuilding)
	prompt := s.buildPrompt(catalog, enhanced.Corrected, confident)
	if s.llm == nil {
		return &model.Answer{State: model.StateFailed, Suggestion: suggestion},
			helper.NewError("generation", fmt.Errorf("no LLM configured"))
	}

	s.logStage(model.StateGenerating)
	text, err := generateWithRetry(ctx, s.llm, catalog.SystemPrompt, history, prompt, s.config.MaxRetries, s.config.InitialBackoff)
	if err != nil {
		return &model.Answer{State: model.StateFailed, Suggestion: suggestion}, helper.NewError("generation", err)
	}

	return &model.Answer{
		Text:       text,
		Sources:    sourcesOf(confident),
		Suggestion: suggestion,
		State:      model.StateDone,
	}, nil
}

// logStage traces progress through the pipeline stages.
func (s *QueryService) logStage(state model.PipelineState) {
	s.logger.Debug("pipeline stage", slog.String("stage", string(state)))
}

// retrieve gathers candidates for the corrected query and its variations,
// deduplicating by chunk content with first-seen metadata winning. The
// corrected query gets the full retrieval budget, secondary variations the
// smaller variation budget. Results are served from the query cache when
// the same parameters were retrieved before.
func (s *QueryService) retrieve(ctx context.Context, enhanced *enhance.EnhancedQuery) ([]*model.RetrievalResult, error) {
	queries := enhanced.Variations
	if len(queries) == 0 {
		queries = []string{enhanced.Corrected}
	}

	var candidates []*model.RetrievalResult
	seen := make(map[string]struct{})

	for i, q := range queries {
		limit := s.config.RetrievalTopK
		if i > 0 {
			limit = s.config.VariationTopK
		}
		if limit <= 0 {
			continue
		}

		results, err := s.retrieveOne(ctx, q, limit)
		if err != nil {
			if i == 0 {
				return nil, err
			}
			s.logger.Warn("variation retrieval failed", slog.String("query", q), slog.Any("error", err))
			continue
		}

		for _, result := range results {
			key := model.ChunkKey(result.Chunk.Text)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			candidates = append(candidates, result)
		}
	}

	return candidates, nil
}

func (s *QueryService) retrieveOne(ctx context.Context, query string, limit int) ([]*model.RetrievalResult, error) {
	if s.queryCache != nil {
		if cached, ok := s.queryCache.Get(query, limit, s.config.UseHybrid); ok {
			return cached, nil
		}
	}

	results, err := s.retriever.Retrieve(ctx, query, limit, s.config.UseHybrid)
	if err != nil {
		return nil, err
	}

	if s.queryCache != nil {
		s.queryCache.Put(query, limit, s.config.UseHybrid, results)
	}
	return results, nil
}

// prefilter drops candidates whose every retrieval signal is below the
// floor, keeping the full set when fewer than the minimum rerank
// candidates would survive. The reranker sees weak candidates rather than
// too few.
func (s *QueryService) prefilter(candidates []*model.RetrievalResult) []*model.RetrievalResult {
	if s.config.PrefilterFloor <= 0 {
		return candidates
	}

	kept := make([]*model.RetrievalResult, 0, len(candidates))
	for _, candidate := range candidates {
		signals := []float64{candidate.Score}
		for _, key := range []string{"relevance_score", "bm25_score", "rrf_score"} {
			if v, ok := candidate.FloatMeta(key); ok {
				signals = append(signals, v)
			}
		}
		for _, signal := range signals {
			if signal >= s.config.PrefilterFloor {
				kept = append(kept, candidate)
				break
			}
		}
	}
	if len(kept) < s.config.MinRerankCandidates {
		return candidates
	}
	return kept
}

// buildPrompt assembles the grounded generation prompt. Each excerpt is
// headed by its source, chunk index and score, excerpts separated by ---.
func (s *QueryService) buildPrompt(catalog messageCatalog, query string, results []*model.RetrievalResult) string {
	var sb strings.Builder
	sb.WriteString(catalog.ContextIntro)
	sb.WriteString("\n\n")

	excerpts := make([]string, len(results))
	for i, result := range results {
		score, _ := result.FloatMeta("reranker_score")
		excerpts[i] = fmt.Sprintf(
			"[Source: %v | chunk %v | score %.3f]\n%v",
			result.Chunk.Source, result.Chunk.ChunkIndex, score, result.Chunk.Text,
		)
	}
	sb.WriteString(strings.Join(excerpts, "\n---\n"))

	sb.WriteString("\n\n")
	sb.WriteString(catalog.QuestionIntro)
	sb.WriteString(" ")
	sb.WriteString(query)

	return sb.String()
}

func sourcesOf(results []*model.RetrievalResult) []model.Source {
	sources := make([]model.Source, len(results))
	for i, result := range results {
		relevance, _ := result.FloatMeta("relevance_score")
		rerankerScore, _ := result.FloatMeta("reranker_score")
		sources[i] = model.Source{
			Source:         result.Chunk.Source,
			ChunkIndex:     result.Chunk.ChunkIndex,
			RelevanceScore: relevance,
			RerankerScore:  rerankerScore,
		}
	}
	return sources
}
