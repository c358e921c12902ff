package model

import "time"

// PipelineConfig represents configuration for the query pipeline
type PipelineConfig struct {
	// Retrieval parameters
	RetrievalTopK       int     `json:"retrieval_top_k"` // Budget for the original query
	VariationTopK       int     `json:"variation_top_k"` // Budget per secondary variation
	RRFConstant         float64 `json:"rrf_constant"`    // Reciprocal rank fusion constant
	UseHybrid           bool    `json:"use_hybrid"`      // Combine BM25 with dense search
	PrefilterFloor      float64 `json:"prefilter_floor"` // Candidates below this on every signal are dropped
	MinRerankCandidates int     `json:"min_rerank_candidates"`

	// Reranking parameters
	FinalTopK           int     `json:"final_top_k"`          // Context chunks handed to the LLM
	ExactMatchBoost     bool    `json:"exact_match_boost"`    // Entity-aware score boosting
	MinRerankerScore    float64 `json:"min_reranker_score"`   // Fixed confidence floor
	ThresholdPercentile float64 `json:"threshold_percentile"` // Dynamic threshold percentile
	UseDynamicThreshold bool    `json:"use_dynamic_threshold"`

	// Generation parameters
	ResponseLanguage string        `json:"response_language"` // "en" or "fr"
	MaxRetries       int           `json:"max_retries"`
	InitialBackoff   time.Duration `json:"initial_backoff"`

	// Cache parameters
	EmbeddingCacheSize int           `json:"embedding_cache_size"`
	QueryCacheSize     int           `json:"query_cache_size"`
	QueryCacheTTL      time.Duration `json:"query_cache_ttl"`
}

// DefaultPipelineConfig returns a sensible default configuration
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		RetrievalTopK:       20,
		VariationTopK:       10,
		RRFConstant:         60,
		UseHybrid:           true,
		PrefilterFloor:      0.05,
		MinRerankCandidates: 3,
		FinalTopK:           8,
		ExactMatchBoost:     true,
		MinRerankerScore:    0.0,
		ThresholdPercentile: 20,
		UseDynamicThreshold: true,
		ResponseLanguage:    "en",
		MaxRetries:          3,
		InitialBackoff:      time.Second,
		EmbeddingCacheSize:  1000,
		QueryCacheSize:      500,
		QueryCacheTTL:       time.Hour,
	}
}
