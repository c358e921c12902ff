package ragpipe

import (
	"context"
	"log/slog"
	"os"

	"github.com/siherrmann/ragpipe/core/cache"
	"github.com/siherrmann/ragpipe/core/enhance"
	"github.com/siherrmann/ragpipe/core/extract"
	"github.com/siherrmann/ragpipe/core/pipeline"
	"github.com/siherrmann/ragpipe/core/rerank"
	"github.com/siherrmann/ragpipe/core/retrieval"
	"github.com/siherrmann/ragpipe/database"
	"github.com/siherrmann/ragpipe/helper"
	"github.com/siherrmann/ragpipe/model"
	"github.com/siherrmann/ragpipe/service"
	loadSql "github.com/siherrmann/ragpipe/sql"
)

// RagPipe provides a unified interface to the indexing and query pipeline.
type RagPipe struct {
	DB        *helper.Database
	Chunks    *database.ChunksDBHandler
	Documents *database.DocumentsDBHandler
	Indexer   *service.Indexer
	Service   *service.QueryService
	Config    model.PipelineConfig
	// Logging
	log *slog.Logger

	sparse         *retrieval.BM25Index
	embeddingCache *cache.EmbeddingCache
	queryCache     *cache.QueryCache
	watcher        *service.Watcher
}

// Components carries the model-backed pieces of the pipeline. Use
// DefaultComponents for the real models, or build one with fakes in tests.
type Components struct {
	Embedder pipeline.EmbedFunc
	Chunker  pipeline.ChunkFunc
	Scorer   rerank.Scorer
	NER      extract.NERFunc // optional
	LLM      service.LLM
}

// DefaultComponents loads the default embedding and reranking models and
// connects to Gemini using the GEMINI_API_KEY environment variable.
func DefaultComponents(ctx context.Context) (*Components, error) {
	embedder, err := pipeline.DefaultEmbedder()
	if err != nil {
		return nil, helper.NewError("create default embedder", err)
	}

	scorer, err := rerank.DefaultScorer()
	if err != nil {
		return nil, helper.NewError("create default reranker", err)
	}

	llm, err := service.NewGeminiLLM(ctx, "", "")
	if err != nil {
		return nil, helper.NewError("create Gemini client", err)
	}

	return &Components{
		Embedder: embedder,
		Chunker:  pipeline.DefaultChunker(),
		Scorer:   scorer,
		LLM:      llm,
	}, nil
}

// NewRagPipe creates a pipeline instance with all handlers initialized.
func NewRagPipe(dbConfig *helper.DatabaseConfiguration, config model.PipelineConfig, components *Components) (*RagPipe, error) {
	// Logger
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	// Initialize database
	db := helper.NewDatabase("ragpipe", dbConfig, logger)
	err := loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	// force=false to not reload if functions already exist
	documents, err := database.NewDocumentsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create documents handler", err)
	}

	chunks, err := database.NewChunksDBHandler(db, pipeline.EmbeddingDimension, false)
	if err != nil {
		return nil, helper.NewError("create chunks handler", err)
	}

	// Caches
	embeddingCache, err := cache.NewEmbeddingCache(config.EmbeddingCacheSize)
	if err != nil {
		return nil, helper.NewError("create embedding cache", err)
	}
	queryCache := cache.NewQueryCache(config.QueryCacheSize, config.QueryCacheTTL)

	embed := pipeline.CachedEmbedder(components.Embedder, pipeline.EmbeddingModelName, embeddingCache)

	// Retrieval: dense via pgvector, sparse via the in-memory BM25 index.
	sparse := retrieval.NewBM25Index()
	engine := retrieval.NewEngine(chunks, sparse, embed, int(config.RRFConstant), logger)

	// Reranking with entity-aware boosting.
	var extractor *extract.Extractor
	if components.NER != nil {
		extractor = extract.NewExtractorWithNER(components.NER)
	} else {
		extractor = extract.NewExtractor()
	}
	reranker := rerank.NewReranker(components.Scorer, extractor, config.ExactMatchBoost, logger)

	indexer := service.NewIndexer(chunks, documents, components.Chunker, embed, sparse, queryCache, logger)
	queryService := service.NewQueryService(
		enhance.NewEnhancer(), engine, reranker, queryCache, components.LLM, config, logger,
	)

	return &RagPipe{
		DB:             db,
		Chunks:         chunks,
		Documents:      documents,
		Indexer:        indexer,
		Service:        queryService,
		Config:         config,
		log:            logger,
		sparse:         sparse,
		embeddingCache: embeddingCache,
		queryCache:     queryCache,
	}, nil
}

// Index indexes one file or directory, skipping unchanged documents.
// Returns the number of chunks written.
func (r *RagPipe) Index(path string) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, helper.NewError("stat path", err)
	}
	if info.IsDir() {
		return r.Indexer.IndexDirectory(path)
	}
	return r.Indexer.IndexFile(path)
}

// IndexDocument indexes in-memory content that is not backed by a file,
// for example records pulled from an external system.
func (r *RagPipe) IndexDocument(doc *model.Document) (int, error) {
	return r.Indexer.IndexDocument(doc)
}

// Reindex rebuilds the sparse index from the stored chunks and clears both
// caches. Called automatically after Index; exposed for callers that write
// chunks through the handlers directly.
func (r *RagPipe) Reindex() error {
	chunks, err := r.Chunks.SelectAllChunks()
	if err != nil {
		return helper.NewError("loading chunks", err)
	}
	r.sparse.Rebuild(chunks)
	r.embeddingCache.Clear()
	r.queryCache.Clear()
	r.log.Info("sparse index rebuilt", slog.Int("chunks", len(chunks)))
	return nil
}

// CacheStats returns the embedding and query cache counters.
func (r *RagPipe) CacheStats() (embedding cache.Stats, query cache.Stats) {
	return r.embeddingCache.Stats(), r.queryCache.Stats()
}

// Answer runs the query pipeline for one question.
func (r *RagPipe) Answer(ctx context.Context, query string, history []model.Turn) (*model.Answer, error) {
	return r.Service.Answer(ctx, query, history)
}

// Watch starts reindexing documents in dir when they change on disk.
// Stops on Close.
func (r *RagPipe) Watch(dir string) error {
	if r.watcher != nil {
		return helper.NewError("watch", os.ErrExist)
	}
	watcher, err := service.NewWatcher(r.Indexer, dir, service.DefaultDebounce, r.log)
	if err != nil {
		return err
	}
	r.watcher = watcher
	return nil
}

// Close stops the watcher and closes the database connection.
func (r *RagPipe) Close() error {
	if r.watcher != nil {
		if err := r.watcher.Close(); err != nil {
			r.log.Warn("closing watcher failed", slog.Any("error", err))
		}
		r.watcher = nil
	}
	if r.DB != nil && r.DB.Instance != nil {
		return r.DB.Instance.Close()
	}
	return nil
}
