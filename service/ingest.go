package service

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/siherrmann/ragpipe/core/cache"
	"github.com/siherrmann/ragpipe/core/pipeline"
	"github.com/siherrmann/ragpipe/core/retrieval"
	"github.com/siherrmann/ragpipe/database"
	"github.com/siherrmann/ragpipe/helper"
	"github.com/siherrmann/ragpipe/model"
)

// indexableExtensions are the file types picked up when indexing a
// directory.
var indexableExtensions = map[string]struct{}{
	".txt": {}, ".md": {}, ".markdown": {}, ".rst": {},
	".html": {}, ".csv": {}, ".json": {},
}

// Indexer turns documents into stored chunks and keeps the sparse index
// and query cache consistent with the corpus.
type Indexer struct {
	chunks     database.ChunksDBHandlerFunctions
	documents  database.DocumentsDBHandlerFunctions
	chunker    pipeline.ChunkFunc
	embed      pipeline.EmbedFunc
	sparse     *retrieval.BM25Index
	queryCache *cache.QueryCache
	logger     *slog.Logger
}

// NewIndexer wires an indexer. sparse and queryCache may be nil when the
// corresponding feature is disabled.
func NewIndexer(
	chunks database.ChunksDBHandlerFunctions,
	documents database.DocumentsDBHandlerFunctions,
	chunker pipeline.ChunkFunc,
	embed pipeline.EmbedFunc,
	sparse *retrieval.BM25Index,
	queryCache *cache.QueryCache,
	logger *slog.Logger,
) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		chunks:     chunks,
		documents:  documents,
		chunker:    chunker,
		embed:      embed,
		sparse:     sparse,
		queryCache: queryCache,
		logger:     logger,
	}
}

// IndexFile indexes one document file. Unchanged files are skipped based
// on the stored content hash; changed files are fully reindexed, their
// old chunks deleted first. Returns the number of chunks written.
func (x *Indexer) IndexFile(path string) (int, error) {
	changed, err := x.documents.IsChanged(path)
	if err != nil {
		return 0, helper.NewError("checking document", err)
	}
	if !changed {
		x.logger.Debug("document unchanged, skipping", slog.String("path", path))
		return 0, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return 0, helper.NewError("reading document", err)
	}

	ids, err := x.indexContent(path, string(content))
	if err != nil {
		return 0, err
	}
	if err := x.documents.Record(path, len(ids), ids); err != nil {
		return 0, helper.NewError("recording document", err)
	}

	if err := x.refresh(); err != nil {
		return len(ids), err
	}
	return len(ids), nil
}

// IndexDocument indexes in-memory content under the document's source
// identifier. Unlike IndexFile there is no file to hash, so no change
// record is kept and the content is always reindexed. Returns the number
// of chunks written.
func (x *Indexer) IndexDocument(doc *model.Document) (int, error) {
	if doc.Content == "" {
		return 0, helper.NewError("index document", fmt.Errorf("document content is empty"))
	}

	ids, err := x.indexContent(doc.Source, doc.Content)
	if err != nil {
		return 0, err
	}
	count := len(ids)

	if err := x.refresh(); err != nil {
		return count, err
	}
	return count, nil
}

// IndexDirectory walks the directory and indexes every file with an
// indexable extension. Returns the total number of chunks written.
func (x *Indexer) IndexDirectory(dir string) (int, error) {
	total := 0
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := indexableExtensions[strings.ToLower(filepath.Ext(path))]; !ok {
			return nil
		}

		changed, err := x.documents.IsChanged(path)
		if err != nil {
			return helper.NewError("checking document", err)
		}
		if !changed {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return helper.NewError("reading document", err)
		}
		ids, err := x.indexContent(path, string(content))
		if err != nil {
			return err
		}
		if err := x.documents.Record(path, len(ids), ids); err != nil {
			return helper.NewError("recording document", err)
		}
		total += len(ids)
		return nil
	})
	if err != nil {
		return total, err
	}

	if err := x.refresh(); err != nil {
		return total, err
	}
	return total, nil
}

// indexContent chunks, embeds and stores one document's content, replacing
// any chunks previously stored for the same source. Returns the new chunk
// ids so file-backed callers can record them against the content hash.
func (x *Indexer) indexContent(source string, content string) ([]string, error) {
	parts, err := x.chunker(content)
	if err != nil {
		return nil, helper.NewError("chunking document", err)
	}
	if len(parts) == 0 {
		return nil, nil
	}

	if err := x.chunks.DeleteBySource(source); err != nil {
		return nil, helper.NewError("deleting old chunks", err)
	}

	chunks := make([]*model.Chunk, len(parts))
	for i, part := range parts {
		embedding, err := x.embed(part.Content)
		if err != nil {
			return nil, helper.NewError(fmt.Sprintf("embedding chunk %v", part.ChunkIndex), err)
		}
		chunks[i] = &model.Chunk{
			Source:     source,
			ChunkIndex: part.ChunkIndex,
			Text:       part.Content,
			Embedding:  embedding,
			Metadata:   part.Metadata,
		}
	}

	ids, err := x.chunks.InsertChunks(chunks)
	if err != nil {
		return nil, helper.NewError("inserting chunks", err)
	}

	x.logger.Info("document indexed", slog.String("source", source), slog.Int("chunks", len(ids)))
	return ids, nil
}

// refresh rebuilds the sparse index from the stored chunks and clears the
// query cache, so cached result sets never outlive the corpus.
func (x *Indexer) refresh() error {
	if x.sparse != nil {
		chunks, err := x.chunks.SelectAllChunks()
		if err != nil {
			return helper.NewError("rebuilding sparse index", err)
		}
		x.sparse.Rebuild(chunks)
	}
	if x.queryCache != nil {
		x.queryCache.Clear()
	}
	return nil
}
