package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/siherrmann/ragpipe/helper"
	"github.com/siherrmann/ragpipe/model"
	loadSql "github.com/siherrmann/ragpipe/sql"
)

// ChunksDBHandlerFunctions defines the interface for chunk database operations.
type ChunksDBHandlerFunctions interface {
	InsertChunk(chunk *model.Chunk) error
	InsertChunks(chunks []*model.Chunk) ([]string, error)
	SearchDense(ctx context.Context, embedding []float32, limit int) ([]*model.RetrievalResult, error)
	SelectAllChunks() ([]*model.Chunk, error)
	Count() (int, error)
	DeleteBySource(source string) error
	Clear() error
}

// ChunksDBHandler stores chunks with their embeddings in PostgreSQL and
// serves cosine similarity search via pgvector.
type ChunksDBHandler struct {
	db *helper.Database
}

// NewChunksDBHandler creates a new chunks database handler.
// It loads the chunk SQL functions and ensures the table exists.
// If force is true, it will reload the SQL functions even if they already exist.
func NewChunksDBHandler(db *helper.Database, embeddingDim int, force bool) (*ChunksDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	handler := &ChunksDBHandler{db: db}

	err := loadSql.LoadChunksSql(handler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load chunks sql", err)
	}

	err = handler.CreateTable(embeddingDim)
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized ChunksDBHandler")

	return handler, nil
}

// CreateTable creates the 'chunks' table with its indexes if it does not exist.
func (h *ChunksDBHandler) CreateTable(embeddingDim int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_chunks($1);`, embeddingDim)
	if err != nil {
		return helper.NewError("initialize chunks table", err)
	}

	h.db.Logger.Info("Checked/created table chunks")

	return nil
}

// InsertChunk inserts a single chunk and fills in its generated fields.
func (h *ChunksDBHandler) InsertChunk(chunk *model.Chunk) error {
	if chunk.ID == "" {
		chunk.ID = uuid.NewString()
	}

	row := h.db.Instance.QueryRow(
		`SELECT id, source, chunk_index, content, metadata, created_at FROM insert_chunk($1, $2, $3, $4, $5, $6)`,
		chunk.ID,
		chunk.Source,
		chunk.ChunkIndex,
		chunk.Text,
		pgvector.NewVector(chunk.Embedding),
		chunk.Metadata,
	)

	err := row.Scan(
		&chunk.ID,
		&chunk.Source,
		&chunk.ChunkIndex,
		&chunk.Text,
		&chunk.Metadata,
		&chunk.CreatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// InsertChunks inserts a batch of chunks in one transaction and returns the
// assigned chunk IDs in input order.
func (h *ChunksDBHandler) InsertChunks(chunks []*model.Chunk) ([]string, error) {
	tx, err := h.db.Instance.Begin()
	if err != nil {
		return nil, helper.NewError("begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	ids := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		if chunk.ID == "" {
			chunk.ID = uuid.NewString()
		}
		_, err := tx.Exec(
			`SELECT insert_chunk($1, $2, $3, $4, $5, $6)`,
			chunk.ID,
			chunk.Source,
			chunk.ChunkIndex,
			chunk.Text,
			pgvector.NewVector(chunk.Embedding),
			chunk.Metadata,
		)
		if err != nil {
			return nil, helper.NewError(fmt.Sprintf("insert chunk %d", i), err)
		}
		ids = append(ids, chunk.ID)
	}

	if err := tx.Commit(); err != nil {
		return nil, helper.NewError("commit transaction", err)
	}

	h.db.Logger.Info("Inserted chunk batch", "count", len(ids))

	return ids, nil
}

// SearchDense returns the chunks nearest to the embedding by cosine distance,
// most similar first, with relevance_score and distance in the result metadata.
func (h *ChunksDBHandler) SearchDense(ctx context.Context, embedding []float32, limit int) ([]*model.RetrievalResult, error) {
	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM select_chunks_by_similarity($1, $2)`,
		pgvector.NewVector(embedding),
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var results []*model.RetrievalResult
	for rows.Next() {
		chunk := &model.Chunk{}
		var distance float64
		err := rows.Scan(
			&chunk.ID,
			&chunk.Source,
			&chunk.ChunkIndex,
			&chunk.Text,
			&chunk.Metadata,
			&chunk.CreatedAt,
			&distance,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		// Cosine distance in [0,2] to a normalized similarity in [0,1].
		similarity := 1.0 - distance
		if similarity < 0 {
			similarity = 0
		}

		results = append(results, &model.RetrievalResult{
			Chunk: chunk,
			Score: similarity,
			Metadata: model.Metadata{
				"source":          chunk.Source,
				"chunk_index":     chunk.ChunkIndex,
				"relevance_score": similarity,
				"distance":        distance,
			},
			RetrievalMethod: model.RetrievalMethodDense,
		})
	}

	return results, rows.Err()
}

// SelectAllChunks returns every stored chunk, ordered by source and index.
// Used to rebuild the sparse index on startup and reindex.
func (h *ChunksDBHandler) SelectAllChunks() ([]*model.Chunk, error) {
	rows, err := h.db.Instance.Query(`SELECT * FROM select_all_chunks()`)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var chunks []*model.Chunk
	for rows.Next() {
		chunk := &model.Chunk{}
		err := rows.Scan(
			&chunk.ID,
			&chunk.Source,
			&chunk.ChunkIndex,
			&chunk.Text,
			&chunk.Metadata,
			&chunk.CreatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		chunks = append(chunks, chunk)
	}

	return chunks, rows.Err()
}

// Count returns the number of stored chunks.
func (h *ChunksDBHandler) Count() (int, error) {
	var count int
	err := h.db.Instance.QueryRow(`SELECT count_chunks()`).Scan(&count)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return count, nil
}

// DeleteBySource removes all chunks of one source document.
func (h *ChunksDBHandler) DeleteBySource(source string) error {
	_, err := h.db.Instance.Exec(`SELECT delete_chunks_by_source($1)`, source)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// Clear removes all stored chunks.
func (h *ChunksDBHandler) Clear() error {
	_, err := h.db.Instance.Exec(`SELECT clear_chunks()`)
	if err != nil {
		return helper.NewError("exec", err)
	}
	h.db.Logger.Info("Cleared chunks table")
	return nil
}
