package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

type RetrievalMethod string

const (
	RetrievalMethodDense  RetrievalMethod = "dense"
	RetrievalMethodSparse RetrievalMethod = "sparse"
	RetrievalMethodHybrid RetrievalMethod = "hybrid"
)

// Chunk represents one indexed piece of document text.
// Chunks are immutable after indexing; metadata attached during a query
// lives on per-query copies, never on the stored row.
type Chunk struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	ChunkIndex int       `json:"chunk_index"`
	Text       string    `json:"text"`
	Embedding  []float32 `json:"embedding,omitempty"`
	Metadata   Metadata  `json:"metadata,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ChunkKey returns the identity used for fusion and cross-variation
// deduplication: the hex SHA-256 of the full chunk text. A fixed-length
// prefix would collide for templated documents sharing a long header.
func ChunkKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
