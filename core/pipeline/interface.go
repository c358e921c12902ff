// Package pipeline provides the embedding and chunking primitives the
// retrieval stack is built on.
package pipeline

// EmbedFunc generates an embedding vector for the given text.
type EmbedFunc func(text string) ([]float32, error)

// ChunkFunc splits document content into ordered chunks for indexing.
type ChunkFunc func(text string) ([]ChunkPart, error)

// ChunkPart is one piece of a split document before it gets a database
// identity. StartPos and EndPos are byte offsets into the source content.
type ChunkPart struct {
	Content    string
	ChunkIndex int
	StartPos   int
	EndPos     int
	Metadata   map[string]interface{}
}
