package pipeline

import (
	"fmt"
	"strings"
)

// DefaultChunkSize and DefaultChunkOverlap are the character budgets used
// when indexing documents.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// splitSentences splits text on sentence-ending punctuation followed by a
// space. Empty fragments are dropped.
func splitSentences(text string) []string {
	text = strings.ReplaceAll(text, "! ", "!|")
	text = strings.ReplaceAll(text, "? ", "?|")
	text = strings.ReplaceAll(text, ". ", ".|")

	var sentences []string
	for _, s := range strings.Split(text, "|") {
		s = strings.TrimSpace(s)
		if s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// SizeChunker creates a chunker that packs whole sentences into chunks of
// at most chunkSize characters, repeating the trailing sentences of each
// chunk as overlap at the start of the next. A sentence longer than
// chunkSize becomes its own chunk.
func SizeChunker(chunkSize int, overlap int) ChunkFunc {
	return func(text string) ([]ChunkPart, error) {
		if chunkSize <= 0 {
			return nil, fmt.Errorf("chunk size must be positive")
		}
		if overlap < 0 || overlap >= chunkSize {
			return nil, fmt.Errorf("overlap must be in [0, chunk size)")
		}

		if strings.TrimSpace(text) == "" {
			return []ChunkPart{}, nil
		}

		sentences := splitSentences(text)

		var chunks []ChunkPart
		var current []string
		currentLen := 0
		chunkIdx := 0
		pos := 0

		flush := func() {
			if len(current) == 0 {
				return
			}
			content := strings.Join(current, " ")
			chunks = append(chunks, ChunkPart{
				Content:    content,
				ChunkIndex: chunkIdx,
				StartPos:   pos,
				EndPos:     pos + len(content),
				Metadata: map[string]interface{}{
					"num_sentences":   len(current),
					"chunking_method": "size",
				},
			})
			chunkIdx++

			// Carry trailing sentences forward as overlap.
			var carried []string
			carriedLen := 0
			for i := len(current) - 1; i >= 0 && carriedLen < overlap; i-- {
				carried = append([]string{current[i]}, carried...)
				carriedLen += len(current[i]) + 1
			}
			pos += len(content) - carriedLen
			if pos < 0 {
				pos = 0
			}
			current = carried
			currentLen = carriedLen
		}

		for _, sentence := range sentences {
			if currentLen > 0 && currentLen+len(sentence)+1 > chunkSize {
				flush()
			}
			current = append(current, sentence)
			currentLen += len(sentence) + 1
		}
		if len(current) > 0 {
			content := strings.Join(current, " ")
			chunks = append(chunks, ChunkPart{
				Content:    content,
				ChunkIndex: chunkIdx,
				StartPos:   pos,
				EndPos:     pos + len(content),
				Metadata: map[string]interface{}{
					"num_sentences":   len(current),
					"chunking_method": "size",
				},
			})
		}

		return chunks, nil
	}
}

// ParagraphChunker creates a chunker that splits on blank lines.
func ParagraphChunker() ChunkFunc {
	return func(text string) ([]ChunkPart, error) {
		paragraphs := strings.Split(text, "\n\n")

		var chunks []ChunkPart
		chunkIdx := 0
		pos := 0

		for _, para := range paragraphs {
			trimmed := strings.TrimSpace(para)
			if trimmed == "" {
				pos += len(para) + 2
				continue
			}

			chunks = append(chunks, ChunkPart{
				Content:    trimmed,
				ChunkIndex: chunkIdx,
				StartPos:   pos,
				EndPos:     pos + len(trimmed),
				Metadata: map[string]interface{}{
					"chunking_method": "paragraph",
				},
			})

			pos += len(para) + 2
			chunkIdx++
		}

		return chunks, nil
	}
}

// DefaultChunker returns the size chunker with the default budgets.
func DefaultChunker() ChunkFunc {
	return SizeChunker(DefaultChunkSize, DefaultChunkOverlap)
}
