// Package usecases contains application business rules.
// Usecases orchestrate entities and depend on port interfaces only.
package usecases

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"doctalk/internal/domain/entities"
	"doctalk/internal/domain/ports"
)

// Default chunking policy: three consecutive sentences per chunk with one
// sentence of overlap between neighbours.
const (
	DefaultSentencesPerChunk = 3
	DefaultOverlapSentences  = 1
)

var sentenceSplitter = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)

// Indexer splits normalized text into sentence-grouped chunks, embeds them
// and writes them to the vector store. Ingestion is additive: repeated calls
// accumulate chunks until Clear.
type Indexer struct {
	embedder          ports.EmbeddingService
	store             ports.VectorStore
	sentencesPerChunk int
	overlapSentences  int
}

// NewIndexer creates an Indexer. Overlap is clamped below the chunk length
// to guarantee forward progress.
func NewIndexer(embedder ports.EmbeddingService, store ports.VectorStore, sentencesPerChunk, overlapSentences int) *Indexer {
	if sentencesPerChunk <= 0 {
		sentencesPerChunk = DefaultSentencesPerChunk
	}
	if overlapSentences < 0 {
		overlapSentences = 0
	}
	if overlapSentences >= sentencesPerChunk {
		overlapSentences = sentencesPerChunk - 1
	}
	return &Indexer{
		embedder:          embedder,
		store:             store,
		sentencesPerChunk: sentencesPerChunk,
		overlapSentences:  overlapSentences,
	}
}

// Index chunks the text, embeds every chunk and stores the result. It
// returns the number of chunks written. Empty input stores nothing.
func (ix *Indexer) Index(ctx context.Context, text string) (int, error) {
	sourceID := uuid.NewString()
	chunks := ix.chunk(sourceID, text)
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	embeddings, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding chunks: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d chunks", len(embeddings), len(chunks))
	}
	for i := range chunks {
		chunks[i].Embedding = embeddings[i]
	}

	if err := ix.store.Store(ctx, chunks); err != nil {
		return 0, fmt.Errorf("storing chunks: %w", err)
	}
	return len(chunks), nil
}

// IsEmpty reports whether the store holds no chunks.
func (ix *Indexer) IsEmpty(ctx context.Context) (bool, error) {
	n, err := ix.store.Count(ctx)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// Clear removes every chunk unconditionally. Idempotent.
func (ix *Indexer) Clear(ctx context.Context) error {
	return ix.store.Clear(ctx)
}

// chunk splits text into sentence groups. Each chunk spans
// sentencesPerChunk consecutive sentences, with overlapSentences shared
// between neighbours.
func (ix *Indexer) chunk(sourceID, text string) []entities.Chunk {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []entities.Chunk
	i := 0
	idx := 0
	for i < len(sentences) {
		end := i + ix.sentencesPerChunk
		if end > len(sentences) {
			end = len(sentences)
		}
		chunks = append(chunks, entities.Chunk{
			ID:       fmt.Sprintf("%s#%03d", sourceID, idx),
			SourceID: sourceID,
			Content:  strings.Join(sentences[i:end], " "),
			Index:    idx,
		})
		if end == len(sentences) {
			break
		}
		i = end - ix.overlapSentences
		idx++
	}
	return chunks
}

// splitSentences breaks text on sentence-terminal punctuation. Trailing text
// after the last terminator is kept as a final sentence; text with no
// terminal punctuation at all becomes a single sentence.
func splitSentences(text string) []string {
	matches := sentenceSplitter.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		return []string{trimmed}
	}
	var out []string
	end := 0
	for _, m := range matches {
		if s := strings.TrimSpace(text[m[0]:m[1]]); s != "" {
			out = append(out, s)
		}
		end = m[1]
	}
	if tail := strings.TrimSpace(text[end:]); tail != "" {
		out = append(out, tail)
	}
	return out
}
