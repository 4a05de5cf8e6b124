// Package vectordb provides vector store adapters.
package vectordb

import (
	"context"
	"math"
	"sort"
	"sync"

	"doctalk/internal/domain/entities"
)

// InMemoryStore is a brute-force cosine-similarity vector store. Chunks are
// kept in insertion order so that similarity ties resolve deterministically
// to the earlier-inserted chunk.
type InMemoryStore struct {
	mu     sync.RWMutex
	chunks []entities.Chunk
}

// NewInMemoryStore creates an in-memory vector store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// Store appends chunks with their embeddings.
func (s *InMemoryStore) Store(ctx context.Context, chunks []entities.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(s.chunks, chunks...)
	return nil
}

// Search returns the topK most similar chunks, ordered by descending
// similarity with ties broken by insertion order.
func (s *InMemoryStore) Search(ctx context.Context, embedding []float32, topK int) ([]entities.RetrievalHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		chunk entities.Chunk
		score float64
	}

	results := make([]scored, 0, len(s.chunks))
	for _, chunk := range s.chunks {
		results = append(results, scored{chunk: chunk, score: cosineSimilarity(embedding, chunk.Embedding)})
	}

	// Stable keeps insertion order among equal scores.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})

	if len(results) > topK {
		results = results[:topK]
	}

	hits := make([]entities.RetrievalHit, len(results))
	for i, r := range results {
		hits[i] = entities.RetrievalHit{
			Content:  r.chunk.Content,
			SourceID: r.chunk.SourceID,
			Rank:     i,
			Score:    r.score,
		}
	}
	return hits, nil
}

// Count reports the number of stored chunks.
func (s *InMemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}

// Clear removes all chunks. Clearing an empty store is a no-op.
func (s *InMemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = nil
	return nil
}

// cosineSimilarity calculates cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
