package usecases

import (
	"context"
	"strings"
	"testing"

	"doctalk/internal/domain/entities"
)

// mockEmbedder implements ports.EmbeddingService for testing
type mockEmbedder struct {
	embedCalls int
	embedFn    func(text string) ([]float32, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.embedCalls++
	if m.embedFn != nil {
		return m.embedFn(text)
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))
	for i := range texts {
		emb, err := m.Embed(ctx, texts[i])
		if err != nil {
			return nil, err
		}
		result[i] = emb
	}
	return result, nil
}

// mockVectorStore implements ports.VectorStore for testing
type mockVectorStore struct {
	chunks      []entities.Chunk
	searchCalls int
	storeFn     func(chunks []entities.Chunk) error
}

func (m *mockVectorStore) Store(ctx context.Context, chunks []entities.Chunk) error {
	if m.storeFn != nil {
		return m.storeFn(chunks)
	}
	m.chunks = append(m.chunks, chunks...)
	return nil
}

func (m *mockVectorStore) Search(ctx context.Context, emb []float32, topK int) ([]entities.RetrievalHit, error) {
	m.searchCalls++
	var hits []entities.RetrievalHit
	for i, c := range m.chunks {
		if i >= topK {
			break
		}
		hits = append(hits, entities.RetrievalHit{Content: c.Content, SourceID: c.SourceID, Rank: i, Score: 0.9})
	}
	return hits, nil
}

func (m *mockVectorStore) Count(ctx context.Context) (int, error) {
	return len(m.chunks), nil
}

func (m *mockVectorStore) Clear(ctx context.Context) error {
	m.chunks = nil
	return nil
}

func sevenSentences() string {
	return "One is first. Two follows one. Three is the middle. " +
		"Four comes after three. Five is next. Six is almost last. Seven ends it."
}

func TestIndexer_ChunkOverlap(t *testing.T) {
	ix := NewIndexer(&mockEmbedder{}, &mockVectorStore{}, 3, 1)

	chunks := ix.chunk("src", sevenSentences())

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks for 7 sentences, got %d", len(chunks))
	}

	// Consecutive chunks share exactly one sentence.
	for i := 1; i < len(chunks); i++ {
		prev := strings.Split(chunks[i-1].Content, ". ")
		last := prev[len(prev)-1]
		if !strings.HasPrefix(chunks[i].Content, strings.TrimSuffix(last, ".")) {
			t.Errorf("chunk %d does not start with last sentence of chunk %d: %q vs %q",
				i, i-1, chunks[i].Content, last)
		}
	}

	// Union of chunks covers all seven sentences.
	joined := strings.Join([]string{chunks[0].Content, chunks[1].Content, chunks[2].Content}, " ")
	for _, word := range []string{"One", "Two", "Three", "Four", "Five", "Six", "Seven"} {
		if !strings.Contains(joined, word) {
			t.Errorf("sentence starting with %q missing from chunk union", word)
		}
	}
}

func TestIndexer_OverlapClampedBelowLength(t *testing.T) {
	ix := NewIndexer(&mockEmbedder{}, &mockVectorStore{}, 2, 5)
	if ix.overlapSentences != 1 {
		t.Errorf("overlap should be clamped to 1, got %d", ix.overlapSentences)
	}

	// Must terminate.
	chunks := ix.chunk("src", sevenSentences())
	if len(chunks) == 0 {
		t.Error("expected chunks")
	}
}

func TestIndexer_IndexStoresEmbeddedChunks(t *testing.T) {
	embedder := &mockEmbedder{}
	store := &mockVectorStore{}
	ix := NewIndexer(embedder, store, 3, 1)

	n, err := ix.Index(context.Background(), sevenSentences())
	if err != nil {
		t.Fatalf("index failed: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 chunks indexed, got %d", n)
	}
	for _, c := range store.chunks {
		if len(c.Embedding) == 0 {
			t.Errorf("chunk %s stored without embedding", c.ID)
		}
		if c.SourceID == "" {
			t.Errorf("chunk %s has no source id", c.ID)
		}
	}
}

func TestIndexer_IndexIsAdditive(t *testing.T) {
	store := &mockVectorStore{}
	ix := NewIndexer(&mockEmbedder{}, store, 3, 1)

	if _, err := ix.Index(context.Background(), "First text. More of it."); err != nil {
		t.Fatalf("first index failed: %v", err)
	}
	first := len(store.chunks)
	if _, err := ix.Index(context.Background(), "Second text. More again."); err != nil {
		t.Fatalf("second index failed: %v", err)
	}
	if len(store.chunks) <= first {
		t.Errorf("second index should accumulate, got %d then %d", first, len(store.chunks))
	}
}

func TestIndexer_EmptyInputStoresNothing(t *testing.T) {
	store := &mockVectorStore{}
	ix := NewIndexer(&mockEmbedder{}, store, 3, 1)

	n, err := ix.Index(context.Background(), "   \n  ")
	if err != nil {
		t.Fatalf("index failed: %v", err)
	}
	if n != 0 || len(store.chunks) != 0 {
		t.Errorf("expected nothing stored, got %d chunks", len(store.chunks))
	}
}

func TestIndexer_ClearIsIdempotent(t *testing.T) {
	store := &mockVectorStore{}
	ix := NewIndexer(&mockEmbedder{}, store, 3, 1)

	empty, err := ix.IsEmpty(context.Background())
	if err != nil || !empty {
		t.Fatalf("fresh store should be empty, got %v %v", empty, err)
	}
	if err := ix.Clear(context.Background()); err != nil {
		t.Fatalf("clearing empty store should be a no-op: %v", err)
	}
	empty, _ = ix.IsEmpty(context.Background())
	if !empty {
		t.Error("store should stay empty after clear")
	}

	if _, err := ix.Index(context.Background(), "Some text. And more."); err != nil {
		t.Fatalf("index failed: %v", err)
	}
	if err := ix.Clear(context.Background()); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	empty, _ = ix.IsEmpty(context.Background())
	if !empty {
		t.Error("store should be empty after clear")
	}
}

func TestSplitSentences_NoTerminalPunctuation(t *testing.T) {
	got := splitSentences("just a fragment with no period")
	if len(got) != 1 {
		t.Fatalf("expected single sentence, got %d", len(got))
	}
}

func TestSplitSentences_KeepsUnpunctuatedTail(t *testing.T) {
	got := splitSentences("First point. Second point without a period")
	if len(got) != 2 {
		t.Fatalf("trailing text must not be dropped: got %d sentences %v", len(got), got)
	}
	if got[0] != "First point." {
		t.Errorf("first sentence = %q", got[0])
	}
	if got[1] != "Second point without a period" {
		t.Errorf("tail sentence = %q", got[1])
	}
}

func TestIndexer_TrailingTextIsIndexed(t *testing.T) {
	store := &mockVectorStore{}
	ix := NewIndexer(&mockEmbedder{}, store, 3, 1)

	if _, err := ix.Index(context.Background(), "Only sentence. Trailing fragment"); err != nil {
		t.Fatalf("index failed: %v", err)
	}
	var combined string
	for _, c := range store.chunks {
		combined += c.Content + " "
	}
	if !strings.Contains(combined, "Trailing fragment") {
		t.Errorf("trailing fragment missing from indexed chunks: %q", combined)
	}
}
