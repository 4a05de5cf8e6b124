package usecases

import (
	"context"
	"strings"
	"testing"

	"doctalk/internal/domain/entities"
)

// mockGenerator implements ports.Generator for testing
type mockGenerator struct {
	response      string
	err           error
	generateCalls int
	lastPrompt    string
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	m.generateCalls++
	m.lastPrompt = prompt
	if m.err != nil {
		return "", m.err
	}
	if m.response != "" {
		return m.response, nil
	}
	return "mocked answer", nil
}

func storeWith(contents ...string) *mockVectorStore {
	s := &mockVectorStore{}
	for i, c := range contents {
		s.chunks = append(s.chunks, entities.Chunk{ID: c, SourceID: "src", Content: c, Index: i})
	}
	return s
}

func TestAnswerer_ReturnsGeneratorAnswer(t *testing.T) {
	gen := &mockGenerator{response: "The answer is here"}
	a := NewAnswerer(&mockEmbedder{}, storeWith("relevant context"), gen, 5)

	ans, err := a.Answer(context.Background(), "what is this?", nil)
	if err != nil {
		t.Fatalf("answer failed: %v", err)
	}
	if ans.Text != "The answer is here" {
		t.Errorf("unexpected answer: %s", ans.Text)
	}
	if ans.Fallback {
		t.Error("should not be a fallback answer")
	}
}

func TestAnswerer_EmptyIndexShortCircuits(t *testing.T) {
	embedder := &mockEmbedder{}
	store := &mockVectorStore{}
	gen := &mockGenerator{}
	a := NewAnswerer(embedder, store, gen, 5)

	ans, err := a.Answer(context.Background(), "anything", nil)
	if err != nil {
		t.Fatalf("answer failed: %v", err)
	}
	if ans.Text != EmptyIndexAnswer {
		t.Errorf("expected empty-index answer, got %q", ans.Text)
	}
	if embedder.embedCalls != 0 {
		t.Errorf("embedder should not be called on empty index, got %d calls", embedder.embedCalls)
	}
	if store.searchCalls != 0 {
		t.Errorf("store should not be searched on empty index, got %d calls", store.searchCalls)
	}
	if gen.generateCalls != 0 {
		t.Errorf("generator should not be called on empty index, got %d calls", gen.generateCalls)
	}
}

func TestAnswerer_PromptContainsChunksAndQuestion(t *testing.T) {
	gen := &mockGenerator{response: "ok"}
	a := NewAnswerer(&mockEmbedder{}, storeWith("alpha facts", "beta facts"), gen, 5)

	if _, err := a.Answer(context.Background(), "what about alpha?", nil); err != nil {
		t.Fatalf("answer failed: %v", err)
	}

	p := gen.lastPrompt
	if !strings.Contains(p, RefusalPhrase) {
		t.Error("prompt missing refusal instruction")
	}
	if !strings.Contains(p, "- alpha facts") || !strings.Contains(p, "- beta facts") {
		t.Error("prompt missing enumerated chunks")
	}
	if !strings.Contains(p, "Question: what about alpha?") {
		t.Error("prompt missing verbatim question")
	}
	if strings.Index(p, "alpha facts") > strings.Index(p, "beta facts") {
		t.Error("chunks must appear in rank order")
	}
}

func TestAnswerer_MalformedResponseYieldsGenericAnswer(t *testing.T) {
	gen := &mockGenerator{err: entities.ErrMalformedGeneratorResponse}
	a := NewAnswerer(&mockEmbedder{}, storeWith("ctx"), gen, 5)

	ans, err := a.Answer(context.Background(), "q?", nil)
	if err != nil {
		t.Fatalf("malformed response must not surface as error: %v", err)
	}
	if ans.Text != GenericFailureAnswer {
		t.Errorf("expected generic failure answer, got %q", ans.Text)
	}
}

func TestAnswerer_MetaFallback(t *testing.T) {
	meta := &entities.PageMeta{
		Title:       "Example Domain",
		Description: "This domain is for illustrative examples",
	}
	gen := &mockGenerator{response: RefusalPhrase}
	a := NewAnswerer(&mockEmbedder{}, storeWith("unrelated text"), gen, 5)

	ans, err := a.Answer(context.Background(), "What is this site?", meta)
	if err != nil {
		t.Fatalf("answer failed: %v", err)
	}
	if !ans.Fallback {
		t.Error("expected fallback answer")
	}
	if !strings.Contains(ans.Text, "Example Domain") {
		t.Errorf("fallback should contain title, got %q", ans.Text)
	}
	if !strings.Contains(ans.Text, "This domain is for illustrative examples") {
		t.Errorf("fallback should contain description, got %q", ans.Text)
	}
}

func TestAnswerer_MetaFallbackConditions(t *testing.T) {
	meta := &entities.PageMeta{Title: "Example Domain"}

	tests := []struct {
		name     string
		response string
		question string
		meta     *entities.PageMeta
		fallback bool
	}{
		{"refusal plus meta question", RefusalPhrase, "what is this website?", meta, true},
		{"case insensitive question", RefusalPhrase, "  WHAT IS THIS SITE?  ", meta, true},
		{"non-meta question", RefusalPhrase, "who wrote this?", meta, false},
		{"non-refusal answer", "A real answer.", "what is this site?", meta, false},
		{"no stored title", RefusalPhrase, "what is this site?", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &mockGenerator{response: tt.response}
			a := NewAnswerer(&mockEmbedder{}, storeWith("ctx"), gen, 5)

			ans, err := a.Answer(context.Background(), tt.question, tt.meta)
			if err != nil {
				t.Fatalf("answer failed: %v", err)
			}
			if ans.Fallback != tt.fallback {
				t.Errorf("fallback = %v, want %v (answer %q)", ans.Fallback, tt.fallback, ans.Text)
			}
		})
	}
}

func TestAnswerer_MissingDescriptionUsesPlaceholder(t *testing.T) {
	meta := &entities.PageMeta{Title: "Example Domain"}
	gen := &mockGenerator{response: RefusalPhrase}
	a := NewAnswerer(&mockEmbedder{}, storeWith("ctx"), gen, 5)

	ans, err := a.Answer(context.Background(), "describe this site", meta)
	if err != nil {
		t.Fatalf("answer failed: %v", err)
	}
	if !strings.Contains(ans.Text, "No description available.") {
		t.Errorf("expected placeholder description, got %q", ans.Text)
	}
}
