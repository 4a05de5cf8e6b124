package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"doctalk/internal/domain/entities"
	"doctalk/internal/domain/ports"
)

const (
	// DefaultTopK is the number of chunks retrieved per question.
	DefaultTopK = 5

	// RefusalPhrase is the exact sentence the generator is instructed to
	// emit when the answer is not grounded in the retrieved context. The
	// meta-question fallback keys off a literal match.
	RefusalPhrase = "I cannot answer this based on the provided documents."

	// EmptyIndexAnswer is returned without touching the embedding or
	// generation services when the store holds no chunks.
	EmptyIndexAnswer = "Please add some documents first."

	// GenericFailureAnswer shields the user from malformed generator
	// output.
	GenericFailureAnswer = "Sorry, I encountered an error while generating the answer."
)

// metaQuestions are the canonical "what is this site" phrasings that may be
// answered from stored page metadata when the generator refuses.
var metaQuestions = map[string]struct{}{
	"what is this website?": {},
	"what's this website?":  {},
	"what site is this?":    {},
	"what is this site?":    {},
	"describe this website": {},
	"describe this site":    {},
}

// Answerer embeds a question, retrieves the most similar chunks, builds a
// grounded prompt and extracts an answer from the generator. It reads the
// vector store but never mutates it.
type Answerer struct {
	embedder  ports.EmbeddingService
	store     ports.VectorStore
	generator ports.Generator
	topK      int
}

// NewAnswerer creates an Answerer with injected dependencies.
func NewAnswerer(embedder ports.EmbeddingService, store ports.VectorStore, generator ports.Generator, topK int) *Answerer {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Answerer{
		embedder:  embedder,
		store:     store,
		generator: generator,
		topK:      topK,
	}
}

// Answer resolves a question against the indexed corpus. meta may be nil;
// when present it enables the metadata fallback for recognized
// meta-questions the generator refuses to answer.
func (a *Answerer) Answer(ctx context.Context, question string, meta *entities.PageMeta) (entities.Answer, error) {
	n, err := a.store.Count(ctx)
	if err != nil {
		return entities.Answer{}, fmt.Errorf("counting chunks: %w", err)
	}
	if n == 0 {
		return entities.Answer{Text: EmptyIndexAnswer}, nil
	}

	embedding, err := a.embedder.Embed(ctx, question)
	if err != nil {
		return entities.Answer{}, fmt.Errorf("embedding question: %w", err)
	}

	hits, err := a.store.Search(ctx, embedding, a.topK)
	if err != nil {
		return entities.Answer{}, fmt.Errorf("retrieving chunks: %w", err)
	}

	prompt := buildPrompt(question, hits)
	raw, err := a.generator.Generate(ctx, prompt)
	if err != nil {
		if errors.Is(err, entities.ErrMalformedGeneratorResponse) {
			return entities.Answer{Text: GenericFailureAnswer}, nil
		}
		return entities.Answer{}, fmt.Errorf("generating answer: %w", err)
	}

	if fb, ok := fallbackAnswer(raw, question, meta); ok {
		return entities.Answer{Text: fb, Fallback: true}, nil
	}
	return entities.Answer{Text: strings.TrimSpace(raw)}, nil
}

// buildPrompt assembles the grounded prompt: instruction preamble with the
// refusal phrase, the retrieved chunks in rank order, and the verbatim
// question. The generator must not be able to tell "no relevant chunks"
// from "chunks present but irrelevant" except via these instructions.
func buildPrompt(question string, hits []entities.RetrievalHit) string {
	var sb strings.Builder
	sb.WriteString("Given the following context, answer the question. ")
	sb.WriteString("Only use information from the provided context. ")
	sb.WriteString("Be specific and cite the relevant information from the context. ")
	sb.WriteString("If the answer cannot be found in the context, say \"")
	sb.WriteString(RefusalPhrase)
	sb.WriteString("\"\n\nContext:\n")
	for _, h := range hits {
		sb.WriteString("- ")
		sb.WriteString(h.Content)
		sb.WriteString("\n")
	}
	sb.WriteString("\nQuestion: ")
	sb.WriteString(question)
	sb.WriteString("\n\nThink step by step:\n")
	sb.WriteString("1. Identify relevant information in the context\n")
	sb.WriteString("2. Form a clear and direct answer\n")
	sb.WriteString("3. Only include facts mentioned in the context\n\nAnswer:")
	return sb.String()
}

// fallbackAnswer substitutes a metadata answer when the generator refused,
// a page title is stored, and the question is one of the canonical
// meta-question phrasings.
func fallbackAnswer(raw, question string, meta *entities.PageMeta) (string, bool) {
	if meta == nil || meta.Title == "" {
		return "", false
	}
	if strings.TrimSpace(raw) != RefusalPhrase {
		return "", false
	}
	normalized := strings.ToLower(strings.TrimSpace(question))
	if _, ok := metaQuestions[normalized]; !ok {
		return "", false
	}
	desc := meta.Description
	if desc == "" {
		desc = "No description available."
	}
	return fmt.Sprintf("This website is '%s'. %s", meta.Title, desc), true
}
