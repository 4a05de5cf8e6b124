// Package ports defines interfaces for external dependencies.
// Usecases depend on these abstractions, not concrete implementations;
// adapters implement them.
package ports

import (
	"context"

	"doctalk/internal/domain/entities"
)

// EmbeddingService generates vector embeddings for text.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces an answer string from a fully built prompt.
// Backend-specific response unwrapping lives in the adapters; usecases only
// ever see a plain string or an error.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// SpeechSynthesizer converts answer text into a compressed audio byte
// stream. No retry logic; failures propagate to the session boundary.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// VectorStore persists and queries chunk embeddings.
type VectorStore interface {
	// Store saves chunks with their embeddings. Additive: repeated calls
	// accumulate.
	Store(ctx context.Context, chunks []entities.Chunk) error

	// Search returns the topK chunks by descending similarity. Ties are
	// broken by insertion order.
	Search(ctx context.Context, embedding []float32, topK int) ([]entities.RetrievalHit, error)

	// Count reports the number of stored chunks.
	Count(ctx context.Context) (int, error)

	// Clear removes every chunk. Clearing an empty store is a no-op.
	Clear(ctx context.Context) error
}

// DocumentExtractor turns uploaded file bytes into plain text, dispatching
// on the declared filename's extension.
type DocumentExtractor interface {
	Extract(ctx context.Context, data []byte, filename string) (string, error)
}

// PageExtractor normalizes raw HTML into text plus fallback metadata.
// Title and description are populated even when the extraction fails the
// minimum-content guard, so callers can capture them before rejecting.
type PageExtractor interface {
	ExtractPage(html string) (entities.PageContent, error)
}

// PageFetcher retrieves the raw HTML of a web page.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// FileWatcher monitors a directory for changes.
type FileWatcher interface {
	// Watch starts monitoring the directory and emits events.
	Watch(ctx context.Context, dir string) (<-chan FileEvent, error)

	// Stop stops the watcher.
	Stop() error
}

// FileEvent represents a file system change.
type FileEvent struct {
	Path      string
	Operation FileOperation
}

// FileOperation is the type of file change.
type FileOperation int

const (
	FileCreated FileOperation = iota
	FileModified
	FileDeleted
)
