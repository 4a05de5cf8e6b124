// Package entities contains core business entities.
// These are the enterprise business rules - pure domain objects with no external dependencies.
package entities

// Chunk is a bounded span of text stored with its vector representation
// for similarity search.
type Chunk struct {
	ID        string
	SourceID  string // identifies the ingestion call this chunk came from
	Content   string
	Index     int // position within the source text
	Embedding []float32
}

// RetrievalHit is one result of a similarity query. Rank is the ordinal
// position in descending-similarity order; prompt construction depends on
// the rank, not on the raw score.
type RetrievalHit struct {
	Content  string
	SourceID string
	Rank     int
	Score    float64
}

// Answer is the final response to a question. Never persisted.
type Answer struct {
	Text string
	// Fallback reports that the text was composed from page metadata
	// instead of the generator output.
	Fallback bool
}

// PageContent is the normalized form of a fetched web page.
type PageContent struct {
	Title       string
	Description string
	Text        string // newline-joined title, description and body candidate
}

// PageMeta is the per-session fallback state captured from the most
// recently ingested web page.
type PageMeta struct {
	Title       string
	Description string
}
