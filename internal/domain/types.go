package domain

import "time"

// Page is one page of text extracted from a source file.
// Pages are transient: they exist between loading and chunking only.
type Page struct {
	Source    string
	PageIndex int
	Text      string
}

// Chunk is a bounded slice of page text used as the unit of embedding
// and retrieval. Index preserves the original order within a source.
type Chunk struct {
	ID        string
	Source    string
	PageIndex int
	Index     int
	Text      string
}

// SearchResult is a matching chunk with its similarity score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// Answer is a generated response together with the retrieved context
// that grounded it.
type Answer struct {
	Text    string
	Sources []SearchResult
}

// Stats describes what happened during initialization.
type Stats struct {
	DocumentsLoaded int
	ChunksCreated   int
	ProcessingTime  time.Duration
	IndexReused     bool
}
