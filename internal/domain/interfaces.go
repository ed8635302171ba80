package domain

import "context"

// Loader reads source files from a directory and emits their pages.
type Loader interface {
	Load(dir string) ([]Page, error)
}

// Chunker splits pages into chunks suitable for retrieval indexing.
type Chunker interface {
	Split(pages []Page) ([]Chunk, error)
}

// Embedder converts free text into a numeric vector representation.
// Name must uniquely determine the vector space, dimension included:
// persisted indexes are keyed on it, and two embedders with equal names
// must produce compatible vectors.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore persists vectors and supports similarity search.
// Fingerprint identifies the corpus and parameters the stored index was
// built from; an empty string means the store holds no usable index.
type VectorStore interface {
	Init(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, chunks []Chunk, vectors [][]float32) error
	Search(ctx context.Context, vector []float32, topK int) ([]SearchResult, error)
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int, error)
	Fingerprint(ctx context.Context) (string, error)
	SetFingerprint(ctx context.Context, fp string) error
}

// ChatCompleter produces a chat completion for a system/user prompt pair.
type ChatCompleter interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Agent defines the operations exposed to the presentation layer.
type Agent interface {
	Initialize(ctx context.Context) error
	Ask(ctx context.Context, question string) (Answer, error)
	Search(ctx context.Context, query string, topK int) ([]SearchResult, error)
	Stats() (Stats, error)
}
