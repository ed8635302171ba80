// Package agent wires the loader, chunker, embedder, vector store and
// answer generator into the document intelligence pipeline.
package agent

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sync"
	"time"

	"docintel/internal/answer"
	"docintel/internal/domain"
	"docintel/internal/logger"
)

// Options carries the components and parameters the agent runs with.
// Completer may be nil, in which case Search works but Ask reports a
// configuration error.
type Options struct {
	Loader       domain.Loader
	Chunker      domain.Chunker
	Embedder     domain.Embedder
	Store        domain.VectorStore
	Completer    domain.ChatCompleter
	DocumentsDir string
	ChunkSize    int
	ChunkOverlap int
	TopK         int
}

// Agent sequences the ingest pipeline once at initialization and then
// answers questions against the built index. It has two states:
// uninitialized and ready. There is no transition back.
//
// The agent holds no per-conversation state; chat history belongs to
// the presentation layer.
type Agent struct {
	opts      Options
	generator *answer.Generator

	mu    sync.RWMutex
	ready bool
	stats domain.Stats
}

// New validates the wiring and returns an uninitialized agent.
func New(opts Options) (*Agent, error) {
	if opts.Loader == nil || opts.Chunker == nil || opts.Embedder == nil || opts.Store == nil {
		return nil, fmt.Errorf("%w: loader, chunker, embedder and store are required", domain.ErrConfiguration)
	}
	if opts.DocumentsDir == "" {
		return nil, fmt.Errorf("%w: documents directory not set", domain.ErrConfiguration)
	}
	if opts.TopK <= 0 {
		opts.TopK = 3
	}
	a := &Agent{opts: opts}
	if opts.Completer != nil {
		a.generator = answer.NewGenerator(opts.Completer)
	}
	return a, nil
}

// Initialize loads documents, chunks them, embeds the chunks and stores
// the vectors. If the store already holds an index built from the same
// corpus and parameters (by fingerprint), the embedding pass is skipped
// and the stored index is reused. Any failure leaves the agent
// uninitialized and is propagated to the caller.
func (a *Agent) Initialize(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ready {
		return nil
	}
	start := time.Now()

	done := logger.Stage("loading documents")
	pages, err := a.opts.Loader.Load(a.opts.DocumentsDir)
	if err != nil {
		return err
	}
	done()
	logger.Info("loaded %d pages from %s", len(pages), a.opts.DocumentsDir)

	fp := a.fingerprint(pages)
	stored, err := a.opts.Store.Fingerprint(ctx)
	if err != nil {
		return fmt.Errorf("reading index fingerprint: %w", err)
	}
	count, err := a.opts.Store.Count(ctx)
	if err != nil {
		return fmt.Errorf("counting indexed chunks: %w", err)
	}

	if stored == fp && count > 0 {
		logger.Info("reusing persisted index (%d chunks, fingerprint %s)", count, fp[:12])
		a.stats = domain.Stats{
			DocumentsLoaded: len(pages),
			ChunksCreated:   count,
			ProcessingTime:  time.Since(start),
			IndexReused:     true,
		}
		a.ready = true
		return nil
	}

	done = logger.Stage("chunking")
	chunks, err := a.opts.Chunker.Split(pages)
	if err != nil {
		return err
	}
	done()
	if len(chunks) == 0 {
		return fmt.Errorf("%w: documents contained no text to index", domain.ErrNotFound)
	}
	logger.Info("created %d chunks", len(chunks))

	done = logger.Stage("embedding")
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := a.opts.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}
	done()

	done = logger.Stage("indexing")
	if count > 0 || stored != "" {
		logger.Info("index is stale, rebuilding")
	}
	if err := a.opts.Store.Clear(ctx); err != nil {
		return fmt.Errorf("clearing stale index: %w", err)
	}
	if err := a.opts.Store.Init(ctx, len(vectors[0])); err != nil {
		return fmt.Errorf("initializing index: %w", err)
	}
	if err := a.opts.Store.Upsert(ctx, chunks, vectors); err != nil {
		return fmt.Errorf("storing vectors: %w", err)
	}
	if err := a.opts.Store.SetFingerprint(ctx, fp); err != nil {
		return fmt.Errorf("recording index fingerprint: %w", err)
	}
	done()

	a.stats = domain.Stats{
		DocumentsLoaded: len(pages),
		ChunksCreated:   len(chunks),
		ProcessingTime:  time.Since(start),
	}
	a.ready = true
	return nil
}

// Ask retrieves the most relevant chunks for the question and generates
// a grounded answer. Valid only after Initialize.
func (a *Agent) Ask(ctx context.Context, question string) (domain.Answer, error) {
	if !a.isReady() {
		return domain.Answer{}, domain.ErrInvalidState
	}
	if a.generator == nil {
		return domain.Answer{}, fmt.Errorf("%w: no chat model configured", domain.ErrConfiguration)
	}
	results, err := a.Search(ctx, question, a.opts.TopK)
	if err != nil {
		return domain.Answer{}, err
	}
	return a.generator.Generate(ctx, results, question)
}

// Search embeds the query and returns up to topK chunks ordered by
// decreasing similarity. Valid only after Initialize.
func (a *Agent) Search(ctx context.Context, query string, topK int) ([]domain.SearchResult, error) {
	if !a.isReady() {
		return nil, domain.ErrInvalidState
	}
	if topK <= 0 {
		topK = a.opts.TopK
	}
	vec, err := a.opts.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return a.opts.Store.Search(ctx, vec, topK)
}

// Stats returns the initialization statistics.
func (a *Agent) Stats() (domain.Stats, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if !a.ready {
		return domain.Stats{}, domain.ErrInvalidState
	}
	return a.stats, nil
}

func (a *Agent) isReady() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.ready
}

// fingerprint identifies the corpus contents and the parameters that
// shape the index. A persisted index is reused only when this matches.
func (a *Agent) fingerprint(pages []domain.Page) string {
	h := sha256.New()
	fmt.Fprintf(h, "chunk:%d/%d\n", a.opts.ChunkSize, a.opts.ChunkOverlap)
	fmt.Fprintf(h, "embedder:%s\n", a.opts.Embedder.Name())
	for _, p := range pages {
		fmt.Fprintf(h, "%s:%d:", p.Source, p.PageIndex)
		io.WriteString(h, p.Text)
		io.WriteString(h, "\n")
	}
	return hex.EncodeToString(h.Sum(nil))
}
