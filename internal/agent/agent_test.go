package agent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docintel/internal/chunker"
	"docintel/internal/domain"
	"docintel/internal/embedding/hashing"
	"docintel/internal/loader"
	"docintel/internal/vectorstore/memory"
	"docintel/internal/vectorstore/sqlite"
)

type fakeCompleter struct {
	reply string
	calls int
	err   error
}

func (f *fakeCompleter) Complete(context.Context, string, string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

// countingEmbedder wraps the hashing embedder and counts batch calls so
// tests can assert the fingerprint reuse path skips re-embedding.
type countingEmbedder struct {
	domain.Embedder
	batchCalls int
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.batchCalls++
	return c.Embedder.EmbedBatch(ctx, texts)
}

func writeCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "animals.txt"),
		[]byte("The gopher is a burrowing rodent. Gophers dig extensive tunnel systems."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plants.txt"),
		[]byte("The oak tree grows slowly. Oak wood is dense and durable."), 0o644))
	return dir
}

func newTestAgent(t *testing.T, docsDir string, store domain.VectorStore, completer domain.ChatCompleter) (*Agent, *countingEmbedder) {
	t.Helper()
	return newTestAgentDim(t, docsDir, store, completer, 256)
}

func newTestAgentDim(t *testing.T, docsDir string, store domain.VectorStore, completer domain.ChatCompleter, dimension int) (*Agent, *countingEmbedder) {
	t.Helper()
	base, err := hashing.NewEmbedder(dimension)
	require.NoError(t, err)
	emb := &countingEmbedder{Embedder: base}
	ch, err := chunker.New(200, 40)
	require.NoError(t, err)
	a, err := New(Options{
		Loader:       loader.New(),
		Chunker:      ch,
		Embedder:     emb,
		Store:        store,
		Completer:    completer,
		DocumentsDir: docsDir,
		ChunkSize:    200,
		ChunkOverlap: 40,
		TopK:         3,
	})
	require.NoError(t, err)
	return a, emb
}

func TestNew_RequiresComponents(t *testing.T) {
	_, err := New(Options{})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestAgent_OperationsBeforeInitialize(t *testing.T) {
	a, _ := newTestAgent(t, writeCorpus(t), memory.NewStore(), nil)
	ctx := context.Background()

	_, err := a.Ask(ctx, "anything")
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = a.Search(ctx, "anything", 3)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = a.Stats()
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestAgent_InitializeEmptyDirectoryFailsAndStaysUninitialized(t *testing.T) {
	a, _ := newTestAgent(t, t.TempDir(), memory.NewStore(), nil)
	ctx := context.Background()

	err := a.Initialize(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// still uninitialized
	_, err = a.Search(ctx, "anything", 3)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestAgent_InitializeFailsFastWithoutEmbeddingCalls(t *testing.T) {
	a, emb := newTestAgent(t, filepath.Join(t.TempDir(), "missing"), memory.NewStore(), nil)

	err := a.Initialize(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, emb.batchCalls, "no embedding calls before input validation")
}

func TestAgent_HappyPath(t *testing.T) {
	fc := &fakeCompleter{reply: "Gophers dig tunnels."}
	a, _ := newTestAgent(t, writeCorpus(t), memory.NewStore(), fc)
	ctx := context.Background()

	require.NoError(t, a.Initialize(ctx))

	stats, err := a.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.DocumentsLoaded)
	assert.Greater(t, stats.ChunksCreated, 0)
	assert.False(t, stats.IndexReused)

	results, err := a.Search(ctx, "gopher tunnels", 2)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.LessOrEqual(t, len(results), 2)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
	assert.Equal(t, "animals.txt", results[0].Chunk.Source)

	ans, err := a.Ask(ctx, "What do gophers do?")
	require.NoError(t, err)
	assert.Equal(t, "Gophers dig tunnels.", ans.Text)
	assert.NotEmpty(t, ans.Sources)
	assert.Equal(t, 1, fc.calls)
}

func TestAgent_AskWithoutCompleterIsConfigurationError(t *testing.T) {
	a, _ := newTestAgent(t, writeCorpus(t), memory.NewStore(), nil)
	ctx := context.Background()
	require.NoError(t, a.Initialize(ctx))

	_, err := a.Ask(ctx, "anything")
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestAgent_AskPropagatesCompleterFailure(t *testing.T) {
	fc := &fakeCompleter{err: fmt.Errorf("%w: model offline", domain.ErrExternalService)}
	a, _ := newTestAgent(t, writeCorpus(t), memory.NewStore(), fc)
	ctx := context.Background()
	require.NoError(t, a.Initialize(ctx))

	_, err := a.Ask(ctx, "anything")
	assert.ErrorIs(t, err, domain.ErrExternalService)
}

func TestAgent_FingerprintReuseSkipsEmbedding(t *testing.T) {
	docs := writeCorpus(t)
	indexDir := t.TempDir()
	ctx := context.Background()

	store, err := sqlite.NewStore(indexDir)
	require.NoError(t, err)
	first, emb1 := newTestAgent(t, docs, store, nil)
	require.NoError(t, first.Initialize(ctx))
	assert.Equal(t, 1, emb1.batchCalls)
	firstStats, err := first.Stats()
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := sqlite.NewStore(indexDir)
	require.NoError(t, err)
	defer reopened.Close()
	second, emb2 := newTestAgent(t, docs, reopened, nil)
	require.NoError(t, second.Initialize(ctx))

	stats, err := second.Stats()
	require.NoError(t, err)
	assert.True(t, stats.IndexReused)
	assert.Equal(t, firstStats.ChunksCreated, stats.ChunksCreated)
	assert.Zero(t, emb2.batchCalls, "reuse must skip the embedding pass")

	// queries still work against the reloaded index
	results, err := second.Search(ctx, "oak wood", 2)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "plants.txt", results[0].Chunk.Source)
}

func TestAgent_ChangedEmbedderDimensionRebuildsIndex(t *testing.T) {
	docs := writeCorpus(t)
	indexDir := t.TempDir()
	ctx := context.Background()

	store, err := sqlite.NewStore(indexDir)
	require.NoError(t, err)
	first, _ := newTestAgentDim(t, docs, store, nil, 384)
	require.NoError(t, first.Initialize(ctx))
	require.NoError(t, store.Close())

	// same corpus, same index location, different vector dimension
	reopened, err := sqlite.NewStore(indexDir)
	require.NoError(t, err)
	defer reopened.Close()
	second, emb := newTestAgentDim(t, docs, reopened, nil, 256)
	require.NoError(t, second.Initialize(ctx))

	stats, err := second.Stats()
	require.NoError(t, err)
	assert.False(t, stats.IndexReused, "index built at another dimension must be rebuilt, not reused")
	assert.Equal(t, 1, emb.batchCalls)

	// results come from 256-d vectors scored against 256-d rows
	results, err := second.Search(ctx, "gopher tunnels", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "animals.txt", results[0].Chunk.Source)
}

func TestAgent_ChangedCorpusRebuildsIndex(t *testing.T) {
	docs := writeCorpus(t)
	indexDir := t.TempDir()
	ctx := context.Background()

	store, err := sqlite.NewStore(indexDir)
	require.NoError(t, err)
	first, _ := newTestAgent(t, docs, store, nil)
	require.NoError(t, first.Initialize(ctx))
	require.NoError(t, store.Close())

	// corpus changes under the same index location
	require.NoError(t, os.WriteFile(filepath.Join(docs, "animals.txt"),
		[]byte("The beaver builds dams across streams using felled trees."), 0o644))

	reopened, err := sqlite.NewStore(indexDir)
	require.NoError(t, err)
	defer reopened.Close()
	second, emb := newTestAgent(t, docs, reopened, nil)
	require.NoError(t, second.Initialize(ctx))

	stats, err := second.Stats()
	require.NoError(t, err)
	assert.False(t, stats.IndexReused, "changed corpus must not silently reuse the index")
	assert.Equal(t, 1, emb.batchCalls)

	results, err := second.Search(ctx, "beaver dams", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Chunk.Text, "beaver")
}

func TestAgent_InitializeTwiceIsIdempotent(t *testing.T) {
	a, emb := newTestAgent(t, writeCorpus(t), memory.NewStore(), nil)
	ctx := context.Background()

	require.NoError(t, a.Initialize(ctx))
	require.NoError(t, a.Initialize(ctx))
	assert.Equal(t, 1, emb.batchCalls)
}
