package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "./data", cfg.Documents.Directory)
	assert.Equal(t, 1000, cfg.Chunker.Size)
	assert.Equal(t, 200, cfg.Chunker.OverlapValue())
	assert.Equal(t, "hashing", cfg.Embedder.Type)
	assert.Equal(t, 384, cfg.Embedder.Dimension)
	assert.Equal(t, "sqlite", cfg.VectorStore.Type)
	assert.Equal(t, 3, cfg.Retriever.TopK)
}

func TestLoad_AppliesOpenAIDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
embedder:
  type: openai
llm:
  type: openai
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.NotNil(t, cfg.Embedder.OpenAI)
	assert.Equal(t, "https://api.openai.com/v1", cfg.Embedder.OpenAI.BaseURL)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Embedder.OpenAI.APIKeyEnv)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedder.OpenAI.Model)
	assert.Equal(t, 30, cfg.Embedder.OpenAI.TimeoutSecs)
	assert.Equal(t, 32, cfg.Embedder.OpenAI.BatchSize)

	assert.Equal(t, "https://api.openai.com/v1", cfg.LLM.BaseURL)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, 60, cfg.LLM.TimeoutSecs)
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	cfg.Documents.Directory = "/srv/docs"
	cfg.Chunker.Size = 512
	overlap := 64
	cfg.Chunker.Overlap = &overlap

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/docs", loaded.Documents.Directory)
	assert.Equal(t, 512, loaded.Chunker.Size)
	assert.Equal(t, 64, loaded.Chunker.OverlapValue())
}

func TestLoad_ExplicitZeroOverlapIsKept(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
chunker:
  size: 1000
  overlap: 0
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Chunker.Overlap)
	assert.Zero(t, cfg.Chunker.OverlapValue(), "overlap: 0 must not be rewritten to the default")
}

func TestLoad_OmittedOverlapGetsDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
chunker:
  size: 1000
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 200, cfg.Chunker.OverlapValue())
}

func TestLoad_MalformedYAMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(": not yaml : ["), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
