package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DocumentsConfig points at the directory of source documents.
type DocumentsConfig struct {
	Directory string `yaml:"directory"`
}

// ChunkerConfig configures how pages are split into chunks. Overlap is
// a pointer so an explicit `overlap: 0` survives defaulting; after Load
// it is never nil.
type ChunkerConfig struct {
	Size    int  `yaml:"size"`
	Overlap *int `yaml:"overlap"`
}

// OverlapValue returns the configured overlap, or zero when unset.
func (c ChunkerConfig) OverlapValue() int {
	if c.Overlap == nil {
		return 0
	}
	return *c.Overlap
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	BatchSize   int    `yaml:"batch_size"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type      string                `yaml:"type"`
	Dimension int                   `yaml:"dimension,omitempty"`
	OpenAI    *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type      string        `yaml:"type"`
	Directory string        `yaml:"directory,omitempty"`
	Qdrant    *QdrantConfig `yaml:"qdrant,omitempty"`
}

// LLMConfig configures the chat-completion client used to generate answers.
// When Type is empty or "none", Ask is unavailable but Search still works.
type LLMConfig struct {
	Type        string `yaml:"type"`
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// RetrieverConfig sets the number of chunks fed to the answer generator.
type RetrieverConfig struct {
	TopK int `yaml:"top_k"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Documents   DocumentsConfig   `yaml:"documents"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	LLM         LLMConfig         `yaml:"llm"`
	Retriever   RetrieverConfig   `yaml:"retriever"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/docintel/config.yaml.
// If neither exists, it writes defaults to ~/.config/docintel/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docintel", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Documents:   DocumentsConfig{Directory: "./data"},
		Chunker:     ChunkerConfig{Size: 1000},
		Embedder:    EmbedderConfig{Type: "hashing", Dimension: 384},
		VectorStore: VectorStoreConfig{Type: "sqlite", Directory: "./index"},
		LLM:         LLMConfig{Type: "openai"},
		Retriever:   RetrieverConfig{TopK: 3},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Documents.Directory == "" {
		cfg.Documents.Directory = "./data"
	}
	if cfg.Chunker.Size == 0 {
		cfg.Chunker.Size = 1000
	}
	if cfg.Chunker.Overlap == nil {
		overlap := 0
		if cfg.Chunker.Size > 200 {
			overlap = 200
		}
		cfg.Chunker.Overlap = &overlap
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "hashing"
	}
	if cfg.Embedder.Type == "hashing" && cfg.Embedder.Dimension == 0 {
		cfg.Embedder.Dimension = 384
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
		if cfg.Embedder.OpenAI.BatchSize == 0 {
			cfg.Embedder.OpenAI.BatchSize = 32
		}
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "sqlite"
	}
	if cfg.VectorStore.Type == "sqlite" && cfg.VectorStore.Directory == "" {
		cfg.VectorStore.Directory = "./index"
	}
	if cfg.LLM.Type == "openai" {
		if cfg.LLM.BaseURL == "" {
			cfg.LLM.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.LLM.APIKeyEnv == "" {
			cfg.LLM.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.LLM.Model == "" {
			cfg.LLM.Model = "gpt-4o-mini"
		}
		if cfg.LLM.TimeoutSecs == 0 {
			cfg.LLM.TimeoutSecs = 60
		}
	}
	if cfg.Retriever.TopK == 0 {
		cfg.Retriever.TopK = 3
	}
}
