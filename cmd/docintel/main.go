package main

import (
	"context"
	"flag"
	"io"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"docintel/internal/agent"
	"docintel/internal/chunker"
	"docintel/internal/config"
	"docintel/internal/domain"
	"docintel/internal/embedding/hashing"
	"docintel/internal/embedding/openai"
	"docintel/internal/llm"
	"docintel/internal/loader"
	"docintel/internal/logger"
	"docintel/internal/tui"
	"docintel/internal/vectorstore/memory"
	"docintel/internal/vectorstore/qdrant"
	"docintel/internal/vectorstore/sqlite"
)

func main() {
	_ = godotenv.Load()

	var cfgPath, dataDir string
	var verbose bool
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/docintel/config.yaml if not provided)")
	flag.StringVar(&dataDir, "data", "", "Directory of documents to index (overrides config)")
	flag.BoolVar(&verbose, "verbose", false, "Print pipeline progress to stderr")
	flag.Parse()
	logger.SetVerbose(verbose)

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if dataDir != "" {
		cfg.Documents.Directory = dataDir
	}

	a, closer, err := assemble(cfg)
	if err != nil {
		log.Fatalf("failed to assemble agent: %v", err)
	}
	if closer != nil {
		defer closer.Close()
	}

	if err := a.Initialize(context.Background()); err != nil {
		log.Fatalf("initialization failed: %v", err)
	}

	m := tui.New(a)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		log.Fatal(err)
	}
}

func assemble(cfg *config.AppConfig) (*agent.Agent, io.Closer, error) {
	var emb domain.Embedder
	var err error
	switch cfg.Embedder.Type {
	case "hashing", "":
		emb, err = hashing.NewEmbedder(cfg.Embedder.Dimension)
	case "openai":
		emb, err = openai.NewClient(openai.Config{
			BaseURL:   cfg.Embedder.OpenAI.BaseURL,
			APIKeyEnv: cfg.Embedder.OpenAI.APIKeyEnv,
			Model:     cfg.Embedder.OpenAI.Model,
			Timeout:   time.Duration(cfg.Embedder.OpenAI.TimeoutSecs) * time.Second,
			BatchSize: cfg.Embedder.OpenAI.BatchSize,
		})
	default:
		log.Fatalf("unknown embedder: %s", cfg.Embedder.Type)
	}
	if err != nil {
		return nil, nil, err
	}

	ch, err := chunker.New(cfg.Chunker.Size, cfg.Chunker.OverlapValue())
	if err != nil {
		return nil, nil, err
	}

	var st domain.VectorStore
	var closer io.Closer
	switch cfg.VectorStore.Type {
	case "sqlite", "":
		s, err := sqlite.NewStore(cfg.VectorStore.Directory)
		if err != nil {
			return nil, nil, err
		}
		st = s
		closer = s
	case "memory":
		st = memory.NewStore()
	case "qdrant":
		if cfg.VectorStore.Qdrant == nil {
			log.Fatalf("qdrant config missing")
		}
		st = qdrant.NewStore(qdrant.Config{
			URL:        cfg.VectorStore.Qdrant.URL,
			APIKey:     cfg.VectorStore.Qdrant.APIKey,
			Collection: cfg.VectorStore.Qdrant.Collection,
			Timeout:    time.Duration(cfg.VectorStore.Qdrant.TimeoutSecs) * time.Second,
		})
	default:
		log.Fatalf("unknown vector store: %s", cfg.VectorStore.Type)
	}

	var completer domain.ChatCompleter
	switch cfg.LLM.Type {
	case "openai":
		c, err := llm.NewClient(llm.Config{
			BaseURL:   cfg.LLM.BaseURL,
			APIKeyEnv: cfg.LLM.APIKeyEnv,
			Model:     cfg.LLM.Model,
			Timeout:   time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, nil, err
		}
		completer = c
	case "none", "":
		// Search-only mode; Ask will report a configuration error.
	default:
		log.Fatalf("unknown llm: %s", cfg.LLM.Type)
	}

	a, err := agent.New(agent.Options{
		Loader:       loader.New(),
		Chunker:      ch,
		Embedder:     emb,
		Store:        st,
		Completer:    completer,
		DocumentsDir: cfg.Documents.Directory,
		ChunkSize:    cfg.Chunker.Size,
		ChunkOverlap: cfg.Chunker.OverlapValue(),
		TopK:         cfg.Retriever.TopK,
	})
	if err != nil {
		return nil, nil, err
	}
	return a, closer, nil
}
