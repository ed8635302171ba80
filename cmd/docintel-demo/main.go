// Command docintel-demo runs the agent non-interactively against a
// document directory: it prints the ingest statistics, a sample search
// and, when a chat model is configured, answers to a set of demo
// questions. It works offline with the hashing embedder and the
// in-memory store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"docintel/internal/agent"
	"docintel/internal/chunker"
	"docintel/internal/domain"
	"docintel/internal/embedding/hashing"
	"docintel/internal/llm"
	"docintel/internal/loader"
	"docintel/internal/logger"
	"docintel/internal/vectorstore/memory"
)

var demoQuestions = []string{
	"What is the main topic discussed in the documents?",
	"What are the key findings or conclusions?",
	"Are there any statistics or data mentioned?",
	"What recommendations are provided?",
}

func main() {
	_ = godotenv.Load()

	var dataDir string
	var verbose bool
	flag.StringVar(&dataDir, "data", "./data", "Directory of documents to index")
	flag.BoolVar(&verbose, "verbose", false, "Print pipeline progress to stderr")
	flag.Parse()
	logger.SetVerbose(verbose)

	emb, err := hashing.NewEmbedder(hashing.DefaultDimension)
	if err != nil {
		log.Fatal(err)
	}
	ch, err := chunker.New(chunker.DefaultSize, chunker.DefaultOverlap)
	if err != nil {
		log.Fatal(err)
	}

	var completer domain.ChatCompleter
	if os.Getenv("OPENAI_API_KEY") != "" {
		c, err := llm.NewClient(llm.Config{Timeout: 60 * time.Second})
		if err != nil {
			log.Fatal(err)
		}
		completer = c
	}

	a, err := agent.New(agent.Options{
		Loader:       loader.New(),
		Chunker:      ch,
		Embedder:     emb,
		Store:        memory.NewStore(),
		Completer:    completer,
		DocumentsDir: dataDir,
		ChunkSize:    chunker.DefaultSize,
		ChunkOverlap: chunker.DefaultOverlap,
		TopK:         3,
	})
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	if err := a.Initialize(ctx); err != nil {
		log.Fatalf("initialization failed: %v", err)
	}

	stats, err := a.Stats()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Documents loaded:  %d\n", stats.DocumentsLoaded)
	fmt.Printf("Chunks created:    %d\n", stats.ChunksCreated)
	fmt.Printf("Processing time:   %s\n", stats.ProcessingTime.Round(time.Millisecond))

	for i, q := range demoQuestions {
		fmt.Printf("\n[%d] Q: %s\n", i+1, q)
		ans, err := a.Ask(ctx, q)
		switch {
		case errors.Is(err, domain.ErrConfiguration):
			// No chat model available; show retrieval results instead.
			results, serr := a.Search(ctx, q, 3)
			if serr != nil {
				log.Fatalf("search failed: %v", serr)
			}
			fmt.Println("    (no chat model configured; top matches)")
			for _, r := range results {
				fmt.Printf("    %.3f  %s p.%d  %s\n", r.Score, r.Chunk.Source, r.Chunk.PageIndex+1, snippet(r.Chunk.Text))
			}
		case err != nil:
			log.Fatalf("ask failed: %v", err)
		default:
			fmt.Printf("    A: %s\n", ans.Text)
		}
	}
}

func snippet(s string) string {
	const n = 80
	runes := []rune(s)
	if len(runes) <= n {
		return string(runes)
	}
	return string(runes[:n]) + "..."
}
