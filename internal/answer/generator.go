// Package answer turns retrieved context and a question into a grounded
// natural-language answer via a chat-completion client.
package answer

import (
	"context"
	"fmt"
	"strings"

	"docintel/internal/domain"
)

const systemPrompt = `You are an intelligent document analysis assistant. Your task is to answer questions based on the provided context from enterprise documents.

Guidelines:
- Use ONLY the information provided in the context
- Be accurate and specific in your responses
- If the answer cannot be found in the context, clearly state this
- Provide relevant details and examples when available
- Maintain a professional tone`

// Generator formats retrieved chunks under a fixed instruction template
// and asks the chat model for an answer.
type Generator struct {
	completer domain.ChatCompleter
}

func NewGenerator(completer domain.ChatCompleter) *Generator {
	return &Generator{completer: completer}
}

// Generate produces an answer grounded in the given results, in
// retrieval order. The returned Answer carries the context it used.
func (g *Generator) Generate(ctx context.Context, results []domain.SearchResult, question string) (domain.Answer, error) {
	text, err := g.completer.Complete(ctx, systemPrompt, buildUserPrompt(results, question))
	if err != nil {
		return domain.Answer{}, fmt.Errorf("generating answer: %w", err)
	}
	return domain.Answer{Text: text, Sources: results}, nil
}

func buildUserPrompt(results []domain.SearchResult, question string) string {
	var b strings.Builder
	b.WriteString("Context:\n")
	if len(results) == 0 {
		b.WriteString("(no relevant documents found)\n")
	}
	for i, r := range results {
		fmt.Fprintf(&b, "\n[%d] %s, page %d:\n%s\n", i+1, r.Chunk.Source, r.Chunk.PageIndex+1, r.Chunk.Text)
	}
	b.WriteString("\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\n\nAnswer:")
	return b.String()
}
