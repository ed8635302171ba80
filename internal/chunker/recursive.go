// Package chunker splits page text into fixed-size overlapping windows.
package chunker

import (
	"fmt"
	"strings"

	"docintel/internal/domain"
)

// DefaultSize is the default number of characters per chunk.
const DefaultSize = 1000

// DefaultOverlap is the default number of overlapping characters.
const DefaultOverlap = 200

// Recursive splits text with a sliding window of size characters and
// overlap characters of overlap, preferring to cut at a paragraph break,
// then a line break, then a word break, before falling back to a hard
// cut at exactly size characters. Only boundaries in the second half of
// the window are considered so no chunk degenerates to a few characters.
type Recursive struct {
	size    int
	overlap int
}

func New(size, overlap int) (*Recursive, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrConfiguration, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: chunk overlap must be in [0, size), got %d", domain.ErrConfiguration, overlap)
	}
	return &Recursive{size: size, overlap: overlap}, nil
}

// Split chunks each page independently. Chunk indices increase in page
// order within a source and IDs are derived from source and index, so
// re-running Split on the same input yields an identical sequence.
func (c *Recursive) Split(pages []domain.Page) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	indexBySource := make(map[string]int)
	for _, p := range pages {
		if strings.TrimSpace(p.Text) == "" {
			continue
		}
		for _, text := range c.windows([]rune(p.Text)) {
			idx := indexBySource[p.Source]
			indexBySource[p.Source] = idx + 1
			chunks = append(chunks, domain.Chunk{
				ID:        fmt.Sprintf("%s:%d", p.Source, idx),
				Source:    p.Source,
				PageIndex: p.PageIndex,
				Index:     idx,
				Text:      text,
			})
		}
	}
	return chunks, nil
}

func (c *Recursive) windows(runes []rune) []string {
	n := len(runes)
	var out []string
	start := 0
	for start < n {
		end := start + c.size
		if end >= n {
			out = append(out, string(runes[start:n]))
			break
		}
		cut := c.cutPoint(runes, start, end)
		out = append(out, string(runes[start:cut]))
		next := cut - c.overlap
		if next <= start {
			// overlap would stall the window; force progress
			next = start + 1
		}
		start = next
	}
	return out
}

// cutPoint returns the index one past the best boundary in (floor, end],
// where floor is the midpoint of the window. The returned chunk keeps the
// separator so every character stays covered by at least one chunk.
func (c *Recursive) cutPoint(runes []rune, start, end int) int {
	floor := start + c.size/2
	for i := end; i > floor; i-- {
		if i >= 2 && runes[i-1] == '\n' && runes[i-2] == '\n' {
			return i
		}
	}
	for i := end; i > floor; i-- {
		if runes[i-1] == '\n' {
			return i
		}
	}
	for i := end; i > floor; i-- {
		if runes[i-1] == ' ' {
			return i
		}
	}
	return end
}
