// Package loader reads source documents from a directory and emits
// their pages for chunking.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"docintel/internal/domain"
	"docintel/internal/logger"
)

// DirectoryLoader loads every supported file in a directory,
// non-recursively, in lexicographic file-name order so downstream chunk
// indices are reproducible across runs.
//
// Supported: .pdf (one Page per PDF page), .txt (a single page).
type DirectoryLoader struct{}

func New() *DirectoryLoader { return &DirectoryLoader{} }

func (l *DirectoryLoader) Load(dir string) ([]domain.Page, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: document directory %q does not exist", domain.ErrNotFound, dir)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading document directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".pdf", ".txt":
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no supported documents in %q", domain.ErrNotFound, dir)
	}
	sort.Strings(names)

	var pages []domain.Page
	for _, name := range names {
		path := filepath.Join(dir, name)
		var (
			loaded []domain.Page
			err    error
		)
		if strings.EqualFold(filepath.Ext(name), ".pdf") {
			loaded, err = loadPDF(path, name)
		} else {
			loaded, err = loadText(path, name)
		}
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", name, err)
		}
		logger.Debug("loaded %s (%d pages)", name, len(loaded))
		pages = append(pages, loaded...)
	}
	return pages, nil
}

func loadPDF(path, name string) ([]domain.Page, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	total := r.NumPage()
	pages := make([]domain.Page, 0, total)
	for i := 1; i <= total; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			// A single unreadable page should not sink the whole file.
			logger.Warn("%s page %d: %v", name, i, err)
			text = ""
		}
		pages = append(pages, domain.Page{Source: name, PageIndex: i - 1, Text: text})
	}
	return pages, nil
}

func loadText(path, name string) ([]domain.Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return []domain.Page{{Source: name, PageIndex: 0, Text: string(data)}}, nil
}
