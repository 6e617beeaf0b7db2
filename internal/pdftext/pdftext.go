// Package pdftext extracts plain text from in-memory PDF documents.
package pdftext

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrEmptyDocument is returned for zero-length input.
var ErrEmptyDocument = errors.New("empty PDF content")

// Extractor converts PDF bytes into per-page text.
type Extractor struct{}

// NewExtractor creates a PDF text extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Pages returns the text of every page in order. Pages without a content
// stream, or whose text cannot be decoded, yield "".
func (e *Extractor) Pages(data []byte) (pages []string, err error) {
	if len(data) == 0 {
		return nil, ErrEmptyDocument
	}

	// The reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("Pages: malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("Pages: open pdf: %w", err)
	}

	pages = make([]string, r.NumPage())
	for i := range pages {
		p := r.Page(i + 1)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		pages[i] = text
	}

	return pages, nil
}

// Text returns the whole document as a single string; see Join.
func (e *Extractor) Text(data []byte) (string, error) {
	pages, err := e.Pages(data)
	if err != nil {
		return "", err
	}
	return Join(pages), nil
}

// Join concatenates the non-empty pages, each followed by a newline.
func Join(pages []string) string {
	var b strings.Builder
	for _, p := range pages {
		if p == "" {
			continue
		}
		b.WriteString(p)
		b.WriteString("\n")
	}
	return b.String()
}
