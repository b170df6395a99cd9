package extractor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/OAT7963/mae-pdf-processing/internal/logger"
)

var (
	// ErrExtraction is returned when no readable text can be produced for a document.
	ErrExtraction = errors.New("text extraction failed")
	// ErrUnsupportedInput is returned for files that are neither PDF nor text.
	ErrUnsupportedInput = errors.New("unsupported input file")
)

// Source produces the text of one statement document.
type Source interface {
	Extract(ctx context.Context, path string) (*Document, error)
}

// Document is the extracted text of one statement, page by page.
type Document struct {
	Path        string
	Pages       []string
	PageCount   int
	CreatedYear int    // from PDF metadata, 0 when unknown
	Method      string // which extraction path produced the text
}

// Lines returns the page texts concatenated in order and split into
// non-blank lines. Page boundaries are not preserved.
func (d *Document) Lines() []string {
	var lines []string
	for _, page := range d.Pages {
		for _, line := range strings.Split(page, "\n") {
			line = strings.TrimRight(line, " \t\r")
			if strings.TrimSpace(line) == "" {
				continue
			}
			lines = append(lines, line)
		}
	}
	return lines
}

// Extractor reads PDF statements and pre-extracted text files.
type Extractor struct {
	// DisablePdftotext turns off the poppler fallback.
	DisablePdftotext bool
}

// New returns an Extractor with the pdftotext fallback enabled.
func New() *Extractor {
	return &Extractor{}
}

// Extract reads the document at path. A .txt file is taken as already
// extracted text; a .pdf goes through the PDF reader and its metadata is read
// for the creation year.
func (e *Extractor) Extract(ctx context.Context, path string) (*Document, error) {
	log := logger.FromContext(ctx)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrExtraction, path, err)
		}
		return &Document{Path: path, Pages: []string{string(data)}, PageCount: 1, Method: "text"}, nil

	case ".pdf":
		pages, method, err := e.extractPDF(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrExtraction, path, err)
		}
		doc := &Document{Path: path, Pages: pages, PageCount: len(pages), Method: method}

		meta, err := ReadMetadata(path)
		if err != nil {
			log.Debug().Err(err).Str("document", path).Msg("pdf metadata unavailable")
		} else {
			doc.CreatedYear = meta.CreatedYear
			if meta.PageCount > 0 {
				doc.PageCount = meta.PageCount
			}
		}
		log.Debug().Str("document", path).Str("method", method).Int("pages", doc.PageCount).Msg("extracted text")
		return doc, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupportedInput, path)
}

// Supported reports whether the file extension is one Extract accepts.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf", ".txt":
		return true
	}
	return false
}
