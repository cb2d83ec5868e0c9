// Package parser imports foreign file formats into documents. Imports are
// read-only: the result is a new document that has never been saved.
package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/ultratext/internal/doctree"
)

// Parser converts raw file bytes into a document tree.
type Parser interface {
	Parse(r io.Reader, filename string) (*doctree.Node, error)
}

// SupportedExtensions lists file extensions that can be imported.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// Options tunes the importers that need it.
type Options struct {
	PDFFallbackPdftotext bool
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".csv":
		return &CSVParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: opts.PDFFallbackPdftotext}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// ensureBlock keeps imported documents editable: an empty import still
// holds one paragraph.
func ensureBlock(root *doctree.Node) *doctree.Node {
	if len(root.Content) == 0 {
		root.Content = []*doctree.Node{doctree.NewParagraph()}
	}
	return root
}

// textParagraph builds a paragraph from text, turning newlines into hard
// breaks.
func textParagraph(text string) *doctree.Node {
	p := doctree.NewParagraph()
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			p.Content = append(p.Content, doctree.NewAtom("hardBreak", nil))
		}
		if line != "" {
			p.Content = append(p.Content, doctree.NewText(line))
		}
	}
	return p
}
