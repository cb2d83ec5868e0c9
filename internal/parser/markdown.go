package parser

import (
	"fmt"
	"io"

	"github.com/dgallion1/ultratext/internal/convert"
	"github.com/dgallion1/ultratext/internal/doctree"
)

// MarkdownParser handles Markdown files using goldmark.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.Node, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	return convert.MarkdownToDocument(string(src))
}
