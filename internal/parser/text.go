package parser

import (
	"fmt"
	"io"

	"github.com/dgallion1/ultratext/internal/convert"
	"github.com/dgallion1/ultratext/internal/doctree"
)

// TextParser handles plain text files.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*doctree.Node, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	return convert.PlainTextToDocument(string(src))
}
