// Package convert moves documents between the tree model and file formats.
// JSON is lossless; Markdown and plain text are best-effort and lossy.
package convert

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgallion1/ultratext/internal/doctree"
)

// Serialize encodes root in format f.
func Serialize(root *doctree.Node, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		out, err := json.MarshalIndent(root, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
		return out, nil
	case FormatMarkdown:
		return []byte(DocumentToMarkdown(root)), nil
	case FormatPlainText:
		return []byte(DocumentToPlainText(root)), nil
	}
	return nil, fmt.Errorf("serialize: unknown format %q", f)
}

// Deserialize decodes data written in format f. Only JSON can fail; the
// error is then a *ParseError.
func Deserialize(data []byte, f Format) (*doctree.Node, error) {
	switch f {
	case FormatJSON:
		return decodeJSON(data)
	case FormatMarkdown:
		return MarkdownToDocument(string(data))
	case FormatPlainText:
		return PlainTextToDocument(string(data))
	}
	return nil, fmt.Errorf("deserialize: unknown format %q", f)
}

func decodeJSON(data []byte) (*doctree.Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var root doctree.Node
	if err := dec.Decode(&root); err != nil {
		return nil, &ParseError{Format: FormatJSON, Err: err}
	}
	if dec.More() {
		return nil, &ParseError{Format: FormatJSON, Err: errors.New("trailing data after document")}
	}
	if err := doctree.Validate(&root); err != nil {
		return nil, &ParseError{Format: FormatJSON, Err: err}
	}
	return &root, nil
}
