package convert

import (
	"strings"

	"github.com/dgallion1/ultratext/internal/doctree"
)

var plainEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", "\n", "<br>")

// PlainTextToDocument wraps text in a single paragraph, one hard break per
// newline.
func PlainTextToDocument(text string) (*doctree.Node, error) {
	return doctree.FromHTML("<p>" + plainEscaper.Replace(text) + "</p>")
}

// DocumentToPlainText drops all structure: text blocks are separated by a
// blank line and hard breaks become newlines.
func DocumentToPlainText(root *doctree.Node) string {
	return doctree.Text(root)
}
