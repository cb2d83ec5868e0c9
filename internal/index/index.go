// Package index flattens a document tree into the ordered list of text
// blocks that search and replace work on.
package index

import (
	"iter"

	"github.com/dgallion1/ultratext/internal/doctree"
)

// TextBlock is one text-bearing leaf block. Start is the position of its
// opening boundary, so character i of Text sits at position Start+1+i.
type TextBlock struct {
	Start int
	Text  string
}

// End is the position of the block's closing boundary.
func (b TextBlock) End() int {
	return b.Start + 1 + len([]rune(b.Text))
}

// Pos converts a rune offset inside Text to a document position.
func (b TextBlock) Pos(offset int) int {
	return b.Start + 1 + offset
}

// TextBlocks yields the text blocks of root in document order. Each range
// over the sequence walks the tree again, so it always reflects the tree it
// was built from.
func TextBlocks(root *doctree.Node) iter.Seq[TextBlock] {
	return func(yield func(TextBlock) bool) {
		if root == nil {
			return
		}
		stopped := false
		root.Descendants(func(n *doctree.Node, pos int) bool {
			if stopped {
				return false
			}
			if !n.IsTextblock() {
				return !n.IsText()
			}
			if !yield(TextBlock{Start: pos, Text: n.InlineText()}) {
				stopped = true
			}
			return false
		})
	}
}

// All collects TextBlocks into a slice.
func All(root *doctree.Node) []TextBlock {
	var out []TextBlock
	for b := range TextBlocks(root) {
		out = append(out, b)
	}
	return out
}
